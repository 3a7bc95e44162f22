package api

import (
	"errors"
	"net/http"

	"github.com/dekarrin/skein/server/result"
	"github.com/dekarrin/skein/server/serr"
	"github.com/dekarrin/skein/server/token"
)

// HTTPCreateLogin checks a username and password and gives back a bearer
// token for the user.
func (api API) HTTPCreateLogin() http.HandlerFunc {
	return httpEndpoint(api.UnauthDelay, api.epCreateLogin)
}

func (api API) epCreateLogin(req *http.Request) result.Result {
	var creds LoginRequest
	if err := parseJSON(req, &creds); err != nil {
		return result.BadRequest(err.Error(), err.Error())
	}
	if r, bad := missingField("username", creds.Username, "password", creds.Password); bad {
		return r
	}

	user, err := api.Backend.Login(req.Context(), creds.Username, creds.Password)
	if errors.Is(err, serr.ErrBadCredentials) {
		return result.Unauthorized(serr.ErrBadCredentials.Error(), "login as '%s': %s", creds.Username, err.Error())
	} else if err != nil {
		return serviceError(err, "login")
	}

	tok, err := token.Generate(api.Secret, user)
	if err != nil {
		return result.InternalServerError("could not generate JWT: " + err.Error())
	}
	return result.Created(LoginResponse{Token: tok, UserID: user.ID.String()}, "user '%s' logged in", user.Username)
}

// HTTPDeleteLogin logs a user out, which invalidates every token issued to
// them before now. The URL must hold the user's ID.
func (api API) HTTPDeleteLogin() http.HandlerFunc {
	return httpEndpoint(api.UnauthDelay, api.epDeleteLogin)
}

func (api API) epDeleteLogin(req *http.Request) result.Result {
	target, user, denied := selfOrAdmin(req, "log out user")
	if denied != nil {
		return *denied
	}

	out, err := api.Backend.Logout(req.Context(), target)
	if err != nil {
		return serviceError(err, "log out user")
	}
	return result.NoContent("user '%s' logged out %s", user.Username, whom(user, target, out.Username))
}
