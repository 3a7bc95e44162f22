package api

import (
	"errors"
	"net/http"

	"github.com/dekarrin/skein/server/dao"
	"github.com/dekarrin/skein/server/result"
	"github.com/dekarrin/skein/server/serr"
	"github.com/google/uuid"
)

// missingField checks name/value pairs in order and gives a 400 for the first
// value that is empty.
func missingField(pairs ...string) (result.Result, bool) {
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			return result.BadRequest(pairs[i]+": property is empty or missing from request", "empty %s", pairs[i]), true
		}
	}
	return result.Result{}, false
}

// selfOrAdmin gets the user the URL names and the logged-in user. Callers may
// act on themselves; only an admin may act on anyone else.
func selfOrAdmin(req *http.Request, action string) (target uuid.UUID, user dao.User, denied *result.Result) {
	target = requireIDParam(req)
	user = requireUser(req)
	if target != user.ID && user.Role != dao.Admin {
		r := result.Forbidden("user '%s' (role %s) %s %s: forbidden", user.Username, user.Role, action, target)
		return target, user, &r
	}
	return target, user, nil
}

// whom names the user acted on for the log.
func whom(user dao.User, target uuid.UUID, name string) string {
	switch {
	case target == user.ID:
		return "self"
	case name == "":
		return "user " + target.String() + " (no-op)"
	default:
		return "user '" + name + "'"
	}
}

// HTTPGetAllUsers lists every user. Admin only.
func (api API) HTTPGetAllUsers() http.HandlerFunc {
	return httpEndpoint(api.UnauthDelay, api.epGetAllUsers)
}

func (api API) epGetAllUsers(req *http.Request) result.Result {
	user := requireUser(req)
	if user.Role != dao.Admin {
		return result.Forbidden("user '%s' (role %s) list users: forbidden", user.Username, user.Role)
	}

	users, err := api.Backend.GetAllUsers(req.Context())
	if err != nil {
		return serviceError(err, "list users")
	}

	resp := make([]UserModel, 0, len(users))
	for _, u := range users {
		resp = append(resp, userModel(u))
	}
	return result.OK(resp, "user '%s' listed %d users", user.Username, len(resp))
}

// HTTPCreateUser makes a new user. Admin only; a missing role gives an
// unverified user.
func (api API) HTTPCreateUser() http.HandlerFunc {
	return httpEndpoint(api.UnauthDelay, api.epCreateUser)
}

func (api API) epCreateUser(req *http.Request) result.Result {
	user := requireUser(req)
	if user.Role != dao.Admin {
		return result.Forbidden("user '%s' (role %s) create user: forbidden", user.Username, user.Role)
	}

	var body UserModel
	if err := parseJSON(req, &body); err != nil {
		return result.BadRequest(err.Error(), err.Error())
	}
	if r, bad := missingField("username", body.Username, "password", body.Password); bad {
		return r
	}

	role := dao.Unverified
	if body.Role != "" {
		var err error
		if role, err = dao.ParseRole(body.Role); err != nil {
			return result.BadRequest("role: "+err.Error(), "role: %s", err.Error())
		}
	}

	created, err := api.Backend.CreateUser(req.Context(), body.Username, body.Password, body.Email, role)
	if err != nil {
		return serviceError(err, "create user '"+body.Username+"'")
	}

	resp := userModel(created)
	return result.Created(resp, "user '%s' created user '%s' (%s)", user.Username, resp.Username, resp.ID)
}

// HTTPGetUser gets one user. The URL must hold the user's ID.
func (api API) HTTPGetUser() http.HandlerFunc {
	return httpEndpoint(api.UnauthDelay, api.epGetUser)
}

func (api API) epGetUser(req *http.Request) result.Result {
	target, user, denied := selfOrAdmin(req, "get user")
	if denied != nil {
		return *denied
	}

	found, err := api.Backend.GetUser(req.Context(), target.String())
	if err != nil {
		return serviceError(err, "get user")
	}
	return result.OK(userModel(found), "user '%s' got %s", user.Username, whom(user, target, found.Username))
}

// HTTPDeleteUser removes a user and every grammar they own. Deleting a user
// that is already gone succeeds.
func (api API) HTTPDeleteUser() http.HandlerFunc {
	return httpEndpoint(api.UnauthDelay, api.epDeleteUser)
}

func (api API) epDeleteUser(req *http.Request) result.Result {
	target, user, denied := selfOrAdmin(req, "delete user")
	if denied != nil {
		return *denied
	}

	gone, err := api.Backend.DeleteUser(req.Context(), target.String())
	if err != nil && !errors.Is(err, serr.ErrNotFound) {
		return serviceError(err, "delete user")
	}
	return result.NoContent("user '%s' deleted %s", user.Username, whom(user, target, gone.Username))
}
