// Package middle contains middleware for use with the Skein server.
package middle

import (
	"context"
	"net/http"
	"time"

	"github.com/dekarrin/skein/server/dao"
	"github.com/dekarrin/skein/server/result"
	"github.com/dekarrin/skein/server/token"
)

// Middleware is a function that takes a handler and returns a new handler which
// wraps the given one and provides some additional functionality.
type Middleware func(next http.Handler) http.Handler

// AuthKey is a key in the context of a request populated by an AuthHandler.
type AuthKey int64

const (
	AuthLoggedIn AuthKey = iota
	AuthUser
)

// AuthHandler extracts the token from a request and looks up the user it
// belongs to. AuthUser and AuthLoggedIn are set in the request context before
// it is passed on. If login is required and there is no valid token, an
// HTTP-401 is written instead after a delay.
type AuthHandler struct {
	db            dao.UserRepository
	secret        []byte
	required      bool
	defaultUser   dao.User
	unauthedDelay time.Duration
	next          http.Handler
}

func (ah *AuthHandler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	var loggedIn bool
	user := ah.defaultUser

	tok, err := token.Get(req)
	if err == nil {
		var lookupUser dao.User
		lookupUser, err = token.Validate(req.Context(), tok, ah.secret, ah.db)
		if err == nil {
			user = lookupUser
			loggedIn = true
		}
	}

	if err != nil && ah.required {
		r := result.Unauthorized("", err.Error())
		time.Sleep(ah.unauthedDelay)
		r.WriteResponse(w, req)
		return
	}

	ctx := req.Context()
	ctx = context.WithValue(ctx, AuthLoggedIn, loggedIn)
	ctx = context.WithValue(ctx, AuthUser, user)
	req = req.WithContext(ctx)
	ah.next.ServeHTTP(w, req)
}

// RequireAuth gives middleware that rejects requests without a valid token.
func RequireAuth(db dao.UserRepository, secret []byte, unauthDelay time.Duration, defaultUser dao.User) Middleware {
	return authMiddleware(db, secret, unauthDelay, defaultUser, true)
}

// OptionalAuth gives middleware that looks up the user for a valid token but
// lets requests without one through as defaultUser.
func OptionalAuth(db dao.UserRepository, secret []byte, unauthDelay time.Duration, defaultUser dao.User) Middleware {
	return authMiddleware(db, secret, unauthDelay, defaultUser, false)
}

func authMiddleware(db dao.UserRepository, secret []byte, unauthDelay time.Duration, defaultUser dao.User, required bool) Middleware {
	return func(next http.Handler) http.Handler {
		return &AuthHandler{
			db:            db,
			secret:        secret,
			unauthedDelay: unauthDelay,
			defaultUser:   defaultUser,
			required:      required,
			next:          next,
		}
	}
}
