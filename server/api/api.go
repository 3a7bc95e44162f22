// Package api provides HTTP API endpoints for the Skein server.
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/dekarrin/skein/server/dao"
	"github.com/dekarrin/skein/server/middle"
	"github.com/dekarrin/skein/server/result"
	"github.com/dekarrin/skein/server/serr"
	"github.com/dekarrin/skein/server/skeins"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const (
	// PathPrefix is the prefix of all paths in the API. Routers should mount
	// a sub-router that routes all requests to the API at this path.
	PathPrefix = "/api/v1"

	// MaxRequestSize is the largest request body that will be read.
	MaxRequestSize = 4 << 20
)

// API holds parameters for endpoints needed to run and a service layer that
// will perform most of the actual logic. To use API, create one and then
// assign the result of its HTTP* methods as handlers to a router or some other
// kind of server mux.
//
// For direct programmatic access into the backend of a Skein server via Go
// code, see [skeins.Service].
type API struct {
	// Backend is the service that the API calls to perform the requested
	// actions.
	Backend skeins.Service

	// UnauthDelay is the amount of time that a request will pause before
	// responding with an HTTP-403, HTTP-401, or HTTP-500 to deprioritize such
	// requests from processing and I/O.
	UnauthDelay time.Duration

	// Secret is the secret used to sign JWT tokens.
	Secret []byte
}

// requireIDParam gets the ID of the main entity being referenced in the URI and
// returns it. It panics if the key is not there or is not parsable; routes
// must only match valid UUIDs.
func requireIDParam(r *http.Request) uuid.UUID {
	id, err := getURLParam(r, "id", uuid.Parse)
	if err != nil {
		panic(err.Error())
	}
	return id
}

func getURLParam[E any](r *http.Request, key string, parse func(string) (E, error)) (val E, err error) {
	valStr := chi.URLParam(r, key)
	if valStr == "" {
		return val, fmt.Errorf("parameter %q does not exist", key)
	}

	val, err = parse(valStr)
	if err != nil {
		return val, serr.New(key+" is not valid", serr.ErrBadArgument)
	}
	return val, nil
}

func requireUser(req *http.Request) dao.User {
	return req.Context().Value(middle.AuthUser).(dao.User)
}

// v must be a pointer to a type. The returned error will match
// serr.ErrBodyUnmarshal if there is a problem decoding the JSON itself.
func parseJSON(req *http.Request, v interface{}) error {
	mediaType, _, err := mime.ParseMediaType(req.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return fmt.Errorf("request content-type is not application/json")
	}

	bodyData, err := io.ReadAll(io.LimitReader(req.Body, MaxRequestSize))
	if err != nil {
		return fmt.Errorf("could not read request body: %w", err)
	}
	defer func() {
		req.Body.Close()
		req.Body = io.NopCloser(bytes.NewBuffer(bodyData))
	}()

	err = json.Unmarshal(bodyData, v)
	if err != nil {
		return serr.New("malformed JSON in request", err, serr.ErrBodyUnmarshal)
	}

	return nil
}

// serviceError converts an error from the service layer into a result. action
// describes what was attempted and is only logged.
func serviceError(err error, action string) result.Result {
	switch {
	case errors.Is(err, serr.ErrBadArgument), errors.Is(err, serr.ErrBodyUnmarshal):
		return result.BadRequest(err.Error(), "%s: %s", action, err.Error())
	case errors.Is(err, serr.ErrNotFound):
		return result.NotFound("%s: %s", action, err.Error())
	case errors.Is(err, serr.ErrPermissions):
		return result.Forbidden("%s: forbidden", action)
	case errors.Is(err, serr.ErrAlreadyExists):
		return result.Conflict(err.Error(), "%s: %s", action, err.Error())
	case errors.Is(err, serr.ErrGrammar):
		return result.UnprocessableEntity(err.Error(), "%s: %s", action, err.Error())
	default:
		return result.InternalServerError("%s: %s", action, err.Error())
	}
}

type EndpointFunc func(req *http.Request) result.Result

func httpEndpoint(unauthDelay time.Duration, ep EndpointFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		defer panicTo500(w, req)
		r := ep(req)

		if r.Status == 0 {
			result.InternalServerError("endpoint result was never populated").WriteResponse(w, req)
			return
		}

		// pre-call PrepareMarshaledResponse so that WriteResponse cannot
		// panic on it
		if err := r.PrepareMarshaledResponse(); err != nil {
			result.InternalServerError("could not marshal JSON response: " + err.Error()).WriteResponse(w, req)
			return
		}

		if r.Status == http.StatusUnauthorized || r.Status == http.StatusForbidden || r.Status == http.StatusInternalServerError {
			// either the user is improperly logging in or tried to access a
			// forbidden resource; make them wait
			time.Sleep(unauthDelay)
		}

		r.WriteResponse(w, req)
	}
}

func panicTo500(w http.ResponseWriter, req *http.Request) {
	if panicErr := recover(); panicErr != nil {
		result.TextErr(
			http.StatusInternalServerError,
			"An internal server error occurred",
			fmt.Sprintf("panic: %v\nSTACK TRACE: %s", panicErr, string(debug.Stack())),
		).WriteResponse(w, req)
	}
}
