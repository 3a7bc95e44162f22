// Package result contains the results that API endpoints produce and the code
// that writes them out as HTTP responses.
package result

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
)

type ErrorResponse struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

// internal splits an optional format string and args for a builder. The first
// element of internalMsg, if present, must be a string.
func internal(def string, internalMsg []interface{}) (string, []interface{}) {
	if len(internalMsg) < 1 {
		return def, nil
	}
	return internalMsg[0].(string), internalMsg[1:]
}

// OK returns a Result containing an HTTP-200 along with a message for the log
// that is not displayed to the user.
func OK(respObj interface{}, internalMsg ...interface{}) Result {
	f, args := internal("OK", internalMsg)
	return Response(http.StatusOK, respObj, f, args...)
}

func NoContent(internalMsg ...interface{}) Result {
	f, args := internal("no content", internalMsg)
	return Response(http.StatusNoContent, nil, f, args...)
}

func Created(respObj interface{}, internalMsg ...interface{}) Result {
	f, args := internal("created", internalMsg)
	return Response(http.StatusCreated, respObj, f, args...)
}

func Conflict(userMsg string, internalMsg ...interface{}) Result {
	f, args := internal("conflict", internalMsg)
	return Err(http.StatusConflict, userMsg, f, args...)
}

func BadRequest(userMsg string, internalMsg ...interface{}) Result {
	f, args := internal("bad request", internalMsg)
	return Err(http.StatusBadRequest, userMsg, f, args...)
}

// UnprocessableEntity is for requests that were well-formed but that the
// grammar engine rejected.
func UnprocessableEntity(userMsg string, internalMsg ...interface{}) Result {
	f, args := internal("unprocessable entity", internalMsg)
	return Err(http.StatusUnprocessableEntity, userMsg, f, args...)
}

func MethodNotAllowed(req *http.Request, internalMsg ...interface{}) Result {
	f, args := internal("method not allowed", internalMsg)
	userMsg := fmt.Sprintf("Method %s is not allowed for %s", req.Method, req.URL.Path)
	return Err(http.StatusMethodNotAllowed, userMsg, f, args...)
}

func NotFound(internalMsg ...interface{}) Result {
	f, args := internal("not found", internalMsg)
	return Err(http.StatusNotFound, "The requested resource was not found", f, args...)
}

func Forbidden(internalMsg ...interface{}) Result {
	f, args := internal("forbidden", internalMsg)
	return Err(http.StatusForbidden, "You don't have permission to do that", f, args...)
}

// Unauthorized returns an HTTP-401 with a WWW-Authenticate header. If userMsg
// is empty a generic message is used.
func Unauthorized(userMsg string, internalMsg ...interface{}) Result {
	f, args := internal("unauthorized", internalMsg)
	if userMsg == "" {
		userMsg = "You are not authorized to do that"
	}
	return Err(http.StatusUnauthorized, userMsg, f, args...).
		WithHeader("WWW-Authenticate", `Bearer realm="Skein server", charset="utf-8"`)
}

func InternalServerError(internalMsg ...interface{}) Result {
	f, args := internal("internal server error", internalMsg)
	return Err(http.StatusInternalServerError, "An internal server error occurred", f, args...)
}

// Response creates a non-error Result. If status is http.StatusNoContent,
// respObj is not read and may be nil.
func Response(status int, respObj interface{}, internalMsg string, v ...interface{}) Result {
	return Result{
		IsJSON:      true,
		Status:      status,
		InternalMsg: fmt.Sprintf(internalMsg, v...),
		resp:        respObj,
	}
}

// Err creates an error Result whose body is an ErrorResponse.
func Err(status int, userMsg, internalMsg string, v ...interface{}) Result {
	return Result{
		IsJSON:      true,
		IsErr:       true,
		Status:      status,
		InternalMsg: fmt.Sprintf(internalMsg, v...),
		resp: ErrorResponse{
			Error:  userMsg,
			Status: status,
		},
	}
}

func Redirection(uri string) Result {
	return Result{
		Status:      http.StatusPermanentRedirect,
		InternalMsg: fmt.Sprintf("redirect -> %s", uri),
		redir:       uri,
	}
}

// TextErr is like Err but writes userMsg as plain text.
func TextErr(status int, userMsg, internalMsg string, v ...interface{}) Result {
	return Result{
		IsErr:       true,
		Status:      status,
		InternalMsg: fmt.Sprintf(internalMsg, v...),
		resp:        userMsg,
	}
}

type Result struct {
	Status      int
	IsErr       bool
	IsJSON      bool
	InternalMsg string

	resp  interface{}
	redir string
	hdrs  [][2]string

	// set by PrepareMarshaledResponse
	respJSONBytes []byte
}

func (r Result) WithHeader(name, val string) Result {
	cp := r
	cp.hdrs = make([][2]string, len(r.hdrs), len(r.hdrs)+1)
	copy(cp.hdrs, r.hdrs)
	cp.hdrs = append(cp.hdrs, [2]string{name, val})
	return cp
}

// PrepareMarshaledResponse marshals the response body if it is JSON. Calling it
// again after a success has no effect.
func (r *Result) PrepareMarshaledResponse() error {
	if r.respJSONBytes != nil {
		return nil
	}

	if r.IsJSON && r.Status != http.StatusNoContent && r.redir == "" {
		var err error
		r.respJSONBytes, err = json.Marshal(r.resp)
		if err != nil {
			return err
		}
	}

	return nil
}

// WriteResponse writes the result to w and logs it against req. It panics if
// r was not created by one of the builders in this package.
func (r Result) WriteResponse(w http.ResponseWriter, req *http.Request) {
	if r.Status == 0 {
		panic("result not populated")
	}

	err := r.PrepareMarshaledResponse()
	if err != nil {
		panic(fmt.Sprintf("could not marshal response: %s", err.Error()))
	}

	var respBytes []byte

	if r.IsJSON {
		w.Header().Set("Content-Type", "application/json")
		if r.redir == "" {
			respBytes = r.respJSONBytes
		}
	} else {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		if r.Status != http.StatusNoContent && r.redir == "" {
			respBytes = []byte(fmt.Sprintf("%v", r.resp))
		}
	}
	w.Header().Set("X-Content-Type-Options", "nosniff")

	if r.redir != "" {
		w.Header().Set("Location", r.redir)
	}

	for i := range r.hdrs {
		w.Header().Set(r.hdrs[i][0], r.hdrs[i][1])
	}

	w.WriteHeader(r.Status)

	if r.Status != http.StatusNoContent {
		w.Write(respBytes)
	}

	r.log(req)
}

func (r Result) log(req *http.Request) {
	level := "INFO "
	if r.IsErr {
		level = "ERROR"
	}
	if req == nil {
		log.Printf("%s HTTP-%d: %s", level, r.Status, r.InternalMsg)
		return
	}
	// the ephemeral port of the client is not useful
	remoteIP := strings.SplitN(req.RemoteAddr, ":", 2)[0]
	log.Printf("%s %s %s %s: HTTP-%d %s", level, remoteIP, req.Method, req.URL.Path, r.Status, r.InternalMsg)
}
