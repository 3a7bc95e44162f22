package api

import (
	"net/http"

	"github.com/dekarrin/skein/internal/version"
	"github.com/dekarrin/skein/server/middle"
	"github.com/dekarrin/skein/server/result"
)

// HTTPGetInfo returns a HandlerFunc that retrieves information on the API and
// server.
//
// The request context must contain a value denoting whether the client making
// the request is logged-in.
func (api API) HTTPGetInfo() http.HandlerFunc {
	return httpEndpoint(api.UnauthDelay, api.epGetInfo)
}

func (api API) epGetInfo(req *http.Request) result.Result {
	loggedIn := req.Context().Value(middle.AuthLoggedIn).(bool)

	var resp InfoModel
	resp.Version.Server = version.ServerCurrent
	resp.Version.Skein = version.Current

	userStr := "unauthed client"
	if loggedIn {
		userStr = "user '" + requireUser(req).Username + "'"
	}
	return result.OK(resp, "%s got API info", userStr)
}
