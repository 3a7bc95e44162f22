// Package server provides the Skein HTTP REST server, which stores grammars
// for its users and answers queries and structural operations on them.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/dekarrin/skein/server/api"
	"github.com/dekarrin/skein/server/dao"
	"github.com/dekarrin/skein/server/serr"
	"github.com/dekarrin/skein/server/skeins"
)

// SkeinServer is an HTTP REST server that provides Skein grammars and
// associated resources. The zero-value of a SkeinServer should not be used
// directly; call New() to get one ready for use.
type SkeinServer struct {
	router http.Handler
	db     dao.Store
	api    api.API
	listen string
}

// New creates a new SkeinServer from the given config. Unset values in cfg
// are given their defaults, and the result must pass Config.Validate.
func New(cfg Config) (SkeinServer, error) {
	cfg = cfg.FillDefaults()
	if err := cfg.Validate(); err != nil {
		return SkeinServer{}, fmt.Errorf("config: %w", err)
	}

	db, err := cfg.DB.Connect()
	if err != nil {
		return SkeinServer{}, err
	}

	svc := skeins.New(db)
	svc.PasswordCost = cfg.PasswordCost

	ss := SkeinServer{
		db:     db,
		listen: cfg.ListenAddress,
		api: api.API{
			Backend:     svc,
			UnauthDelay: cfg.UnauthDelay(),
			Secret:      cfg.TokenSecret,
		},
	}
	ss.router = newRouter(ss.api)

	return ss, nil
}

// Handler returns the handler that routes all requests to the server.
func (ss SkeinServer) Handler() http.Handler {
	return ss.router
}

// Service returns the backend service of the server.
func (ss SkeinServer) Service() skeins.Service {
	return ss.api.Backend
}

// CreateAdmin creates an admin user with the given username and password if
// no user with that username exists. Returns whether a user was created.
func (ss SkeinServer) CreateAdmin(ctx context.Context, username, password string) (bool, error) {
	_, err := ss.api.Backend.CreateUser(ctx, username, password, "", dao.Admin)
	if err != nil {
		if errors.Is(err, serr.ErrAlreadyExists) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Close releases the persistence layer of the server.
func (ss SkeinServer) Close() error {
	return ss.db.Close()
}

// ServeForever begins listening on the configured address for HTTP REST
// client requests. It only returns by exiting the program.
func (ss SkeinServer) ServeForever() {
	log.Printf("INFO  Listening on %s", ss.listen)
	log.Fatalf("FATAL %v", http.ListenAndServe(ss.listen, ss.router))
}
