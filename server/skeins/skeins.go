// Package skeins has services for interacting with the Skein server backend
// decoupled from the API that accesses it.
package skeins

import (
	"sync"

	"github.com/dekarrin/skein/server/dao"
	"golang.org/x/crypto/bcrypt"
)

// DefaultPasswordCost is the bcrypt cost used when a Service does not set one.
const DefaultPasswordCost = 14

// Service performs the actions requested of the Skein server backend and makes
// calls to persistence to preserve the backend state.
//
// Use New to create one; the zero value has no store.
type Service struct {

	// DB is the persistence store of the service.
	DB dao.Store

	// PasswordCost is the bcrypt cost of new password hashes. If it is zero,
	// DefaultPasswordCost is used.
	PasswordCost int

	// grammarMtx serializes read-modify-write cycles on stored grammars.
	grammarMtx *sync.Mutex
}

// New returns a Service that uses the given store.
func New(db dao.Store) Service {
	return Service{
		DB:         db,
		grammarMtx: &sync.Mutex{},
	}
}

func (svc Service) passwordCost() int {
	if svc.PasswordCost == 0 {
		return DefaultPasswordCost
	}
	if svc.PasswordCost < bcrypt.MinCost {
		return bcrypt.MinCost
	}
	return svc.PasswordCost
}

func (svc Service) lockGrammars() func() {
	if svc.grammarMtx == nil {
		return func() {}
	}
	svc.grammarMtx.Lock()
	return svc.grammarMtx.Unlock
}
