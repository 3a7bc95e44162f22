// Package inmem provides a dao.Store that keeps everything in memory and is
// lost when the server stops.
package inmem

import (
	"github.com/dekarrin/skein/server/dao"
)

type store struct {
	users    *UsersRepository
	grammars *InMemoryGrammarsRepository
}

func NewDatastore() dao.Store {
	return &store{
		users:    NewUsersRepository(),
		grammars: NewGrammarsRepository(),
	}
}

func (s *store) Users() dao.UserRepository {
	return s.users
}

func (s *store) Grammars() dao.GrammarRepository {
	return s.grammars
}

func (s *store) Close() error {
	if err := s.users.Close(); err != nil {
		return err
	}
	return s.grammars.Close()
}
