package inmem

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dekarrin/skein/server/dao"
	"github.com/google/uuid"
)

// UsersRepository holds users in a map with a second index on username.
type UsersRepository struct {
	mtx    sync.RWMutex
	users  map[uuid.UUID]dao.User
	byName map[string]uuid.UUID
}

func NewUsersRepository() *UsersRepository {
	return &UsersRepository{
		users:  make(map[uuid.UUID]dao.User),
		byName: make(map[string]uuid.UUID),
	}
}

func (repo *UsersRepository) Close() error {
	return nil
}

// Create stores user under a new ID. Its logout time starts at creation.
func (repo *UsersRepository) Create(ctx context.Context, user dao.User) (dao.User, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return dao.User{}, fmt.Errorf("could not generate ID: %w", err)
	}

	repo.mtx.Lock()
	defer repo.mtx.Unlock()

	if _, taken := repo.byName[user.Username]; taken {
		return dao.User{}, dao.ErrConstraintViolation
	}

	now := time.Now()
	user.ID = id
	user.Created, user.Modified, user.LastLogoutTime = now, now, now
	repo.put(user)
	return user, nil
}

func (repo *UsersRepository) GetAll(ctx context.Context) ([]dao.User, error) {
	repo.mtx.RLock()
	defer repo.mtx.RUnlock()

	all := make([]dao.User, 0, len(repo.users))
	for _, u := range repo.users {
		all = append(all, u)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].ID.String() < all[j].ID.String()
	})
	return all, nil
}

// Update replaces the user with the given ID. The ID and username may both
// change as long as neither collides with another user.
func (repo *UsersRepository) Update(ctx context.Context, id uuid.UUID, user dao.User) (dao.User, error) {
	repo.mtx.Lock()
	defer repo.mtx.Unlock()

	old, ok := repo.users[id]
	if !ok {
		return dao.User{}, dao.ErrNotFound
	}
	if owner, taken := repo.byName[user.Username]; taken && owner != id {
		return dao.User{}, dao.ErrConstraintViolation
	}
	if _, taken := repo.users[user.ID]; taken && user.ID != id {
		return dao.User{}, dao.ErrConstraintViolation
	}

	user.Created = old.Created
	user.Modified = time.Now()
	repo.remove(old)
	repo.put(user)
	return user, nil
}

func (repo *UsersRepository) GetByID(ctx context.Context, id uuid.UUID) (dao.User, error) {
	repo.mtx.RLock()
	defer repo.mtx.RUnlock()

	u, ok := repo.users[id]
	if !ok {
		return dao.User{}, dao.ErrNotFound
	}
	return u, nil
}

func (repo *UsersRepository) GetByUsername(ctx context.Context, username string) (dao.User, error) {
	repo.mtx.RLock()
	defer repo.mtx.RUnlock()

	id, ok := repo.byName[username]
	if !ok {
		return dao.User{}, dao.ErrNotFound
	}
	return repo.users[id], nil
}

func (repo *UsersRepository) Delete(ctx context.Context, id uuid.UUID) (dao.User, error) {
	repo.mtx.Lock()
	defer repo.mtx.Unlock()

	u, ok := repo.users[id]
	if !ok {
		return dao.User{}, dao.ErrNotFound
	}
	repo.remove(u)
	return u, nil
}

// put and remove keep both indexes in step; mtx must be held for writing.
func (repo *UsersRepository) put(u dao.User) {
	repo.users[u.ID] = u
	repo.byName[u.Username] = u.ID
}

func (repo *UsersRepository) remove(u dao.User) {
	delete(repo.users, u.ID)
	delete(repo.byName, u.Username)
}
