package inmem

import (
	"context"
	"testing"

	"github.com/dekarrin/skein/server/dao"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func Test_UsersRepository(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	repo := NewUsersRepository()

	created, err := repo.Create(ctx, dao.User{Username: "a", Password: "p", Role: dao.Normal})
	if !assert.NoError(err) {
		return
	}
	assert.NotEqual(uuid.UUID{}, created.ID)
	assert.False(created.Created.IsZero())

	_, err = repo.Create(ctx, dao.User{Username: "a", Password: "q"})
	assert.ErrorIs(err, dao.ErrConstraintViolation)

	got, err := repo.GetByUsername(ctx, "a")
	assert.NoError(err)
	assert.Equal(created.ID, got.ID)

	got.Username = "b"
	updated, err := repo.Update(ctx, got.ID, got)
	assert.NoError(err)
	assert.Equal("b", updated.Username)

	_, err = repo.GetByUsername(ctx, "a")
	assert.ErrorIs(err, dao.ErrNotFound)

	_, err = repo.Delete(ctx, got.ID)
	assert.NoError(err)

	_, err = repo.GetByID(ctx, got.ID)
	assert.ErrorIs(err, dao.ErrNotFound)
}

func Test_UsersRepository_UpdateConflicts(t *testing.T) {
	ctx := context.Background()

	testCases := []struct {
		name      string
		change    func(u *dao.User, other dao.User)
		expectErr error
	}{
		{name: "rename to free name", change: func(u *dao.User, _ dao.User) { u.Username = "c" }},
		{name: "rename to taken name", change: func(u *dao.User, other dao.User) { u.Username = other.Username }, expectErr: dao.ErrConstraintViolation},
		{name: "move to taken ID", change: func(u *dao.User, other dao.User) { u.ID = other.ID }, expectErr: dao.ErrConstraintViolation},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)
			repo := NewUsersRepository()
			a, _ := repo.Create(ctx, dao.User{Username: "a"})
			b, _ := repo.Create(ctx, dao.User{Username: "b"})
			assert.Equal(a.Created, a.LastLogoutTime)

			changed := a
			tc.change(&changed, b)
			_, err := repo.Update(ctx, a.ID, changed)

			if tc.expectErr != nil {
				assert.ErrorIs(err, tc.expectErr)
				got, _ := repo.GetByUsername(ctx, "a")
				assert.Equal(a.ID, got.ID, "failed update changed the user")
				return
			}
			assert.NoError(err)
			got, err := repo.GetByUsername(ctx, changed.Username)
			assert.NoError(err)
			assert.Equal(a.Created, got.Created)
		})
	}
}

func Test_GrammarsRepository(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	repo := NewGrammarsRepository()

	owner := uuid.New()
	other := uuid.New()

	data := []byte{1, 2, 3}
	g2, err := repo.Create(ctx, dao.Grammar{Owner: owner, Name: "zeta", Data: data})
	if !assert.NoError(err) {
		return
	}
	_, err = repo.Create(ctx, dao.Grammar{Owner: owner, Name: "alpha", Data: []byte{4}})
	assert.NoError(err)
	_, err = repo.Create(ctx, dao.Grammar{Owner: other, Name: "beta", Data: []byte{5}})
	assert.NoError(err)

	// stored data must not alias the caller's
	data[0] = 9
	got, err := repo.GetByID(ctx, g2.ID)
	assert.NoError(err)
	assert.Equal([]byte{1, 2, 3}, got.Data)

	owned, err := repo.GetAllByOwner(ctx, owner)
	assert.NoError(err)
	if assert.Len(owned, 2) {
		assert.Equal("alpha", owned[0].Name)
		assert.Equal("zeta", owned[1].Name)
	}

	got.Data = []byte{7}
	got.Owner = other
	updated, err := repo.Update(ctx, got.ID, got)
	assert.NoError(err)
	assert.Equal([]byte{7}, updated.Data)
	assert.Equal(owner, updated.Owner, "owner is not changed by update")

	_, err = repo.Update(ctx, uuid.New(), got)
	assert.ErrorIs(err, dao.ErrNotFound)

	_, err = repo.Delete(ctx, got.ID)
	assert.NoError(err)
	_, err = repo.Delete(ctx, got.ID)
	assert.ErrorIs(err, dao.ErrNotFound)
}
