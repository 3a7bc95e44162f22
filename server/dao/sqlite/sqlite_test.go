package sqlite

import (
	"context"
	"net/mail"
	"testing"
	"time"

	"github.com/dekarrin/skein/server/dao"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func newTestStore(t *testing.T) dao.Store {
	t.Helper()
	st, err := NewDatastore(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func Test_Users(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	repo := newTestStore(t).Users()

	email, _ := mail.ParseAddress("a@example.com")
	created, err := repo.Create(ctx, dao.User{Username: "a", Password: "p", Email: email, Role: dao.Admin})
	if !assert.NoError(err) {
		return
	}
	assert.Equal(dao.Admin, created.Role)
	assert.Equal("a@example.com", created.Email.Address)
	assert.True(created.LastLoginTime.IsZero())

	_, err = repo.Create(ctx, dao.User{Username: "a", Password: "q"})
	assert.ErrorIs(err, dao.ErrConstraintViolation)

	created.LastLoginTime = time.Unix(1700000000, 0)
	updated, err := repo.Update(ctx, created.ID, created)
	assert.NoError(err)
	assert.Equal(int64(1700000000), updated.LastLoginTime.Unix())

	all, err := repo.GetAll(ctx)
	assert.NoError(err)
	assert.Len(all, 1)

	_, err = repo.GetByUsername(ctx, "nobody")
	assert.ErrorIs(err, dao.ErrNotFound)

	_, err = repo.Delete(ctx, created.ID)
	assert.NoError(err)
	_, err = repo.Delete(ctx, created.ID)
	assert.ErrorIs(err, dao.ErrNotFound)
}

func Test_Grammars(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	repo := newTestStore(t).Grammars()

	owner := uuid.New()
	created, err := repo.Create(ctx, dao.Grammar{Owner: owner, Name: "g", Data: []byte{0, 1, 2, 255}})
	if !assert.NoError(err) {
		return
	}
	assert.Equal(owner, created.Owner)
	assert.Equal([]byte{0, 1, 2, 255}, created.Data)

	created.Name = "renamed"
	created.Data = []byte("new")
	updated, err := repo.Update(ctx, created.ID, created)
	assert.NoError(err)
	assert.Equal("renamed", updated.Name)
	assert.Equal([]byte("new"), updated.Data)

	owned, err := repo.GetAllByOwner(ctx, owner)
	assert.NoError(err)
	assert.Len(owned, 1)

	none, err := repo.GetAllByOwner(ctx, uuid.New())
	assert.NoError(err)
	assert.Empty(none)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(err, dao.ErrNotFound)

	_, err = repo.Delete(ctx, created.ID)
	assert.NoError(err)
}

func Test_Convert_Role(t *testing.T) {
	testCases := []struct {
		name      string
		input     int64
		expect    dao.Role
		expectErr bool
	}{
		{name: "normal", input: 2, expect: dao.Normal},
		{name: "admin", input: 100, expect: dao.Admin},
		{name: "unknown", input: 50, expectErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)
			var actual dao.Role
			err := convertFromDB_Role(tc.input, &actual)
			if tc.expectErr {
				assert.Error(err)
				return
			}
			assert.NoError(err)
			assert.Equal(tc.expect, actual)
		})
	}
}
