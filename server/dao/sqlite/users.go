package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dekarrin/skein/server/dao"
	"github.com/google/uuid"
)

const (
	userColumns = `id, username, password, role, email, created, modified, last_logout_time, last_login_time`

	selectUsers = `SELECT ` + userColumns + ` FROM users`
)

// UsersDB keeps accounts in the users table. Roles are stored as integers and
// all times as unix seconds.
type UsersDB struct {
	db *sql.DB
}

func (repo *UsersDB) init() error {
	_, err := repo.db.Exec(`CREATE TABLE IF NOT EXISTS users (
		id TEXT NOT NULL PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		role INTEGER NOT NULL,
		email TEXT NOT NULL,
		created INTEGER NOT NULL,
		modified INTEGER NOT NULL,
		last_logout_time INTEGER NOT NULL,
		last_login_time INTEGER NOT NULL
	);`)
	return wrapDBError(err)
}

// Create inserts user under a new ID. Its logout time starts at creation so
// that no token from before the account existed is accepted.
func (repo *UsersDB) Create(ctx context.Context, user dao.User) (dao.User, error) {
	id, err := newID()
	if err != nil {
		return dao.User{}, err
	}

	now := convertToDB_Time(time.Now())
	_, err = repo.db.ExecContext(ctx, `INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		convertToDB_UUID(id), user.Username, user.Password,
		convertToDB_Role(user.Role), convertToDB_Email(user.Email),
		now, now, now, convertToDB_Time(time.Time{}),
	)
	if err != nil {
		return dao.User{}, wrapDBError(err)
	}
	return repo.GetByID(ctx, id)
}

func (repo *UsersDB) GetAll(ctx context.Context) ([]dao.User, error) {
	return queryAll(ctx, repo.db, scanUser, selectUsers+` ORDER BY id;`)
}

func (repo *UsersDB) GetByUsername(ctx context.Context, username string) (dao.User, error) {
	return scanUser(repo.db.QueryRowContext(ctx, selectUsers+` WHERE username = ?;`, username))
}

func (repo *UsersDB) GetByID(ctx context.Context, id uuid.UUID) (dao.User, error) {
	return scanUser(repo.db.QueryRowContext(ctx, selectUsers+` WHERE id = ?;`, convertToDB_UUID(id)))
}

// Update replaces every field of the user with the given ID except its
// creation time.
func (repo *UsersDB) Update(ctx context.Context, id uuid.UUID, user dao.User) (dao.User, error) {
	err := execOne(ctx, repo.db, `UPDATE users SET id=?, username=?, password=?, role=?, email=?, last_logout_time=?, last_login_time=?, modified=? WHERE id=?;`,
		convertToDB_UUID(user.ID), user.Username, user.Password,
		convertToDB_Role(user.Role), convertToDB_Email(user.Email),
		convertToDB_Time(user.LastLogoutTime), convertToDB_Time(user.LastLoginTime),
		convertToDB_Time(time.Now()),
		convertToDB_UUID(id),
	)
	if err != nil {
		return dao.User{}, err
	}
	return repo.GetByID(ctx, user.ID)
}

func (repo *UsersDB) Delete(ctx context.Context, id uuid.UUID) (dao.User, error) {
	user, err := repo.GetByID(ctx, id)
	if err != nil {
		return user, err
	}
	return user, execOne(ctx, repo.db, `DELETE FROM users WHERE id = ?;`, convertToDB_UUID(id))
}

// Close is a no-op; the connection belongs to the store.
func (repo *UsersDB) Close() error {
	return nil
}

func scanUser(row rowScanner) (dao.User, error) {
	var (
		u                               dao.User
		id, email                       string
		role, created, modified, lo, li int64
	)
	if err := row.Scan(&id, &u.Username, &u.Password, &role, &email, &created, &modified, &lo, &li); err != nil {
		return dao.User{}, wrapDBError(err)
	}

	if err := convertFromDB_UUID(id, &u.ID); err != nil {
		return u, fmt.Errorf("stored UUID %q is invalid: %w", id, err)
	}
	if err := convertFromDB_Email(email, &u.Email); err != nil {
		return u, fmt.Errorf("stored email %q is invalid: %w", email, err)
	}
	if err := convertFromDB_Role(role, &u.Role); err != nil {
		return u, fmt.Errorf("stored role %d is invalid: %w", role, err)
	}
	convertFromDB_Time(created, &u.Created)
	convertFromDB_Time(modified, &u.Modified)
	convertFromDB_Time(lo, &u.LastLogoutTime)
	convertFromDB_Time(li, &u.LastLoginTime)
	return u, nil
}
