package skeins

import (
	"context"
	"encoding/base64"
	"errors"
	"net/mail"

	"github.com/dekarrin/skein/server/dao"
	"github.com/dekarrin/skein/server/serr"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// GetAllUsers returns all users currently in persistence.
func (svc Service) GetAllUsers(ctx context.Context) ([]dao.User, error) {
	users, err := svc.DB.Users().GetAll(ctx)
	if err != nil {
		return nil, serr.WrapDB("", err)
	}

	return users, nil
}

// GetUser returns the user with the given ID.
//
// If no user with that ID exists, the returned error will match
// serr.ErrNotFound. If the ID is not valid, it will match serr.ErrBadArgument.
// Other problems with the DB match serr.ErrDB.
func (svc Service) GetUser(ctx context.Context, id string) (dao.User, error) {
	uuidID, err := parseID(id)
	if err != nil {
		return dao.User{}, err
	}

	user, err := svc.DB.Users().GetByID(ctx, uuidID)
	if err != nil {
		if errors.Is(err, dao.ErrNotFound) {
			return dao.User{}, serr.ErrNotFound
		}
		return dao.User{}, serr.WrapDB("could not get user", err)
	}

	return user, nil
}

// CreateUser creates a new user with the given username, password, and email
// combo. Returns the newly-created user as it exists after creation.
//
// If a user with that username is already present, the returned error will
// match serr.ErrAlreadyExists. If one of the arguments is invalid, it will
// match serr.ErrBadArgument. Other problems with the DB match serr.ErrDB.
func (svc Service) CreateUser(ctx context.Context, username, password, email string, role dao.Role) (dao.User, error) {
	if username == "" {
		return dao.User{}, serr.New("username cannot be blank", serr.ErrBadArgument)
	}
	if password == "" {
		return dao.User{}, serr.New("password cannot be blank", serr.ErrBadArgument)
	}

	var storedEmail *mail.Address
	if email != "" {
		var err error
		storedEmail, err = mail.ParseAddress(email)
		if err != nil {
			return dao.User{}, serr.New("email is not valid", err, serr.ErrBadArgument)
		}
	}

	_, err := svc.DB.Users().GetByUsername(ctx, username)
	if err == nil {
		return dao.User{}, serr.New("a user with that username already exists", serr.ErrAlreadyExists)
	} else if !errors.Is(err, dao.ErrNotFound) {
		return dao.User{}, serr.WrapDB("", err)
	}

	storedPass, err := svc.hashPassword(password)
	if err != nil {
		return dao.User{}, err
	}

	newUser := dao.User{
		Username: username,
		Password: storedPass,
		Email:    storedEmail,
		Role:     role,
	}

	user, err := svc.DB.Users().Create(ctx, newUser)
	if err != nil {
		if errors.Is(err, dao.ErrConstraintViolation) {
			return dao.User{}, serr.ErrAlreadyExists
		}
		return dao.User{}, serr.WrapDB("could not create user", err)
	}

	return user, nil
}

// DeleteUser deletes the user with the given ID along with every grammar they
// own. It returns the deleted user.
//
// If no user with that ID exists, the returned error will match
// serr.ErrNotFound. If the ID is not valid, it will match serr.ErrBadArgument.
// Other problems with the DB match serr.ErrDB.
func (svc Service) DeleteUser(ctx context.Context, id string) (dao.User, error) {
	uuidID, err := parseID(id)
	if err != nil {
		return dao.User{}, err
	}

	owned, err := svc.DB.Grammars().GetAllByOwner(ctx, uuidID)
	if err != nil {
		return dao.User{}, serr.WrapDB("could not get user's grammars", err)
	}
	for _, g := range owned {
		if _, err := svc.DB.Grammars().Delete(ctx, g.ID); err != nil && !errors.Is(err, dao.ErrNotFound) {
			return dao.User{}, serr.WrapDB("could not delete user's grammar", err)
		}
	}

	user, err := svc.DB.Users().Delete(ctx, uuidID)
	if err != nil {
		if errors.Is(err, dao.ErrNotFound) {
			return dao.User{}, serr.ErrNotFound
		}
		return dao.User{}, serr.WrapDB("could not delete user", err)
	}

	return user, nil
}

func (svc Service) hashPassword(password string) (string, error) {
	passHash, err := bcrypt.GenerateFromPassword([]byte(password), svc.passwordCost())
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", serr.New("password is too long", err, serr.ErrBadArgument)
		}
		return "", serr.New("password could not be encrypted", err)
	}

	return base64.StdEncoding.EncodeToString(passHash), nil
}

func parseID(id string) (uuid.UUID, error) {
	uuidID, err := uuid.Parse(id)
	if err != nil {
		return uuid.UUID{}, serr.New("ID is not valid", serr.ErrBadArgument)
	}
	return uuidID, nil
}
