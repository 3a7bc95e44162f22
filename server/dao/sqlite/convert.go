package sqlite

import (
	"encoding/base64"
	"fmt"
	"net/mail"
	"time"

	"github.com/dekarrin/skein/server/dao"
	"github.com/google/uuid"
)

func convertToDB_UUID(u uuid.UUID) string {
	return u.String()
}

func convertFromDB_UUID(s string, target *uuid.UUID) error {
	u, err := uuid.Parse(s)
	if err != nil {
		return err
	}
	*target = u
	return nil
}

func convertToDB_Email(email *mail.Address) string {
	if email == nil {
		return ""
	}
	return email.Address
}

func convertFromDB_Email(s string, target **mail.Address) error {
	if s == "" {
		*target = nil
		return nil
	}
	email, err := mail.ParseAddress(s)
	if err != nil {
		return err
	}
	*target = email
	return nil
}

// times are stored as unix seconds; the zero time is stored as 0.
func convertToDB_Time(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func convertFromDB_Time(i int64, target *time.Time) error {
	if i == 0 {
		*target = time.Time{}
		return nil
	}
	*target = time.Unix(i, 0)
	return nil
}

func convertToDB_Role(r dao.Role) int64 {
	return int64(r)
}

func convertFromDB_Role(i int64, target *dao.Role) error {
	r := dao.Role(i)
	switch r {
	case dao.Guest, dao.Unverified, dao.Normal, dao.Admin:
		*target = r
		return nil
	default:
		return fmt.Errorf("not a known role: %d", i)
	}
}

func convertToDB_ByteSlice(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

func convertFromDB_ByteSlice(s string, target *[]byte) error {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return err
	}
	*target = b
	return nil
}
