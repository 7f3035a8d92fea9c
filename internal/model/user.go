package model

import (
	"database/sql/driver"
	"fmt"
)

// Role is the privilege level of a user.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole accepts only the enumerated roles.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleAdmin:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

func (r *Role) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("role: unsupported type %T", src)
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

func (r Role) Value() (driver.Value, error) {
	if _, err := ParseRole(string(r)); err != nil {
		return nil, err
	}
	return string(r), nil
}

// User represents a registered account
type User struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	Role         Role   `json:"role"`
}

// Caller is the identity resolved for the current request.
// The zero value is the anonymous caller.
type Caller struct {
	UserID int64
	Name   string
	Role   Role
}

var Anonymous = Caller{}

func (c Caller) IsAnonymous() bool {
	return c.UserID == 0
}

// CallerFor builds the caller identity of an authenticated user.
func CallerFor(u User) Caller {
	return Caller{UserID: u.ID, Name: u.Name, Role: u.Role}
}
