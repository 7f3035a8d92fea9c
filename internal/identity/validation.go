package identity

import (
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/riwart/taskr/internal/model"
)

const (
	minNameLen     = 6
	maxNameLen     = 25
	maxEmailLen    = 40
	maxPasswordLen = 40

	// bcrypt refuses longer input.
	maxPasswordBytes = 72

	msgRequired = "This field is required."
)

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Confirm  string
}

func validateRegister(in RegisterInput) (RegisterInput, error) {
	var verr model.ValidationError

	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)

	switch n := utf8.RuneCountInString(in.Name); {
	case n == 0:
		verr.Add("name", msgRequired)
	case n < minNameLen || n > maxNameLen:
		verr.Add("name", "Field must be between 6 and 25 characters long.")
	}

	switch {
	case in.Email == "":
		verr.Add("email", msgRequired)
	case utf8.RuneCountInString(in.Email) > maxEmailLen:
		verr.Add("email", "Field must be at most 40 characters long.")
	case !validEmail(in.Email):
		verr.Add("email", "Invalid email address.")
	}

	switch {
	case in.Password == "":
		verr.Add("password", msgRequired)
	case utf8.RuneCountInString(in.Password) > maxPasswordLen:
		verr.Add("password", "Field must be at most 40 characters long.")
	case len(in.Password) > maxPasswordBytes:
		verr.Add("password", "Password is too long.")
	}

	switch {
	case in.Confirm == "":
		verr.Add("confirm", msgRequired)
	case in.Confirm != in.Password:
		verr.Add("confirm", "Passwords must match.")
	}

	if err := verr.Err(); err != nil {
		return RegisterInput{}, err
	}
	return in, nil
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return false
	}
	at := strings.LastIndexByte(s, '@')
	return at > 0 && strings.Contains(s[at+1:], ".")
}
