package service

import (
	"net/mail"
	"strings"
	"unicode/utf8"
)

type RegisterInput struct {
	FirstName string `json:"first_name" form:"first_name"`
	LastName  string `json:"last_name"  form:"last_name"`
	Username  string `json:"username"   form:"username"`
	Email     string `json:"email"      form:"email"`
	Password  string `json:"password"   form:"password"`
	Confirm   string `json:"confirm"    form:"confirm"`
}

func (in *RegisterInput) normalize() {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
}

func lengthBetween(s string, min, max int) bool {
	n := utf8.RuneCountInString(s)
	return n >= min && n <= max
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

func (in RegisterInput) Validate() error {
	switch {
	case !lengthBetween(in.FirstName, 2, 50):
		return validationf("first name must be 2 to 50 characters")
	case !lengthBetween(in.LastName, 2, 50):
		return validationf("last name must be 2 to 50 characters")
	case !lengthBetween(in.Username, 3, 20):
		return validationf("username must be 3 to 20 characters")
	case !validEmail(in.Email):
		return validationf("email address is not valid")
	case utf8.RuneCountInString(in.Password) < 6:
		return validationf("password must be at least 6 characters")
	case in.Password != in.Confirm:
		return validationf("passwords do not match")
	}
	return nil
}
