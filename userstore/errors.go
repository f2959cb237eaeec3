package userstore

import "fmt"

type (
	UserNotFound struct {
		Email string
		ID    int64
	}

	DuplicateEmail struct {
		Email string
	}
)

func (u UserNotFound) Error() string {
	if u.Email != "" {
		return fmt.Sprintf("user %v not found", u.Email)
	}
	return fmt.Sprintf("user #%v not found", u.ID)
}

func (d DuplicateEmail) Error() string {
	return fmt.Sprintf("email %v is already registered", d.Email)
}
