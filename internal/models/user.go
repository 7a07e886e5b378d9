package models

import (
	"time"
)

const (
	UserTypeStudent  = "student"
	UserTypeEmployer = "employer"
)

type User struct {
	ID           int       `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"`
	UserType     string    `json:"user_type" db:"user_type"`
	FullName     string    `json:"full_name" db:"full_name"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// DisplayName is what other users see: full name when set, username otherwise.
func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}

func ValidUserType(t string) bool {
	return t == UserTypeStudent || t == UserTypeEmployer
}
