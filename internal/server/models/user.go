package models

import "time"

// User is a registered account. Email is the natural key.
type User struct {
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
}

// Stats is the admin dashboard summary.
type Stats struct {
	Users  int64 `json:"users"`
	Chats  int64 `json:"chats"`
	Admins int64 `json:"admins"`
}
