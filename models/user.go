package models

import "time"

// User is an account entity. The sync engine itself only consumes the
// authenticated UserID; registration and login live at the edge of the
// application.
type User struct {
	// UserID is the internal unique identifier of the user.
	// Persistence-layer only, never serialized.
	UserID int64 `json:"-"`

	// Login is the unique login identifier.
	Login string `json:"login"`

	// Name is the display name of the user.
	Name string `json:"name"`

	// Password carries the plaintext password on register/login requests
	// only; it is never persisted (the store keeps a bcrypt hash).
	Password string `json:"password,omitempty"`

	// PasswordHash is the bcrypt hash stored in the database.
	// Never serialized.
	PasswordHash string `json:"-"`

	// CreatedAt is the timestamp when the account was created.
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the name of the database table
// associated with the User model.
func (u User) TableName() string {
	return "users"
}
