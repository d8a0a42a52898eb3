package model

import "time"

// User represents an account as stored in the `users` table.  Users
// are created by the signup endpoint and identified by email; the
// booking engine only ever sees the numeric ID taken from the access
// token.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique, lower-cased email address.
//  PasswordHash – bcrypt hashed password.
//  IsActive     – whether the account may log in.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64    `db:"id"`            // users.id
	Email        string    `db:"email"`         // users.email
	PasswordHash string    `db:"password_hash"` // users.password_hash
	IsActive     bool      `db:"is_active"`     // users.is_active
	CreatedAt    time.Time `db:"created_at"`    // users.created_at
	UpdatedAt    time.Time `db:"updated_at"`    // users.updated_at
}
