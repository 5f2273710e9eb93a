// Package profile persists user profiles in the relational user table.
package profile

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("profile: user not found")

	// ErrImageChanged is returned by AssignImage when the image column was
	// cleared between the conditional write and the re-read.
	ErrImageChanged = errors.New("profile: image changed concurrently")
)

// User is a profile row. Credential material lives elsewhere and is never
// part of this type.
type User struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Image         *string   `json:"image"`
	EmailVerified bool      `json:"emailVerified"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// HasImage reports whether the user has an image key assigned.
func (u *User) HasImage() bool {
	return u.Image != nil && *u.Image != ""
}

// Update is a partial profile update. Name is always written; the image
// column is only touched when SetImage is true, in which case a nil Image
// clears it.
type Update struct {
	Name     string
	SetImage bool
	Image    *string
}

// Store reads and writes profile rows keyed by user id.
type Store interface {
	// Get returns the profile for id or ErrNotFound.
	Get(ctx context.Context, id string) (*User, error)

	// Update applies u to the profile for id, refreshes its update time and
	// returns the row as written, or ErrNotFound.
	Update(ctx context.Context, id string, u Update) (*User, error)

	// AssignImage sets the image key for id only if none is set yet, and
	// returns whichever key the row holds afterwards.
	AssignImage(ctx context.Context, id string, key string) (string, error)
}

// Execer is satisfied by both *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}
