package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gallery/internal/database"
)

const userColumns = `id, name, email, email_verified, image, created_at, updated_at`

// SQLiteStore is a Store backed by the user table.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

type Option func(*SQLiteStore)

// WithClock overrides the time source used for update timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *SQLiteStore) {
		s.now = now
	}
}

// NewSQLiteStore creates a SQLiteStore over an already migrated database.
func NewSQLiteStore(db *sql.DB, opts ...Option) *SQLiteStore {
	s := &SQLiteStore{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// InsertUser writes a new profile row. It takes an Execer so that account
// creation can insert the user inside its own transaction.
func InsertUser(ctx context.Context, db Execer, u *User) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO user(`+userColumns+`) VALUES(?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Email, u.EmailVerified, nullString(u.Image), u.CreatedAt.UTC(), u.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert user %q: %w", u.ID, err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM user WHERE id = ?`, id)
	u, err := scanUser(row)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *SQLiteStore) Update(ctx context.Context, id string, u Update) (*User, error) {
	now := s.now().UTC()

	var updated *User
	err := database.WithTransaction(ctx, s.db, func(tx *sql.Tx) error {
		var (
			res sql.Result
			err error
		)
		if u.SetImage {
			res, err = tx.ExecContext(ctx,
				`UPDATE user SET name = ?, image = ?, updated_at = ? WHERE id = ?`,
				u.Name, nullString(u.Image), now, id,
			)
		} else {
			res, err = tx.ExecContext(ctx,
				`UPDATE user SET name = ?, updated_at = ? WHERE id = ?`,
				u.Name, now, id,
			)
		}
		if err != nil {
			return fmt.Errorf("update user %q: %w", id, err)
		}

		rows, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("update user %q: %w", id, err)
		}
		if rows == 0 {
			return ErrNotFound
		}

		updated, err = scanUser(tx.QueryRowContext(ctx, `SELECT `+userColumns+` FROM user WHERE id = ?`, id))
		return err
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// AssignImage performs a compare-and-swap on the image column so that two
// concurrent first uploads agree on a single key.
func (s *SQLiteStore) AssignImage(ctx context.Context, id string, key string) (string, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE user SET image = ?, updated_at = ? WHERE id = ? AND (image IS NULL OR image = '')`,
		key, s.now().UTC(), id,
	)
	if err != nil {
		return "", fmt.Errorf("assign image for %q: %w", id, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("assign image for %q: %w", id, err)
	}
	if rows == 1 {
		return key, nil
	}

	// Either the row is gone or another request won the race.
	u, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if !u.HasImage() {
		return "", ErrImageChanged
	}
	return *u.Image, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	var (
		u     User
		image sql.NullString
	)

	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.EmailVerified, &image, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}

	if image.Valid {
		u.Image = &image.String
	}
	return &u, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
