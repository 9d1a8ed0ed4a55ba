// Package profiles reads and updates the per-user profile row created at
// signup.
package profiles

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("profile not found")

type Profile struct {
	UserID    int64  `json:"user_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Email     string `json:"email" validate:"omitempty,email"`
	Address   string `json:"address"`
	City      string `json:"city"`
	State     string `json:"state"`
	Zip       string `json:"zip"`
}

type Conf struct {
	db *sql.DB
}

func NewConf(db *sql.DB) (Conf, error) {
	if db == nil {
		return Conf{}, fmt.Errorf("db is nil")
	}
	return Conf{db: db}, nil
}

func (c *Conf) GetByUserID(ctx context.Context, userID int64) (Profile, error) {
	const query = `
		SELECT user_id, first_name, last_name, phone, email, address, city, state, zip
		FROM profiles
		WHERE user_id = $1
	`
	var p Profile
	err := c.db.QueryRowContext(ctx, query, userID).Scan(
		&p.UserID, &p.FirstName, &p.LastName, &p.Phone, &p.Email, &p.Address, &p.City, &p.State, &p.Zip,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, fmt.Errorf("failed to query profile: %w", err)
	}
	return p, nil
}

// Update overwrites the profile fields for p.UserID; ErrNotFound when no
// profile row exists.
func (c *Conf) Update(ctx context.Context, p Profile) error {
	const query = `
		UPDATE profiles
		SET first_name = $1, last_name = $2, phone = $3, email = $4,
		    address = $5, city = $6, state = $7, zip = $8
		WHERE user_id = $9
	`
	res, err := c.db.ExecContext(ctx, query,
		p.FirstName, p.LastName, p.Phone, p.Email, p.Address, p.City, p.State, p.Zip, p.UserID,
	)
	if err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
