package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"storefront-backend/internal/auth"

	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

const uniqueViolation = "23505"

type Conf struct {
	db *sql.DB
}

func NewConf(db *sql.DB) (*Conf, error) {
	if db == nil {
		return nil, fmt.Errorf("db is nil")
	}
	return &Conf{db: db}, nil
}

// InsertUser creates the user with a bcrypt password hash and a blank
// profile row in one transaction.
func (c *Conf) InsertUser(ctx context.Context, nu NewUser) (User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(nu.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return User{}, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	const insertUser = `
		INSERT INTO users (email, password_hash)
		VALUES ($1, $2)
		RETURNING user_id, created_at
	`
	user := User{Email: nu.Email, Roles: []string{auth.RoleUser}}
	if err := tx.QueryRowContext(ctx, insertUser, nu.Email, string(hash)).Scan(&user.ID, &user.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return User{}, ErrEmailTaken
		}
		return User{}, fmt.Errorf("failed to insert user: %w", err)
	}

	const insertProfile = `INSERT INTO profiles (user_id, email) VALUES ($1, $2)`
	if _, err := tx.ExecContext(ctx, insertProfile, user.ID, nu.Email); err != nil {
		return User{}, fmt.Errorf("failed to insert profile: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return User{}, fmt.Errorf("failed to commit tx: %w", err)
	}
	return user, nil
}

// Authenticate checks the email/password pair and returns the user on
// success. The same error comes back for an unknown email and a wrong
// password.
func (c *Conf) Authenticate(ctx context.Context, email, password string) (User, error) {
	const query = `
		SELECT user_id, email, password_hash, roles, created_at
		FROM users
		WHERE email = $1
	`
	var (
		user  User
		hash  string
		roles string
	)
	err := c.db.QueryRowContext(ctx, query, email).Scan(&user.ID, &user.Email, &hash, &roles, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, fmt.Errorf("failed to query user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}

	user.Roles = strings.Split(roles, ",")
	return user, nil
}
