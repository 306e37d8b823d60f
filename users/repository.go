// Package users, as part of the user profile management module.
// This file, `repository.go`, owns the SQL for the users table. It is the
// credential store used by the auth package as well as the profile store
// used by this package.
package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/user/moviesns-go/auth"
)

// Repository is the full set of operations the service layer needs.
type Repository interface {
	auth.UserStore
	UpdateProfile(ctx context.Context, id string, upd ProfileUpdate) (*auth.User, error)
}

// ProfileUpdate lists the columns a user may change. Nil fields are left as they are.
type ProfileUpdate struct {
	Username *string
	Avatar   *string
	Bio      *string
	Website  *string
}

// Empty reports whether the update would change nothing.
func (u ProfileUpdate) Empty() bool {
	return u.Username == nil && u.Avatar == nil && u.Bio == nil && u.Website == nil
}

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// PostgresRepository implements Repository on top of pgx.
type PostgresRepository struct {
	db DBTX
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id::text, email, username, password_hash, avatar, bio, website, created_at`

func scanUser(row pgx.Row) (*auth.User, error) {
	var u auth.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Username,
		&u.PasswordHash,
		&u.Avatar,
		&u.Bio,
		&u.Website,
		&u.CreatedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}
	return &u, nil
}

// mapError turns driver errors into the store errors callers branch on.
func mapError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return auth.ErrUserNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			switch {
			case strings.Contains(pgErr.ConstraintName, "email"):
				return auth.ErrEmailTaken
			case strings.Contains(pgErr.ConstraintName, "username"):
				return auth.ErrUsernameTaken
			}
		case "22P02": // invalid_text_representation, e.g. a malformed uuid
			return auth.ErrUserNotFound
		}
	}
	return err
}

// CreateUser inserts a row and returns it as stored. A duplicate email is
// reported as auth.ErrEmailTaken.
func (r *PostgresRepository) CreateUser(ctx context.Context, user *auth.User) (*auth.User, error) {
	avatar := user.Avatar
	if avatar == "" {
		avatar = auth.DefaultAvatar
	}
	query := `
		INSERT INTO users (email, username, password_hash, avatar, bio, website)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + userColumns
	created, err := scanUser(r.db.QueryRow(ctx, query,
		user.Email,
		user.Username,
		user.PasswordHash,
		avatar,
		user.Bio,
		user.Website,
	))
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return created, nil
}

// GetUserByEmail looks a user up by exact (already normalized) email.
func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	u, err := scanUser(r.db.QueryRow(ctx, query, email))
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// GetUserByID looks a user up by id.
func (r *PostgresRepository) GetUserByID(ctx context.Context, id string) (*auth.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(r.db.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return u, nil
}

// UpdateProfile applies the non-nil fields of upd and returns the updated row.
func (r *PostgresRepository) UpdateProfile(ctx context.Context, id string, upd ProfileUpdate) (*auth.User, error) {
	if upd.Empty() {
		return r.GetUserByID(ctx, id)
	}

	var setClauses []string
	var args []interface{}
	add := func(column string, value *string) {
		if value == nil {
			return
		}
		args = append(args, *value)
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	add("username", upd.Username)
	add("avatar", upd.Avatar)
	add("bio", upd.Bio)
	add("website", upd.Website)
	args = append(args, id)

	query := fmt.Sprintf(`
		UPDATE users
		SET %s
		WHERE id = $%d
		RETURNING %s
	`, strings.Join(setClauses, ", "), len(args), userColumns)

	u, err := scanUser(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return u, nil
}

// Ping checks that the store is reachable.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `SELECT 1`)
	return err
}
