package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/veduta/accounts-api/internal/data/pgxutil"
	"github.com/veduta/accounts-api/internal/domain/model"
)

// UserRepo provides database operations for user accounts.
type UserRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewUserRepo creates a new UserRepo with real time provider.
func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewUserRepoWithTimeProvider creates a new UserRepo with a custom time provider (useful for tests).
func NewUserRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *UserRepo {
	return &UserRepo{DB: db, timeProvider: tp}
}

// SQL query constants for static queries.
const (
	userColumns = `id, username, full_name, email, password_hash,
		reset_password_token, reset_password_expires,
		google_id, google_sync, google_access_token, google_refresh_token,
		role, active, picture_url, last_login_at, feature_flags,
		created_at, updated_at`

	userGetByIDQuery = `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1`

	userGetByEmailQuery = `
		SELECT ` + userColumns + `
		FROM users
		WHERE lower(email) = lower($1)`

	userGetByUsernameQuery = `
		SELECT ` + userColumns + `
		FROM users
		WHERE lower(username) = lower($1)`

	userGetByGoogleIDQuery = `
		SELECT ` + userColumns + `
		FROM users
		WHERE google_id = $1 AND google_id <> ''`

	userGetByResetTokenQuery = `
		SELECT ` + userColumns + `
		FROM users
		WHERE reset_password_token = $1 AND reset_password_expires > $2`

	userListQuery = `
		SELECT ` + userColumns + `
		FROM users
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2`
)

// Create inserts a new user. The ID is assigned here when empty.
func (r *UserRepo) Create(ctx context.Context, user *model.User) (*model.User, error) {
	if user == nil {
		return nil, errors.New("user is required")
	}
	id := user.ID
	if id == "" {
		id = uuid.NewString()
	}
	now := r.timeProvider.Now().UTC()

	var out *model.User
	if err := pgxutil.WithPgxTx(ctx, r.DB, pgxutil.TxConfig{
		Opts: &sql.TxOptions{
			Isolation: sql.LevelReadCommitted,
			ReadOnly:  false,
		},
		Fn: func(tx pgx.Tx) error {
			row := tx.QueryRow(ctx, `
			INSERT INTO users (
				id, username, full_name, email, password_hash,
				reset_password_token, reset_password_expires,
				google_id, google_sync, google_access_token, google_refresh_token,
				role, active, picture_url, last_login_at, feature_flags,
				created_at, updated_at
			) VALUES (
				$1, $2, $3, $4, $5, NULL, NULL, $6, $7, $8, $9, $10, $11, $12, NULL, $13, $14, $14
			) RETURNING `+userColumns,
				id,
				strings.TrimSpace(user.Username),
				strings.TrimSpace(user.FullName),
				strings.TrimSpace(user.Email),
				user.PasswordHash,
				user.Google.ID,
				user.Google.Sync,
				user.Google.AccessToken,
				user.Google.RefreshToken,
				user.Role,
				user.Active,
				user.PictureURL,
				user.FeatureFlags,
				now,
			)
			var err error
			out, err = scanUser(row)
			return err
		},
	}); err != nil {
		return nil, r.mapWriteErr(err, false)
	}
	return out, nil
}

// GetByID retrieves a user by ID.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	return r.getByQuery(ctx, userGetByIDQuery, "failed to get user by ID", id)
}

// GetByEmail retrieves a user by email, case-insensitively.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getByQuery(ctx, userGetByEmailQuery, "failed to get user by email", email)
}

// GetByUsername retrieves a user by username, case-insensitively.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.getByQuery(ctx, userGetByUsernameQuery, "failed to get user by username", username)
}

// GetByGoogleID retrieves a user by linked Google subject ID.
func (r *UserRepo) GetByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	if googleID == "" {
		return nil, ErrUserNotFound
	}
	return r.getByQuery(ctx, userGetByGoogleIDQuery, "failed to get user by google ID", googleID)
}

// GetByResetToken retrieves a user whose stored reset token matches and is
// unexpired at the given instant.
func (r *UserRepo) GetByResetToken(ctx context.Context, token string, now time.Time) (*model.User, error) {
	if token == "" {
		return nil, ErrUserNotFound
	}
	return r.getByQuery(ctx, userGetByResetTokenQuery, "failed to get user by reset token", token, now.UTC())
}

// List retrieves users with pagination.
func (r *UserRepo) List(ctx context.Context, limit, offset int) ([]*model.User, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var out []*model.User
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, userListQuery, limit, offset)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			u, scanErr := scanUser(rows)
			if scanErr != nil {
				return scanErr
			}
			out = append(out, u)
		}
		return rows.Err()
	}); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return out, nil
}

// UpdatePassword replaces the password hash and clears any pending reset token.
func (r *UserRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return r.execOne(ctx, `
		UPDATE users
		SET password_hash = $2,
		    reset_password_token = NULL,
		    reset_password_expires = NULL,
		    updated_at = $3
		WHERE id = $1`,
		id, passwordHash, r.timeProvider.Now().UTC())
}

// SetResetToken stores a password reset token and its expiry.
func (r *UserRepo) SetResetToken(ctx context.Context, id, token string, expires time.Time) error {
	return r.execOne(ctx, `
		UPDATE users
		SET reset_password_token = $2,
		    reset_password_expires = $3,
		    updated_at = $4
		WHERE id = $1`,
		id, token, expires.UTC(), r.timeProvider.Now().UTC())
}

// UpdateLastLogin records a successful login timestamp.
func (r *UserRepo) UpdateLastLogin(ctx context.Context, id string, at time.Time) error {
	return r.execOne(ctx, `
		UPDATE users
		SET last_login_at = $2, updated_at = $3
		WHERE id = $1`,
		id, at.UTC(), r.timeProvider.Now().UTC())
}

// SetActive toggles the account's active state.
func (r *UserRepo) SetActive(ctx context.Context, id string, active bool) error {
	return r.execOne(ctx, `
		UPDATE users
		SET active = $2, updated_at = $3
		WHERE id = $1`,
		id, active, r.timeProvider.Now().UTC())
}

// LinkGoogle attaches a Google identity to an existing account. The picture
// URL is only overwritten when the provider supplies one.
func (r *UserRepo) LinkGoogle(ctx context.Context, id string, link model.GoogleLink, pictureURL string) (*model.User, error) {
	var out *model.User
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		row := conn.QueryRow(ctx, `
			UPDATE users
			SET google_id = $2,
			    google_sync = $3,
			    google_access_token = $4,
			    google_refresh_token = $5,
			    picture_url = CASE WHEN $6 <> '' THEN $6 ELSE picture_url END,
			    updated_at = $7
			WHERE id = $1
			RETURNING `+userColumns,
			id,
			link.ID,
			link.Sync,
			link.AccessToken,
			link.RefreshToken,
			pictureURL,
			r.timeProvider.Now().UTC(),
		)
		var scanErr error
		out, scanErr = scanUser(row)
		return scanErr
	})
	if err != nil {
		return nil, r.mapWriteErr(err, true)
	}
	return out, nil
}

// --- helpers ---

func (r *UserRepo) getByQuery(ctx context.Context, query, failMsg string, args ...any) (*model.User, error) {
	var out *model.User
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		var scanErr error
		out, scanErr = scanUser(conn.QueryRow(ctx, query, args...))
		return scanErr
	}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%s: %w", failMsg, err)
	}
	return out, nil
}

func (r *UserRepo) execOne(ctx context.Context, query string, args ...any) error {
	var affected int64
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		ct, err := conn.Exec(ctx, query, args...)
		if err != nil {
			return err
		}
		affected = ct.RowsAffected()
		return nil
	}); err != nil {
		return r.mapWriteErr(err, false)
	}
	if affected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// scanUser reads one row in userColumns order.
func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	if err := row.Scan(
		&u.ID, &u.Username, &u.FullName, &u.Email, &u.PasswordHash,
		&u.ResetPasswordToken, &u.ResetPasswordExpires,
		&u.Google.ID, &u.Google.Sync, &u.Google.AccessToken, &u.Google.RefreshToken,
		&u.Role, &u.Active, &u.PictureURL, &u.LastLoginAt, &u.FeatureFlags,
		&u.CreatedAt, &u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &u, nil
}

// mapWriteErr maps pg errors to repository sentinels. Unique violations are
// distinguished by the constraint name set in the schema.
func (r *UserRepo) mapWriteErr(err error, includeNotFound bool) error {
	if err == nil {
		return nil
	}
	if includeNotFound && errors.Is(err, pgx.ErrNoRows) {
		return ErrUserNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		switch {
		case strings.Contains(pgErr.ConstraintName, "email"):
			return ErrEmailTaken
		case strings.Contains(pgErr.ConstraintName, "username"):
			return ErrUsernameTaken
		}
	}
	return err
}
