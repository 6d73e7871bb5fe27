package auth

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "github.com/go-newsletter/svc/internal/errors"
	"github.com/go-newsletter/svc/internal/models"
)

//go:embed queries/get_user_by_username.sql
var getUserByUsernameQuery string

//go:embed queries/get_user_by_id.sql
var getUserByIDQuery string

//go:embed queries/update_password_hash.sql
var updatePasswordHashQuery string

// PostgresUserRepo is the pgxpool-backed implementation of UserRepository.
type PostgresUserRepo struct {
	pool *pgxpool.Pool
}

// NewPostgresUserRepo builds a PostgresUserRepo.
func NewPostgresUserRepo(pool *pgxpool.Pool) *PostgresUserRepo {
	return &PostgresUserRepo{pool: pool}
}

// GetUserByUsername returns apperrors.ErrUserNotFound if no such user
// exists.
func (r *PostgresUserRepo) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	err := r.pool.QueryRow(ctx, getUserByUsernameQuery, username).Scan(&u.UserID, &u.Username, &u.PasswordHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("user repo: GetUserByUsername: %w", err)
	}
	return &u, nil
}

// GetUserByID returns apperrors.ErrUserNotFound if no such user exists.
func (r *PostgresUserRepo) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	var u models.User
	err := r.pool.QueryRow(ctx, getUserByIDQuery, userID).Scan(&u.UserID, &u.Username, &u.PasswordHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("user repo: GetUserByID: %w", err)
	}
	return &u, nil
}

// UpdatePasswordHash overwrites the stored PHC string for userID.
func (r *PostgresUserRepo) UpdatePasswordHash(ctx context.Context, userID, passwordHash string) error {
	tag, err := r.pool.Exec(ctx, updatePasswordHashQuery, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("user repo: UpdatePasswordHash: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}
