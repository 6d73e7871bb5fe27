package subscription

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "github.com/go-newsletter/svc/internal/errors"
	"github.com/go-newsletter/svc/internal/models"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Repository is the persistence capability Service needs: create a
// subscriber with its token in one transaction, look a token up, and
// promote a subscriber's status.
type Repository interface {
	CreateSubscriber(ctx context.Context, sub models.Subscriber, token string) error
	SubscriberIDForToken(ctx context.Context, token string) (string, error)
	ConfirmSubscriber(ctx context.Context, subscriberID string) error
}

// PostgresRepository is the pgxpool-backed Repository implementation.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository builds a PostgresRepository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// CreateSubscriber inserts sub and its token in a single transaction,
// matching spec §4.1's commit-before-mail ordering: the token must be
// retrievable by the confirmation handler even if the subsequent mail
// round-trip fails.
func (r *PostgresRepository) CreateSubscriber(ctx context.Context, sub models.Subscriber, token string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin transaction: %w", apperrors.ErrInsert, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op once committed

	insertSubscriber, args, err := psql.
		Insert("subscribers").
		Columns("id", "email", "name", "status", "subscribed_at").
		Values(sub.ID, sub.Email, sub.Name, sub.Status, sub.SubscribedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: build insert: %w", apperrors.ErrInsert, err)
	}
	if _, err := tx.Exec(ctx, insertSubscriber, args...); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("subscription repo: CreateSubscriber: %w", apperrors.ErrAlreadySubscribed)
		}
		return fmt.Errorf("%w: %w", apperrors.ErrInsert, err)
	}

	insertToken, args, err := psql.
		Insert("subscription_tokens").
		Columns("subscription_token", "subscriber_id").
		Values(token, sub.ID).
		ToSql()
	if err != nil {
		return fmt.Errorf("%w: build insert: %w", apperrors.ErrStoreToken, err)
	}
	if _, err := tx.Exec(ctx, insertToken, args...); err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrStoreToken, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: %w", apperrors.ErrTransactionCommit, err)
	}
	return nil
}

// SubscriberIDForToken returns the subscriber id associated with token, or
// apperrors.ErrSubscriberNotFoundForToken if no such token exists.
func (r *PostgresRepository) SubscriberIDForToken(ctx context.Context, token string) (string, error) {
	query, args, err := psql.
		Select("subscriber_id").
		From("subscription_tokens").
		Where(sq.Eq{"subscription_token": token}).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("subscription: build token lookup: %w", err)
	}

	var subscriberID string
	err = r.pool.QueryRow(ctx, query, args...).Scan(&subscriberID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperrors.ErrSubscriberNotFoundForToken
		}
		return "", fmt.Errorf("subscription: token lookup: %w", err)
	}
	return subscriberID, nil
}

// ConfirmSubscriber sets subscriberID's status to confirmed. Idempotent: run
// against an already-confirmed subscriber it is a no-op that still succeeds,
// since the UPDATE simply re-asserts the same value (spec §4.2).
func (r *PostgresRepository) ConfirmSubscriber(ctx context.Context, subscriberID string) error {
	query, args, err := psql.
		Update("subscribers").
		Set("status", models.SubscriberStatusConfirmed).
		Where(sq.Eq{"id": subscriberID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("subscription: build confirm update: %w", err)
	}
	if _, err := r.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("subscription: confirm subscriber: %w", err)
	}
	return nil
}
