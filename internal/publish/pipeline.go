// Package publish implements the publish pipeline (component H): turning an
// operator's publish request into a durable newsletter issue plus one
// delivery task per confirmed subscriber, under the idempotency layer's
// "start or return cached" contract.
package publish

import (
	"context"
	"fmt"
	"net/http"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/go-newsletter/svc/internal/idempotency"
	"github.com/go-newsletter/svc/internal/models"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Pipeline publishes newsletter issues against a shared connection pool.
type Pipeline struct {
	pool *pgxpool.Pool
}

// NewPipeline builds a Pipeline.
func NewPipeline(pool *pgxpool.Pool) *Pipeline {
	return &Pipeline{pool: pool}
}

// Publish runs spec §4.6's five steps. On success (whether this call did
// the work or a prior call with the same key already did) it returns the
// HTTP response the caller should send back to the operator, byte-identical
// across repeated calls with the same (userID, idempotencyKey).
func (p *Pipeline) Publish(ctx context.Context, userID, title, textContent, idempotencyKey string) (idempotency.SavedResponse, error) {
	if err := idempotency.ValidateKey(idempotencyKey); err != nil {
		return idempotency.SavedResponse{}, err
	}

	next, err := idempotency.TryProcessing(ctx, p.pool, userID, idempotencyKey)
	if err != nil {
		return idempotency.SavedResponse{}, err
	}
	if next.Saved != nil {
		return *next.Saved, nil
	}

	tx := next.Tx
	defer tx.Rollback(ctx) //nolint:errcheck // no-op once committed

	issueID := uuid.NewString()
	insertIssue, args, err := psql.
		Insert("newsletter_issues").
		Columns("newsletter_issue_id", "title", "text_content", "published_at").
		Values(issueID, title, textContent, time.Now().UTC()).
		ToSql()
	if err != nil {
		return idempotency.SavedResponse{}, fmt.Errorf("publish: build issue insert: %w", err)
	}
	if _, err := tx.Exec(ctx, insertIssue, args...); err != nil {
		return idempotency.SavedResponse{}, fmt.Errorf("publish: insert newsletter issue: %w", err)
	}

	enqueueQuery := `INSERT INTO issue_delivery_queue (newsletter_issue_id, subscriber_email)
		SELECT $1, email FROM subscribers WHERE status = $2`
	if _, err := tx.Exec(ctx, enqueueQuery, issueID, models.SubscriberStatusConfirmed); err != nil {
		return idempotency.SavedResponse{}, fmt.Errorf("publish: enqueue delivery tasks: %w", err)
	}

	resp := idempotency.SavedResponse{
		StatusCode: http.StatusSeeOther,
		Headers: []models.HeaderPair{
			{Name: "Location", Value: []byte("/admin/newsletters")},
		},
		Body: nil,
	}

	return idempotency.SaveResponse(ctx, tx, userID, idempotencyKey, resp)
}
