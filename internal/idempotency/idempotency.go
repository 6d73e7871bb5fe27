// Package idempotency provides "start or return cached" semantics over a
// transaction (component G). The row insert under (user_id, idempotency_key)
// acts as a database-level mutex on the request: a concurrent or retried
// submission either joins as the original transaction's owner or observes
// the saved response, never both at once.
package idempotency

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	apperrors "github.com/go-newsletter/svc/internal/errors"
	"github.com/go-newsletter/svc/internal/models"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const minKeyLength, maxKeyLength = 1, 64

// ValidateKey checks the operator-supplied idempotency key against spec §3's
// 1-64 character bound.
func ValidateKey(key string) error {
	if l := len(key); l < minKeyLength || l > maxKeyLength {
		return fmt.Errorf("%w: idempotency key must be between %d and %d characters, got %d",
			apperrors.ErrIdempotencyKeyBad, minKeyLength, maxKeyLength, l)
	}
	return nil
}

// SavedResponse is an HTTP response reconstructed byte-exact from the
// idempotency table: same status, same headers in the same order with
// duplicates preserved, same body.
type SavedResponse struct {
	StatusCode int
	Headers    []models.HeaderPair
	Body       []byte
}

// NextAction is the result of TryProcessing: either the caller owns the
// in-flight slot and must drive tx to completion via SaveResponse, or a
// prior response already exists and should be returned verbatim.
type NextAction struct {
	// Tx is non-nil exactly when Saved is nil: the caller won the INSERT
	// race and must call SaveResponse(ctx, Tx, ...) or roll back by
	// simply dropping (rolling back) the transaction.
	Tx    pgx.Tx
	Saved *SavedResponse
}

// headerPairJSON is the on-the-wire shape stored in the response_headers
// jsonb column: an ordered array preserves both order and duplicates, the
// only properties spec §4.5/§8 require, without needing a Postgres
// composite array type (see DESIGN.md).
type headerPairJSON struct {
	Name     string `json:"name"`
	ValueB64 string `json:"value_b64"`
}

// TryProcessing opens a transaction and attempts to claim (user_id, key).
// If claimed, the caller owns tx and must eventually call SaveResponse or
// roll the transaction back (e.g. on request cancellation, so a retry can
// proceed — spec §5). If not claimed, the previously saved response is
// returned, or apperrors.ErrIdempotencyConflict if a concurrent request is
// still in flight (the response columns are still NULL).
func TryProcessing(ctx context.Context, pool *pgxpool.Pool, userID, key string) (NextAction, error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return NextAction{}, fmt.Errorf("idempotency: begin transaction: %w", err)
	}

	insertQuery, insertArgs, err := psql.
		Insert("idempotency").
		Columns("user_id", "idempotency_key", "created_at").
		Values(userID, key, sq.Expr("now()")).
		Suffix("ON CONFLICT DO NOTHING").
		ToSql()
	if err != nil {
		_ = tx.Rollback(ctx)
		return NextAction{}, fmt.Errorf("idempotency: build insert: %w", err)
	}

	tag, err := tx.Exec(ctx, insertQuery, insertArgs...)
	if err != nil {
		_ = tx.Rollback(ctx)
		return NextAction{}, fmt.Errorf("idempotency: insert: %w", err)
	}

	if tag.RowsAffected() > 0 {
		return NextAction{Tx: tx}, nil
	}

	// Someone else already owns this key. Release our transaction and
	// look at what they've saved, if anything yet.
	_ = tx.Rollback(ctx)

	saved, err := getSavedResponse(ctx, pool, userID, key)
	if err != nil {
		return NextAction{}, err
	}
	if saved == nil {
		return NextAction{}, apperrors.ErrIdempotencyConflict
	}
	return NextAction{Saved: saved}, nil
}

func getSavedResponse(ctx context.Context, pool *pgxpool.Pool, userID, key string) (*SavedResponse, error) {
	query, args, err := psql.
		Select("response_status_code", "response_headers", "response_body").
		From("idempotency").
		Where(sq.Eq{"user_id": userID, "idempotency_key": key}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("idempotency: build select: %w", err)
	}

	var statusCode *int16
	var headersRaw []byte
	var body []byte
	err = pool.QueryRow(ctx, query, args...).Scan(&statusCode, &headersRaw, &body)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("idempotency: select saved response: %w", err)
	}

	if statusCode == nil {
		// The row exists but another request is still processing it.
		return nil, nil
	}

	headers, err := decodeHeaders(headersRaw)
	if err != nil {
		return nil, fmt.Errorf("idempotency: decode headers: %w", err)
	}

	return &SavedResponse{
		StatusCode: int(*statusCode),
		Headers:    headers,
		Body:       body,
	}, nil
}

// SaveResponse records resp against (user_id, key) and commits tx, which
// must be the transaction returned by a prior TryProcessing call. The
// caller's mutation (e.g. inserting a newsletter issue and its delivery
// tasks) must already have happened on this same tx, so that either
// everything commits together or nothing does.
func SaveResponse(ctx context.Context, tx pgx.Tx, userID, key string, resp SavedResponse) (SavedResponse, error) {
	headersRaw, err := encodeHeaders(resp.Headers)
	if err != nil {
		return SavedResponse{}, fmt.Errorf("idempotency: encode headers: %w", err)
	}

	query, args, err := psql.
		Update("idempotency").
		Set("response_status_code", int16(resp.StatusCode)).
		Set("response_headers", headersRaw).
		Set("response_body", resp.Body).
		Where(sq.Eq{"user_id": userID, "idempotency_key": key}).
		ToSql()
	if err != nil {
		return SavedResponse{}, fmt.Errorf("idempotency: build update: %w", err)
	}

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return SavedResponse{}, fmt.Errorf("idempotency: save response: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return SavedResponse{}, fmt.Errorf("%w: %w", apperrors.ErrTransactionCommit, err)
	}
	return resp, nil
}

func encodeHeaders(pairs []models.HeaderPair) ([]byte, error) {
	out := make([]headerPairJSON, len(pairs))
	for i, p := range pairs {
		out[i] = headerPairJSON{Name: p.Name, ValueB64: base64.StdEncoding.EncodeToString(p.Value)}
	}
	return json.Marshal(out)
}

func decodeHeaders(raw []byte) ([]models.HeaderPair, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var in []headerPairJSON
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, err
	}
	out := make([]models.HeaderPair, len(in))
	for i, p := range in {
		value, err := base64.StdEncoding.DecodeString(p.ValueB64)
		if err != nil {
			return nil, err
		}
		out[i] = models.HeaderPair{Name: p.Name, Value: value}
	}
	return out, nil
}
