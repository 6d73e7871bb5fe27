package delivery

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/go-newsletter/svc/internal/dbtest"
	"github.com/go-newsletter/svc/internal/email"
)

type recordingTransport struct {
	sent []email.Message
	err  error
}

func (r *recordingTransport) Send(_ context.Context, msg email.Message) error {
	r.sent = append(r.sent, msg)
	return r.err
}

func TestTryExecuteTask_EmptyQueue(t *testing.T) {
	pool := dbtest.ConnectPool(t)
	w := NewWorker(pool, &recordingTransport{}, "newsletter@example.com", zap.NewNop())

	// Drain anything left behind by other tests/runs is out of scope here;
	// an isolated schema is assumed for integration test runs. We only
	// assert the outcome enum on a fresh unique issue id that has no rows.
	outcome, err := w.tryExecuteTask(context.Background())
	require.NoError(t, err)
	assert.Contains(t, []ExecutionOutcome{EmptyQueue, TaskCompleted}, outcome)
}

func TestTryExecuteTask_DeliversAndDeletesOnSuccess(t *testing.T) {
	pool := dbtest.ConnectPool(t)
	ctx := context.Background()

	issueID := uuid.NewString()
	_, err := pool.Exec(ctx, `INSERT INTO newsletter_issues (newsletter_issue_id, title, text_content, published_at)
		VALUES ($1, $2, $3, now())`, issueID, "A title", "Body text")
	require.NoError(t, err)

	subscriberEmail := uuid.NewString() + "@example.com"
	_, err = pool.Exec(ctx, `INSERT INTO issue_delivery_queue (newsletter_issue_id, subscriber_email)
		VALUES ($1, $2)`, issueID, subscriberEmail)
	require.NoError(t, err)

	transport := &recordingTransport{}
	w := NewWorker(pool, transport, "newsletter@example.com", zap.NewNop())

	outcome, err := w.tryExecuteTask(ctx)
	require.NoError(t, err)
	assert.Equal(t, TaskCompleted, outcome)

	require.Len(t, transport.sent, 1)
	assert.Equal(t, subscriberEmail, transport.sent[0].To)
	assert.Equal(t, "A title", transport.sent[0].Subject)

	var count int
	err = pool.QueryRow(ctx, `SELECT count(*) FROM issue_delivery_queue
		WHERE newsletter_issue_id = $1 AND subscriber_email = $2`, issueID, subscriberEmail).Scan(&count)
	require.NoError(t, err)
	assert.Zero(t, count, "the task row must be deleted after a successful delivery")
}

func TestTryExecuteTask_DeletesRowEvenOnTransportFailure(t *testing.T) {
	pool := dbtest.ConnectPool(t)
	ctx := context.Background()

	issueID := uuid.NewString()
	_, err := pool.Exec(ctx, `INSERT INTO newsletter_issues (newsletter_issue_id, title, text_content, published_at)
		VALUES ($1, $2, $3, now())`, issueID, "Another title", "More body")
	require.NoError(t, err)

	subscriberEmail := uuid.NewString() + "@example.com"
	_, err = pool.Exec(ctx, `INSERT INTO issue_delivery_queue (newsletter_issue_id, subscriber_email)
		VALUES ($1, $2)`, issueID, subscriberEmail)
	require.NoError(t, err)

	transport := &recordingTransport{err: assertError{}}
	w := NewWorker(pool, transport, "newsletter@example.com", zap.NewNop())

	outcome, err := w.tryExecuteTask(ctx)
	require.NoError(t, err)
	// spec §4.7 step 5-6: the task row is deleted whether delivery
	// succeeded or failed — there is no worker-level retry.
	assert.Equal(t, TaskCompleted, outcome)

	var count int
	err = pool.QueryRow(ctx, `SELECT count(*) FROM issue_delivery_queue
		WHERE newsletter_issue_id = $1 AND subscriber_email = $2`, issueID, subscriberEmail).Scan(&count)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestTryExecuteTask_SkipsInvalidStoredEmailButStillDeletes(t *testing.T) {
	pool := dbtest.ConnectPool(t)
	ctx := context.Background()

	issueID := uuid.NewString()
	_, err := pool.Exec(ctx, `INSERT INTO newsletter_issues (newsletter_issue_id, title, text_content, published_at)
		VALUES ($1, $2, $3, now())`, issueID, "Yet another", "Body")
	require.NoError(t, err)

	invalidEmail := "not-an-email"
	_, err = pool.Exec(ctx, `INSERT INTO issue_delivery_queue (newsletter_issue_id, subscriber_email)
		VALUES ($1, $2)`, issueID, invalidEmail)
	require.NoError(t, err)

	transport := &recordingTransport{}
	w := NewWorker(pool, transport, "newsletter@example.com", zap.NewNop())

	outcome, err := w.tryExecuteTask(ctx)
	require.NoError(t, err)
	assert.Equal(t, TaskCompleted, outcome)
	assert.Empty(t, transport.sent, "an invalid stored address must never reach the transport")

	var count int
	err = pool.QueryRow(ctx, `SELECT count(*) FROM issue_delivery_queue
		WHERE newsletter_issue_id = $1 AND subscriber_email = $2`, issueID, invalidEmail).Scan(&count)
	require.NoError(t, err)
	assert.Zero(t, count)
}

type assertError struct{}

func (assertError) Error() string { return "simulated transport failure" }
