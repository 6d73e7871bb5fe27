package publish

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-newsletter/svc/internal/dbtest"
	"github.com/go-newsletter/svc/internal/models"
)

func TestPublish_EnqueuesOneTaskPerConfirmedSubscriber(t *testing.T) {
	pool := dbtest.ConnectPool(t)
	ctx := context.Background()

	userID := uuid.NewString()
	_, err := pool.Exec(ctx, `INSERT INTO users (user_id, username, password_hash) VALUES ($1, $2, $3)`,
		userID, "operator-"+userID, "$argon2id$v=19$m=15000,t=2,p=1$c2FsdA$aGFzaA")
	require.NoError(t, err)

	confirmed := 3
	for i := 0; i < confirmed; i++ {
		subID := uuid.NewString()
		_, err := pool.Exec(ctx, `INSERT INTO subscribers (id, email, name, status, subscribed_at)
			VALUES ($1, $2, $3, $4, now())`,
			subID, uuid.NewString()+"@example.com", "Subscriber", models.SubscriberStatusConfirmed)
		require.NoError(t, err)
	}
	// One pending_confirmation subscriber must NOT receive a task.
	pendingID := uuid.NewString()
	_, err = pool.Exec(ctx, `INSERT INTO subscribers (id, email, name, status, subscribed_at)
		VALUES ($1, $2, $3, $4, now())`,
		pendingID, uuid.NewString()+"@example.com", "Pending", models.SubscriberStatusPendingConfirmation)
	require.NoError(t, err)

	p := NewPipeline(pool)

	key := uuid.NewString()
	resp, err := p.Publish(ctx, userID, "Issue title", "Issue body", key)
	require.NoError(t, err)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)

	var count int
	err = pool.QueryRow(ctx, `SELECT count(*) FROM issue_delivery_queue iq
		JOIN newsletter_issues ni ON ni.newsletter_issue_id = iq.newsletter_issue_id
		WHERE ni.title = $1`, "Issue title").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, confirmed, count)

	var issueCount int
	err = pool.QueryRow(ctx, `SELECT count(*) FROM newsletter_issues WHERE title = $1`, "Issue title").Scan(&issueCount)
	require.NoError(t, err)
	assert.Equal(t, 1, issueCount)
}

func TestPublish_ReplayWithSameKeyDoesNotDuplicate(t *testing.T) {
	pool := dbtest.ConnectPool(t)
	ctx := context.Background()

	userID := uuid.NewString()
	_, err := pool.Exec(ctx, `INSERT INTO users (user_id, username, password_hash) VALUES ($1, $2, $3)`,
		userID, "operator-"+userID, "$argon2id$v=19$m=15000,t=2,p=1$c2FsdA$aGFzaA")
	require.NoError(t, err)

	p := NewPipeline(pool)
	key := uuid.NewString()

	first, err := p.Publish(ctx, userID, "Same title", "Same body", key)
	require.NoError(t, err)

	second, err := p.Publish(ctx, userID, "Same title", "Same body", key)
	require.NoError(t, err)

	assert.Equal(t, first.StatusCode, second.StatusCode)
	assert.Equal(t, first.Headers, second.Headers)
	assert.Equal(t, first.Body, second.Body)

	var issueCount int
	err = pool.QueryRow(ctx, `SELECT count(*) FROM newsletter_issues WHERE title = $1`, "Same title").Scan(&issueCount)
	require.NoError(t, err)
	assert.Equal(t, 1, issueCount, "replaying the same idempotency key must never create a second issue")
}

func TestValidateKeyRejectedBeforeAnyDBWork(t *testing.T) {
	pool := dbtest.ConnectPool(t)
	p := NewPipeline(pool)

	_, err := p.Publish(context.Background(), uuid.NewString(), "t", "c", "")
	assert.Error(t, err)
}
