// Package delivery implements the delivery queue worker (component I): a
// loop that dequeues tasks with row-level locking, sends email through the
// transport, and deletes the task whether delivery succeeded or not. The
// queue's transactional enqueue provides at-least-once delivery of the
// underlying task; this worker does not retry within a task (spec §4.7).
package delivery

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/go-newsletter/svc/internal/email"
)

// ExecutionOutcome is the result of a single dequeue attempt.
type ExecutionOutcome int

const (
	// TaskCompleted means a task was claimed and handled (delivered,
	// skipped for an invalid address, or failed delivery) and its row
	// was deleted.
	TaskCompleted ExecutionOutcome = iota
	// EmptyQueue means no task was available to claim.
	EmptyQueue
)

const (
	emptyQueueSleep = 10 * time.Second
	infraErrorSleep = 1 * time.Second
)

// Worker drains the delivery queue using `FOR UPDATE SKIP LOCKED`, so
// multiple Workers can run concurrently against the same pool without ever
// claiming the same task twice.
type Worker struct {
	pool      *pgxpool.Pool
	transport email.Transport
	from      string
	log       *zap.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewWorker builds a Worker. from is the envelope sender used for every
// outbound newsletter email.
func NewWorker(pool *pgxpool.Pool, transport email.Transport, from string, log *zap.Logger) *Worker {
	return &Worker{pool: pool, transport: transport, from: from, log: log}
}

// Start launches the worker loop in a background goroutine. Startup is
// optional per spec §4.7: when the caller never invokes Start, publish
// still works and tasks simply accumulate until a worker runs.
func (w *Worker) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.loop(ctx)
	}()
}

// Stop cancels the worker loop and waits for the in-flight iteration to
// finish.
func (w *Worker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

func (w *Worker) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		outcome, err := w.tryExecuteTask(ctx)
		var sleep time.Duration
		switch {
		case err != nil:
			w.log.Error("delivery: infrastructure error", zap.Error(err))
			sleep = infraErrorSleep
		case outcome == EmptyQueue:
			sleep = emptyQueueSleep
		default:
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(sleep):
		}
	}
}

// tryExecuteTask runs one dequeue-send-delete cycle (spec §4.7 steps 1-7).
func (w *Worker) tryExecuteTask(ctx context.Context) (ExecutionOutcome, error) {
	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return EmptyQueue, fmt.Errorf("delivery: begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op once committed

	var issueID, subscriberEmail string
	err = tx.QueryRow(ctx, `
		SELECT newsletter_issue_id, subscriber_email
		FROM issue_delivery_queue
		FOR UPDATE SKIP LOCKED
		LIMIT 1`).Scan(&issueID, &subscriberEmail)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return EmptyQueue, nil
		}
		return EmptyQueue, fmt.Errorf("delivery: dequeue task: %w", err)
	}

	w.deliver(ctx, tx, issueID, subscriberEmail)

	if _, err := tx.Exec(ctx, `
		DELETE FROM issue_delivery_queue
		WHERE newsletter_issue_id = $1 AND subscriber_email = $2`,
		issueID, subscriberEmail); err != nil {
		return EmptyQueue, fmt.Errorf("delivery: delete task: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return EmptyQueue, fmt.Errorf("delivery: commit: %w", err)
	}
	return TaskCompleted, nil
}

// deliver sends the issue to subscriberEmail, logging and swallowing any
// failure — the task row is deleted regardless (spec §4.7 step 5: a
// deliberate, documented trade-off, not a bug).
func (w *Worker) deliver(ctx context.Context, tx pgx.Tx, issueID, subscriberEmail string) {
	if _, err := mail.ParseAddress(subscriberEmail); err != nil {
		w.log.Error("delivery: skipping subscriber with invalid stored address",
			zap.String("newsletter_issue_id", issueID), zap.Error(err))
		return
	}

	var title, textContent string
	err := tx.QueryRow(ctx, `
		SELECT title, text_content FROM newsletter_issues WHERE newsletter_issue_id = $1`,
		issueID).Scan(&title, &textContent)
	if err != nil {
		w.log.Error("delivery: failed to load newsletter issue",
			zap.String("newsletter_issue_id", issueID), zap.Error(err))
		return
	}

	msg := email.Message{
		From:     w.from,
		To:       subscriberEmail,
		Subject:  title,
		HTMLBody: textContent,
		TextBody: textContent,
	}

	if err := w.transport.Send(ctx, msg); err != nil {
		w.log.Error("delivery: failed to deliver issue to confirmed subscriber, skipping",
			zap.String("newsletter_issue_id", issueID),
			zap.String("subscriber_email", subscriberEmail),
			zap.Error(err))
	}
}
