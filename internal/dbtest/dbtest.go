// Package dbtest is test-only plumbing shared by every package whose tests
// exercise a real Postgres instance (component A). Grounded on the
// teacher's internal/testutils: a test database URL resolved from the
// environment (with a .env fallback), skipping the test entirely when none
// is configured, rather than standing up a fake in-process store.
package dbtest

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

// ConnectPool connects to the database named by TEST_DATABASE_URL (falling
// back to DATABASE_URL), skipping t if neither is set. Tests that need a
// real Postgres instance — row locking, transactional isolation, unique
// constraints — call this first and skip cleanly in environments (like this
// one) with no database available.
func ConnectPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	_ = godotenv.Load()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		url = os.Getenv("DATABASE_URL")
	}
	if url == "" {
		t.Skip("no TEST_DATABASE_URL/DATABASE_URL configured, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		t.Fatalf("dbtest: connect: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Fatalf("dbtest: ping: %v", err)
	}

	t.Cleanup(pool.Close)
	return pool
}
