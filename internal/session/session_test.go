package session

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-newsletter/svc/internal/dbtest"
)

// mustCreateUser inserts a minimal users row and returns its user_id, to
// satisfy sessions.user_id's foreign key.
func mustCreateUser(t *testing.T, ctx context.Context, pool *pgxpool.Pool) string {
	t.Helper()
	userID := uuid.NewString()
	_, err := pool.Exec(ctx, `INSERT INTO users (user_id, username, password_hash)
		VALUES ($1, $2, $3)`, userID, "user-"+userID, "not-a-real-hash")
	require.NoError(t, err)
	return userID
}

func TestStore_NewSessionHasNoUserID(t *testing.T) {
	pool := dbtest.ConnectPool(t)
	store := NewStore(pool)
	ctx := context.Background()

	sessionID, err := store.NewSession(ctx)
	require.NoError(t, err)
	defer store.LogOut(ctx, sessionID)

	_, ok, err := store.GetUserID(ctx, sessionID)
	require.NoError(t, err)
	assert.False(t, ok, "a freshly created session must not have a user id attached")
}

func TestStore_InsertThenGetUserID(t *testing.T) {
	pool := dbtest.ConnectPool(t)
	store := NewStore(pool)
	ctx := context.Background()

	sessionID, err := store.NewSession(ctx)
	require.NoError(t, err)
	defer store.LogOut(ctx, sessionID)

	wantUserID := mustCreateUser(t, ctx, pool)
	require.NoError(t, store.InsertUserID(ctx, sessionID, wantUserID))

	userID, ok, err := store.GetUserID(ctx, sessionID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, wantUserID, userID)
}

func TestStore_RegenerateDiscardsUserID(t *testing.T) {
	pool := dbtest.ConnectPool(t)
	store := NewStore(pool)
	ctx := context.Background()

	sessionID, err := store.NewSession(ctx)
	require.NoError(t, err)

	userID := mustCreateUser(t, ctx, pool)
	require.NoError(t, store.InsertUserID(ctx, sessionID, userID))

	newSessionID, err := store.Regenerate(ctx, sessionID)
	require.NoError(t, err)
	defer store.LogOut(ctx, newSessionID)

	assert.NotEqual(t, sessionID, newSessionID, "regenerate must issue a fresh session id")

	// The old session id is gone: session fixation is defeated.
	_, ok, err := store.GetUserID(ctx, sessionID)
	require.NoError(t, err)
	assert.False(t, ok)

	// The new session id exists but carries no user id yet — InsertUserID
	// must be called again by the caller (spec §4.4's ordering requirement).
	_, ok, err = store.GetUserID(ctx, newSessionID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_RegenerateWithoutExistingSession(t *testing.T) {
	pool := dbtest.ConnectPool(t)
	store := NewStore(pool)
	ctx := context.Background()

	newSessionID, err := store.Regenerate(ctx, "never-created")
	require.NoError(t, err)
	defer store.LogOut(ctx, newSessionID)

	_, ok, err := store.GetUserID(ctx, newSessionID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_LogOutDeletesSession(t *testing.T) {
	pool := dbtest.ConnectPool(t)
	store := NewStore(pool)
	ctx := context.Background()

	sessionID, err := store.NewSession(ctx)
	require.NoError(t, err)

	require.NoError(t, store.LogOut(ctx, sessionID))

	_, ok, err := store.GetUserID(ctx, sessionID)
	require.NoError(t, err)
	assert.False(t, ok)
}
