// Package session is the session store adapter (component D): a key/value
// store holding the authenticated user id keyed by an opaque session id.
// Session cookie transport — reading/writing the session id on the wire —
// lives in internal/web; this package only ever deals with session ids as
// opaque strings.
package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// DefaultTTL is how long a session record remains valid after creation.
const DefaultTTL = 7 * 24 * time.Hour

// Store is the Postgres-backed implementation of the session store
// contract: GetUserID, InsertUserID, Regenerate, LogOut.
type Store struct {
	db  *pgxpool.Pool
	ttl time.Duration
}

// NewStore builds a Store with the default session lifetime.
func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db, ttl: DefaultTTL}
}

// NewSession creates a fresh, anonymous session record (no user id
// attached yet) and returns its id. Used the first time a client without
// a session cookie makes a request.
func (s *Store) NewSession(ctx context.Context) (string, error) {
	sessionID := uuid.NewString()
	now := time.Now().UTC()

	query, args, err := psql.
		Insert("sessions").
		Columns("session_id", "user_id", "created_at", "expires_at").
		Values(sessionID, nil, now, now.Add(s.ttl)).
		ToSql()
	if err != nil {
		return "", err
	}

	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return "", err
	}
	return sessionID, nil
}

// GetUserID returns the user id attached to sessionID, if any. ok is false
// both when the session doesn't exist and when it exists but has no user
// id attached (an anonymous session) or has expired.
func (s *Store) GetUserID(ctx context.Context, sessionID string) (userID string, ok bool, err error) {
	query, args, err := psql.
		Select("user_id", "expires_at").
		From("sessions").
		Where(sq.Eq{"session_id": sessionID}).
		ToSql()
	if err != nil {
		return "", false, err
	}

	var id *string
	var expiresAt time.Time
	row := s.db.QueryRow(ctx, query, args...)
	if err := row.Scan(&id, &expiresAt); err != nil {
		if err == pgx.ErrNoRows {
			return "", false, nil
		}
		return "", false, err
	}

	if id == nil || time.Now().After(expiresAt) {
		return "", false, nil
	}
	return *id, true, nil
}

// InsertUserID attaches userID to sessionID.
func (s *Store) InsertUserID(ctx context.Context, sessionID, userID string) error {
	query, args, err := psql.
		Update("sessions").
		Set("user_id", userID).
		Where(sq.Eq{"session_id": sessionID}).
		ToSql()
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, query, args...)
	return err
}

// Regenerate replaces sessionID with a brand new session id, discarding
// any state (including the attached user id). Callers MUST call this on
// successful login, before InsertUserID, to defend against session
// fixation: an attacker who planted a known session id on the victim's
// browser before login never learns the post-login session id.
func (s *Store) Regenerate(ctx context.Context, sessionID string) (newSessionID string, err error) {
	newID := uuid.NewString()
	now := time.Now().UTC()

	query, args, err := psql.
		Update("sessions").
		Set("session_id", newID).
		Set("user_id", nil).
		Set("created_at", now).
		Set("expires_at", now.Add(s.ttl)).
		Where(sq.Eq{"session_id": sessionID}).
		ToSql()
	if err != nil {
		return "", err
	}

	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return "", err
	}
	if tag.RowsAffected() == 0 {
		// No existing row to regenerate (e.g. expired or never created);
		// fall back to creating a fresh anonymous session under the new id.
		return s.insertWithID(ctx, newID)
	}
	return newID, nil
}

func (s *Store) insertWithID(ctx context.Context, sessionID string) (string, error) {
	now := time.Now().UTC()
	query, args, err := psql.
		Insert("sessions").
		Columns("session_id", "user_id", "created_at", "expires_at").
		Values(sessionID, nil, now, now.Add(s.ttl)).
		ToSql()
	if err != nil {
		return "", err
	}
	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return "", err
	}
	return sessionID, nil
}

// LogOut deletes the session record. After this call the session id the
// client still holds refers to nothing.
func (s *Store) LogOut(ctx context.Context, sessionID string) error {
	query, args, err := psql.
		Delete("sessions").
		Where(sq.Eq{"session_id": sessionID}).
		ToSql()
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, query, args...)
	return err
}
