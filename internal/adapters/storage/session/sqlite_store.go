package session

import (
	"context"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"waccamaw/internal/adapters/storage"
	"waccamaw/internal/domain/member"
	domain "waccamaw/internal/domain/session"
)

// timeLayout is fixed-width so stored timestamps order lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db  storage.SQLDB
	ttl time.Duration
	now func() time.Time
}

// NewSQLiteStore creates a session store. Sessions idle for longer than ttl
// are reported as expired; a zero ttl disables expiry.
func NewSQLiteStore(db storage.SQLDB, ttl time.Duration) *SQLiteStore {
	return &SQLiteStore{db: db, ttl: ttl, now: time.Now}
}

// hashID returns the at-rest key for a cookie id.
func hashID(id string) string {
	sum := blake2b.Sum256([]byte(id))
	return hex.EncodeToString(sum[:])
}

// Create inserts an empty session under a fresh random id.
// POST: the returned session has a non-empty ID and no cached values
func (s *SQLiteStore) Create(ctx context.Context) (domain.Session, error) {
	now := s.now().UTC()
	sess := domain.Session{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO session (id_hash, created_at, updated_at) VALUES (?, ?, ?)",
		hashID(sess.ID), now.Format(timeLayout), now.Format(timeLayout),
	)
	if err != nil {
		return domain.Session{}, fmt.Errorf("failed to create session: %w", err)
	}
	return sess, nil
}

// Get loads the session for id and refreshes its idle timer.
// POST: returns domain.ErrNotFound for unknown ids and domain.ErrExpired
// (after deleting the row) for idle ones
func (s *SQLiteStore) Get(ctx context.Context, id string) (domain.Session, error) {
	if id == "" {
		return domain.Session{}, domain.ErrNotFound
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT waccamaw_session_token, waccamaw_member_data, waccamaw_member_email, created_at, updated_at
		 FROM session WHERE id_hash = ?`, hashID(id))

	var token, data, email, created, updated string
	if err := row.Scan(&token, &data, &email, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Session{}, domain.ErrNotFound
		}
		return domain.Session{}, fmt.Errorf("failed to load session: %w", err)
	}

	sess := domain.Session{ID: id, SessionToken: token, Email: email}
	sess.CreatedAt, _ = time.Parse(timeLayout, created)
	sess.UpdatedAt, _ = time.Parse(timeLayout, updated)
	if data != "" {
		var p member.Profile
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			return domain.Session{}, fmt.Errorf("failed to decode member data: %w", err)
		}
		sess.MemberData = &p
	}

	if sess.Expired(s.ttl, s.now()) {
		if err := s.Delete(ctx, id); err != nil {
			return domain.Session{}, err
		}
		return domain.Session{}, domain.ErrExpired
	}

	now := s.now().UTC()
	if _, err := s.db.ExecContext(ctx, "UPDATE session SET updated_at = ? WHERE id_hash = ?",
		now.Format(timeLayout), hashID(id)); err != nil {
		return domain.Session{}, fmt.Errorf("failed to touch session: %w", err)
	}
	sess.UpdatedAt = now
	return sess, nil
}

// Save writes all cached values of value and refreshes its idle timer.
// PRE: value.ID is non-empty
// POST: the row exists whether or not it did before
func (s *SQLiteStore) Save(ctx context.Context, value domain.Session) error {
	if value.ID == "" {
		return fmt.Errorf("session id is required")
	}
	var data string
	if value.MemberData != nil {
		b, err := json.Marshal(value.MemberData)
		if err != nil {
			return fmt.Errorf("failed to encode member data: %w", err)
		}
		data = string(b)
	}
	now := s.now().UTC()
	created := value.CreatedAt
	if created.IsZero() {
		created = now
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO session (id_hash, waccamaw_session_token, waccamaw_member_data, waccamaw_member_email, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id_hash) DO UPDATE SET
		   waccamaw_session_token=excluded.waccamaw_session_token,
		   waccamaw_member_data=excluded.waccamaw_member_data,
		   waccamaw_member_email=excluded.waccamaw_member_email,
		   updated_at=excluded.updated_at`,
		hashID(value.ID), value.SessionToken, data, value.Email,
		created.Format(timeLayout), now.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Clear blanks the token, member data and email in a single statement.
// POST: a subsequent Get reports no active session
func (s *SQLiteStore) Clear(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE session SET waccamaw_session_token='', waccamaw_member_data='', waccamaw_member_email='', updated_at=?
		 WHERE id_hash = ?`,
		s.now().UTC().Format(timeLayout), hashID(id),
	)
	if err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// Delete removes the session row.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM session WHERE id_hash = ?", hashID(id)); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpired removes sessions not updated since before.
func (s *SQLiteStore) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM session WHERE updated_at < ?", before.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return res.RowsAffected()
}
