package relay

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-memdb"

	"github.com/alorle/tuner-proxy/metrics"
)

// Session is the tracked record of one viewer actively consuming one
// channel. Concurrent requests from the same client for the same channel
// collapse into a single session.
type Session struct {
	Key        string
	ClientAddr string
	ChannelID  string
	StartedAt  time.Time
	LastSeen   time.Time
}

// sessionSchema indexes sessions by their (clientAddr, channelID) key
var sessionSchema = &memdb.DBSchema{
	Tables: map[string]*memdb.TableSchema{
		"session": {
			Name: "session",
			Indexes: map[string]*memdb.IndexSchema{
				"id": {
					Name:    "id",
					Unique:  true,
					Indexer: &memdb.StringFieldIndex{Field: "Key"},
				},
			},
		},
	},
}

// SessionStore tracks active usage sessions in an in-memory table
type SessionStore struct {
	db  *memdb.MemDB
	now func() time.Time
}

// NewSessionStore creates an empty session store
func NewSessionStore() (*SessionStore, error) {
	db, err := memdb.NewMemDB(sessionSchema)
	if err != nil {
		return nil, fmt.Errorf("failed to create session store: %w", err)
	}
	return &SessionStore{db: db, now: time.Now}, nil
}

func sessionKey(clientAddr, channelID string) string {
	return clientAddr + "|" + channelID
}

// Touch creates the session for (clientAddr, channelID) or refreshes its
// LastSeen timestamp. StartedAt is preserved across refreshes.
func (s *SessionStore) Touch(clientAddr, channelID string) error {
	key := sessionKey(clientAddr, channelID)
	now := s.now()

	txn := s.db.Txn(true)
	defer txn.Abort()

	startedAt := now
	if raw, err := txn.First("session", "id", key); err == nil && raw != nil {
		startedAt = raw.(*Session).StartedAt
	}

	// memdb objects are immutable once inserted; insert a fresh copy
	if err := txn.Insert("session", &Session{
		Key:        key,
		ClientAddr: clientAddr,
		ChannelID:  channelID,
		StartedAt:  startedAt,
		LastSeen:   now,
	}); err != nil {
		return fmt.Errorf("failed to record session: %w", err)
	}

	txn.Commit()
	s.updateGauge()
	return nil
}

// Prune removes sessions whose LastSeen is older than the grace window.
// Returns the number of sessions removed.
func (s *SessionStore) Prune(grace time.Duration) int {
	cutoff := s.now().Add(-grace)

	txn := s.db.Txn(true)
	defer txn.Abort()

	it, err := txn.Get("session", "id")
	if err != nil {
		return 0
	}

	var stale []*Session
	for raw := it.Next(); raw != nil; raw = it.Next() {
		sess := raw.(*Session)
		if sess.LastSeen.Before(cutoff) {
			stale = append(stale, sess)
		}
	}

	for _, sess := range stale {
		if err := txn.Delete("session", sess); err != nil {
			return 0
		}
	}

	txn.Commit()
	s.updateGauge()
	return len(stale)
}

// Active returns a snapshot of all tracked sessions
func (s *SessionStore) Active() []Session {
	txn := s.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get("session", "id")
	if err != nil {
		return nil
	}

	var sessions []Session
	for raw := it.Next(); raw != nil; raw = it.Next() {
		sessions = append(sessions, *raw.(*Session))
	}
	return sessions
}

// Count returns the number of tracked sessions
func (s *SessionStore) Count() int {
	return len(s.Active())
}

func (s *SessionStore) updateGauge() {
	metrics.SessionsActive.Set(float64(s.Count()))
}
