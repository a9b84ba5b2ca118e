package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"github.com/studyshare/backend/internal/logging"
)

var (
	// ErrSessionNotFound indicates the provided session id does not map to an active session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired indicates the session has outlived its TTL.
	ErrSessionExpired = errors.New("session expired")
)

// SessionStore persists issued sessions so they can survive process restarts.
type SessionStore interface {
	Save(ctx context.Context, session Session) error
	Find(ctx context.Context, id string) (Session, error)
	Delete(ctx context.Context, id string) error
}

// ExpiredSessionPruner is implemented by stores that cannot expire records on
// their own and need a periodic sweep.
type ExpiredSessionPruner interface {
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// Session binds an opaque identifier to a user. Only the identity reference is
// kept; the user record itself is loaded fresh on every request.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Manager manages the lifecycle of sessions backed by a persistent store.
type Manager struct {
	ttl   time.Duration
	store SessionStore
	now   func() time.Time
}

// NewManager constructs a Manager that issues sessions valid for ttl.
func NewManager(ttl time.Duration, store SessionStore) *Manager {
	if store == nil {
		panic("auth: session store must not be nil")
	}
	return &Manager{
		ttl:   ttl,
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// TTL reports how long issued sessions remain valid.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue creates and persists a new session for the provided user identifier.
func (m *Manager) Issue(ctx context.Context, userID string) (Session, error) {
	if userID == "" {
		return Session{}, errors.New("user id must be provided")
	}

	id, err := RandomToken()
	if err != nil {
		return Session{}, err
	}

	session := Session{
		ID:        id,
		UserID:    userID,
		ExpiresAt: m.now().Add(m.ttl),
	}
	if err := m.store.Save(ctx, session); err != nil {
		return Session{}, err
	}
	return session, nil
}

// Resolve looks up an active session. Expired sessions are removed and reported
// as ErrSessionExpired.
func (m *Manager) Resolve(ctx context.Context, id string) (Session, error) {
	if id == "" {
		return Session{}, ErrSessionNotFound
	}

	session, err := m.store.Find(ctx, id)
	if err != nil {
		return Session{}, err
	}

	if m.now().After(session.ExpiresAt) {
		_ = m.store.Delete(ctx, id)
		return Session{}, ErrSessionExpired
	}
	return session, nil
}

// Revoke removes the session from the store. Unknown ids are ignored.
func (m *Manager) Revoke(ctx context.Context, id string) {
	if id == "" {
		return
	}
	_ = m.store.Delete(ctx, id)
}

// Prune removes expired sessions from stores that support it. Stores with
// native expiry report zero.
func (m *Manager) Prune(ctx context.Context) (int64, error) {
	pruner, ok := m.store.(ExpiredSessionPruner)
	if !ok {
		return 0, nil
	}
	return pruner.DeleteExpired(ctx, m.now())
}

// RunPruner calls Prune every interval until ctx is done. A non-positive
// interval disables the sweep.
func (m *Manager) RunPruner(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	if _, ok := m.store.(ExpiredSessionPruner); !ok {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger := logging.FromContext(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := m.Prune(ctx)
			if err != nil {
				logger.Warn("prune expired sessions", "error", err)
				continue
			}
			if removed > 0 {
				logger.Debug("pruned expired sessions", "count", removed)
			}
		}
	}
}

// RandomToken returns 32 bytes of crypto-random data, base64url encoded.
func RandomToken() (string, error) {
	const size = 32
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
