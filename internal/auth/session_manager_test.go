package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestManagerIssueAndResolve(t *testing.T) {
	store := NewInMemorySessionStore()
	manager := NewManager(time.Hour, store)

	session, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if session.ID == "" || session.UserID != "user-1" {
		t.Fatalf("unexpected session: %+v", session)
	}
	if !store.Has(session.ID) {
		t.Fatal("expected session to be persisted")
	}

	resolved, err := manager.Resolve(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.UserID != "user-1" {
		t.Fatalf("expected user-1 got %s", resolved.UserID)
	}
}

func TestManagerIssueValidation(t *testing.T) {
	manager := NewManager(time.Hour, NewInMemorySessionStore())
	if _, err := manager.Issue(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty user id")
	}
}

func TestManagerResolveFailures(t *testing.T) {
	store := NewInMemorySessionStore()
	manager := NewManager(time.Minute, store)

	if _, err := manager.Resolve(context.Background(), ""); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected session not found got %v", err)
	}

	session, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	manager.now = func() time.Time { return time.Now().UTC().Add(2 * time.Minute) }
	if _, err := manager.Resolve(context.Background(), session.ID); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected session expired got %v", err)
	}
	if store.Has(session.ID) {
		t.Fatal("expired session should have been removed")
	}
}

func TestManagerRevokeIsIdempotent(t *testing.T) {
	store := NewInMemorySessionStore()
	manager := NewManager(time.Hour, store)

	session, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	manager.Revoke(context.Background(), session.ID)
	manager.Revoke(context.Background(), session.ID)
	manager.Revoke(context.Background(), "")

	if _, err := manager.Resolve(context.Background(), session.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected session not found after revoke got %v", err)
	}
}

func TestNewManagerRequiresStore(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for nil store")
		}
	}()
	NewManager(time.Hour, nil)
}

func TestManagerPruneDropsExpiredSessions(t *testing.T) {
	store := NewInMemorySessionStore()
	manager := NewManager(time.Minute, store)

	stale, err := manager.Issue(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	manager.now = func() time.Time { return time.Now().UTC().Add(2 * time.Minute) }
	fresh, err := manager.Issue(context.Background(), "user-2")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	removed, err := manager.Prune(context.Background())
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 pruned session got %d", removed)
	}
	if store.Has(stale.ID) || !store.Has(fresh.ID) {
		t.Fatalf("unexpected sessions after prune: len=%d", store.Len())
	}
}

type plainStore struct{ SessionStore }

func TestManagerPruneSkipsStoresWithNativeExpiry(t *testing.T) {
	manager := NewManager(time.Minute, plainStore{NewInMemorySessionStore()})
	removed, err := manager.Prune(context.Background())
	if err != nil || removed != 0 {
		t.Fatalf("expected no-op prune got %d, %v", removed, err)
	}

	done := make(chan struct{})
	go func() {
		manager.RunPruner(context.Background(), time.Millisecond)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunPruner should return immediately for stores without pruning")
	}
}

func TestManagerRunPrunerStopsWithContext(t *testing.T) {
	store := NewInMemorySessionStore()
	manager := NewManager(time.Millisecond, store)
	if _, err := manager.Issue(context.Background(), "user-1"); err != nil {
		t.Fatalf("issue: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		manager.RunPruner(ctx, 5*time.Millisecond)
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for store.Len() > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	if store.Len() != 0 {
		t.Fatalf("expected expired session to be pruned, %d left", store.Len())
	}
}
