package friends

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyshare/backend/internal/accounts"
	"github.com/studyshare/backend/internal/models"
	"github.com/studyshare/backend/internal/repositories"
)

func seedUser(t *testing.T, store *repositories.MemoryStore, username, email string) models.User {
	t.Helper()
	now := time.Now().UTC()
	user := models.User{
		ID:         uuid.NewString(),
		Username:   username,
		Email:      email,
		IsVerified: true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, store.Create(context.Background(), user))
	return user
}

func TestAddFriend(t *testing.T) {
	store := repositories.NewMemoryStore()
	svc := NewService(store, store)
	alice := seedUser(t, store, "alice", "alice@example.com")
	bob := seedUser(t, store, "bob", "bob@example.com")

	profile, err := svc.Add(context.Background(), alice, " BOB@example.com ")
	require.NoError(t, err)
	assert.Equal(t, models.Profile{ID: bob.ID, Username: "bob", Email: "bob@example.com"}, profile)

	stored, err := store.FindByID(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{bob.ID}, stored.Friends)

	other, err := store.FindByID(context.Background(), bob.ID)
	require.NoError(t, err)
	assert.Empty(t, other.Friends, "friendship is not mirrored")
}

func TestAddFriendTwice(t *testing.T) {
	store := repositories.NewMemoryStore()
	svc := NewService(store, store)
	alice := seedUser(t, store, "alice", "alice@example.com")
	seedUser(t, store, "bob", "bob@example.com")

	_, err := svc.Add(context.Background(), alice, "bob@example.com")
	require.NoError(t, err)

	// alice is stale here; the service re-reads the stored list.
	_, err = svc.Add(context.Background(), alice, "bob@example.com")
	assert.ErrorIs(t, err, ErrAlreadyFriends)

	stored, err := store.FindByID(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Friends, 1)
}

func TestAddFriendRejections(t *testing.T) {
	store := repositories.NewMemoryStore()
	svc := NewService(store, store)
	alice := seedUser(t, store, "alice", "alice@example.com")

	_, err := svc.Add(context.Background(), alice, "nobody@example.com")
	assert.ErrorIs(t, err, accounts.ErrNoSuchAccount)

	_, err = svc.Add(context.Background(), alice, "alice@example.com")
	assert.ErrorIs(t, err, ErrSelfFriend)

	stored, err := store.FindByID(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Friends)
}

func TestRemoveFriendIsIdempotent(t *testing.T) {
	store := repositories.NewMemoryStore()
	svc := NewService(store, store)
	alice := seedUser(t, store, "alice", "alice@example.com")
	bob := seedUser(t, store, "bob", "bob@example.com")
	carol := seedUser(t, store, "carol", "carol@example.com")

	_, err := svc.Add(context.Background(), alice, bob.Email)
	require.NoError(t, err)
	_, err = svc.Add(context.Background(), alice, carol.Email)
	require.NoError(t, err)

	require.NoError(t, svc.Remove(context.Background(), alice, bob.ID))
	require.NoError(t, svc.Remove(context.Background(), alice, bob.ID))
	require.NoError(t, svc.Remove(context.Background(), alice, "never-a-friend"))

	stored, err := store.FindByID(context.Background(), alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{carol.ID}, stored.Friends)
}

func TestListFriendsKeepsOrder(t *testing.T) {
	store := repositories.NewMemoryStore()
	svc := NewService(store, store)
	alice := seedUser(t, store, "alice", "alice@example.com")
	carol := seedUser(t, store, "carol", "carol@example.com")
	bob := seedUser(t, store, "bob", "bob@example.com")

	empty, err := svc.List(context.Background(), alice)
	require.NoError(t, err)
	assert.Empty(t, empty)

	for _, email := range []string{carol.Email, bob.Email} {
		_, err := svc.Add(context.Background(), alice, email)
		require.NoError(t, err)
	}

	profiles, err := svc.List(context.Background(), alice)
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, carol.ID, profiles[0].ID)
	assert.Equal(t, bob.ID, profiles[1].ID)
}

func TestOperationsForDeletedOwner(t *testing.T) {
	store := repositories.NewMemoryStore()
	svc := NewService(store, store)
	ghost := models.User{ID: "ghost"}

	_, err := svc.Add(context.Background(), ghost, "x@example.com")
	assert.ErrorIs(t, err, accounts.ErrNoSuchAccount)
	assert.ErrorIs(t, svc.Remove(context.Background(), ghost, "x"), accounts.ErrNoSuchAccount)
}
