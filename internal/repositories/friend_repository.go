package repositories

import (
	"context"
	"time"

	"github.com/studyshare/backend/internal/models"
)

// FriendRepository defines data access for the friend list stored on each user row.
type FriendRepository interface {
	// UpdateFriends overwrites the user's friend list. Concurrent writers race;
	// the last write wins.
	UpdateFriends(ctx context.Context, userID string, friendIDs []string, at time.Time) error
	FindByIDs(ctx context.Context, ids []string) ([]models.User, error)
}
