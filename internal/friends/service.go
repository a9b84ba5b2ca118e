// Package friends manages each user's directional friend list.
package friends

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/studyshare/backend/internal/accounts"
	"github.com/studyshare/backend/internal/logging"
	"github.com/studyshare/backend/internal/models"
	"github.com/studyshare/backend/internal/repositories"
)

// Service adds, removes and lists friends. Friendship is one-way: adding B to
// A's list does not touch B's list.
type Service struct {
	users   repositories.UserRepository
	friends repositories.FriendRepository
	now     func() time.Time
}

// NewService wires the friend service.
func NewService(users repositories.UserRepository, friends repositories.FriendRepository) *Service {
	return &Service{
		users:   users,
		friends: friends,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Add appends the account registered under friendEmail to owner's list.
func (s *Service) Add(ctx context.Context, owner models.User, friendEmail string) (models.Profile, error) {
	current, err := s.reload(ctx, owner.ID)
	if err != nil {
		return models.Profile{}, err
	}

	target, err := s.users.FindByEmail(ctx, accounts.NormalizeEmail(friendEmail))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Profile{}, accounts.ErrNoSuchAccount
		}
		return models.Profile{}, fmt.Errorf("lookup friend: %w", err)
	}

	if target.ID == current.ID {
		return models.Profile{}, ErrSelfFriend
	}
	if current.HasFriend(target.ID) {
		return models.Profile{}, ErrAlreadyFriends
	}

	updated := append(append([]string{}, current.Friends...), target.ID)
	if err := s.friends.UpdateFriends(ctx, current.ID, updated, s.now()); err != nil {
		return models.Profile{}, fmt.Errorf("save friends: %w", err)
	}

	logging.FromContext(ctx).Info("friend added", "userId", current.ID, "friendId", target.ID)
	return models.ProfileOf(target), nil
}

// Remove drops friendID from owner's list. Removing an absent id is a no-op.
func (s *Service) Remove(ctx context.Context, owner models.User, friendID string) error {
	current, err := s.reload(ctx, owner.ID)
	if err != nil {
		return err
	}
	if !current.HasFriend(friendID) {
		return nil
	}

	remaining := make([]string, 0, len(current.Friends))
	for _, id := range current.Friends {
		if id != friendID {
			remaining = append(remaining, id)
		}
	}

	if err := s.friends.UpdateFriends(ctx, current.ID, remaining, s.now()); err != nil {
		return fmt.Errorf("save friends: %w", err)
	}

	logging.FromContext(ctx).Info("friend removed", "userId", current.ID, "friendId", friendID)
	return nil
}

// List returns the profiles of owner's friends in the order they were added.
// Ids that no longer resolve to an account are skipped.
func (s *Service) List(ctx context.Context, owner models.User) ([]models.Profile, error) {
	current, err := s.reload(ctx, owner.ID)
	if err != nil {
		return nil, err
	}
	return Profiles(ctx, s.friends, current.Friends)
}

// Profiles resolves ids to public profiles, preserving the order of ids.
func Profiles(ctx context.Context, friends repositories.FriendRepository, ids []string) ([]models.Profile, error) {
	profiles := make([]models.Profile, 0, len(ids))
	if len(ids) == 0 {
		return profiles, nil
	}

	users, err := friends.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load friends: %w", err)
	}

	byID := make(map[string]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			profiles = append(profiles, models.ProfileOf(u))
		}
	}
	return profiles, nil
}

func (s *Service) reload(ctx context.Context, id string) (models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.User{}, accounts.ErrNoSuchAccount
		}
		return models.User{}, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}
