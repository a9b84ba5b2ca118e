package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/studyshare/backend/internal/models"
)

// MemoryStore implements the user, friend and material repositories in memory
// for tests and local development.
type MemoryStore struct {
	mu        sync.RWMutex
	users     map[string]models.User
	byEmail   map[string]string
	materials map[string]memoryMaterial
	seq       int64
}

type memoryMaterial struct {
	material models.Material
	seq      int64
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:     make(map[string]models.User),
		byEmail:   make(map[string]string),
		materials: make(map[string]memoryMaterial),
	}
}

// Create stores a user, enforcing unique emails.
func (s *MemoryStore) Create(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[user.Email]; exists {
		return ErrConflict
	}
	if _, exists := s.users[user.ID]; exists {
		return ErrConflict
	}
	if user.VerificationToken != "" {
		for _, existing := range s.users {
			if existing.VerificationToken == user.VerificationToken {
				return ErrConflict
			}
		}
	}

	s.users[user.ID] = cloneUser(user)
	s.byEmail[user.Email] = user.ID
	return nil
}

// FindByID fetches a user by identifier.
func (s *MemoryStore) FindByID(_ context.Context, id string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return cloneUser(user), nil
}

// FindByEmail fetches a user by email.
func (s *MemoryStore) FindByEmail(ctx context.Context, email string) (models.User, error) {
	s.mu.RLock()
	id, ok := s.byEmail[email]
	s.mu.RUnlock()
	if !ok {
		return models.User{}, ErrNotFound
	}
	return s.FindByID(ctx, id)
}

// FindByVerificationToken fetches the pending user holding token.
func (s *MemoryStore) FindByVerificationToken(_ context.Context, token string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if token == "" {
		return models.User{}, ErrNotFound
	}
	for _, user := range s.users {
		if user.VerificationToken == token {
			return cloneUser(user), nil
		}
	}
	return models.User{}, ErrNotFound
}

// FindByIDs fetches every user whose id is in ids.
func (s *MemoryStore) FindByIDs(_ context.Context, ids []string) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var users []models.User
	for _, id := range ids {
		if user, ok := s.users[id]; ok {
			users = append(users, cloneUser(user))
		}
	}
	return users, nil
}

// MarkVerified clears token and flags the user verified if token is still current.
func (s *MemoryStore) MarkVerified(_ context.Context, id, token string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok || token == "" || user.VerificationToken != token {
		return ErrNotFound
	}
	user.IsVerified = true
	user.VerificationToken = ""
	user.VerificationExpiresAt = nil
	user.UpdatedAt = at
	s.users[id] = user
	return nil
}

// SetVerificationToken replaces the token of an unverified user.
func (s *MemoryStore) SetVerificationToken(_ context.Context, id, token string, expiresAt *time.Time, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok || user.IsVerified {
		return ErrNotFound
	}
	user.VerificationToken = token
	user.VerificationExpiresAt = expiresAt
	user.UpdatedAt = at
	s.users[id] = user
	return nil
}

// UpdateFriends overwrites the user's friend list.
func (s *MemoryStore) UpdateFriends(_ context.Context, userID string, friendIDs []string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return ErrNotFound
	}
	user.Friends = append([]string{}, friendIDs...)
	user.UpdatedAt = at
	s.users[userID] = user
	return nil
}

// MaterialRepository returns a view of the store satisfying MaterialRepository.
func (s *MemoryStore) MaterialRepository() MaterialRepository {
	return memoryMaterials{s}
}

type memoryMaterials struct {
	s *MemoryStore
}

func (m memoryMaterials) Create(_ context.Context, material models.Material) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	if _, exists := m.s.materials[material.ID]; exists {
		return ErrConflict
	}
	if _, ok := m.s.users[material.OwnerID]; !ok {
		return ErrNotFound
	}
	m.s.seq++
	m.s.materials[material.ID] = memoryMaterial{material: material, seq: m.s.seq}
	return nil
}

func (m memoryMaterials) FindByID(_ context.Context, id string) (models.Material, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	entry, ok := m.s.materials[id]
	if !ok {
		return models.Material{}, ErrNotFound
	}
	return entry.material, nil
}

func (m memoryMaterials) Update(_ context.Context, material models.Material) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	entry, ok := m.s.materials[material.ID]
	if !ok {
		return ErrNotFound
	}
	entry.material.Title = material.Title
	entry.material.Description = material.Description
	entry.material.FileURL = material.FileURL
	entry.material.UpdatedAt = material.UpdatedAt
	m.s.materials[material.ID] = entry
	return nil
}

func (m memoryMaterials) Delete(_ context.Context, id string) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()

	if _, ok := m.s.materials[id]; !ok {
		return ErrNotFound
	}
	delete(m.s.materials, id)
	return nil
}

func (m memoryMaterials) ListByOwners(_ context.Context, ownerIDs []string) ([]models.MaterialView, error) {
	m.s.mu.RLock()
	defer m.s.mu.RUnlock()

	owners := make(map[string]struct{}, len(ownerIDs))
	for _, id := range ownerIDs {
		owners[id] = struct{}{}
	}

	var entries []memoryMaterial
	for _, entry := range m.s.materials {
		if _, ok := owners[entry.material.OwnerID]; ok {
			entries = append(entries, entry)
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if !a.material.CreatedAt.Equal(b.material.CreatedAt) {
			return a.material.CreatedAt.Before(b.material.CreatedAt)
		}
		return a.seq < b.seq
	})

	views := make([]models.MaterialView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, models.MaterialView{
			Material:      entry.material,
			OwnerUsername: m.s.users[entry.material.OwnerID].Username,
		})
	}
	return views, nil
}

func cloneUser(user models.User) models.User {
	if user.Friends != nil {
		user.Friends = append([]string{}, user.Friends...)
	}
	if user.VerificationExpiresAt != nil {
		t := *user.VerificationExpiresAt
		user.VerificationExpiresAt = &t
	}
	return user
}

var _ UserRepository = (*MemoryStore)(nil)
var _ FriendRepository = (*MemoryStore)(nil)
var _ MaterialRepository = memoryMaterials{}
