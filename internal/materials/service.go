// Package materials manages uploaded study materials and resolves which of
// them a user may see.
package materials

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/studyshare/backend/internal/accounts"
	"github.com/studyshare/backend/internal/friends"
	"github.com/studyshare/backend/internal/logging"
	"github.com/studyshare/backend/internal/models"
	"github.com/studyshare/backend/internal/repositories"
	"github.com/studyshare/backend/internal/storage"
)

// FileStore persists uploaded files and removes them once no material
// references them.
type FileStore interface {
	Upload(ctx context.Context, ownerID string, file storage.File) (string, error)
	Remove(ctx context.Context, location string) error
}

// Upload is a file attached to a create or update request.
type Upload struct {
	Name string
	// Size is the declared size; negative when unknown.
	Size int64
	Body io.Reader
}

// CreateInput carries the fields of a new material. File may be nil.
type CreateInput struct {
	Title       string
	Description string
	File        *Upload
}

// UpdateInput carries replacement fields. The file reference only changes when
// File is set.
type UpdateInput struct {
	Title       string
	Description string
	File        *Upload
}

// Service implements material CRUD and the visibility rules.
type Service struct {
	users     repositories.UserRepository
	friends   repositories.FriendRepository
	materials repositories.MaterialRepository
	files     FileStore
	now       func() time.Time
}

// NewService wires the material service.
func NewService(users repositories.UserRepository, friendRepo repositories.FriendRepository, materialRepo repositories.MaterialRepository, files FileStore) *Service {
	return &Service{
		users:     users,
		friends:   friendRepo,
		materials: materialRepo,
		files:     files,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create uploads the optional file and stores a material owned by owner.
func (s *Service) Create(ctx context.Context, owner models.User, in CreateInput) (models.Material, error) {
	ctx, span := logging.StartSpan(ctx, "materials.create")
	defer span.End()

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return models.Material{}, ErrTitleRequired
	}

	fileURL, err := s.upload(ctx, owner.ID, in.File)
	if err != nil {
		return models.Material{}, err
	}

	now := s.now()
	material := models.Material{
		ID:          uuid.NewString(),
		OwnerID:     owner.ID,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		FileURL:     fileURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.materials.Create(ctx, material); err != nil {
		s.discard(ctx, fileURL)
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Material{}, accounts.ErrNoSuchAccount
		}
		return models.Material{}, fmt.Errorf("create material: %w", err)
	}

	logging.FromContext(ctx).Info("material created", "materialId", material.ID, "ownerId", owner.ID)
	return material, nil
}

// Get returns a material to its owner.
func (s *Service) Get(ctx context.Context, materialID string, requester models.User) (models.Material, error) {
	return s.owned(ctx, materialID, requester)
}

// Update replaces the title and description of a material and, when a new
// file is supplied, its file reference. Ownership is checked before anything
// is uploaded or written.
func (s *Service) Update(ctx context.Context, materialID string, requester models.User, in UpdateInput) (models.Material, error) {
	ctx, span := logging.StartSpan(ctx, "materials.update")
	defer span.End()

	material, err := s.owned(ctx, materialID, requester)
	if err != nil {
		return models.Material{}, err
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return models.Material{}, ErrTitleRequired
	}

	replaced := ""
	if in.File != nil {
		fileURL, err := s.upload(ctx, requester.ID, in.File)
		if err != nil {
			return models.Material{}, err
		}
		replaced = material.FileURL
		material.FileURL = fileURL
	}

	material.Title = title
	material.Description = strings.TrimSpace(in.Description)
	material.UpdatedAt = s.now()

	if err := s.materials.Update(ctx, material); err != nil {
		if in.File != nil {
			s.discard(ctx, material.FileURL)
		}
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Material{}, ErrNotFound
		}
		return models.Material{}, fmt.Errorf("update material: %w", err)
	}
	s.discard(ctx, replaced)
	return material, nil
}

// Delete removes a material owned by requester.
func (s *Service) Delete(ctx context.Context, materialID string, requester models.User) error {
	material, err := s.owned(ctx, materialID, requester)
	if err != nil {
		return err
	}

	if err := s.materials.Delete(ctx, materialID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete material: %w", err)
	}
	s.discard(ctx, material.FileURL)

	logging.FromContext(ctx).Info("material deleted", "materialId", materialID, "ownerId", requester.ID)
	return nil
}

// ListVisible returns the user's own materials together with those of every
// user in their friend list, in creation order. The friend list is read fresh.
func (s *Service) ListVisible(ctx context.Context, user models.User) ([]models.MaterialView, error) {
	current, err := s.reload(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return s.visible(ctx, current)
}

// Dashboard partitions the visible materials into the user's own and their
// friends', alongside the friend profiles.
func (s *Service) Dashboard(ctx context.Context, user models.User) (models.Dashboard, error) {
	current, err := s.reload(ctx, user.ID)
	if err != nil {
		return models.Dashboard{}, err
	}

	views, err := s.visible(ctx, current)
	if err != nil {
		return models.Dashboard{}, err
	}

	profiles, err := friends.Profiles(ctx, s.friends, current.Friends)
	if err != nil {
		return models.Dashboard{}, err
	}

	dashboard := models.Dashboard{
		User:             models.ProfileOf(current),
		Friends:          profiles,
		YourMaterials:    []models.MaterialView{},
		FriendsMaterials: []models.MaterialView{},
	}
	for _, view := range views {
		if view.OwnerID == current.ID {
			dashboard.YourMaterials = append(dashboard.YourMaterials, view)
		} else {
			dashboard.FriendsMaterials = append(dashboard.FriendsMaterials, view)
		}
	}
	return dashboard, nil
}

func (s *Service) visible(ctx context.Context, user models.User) ([]models.MaterialView, error) {
	owners := append([]string{user.ID}, user.Friends...)
	views, err := s.materials.ListByOwners(ctx, owners)
	if err != nil {
		return nil, fmt.Errorf("list materials: %w", err)
	}
	if views == nil {
		views = []models.MaterialView{}
	}
	return views, nil
}

func (s *Service) owned(ctx context.Context, materialID string, requester models.User) (models.Material, error) {
	material, err := s.materials.FindByID(ctx, materialID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.Material{}, ErrNotFound
		}
		return models.Material{}, fmt.Errorf("load material: %w", err)
	}
	if material.OwnerID != requester.ID {
		logging.FromContext(ctx).Warn("material access denied", "materialId", materialID, "userId", requester.ID)
		return models.Material{}, ErrUnauthorized
	}
	return material, nil
}

func (s *Service) upload(ctx context.Context, ownerID string, file *Upload) (string, error) {
	if file == nil {
		return "", nil
	}
	if s.files == nil {
		return "", fmt.Errorf("%w: file storage not configured", storage.ErrUploadFailed)
	}
	return s.files.Upload(ctx, ownerID, storage.File{Name: file.Name, Size: file.Size, Body: file.Body})
}

// discard removes a file no longer referenced by any material. Failures only
// leave an orphaned object behind, so they are logged and swallowed.
func (s *Service) discard(ctx context.Context, location string) {
	if location == "" || s.files == nil {
		return
	}
	if err := s.files.Remove(ctx, location); err != nil {
		logging.FromContext(ctx).Warn("remove material file", "location", location, "error", err)
	}
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
