package repositories

import (
	"context"

	"github.com/studyshare/backend/internal/models"
)

// MaterialRepository exposes data access for uploaded materials.
type MaterialRepository interface {
	Create(ctx context.Context, material models.Material) error
	FindByID(ctx context.Context, id string) (models.Material, error)
	Update(ctx context.Context, material models.Material) error
	Delete(ctx context.Context, id string) error
	// ListByOwners returns materials owned by any of ownerIDs in creation
	// order, oldest first, with earlier inserts first among equal creation times.
	ListByOwners(ctx context.Context, ownerIDs []string) ([]models.MaterialView, error)
}
