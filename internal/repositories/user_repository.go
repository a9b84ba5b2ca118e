package repositories

import (
	"context"
	"time"

	"github.com/studyshare/backend/internal/models"
)

// UserRepository defines the data access contract for users.
type UserRepository interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByVerificationToken(ctx context.Context, token string) (models.User, error)
	MarkVerified(ctx context.Context, id, token string, at time.Time) error
	SetVerificationToken(ctx context.Context, id, token string, expiresAt *time.Time, at time.Time) error
}
