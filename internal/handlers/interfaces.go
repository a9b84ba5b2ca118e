package handlers

import (
	"context"

	"github.com/studyshare/backend/internal/accounts"
	"github.com/studyshare/backend/internal/materials"
	"github.com/studyshare/backend/internal/models"
)

// AccountService covers registration, verification and login.
type AccountService interface {
	Register(ctx context.Context, in accounts.RegisterInput) (accounts.RegisterResult, error)
	Verify(ctx context.Context, token string) (models.User, error)
	ResendVerification(ctx context.Context, email string) error
	Login(ctx context.Context, email, password string) (accounts.LoginResult, error)
	Logout(ctx context.Context, sessionID string)
	CurrentUser(ctx context.Context, userID string) (models.User, error)
}

// FriendService manages the caller's friend list.
type FriendService interface {
	Add(ctx context.Context, owner models.User, friendEmail string) (models.Profile, error)
	Remove(ctx context.Context, owner models.User, friendID string) error
	List(ctx context.Context, owner models.User) ([]models.Profile, error)
}

// MaterialService manages materials and the visibility views over them.
type MaterialService interface {
	Create(ctx context.Context, owner models.User, in materials.CreateInput) (models.Material, error)
	Get(ctx context.Context, materialID string, requester models.User) (models.Material, error)
	Update(ctx context.Context, materialID string, requester models.User, in materials.UpdateInput) (models.Material, error)
	Delete(ctx context.Context, materialID string, requester models.User) error
	ListVisible(ctx context.Context, user models.User) ([]models.MaterialView, error)
	Dashboard(ctx context.Context, user models.User) (models.Dashboard, error)
}
