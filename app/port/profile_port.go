package port

//go:generate mockgen -source=profile_port.go -destination=../mocks/mock_profile_port.go -package=mock_port

import (
	"context"

	"github.com/google/uuid"

	"account-service/app/domain"
)

// ProfileStore persists profile records keyed by identity id
type ProfileStore interface {
	CreateProfile(ctx context.Context, profile *domain.ProfileRecord) error
	// GetProfile returns domain.ErrProfileNotFound when no row exists
	GetProfile(ctx context.Context, id uuid.UUID) (*domain.ProfileRecord, error)
	UpdateProfile(ctx context.Context, profile *domain.ProfileRecord) error
}
