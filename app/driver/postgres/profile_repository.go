package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"account-service/app/domain"
	"account-service/app/port"
)

const uniqueViolation = "23505"

// ProfileRepository implements port.ProfileStore on the user_details table
type ProfileRepository struct {
	db     DatabaseIface
	logger *slog.Logger
}

// NewProfileRepository creates a new PostgreSQL profile repository
func NewProfileRepository(db DatabaseIface, logger *slog.Logger) port.ProfileStore {
	return &ProfileRepository{
		db:     db,
		logger: logger.With("component", "profile_repository"),
	}
}

// CreateProfile inserts the profile row of a newly registered identity
func (r *ProfileRepository) CreateProfile(ctx context.Context, profile *domain.ProfileRecord) error {
	query := `
		INSERT INTO user_details (
			id, first_name, last_name, email, country_code,
			phone_number, dob, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)`

	_, err := r.db.Exec(ctx, query,
		profile.ID,
		profile.FirstName,
		profile.LastName,
		profile.Email,
		profile.CountryCode,
		profile.PhoneNumber,
		profile.DateOfBirth,
		profile.CreatedAt,
		profile.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("failed to create profile: %w", domain.ErrProfileExists)
		}
		r.logger.Error("failed to create profile", "profile_id", profile.ID, "error", err)
		return fmt.Errorf("failed to create profile: %w", err)
	}

	r.logger.Info("profile created", "profile_id", profile.ID)
	return nil
}

// GetProfile retrieves a profile by identity id
func (r *ProfileRepository) GetProfile(ctx context.Context, id uuid.UUID) (*domain.ProfileRecord, error) {
	query := `
		SELECT
			id, first_name, last_name, email, country_code,
			phone_number, dob, created_at, updated_at
		FROM user_details
		WHERE id = $1`

	profile := &domain.ProfileRecord{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&profile.ID,
		&profile.FirstName,
		&profile.LastName,
		&profile.Email,
		&profile.CountryCode,
		&profile.PhoneNumber,
		&profile.DateOfBirth,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProfileNotFound
		}
		r.logger.Error("failed to get profile", "profile_id", id, "error", err)
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return profile, nil
}

// UpdateProfile writes the editable columns; id, email and created_at never change
func (r *ProfileRepository) UpdateProfile(ctx context.Context, profile *domain.ProfileRecord) error {
	query := `
		UPDATE user_details SET
			first_name = $2,
			last_name = $3,
			country_code = $4,
			phone_number = $5,
			dob = $6,
			updated_at = $7
		WHERE id = $1`

	result, err := r.db.Exec(ctx, query,
		profile.ID,
		profile.FirstName,
		profile.LastName,
		profile.CountryCode,
		profile.PhoneNumber,
		profile.DateOfBirth,
		profile.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("failed to update profile", "profile_id", profile.ID, "error", err)
		return fmt.Errorf("failed to update profile: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrProfileNotFound
	}

	r.logger.Info("profile updated", "profile_id", profile.ID)
	return nil
}
