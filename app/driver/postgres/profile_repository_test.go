package postgres

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"account-service/app/domain"
	"account-service/app/utils/logger"
)

var profileColumns = []string{
	"id", "first_name", "last_name", "email", "country_code",
	"phone_number", "dob", "created_at", "updated_at",
}

// Helper function to create a test profile repository with mocked database
func createTestProfileRepository(t *testing.T) (*ProfileRepository, pgxmock.PgxPoolIface) {
	t.Helper()

	mockDB, err := pgxmock.NewPool()
	require.NoError(t, err)

	var buf bytes.Buffer
	testLogger, err := logger.NewWithWriter("debug", &buf)
	require.NoError(t, err)

	repo := NewProfileRepository(mockDB, testLogger).(*ProfileRepository)

	return repo, mockDB
}

func createTestProfile(t *testing.T) *domain.ProfileRecord {
	t.Helper()

	now := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	return &domain.ProfileRecord{
		ID:          uuid.New(),
		FirstName:   "Asha",
		LastName:    "Rao",
		Email:       "asha@example.com",
		CountryCode: "+91",
		PhoneNumber: "9876543210",
		DateOfBirth: time.Date(1994, 7, 12, 0, 0, 0, 0, time.UTC),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func TestProfileRepository_CreateProfile(t *testing.T) {
	tests := []struct {
		name     string
		setupDB  func(pgxmock.PgxPoolIface, *domain.ProfileRecord)
		wantErr  bool
		wantIs   error
		errorMsg string
	}{
		{
			name: "successful profile creation",
			setupDB: func(mockDB pgxmock.PgxPoolIface, p *domain.ProfileRecord) {
				mockDB.ExpectExec("INSERT INTO user_details").
					WithArgs(p.ID, p.FirstName, p.LastName, p.Email, p.CountryCode,
						p.PhoneNumber, p.DateOfBirth, p.CreatedAt, p.UpdatedAt).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
			},
		},
		{
			name: "profile already exists",
			setupDB: func(mockDB pgxmock.PgxPoolIface, p *domain.ProfileRecord) {
				mockDB.ExpectExec("INSERT INTO user_details").
					WithArgs(p.ID, p.FirstName, p.LastName, p.Email, p.CountryCode,
						p.PhoneNumber, p.DateOfBirth, p.CreatedAt, p.UpdatedAt).
					WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})
			},
			wantErr:  true,
			wantIs:   domain.ErrProfileExists,
			errorMsg: "failed to create profile",
		},
		{
			name: "database error during creation",
			setupDB: func(mockDB pgxmock.PgxPoolIface, p *domain.ProfileRecord) {
				mockDB.ExpectExec("INSERT INTO user_details").
					WithArgs(p.ID, p.FirstName, p.LastName, p.Email, p.CountryCode,
						p.PhoneNumber, p.DateOfBirth, p.CreatedAt, p.UpdatedAt).
					WillReturnError(pgx.ErrTxClosed)
			},
			wantErr:  true,
			wantIs:   pgx.ErrTxClosed,
			errorMsg: "failed to create profile",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mockDB := createTestProfileRepository(t)
			defer mockDB.Close()

			profile := createTestProfile(t)
			tt.setupDB(mockDB, profile)

			err := repo.CreateProfile(context.Background(), profile)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
				assert.ErrorIs(t, err, tt.wantIs)
			} else {
				assert.NoError(t, err)
			}

			assert.NoError(t, mockDB.ExpectationsWereMet())
		})
	}
}

func TestProfileRepository_GetProfile(t *testing.T) {
	profile := createTestProfile(t)

	tests := []struct {
		name    string
		setupDB func(pgxmock.PgxPoolIface)
		want    *domain.ProfileRecord
		wantIs  error
	}{
		{
			name: "profile found",
			setupDB: func(mockDB pgxmock.PgxPoolIface) {
				rows := pgxmock.NewRows(profileColumns).AddRow(
					profile.ID, profile.FirstName, profile.LastName, profile.Email, profile.CountryCode,
					profile.PhoneNumber, profile.DateOfBirth, profile.CreatedAt, profile.UpdatedAt,
				)
				mockDB.ExpectQuery("SELECT (.+) FROM user_details WHERE id = \\$1").
					WithArgs(profile.ID).
					WillReturnRows(rows)
			},
			want: profile,
		},
		{
			name: "profile not found",
			setupDB: func(mockDB pgxmock.PgxPoolIface) {
				mockDB.ExpectQuery("SELECT (.+) FROM user_details WHERE id = \\$1").
					WithArgs(profile.ID).
					WillReturnError(pgx.ErrNoRows)
			},
			wantIs: domain.ErrProfileNotFound,
		},
		{
			name: "database error",
			setupDB: func(mockDB pgxmock.PgxPoolIface) {
				mockDB.ExpectQuery("SELECT (.+) FROM user_details WHERE id = \\$1").
					WithArgs(profile.ID).
					WillReturnError(errors.New("connection reset"))
			},
			wantIs: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mockDB := createTestProfileRepository(t)
			defer mockDB.Close()

			tt.setupDB(mockDB)

			got, err := repo.GetProfile(context.Background(), profile.ID)

			if tt.want != nil {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			} else {
				require.Error(t, err)
				assert.Nil(t, got)
				if tt.wantIs != nil {
					assert.ErrorIs(t, err, tt.wantIs)
				} else {
					assert.NotErrorIs(t, err, domain.ErrProfileNotFound)
				}
			}

			assert.NoError(t, mockDB.ExpectationsWereMet())
		})
	}
}

func TestProfileRepository_UpdateProfile(t *testing.T) {
	tests := []struct {
		name    string
		setupDB func(pgxmock.PgxPoolIface, *domain.ProfileRecord)
		wantErr bool
		wantIs  error
	}{
		{
			name: "successful update",
			setupDB: func(mockDB pgxmock.PgxPoolIface, p *domain.ProfileRecord) {
				mockDB.ExpectExec("UPDATE user_details SET").
					WithArgs(p.ID, p.FirstName, p.LastName, p.CountryCode, p.PhoneNumber, p.DateOfBirth, p.UpdatedAt).
					WillReturnResult(pgxmock.NewResult("UPDATE", 1))
			},
		},
		{
			name: "no matching row",
			setupDB: func(mockDB pgxmock.PgxPoolIface, p *domain.ProfileRecord) {
				mockDB.ExpectExec("UPDATE user_details SET").
					WithArgs(p.ID, p.FirstName, p.LastName, p.CountryCode, p.PhoneNumber, p.DateOfBirth, p.UpdatedAt).
					WillReturnResult(pgxmock.NewResult("UPDATE", 0))
			},
			wantErr: true,
			wantIs:  domain.ErrProfileNotFound,
		},
		{
			name: "database error",
			setupDB: func(mockDB pgxmock.PgxPoolIface, p *domain.ProfileRecord) {
				mockDB.ExpectExec("UPDATE user_details SET").
					WithArgs(p.ID, p.FirstName, p.LastName, p.CountryCode, p.PhoneNumber, p.DateOfBirth, p.UpdatedAt).
					WillReturnError(pgx.ErrTxClosed)
			},
			wantErr: true,
			wantIs:  pgx.ErrTxClosed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mockDB := createTestProfileRepository(t)
			defer mockDB.Close()

			profile := createTestProfile(t)
			profile.FirstName = "Asha Devi"
			profile.UpdatedAt = profile.UpdatedAt.Add(time.Hour)
			tt.setupDB(mockDB, profile)

			err := repo.UpdateProfile(context.Background(), profile)

			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantIs)
			} else {
				assert.NoError(t, err)
			}

			assert.NoError(t, mockDB.ExpectationsWereMet())
		})
	}
}
