package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"ajopay/internal/domain"
	"ajopay/pkg/errors"
)

type KYCRepository struct {
	db *sqlx.DB
}

func NewKYCRepository(db *sqlx.DB) *KYCRepository {
	return &KYCRepository{db: db}
}

func (r *KYCRepository) Create(ctx context.Context, p *domain.KYCProfile) error {
	query := `
		INSERT INTO kyc_profiles (
			id, user_id, provider, provider_ref, status, reason, payload, submitted_at, created_at, updated_at
		) VALUES (
			:id, :user_id, :provider, :provider_ref, :status, :reason, :payload, :submitted_at, :created_at, :updated_at
		)
	`
	_, err := r.db.NamedExecContext(ctx, query, p)
	return errors.Wrap(err, "failed to create kyc profile")
}

func (r *KYCRepository) Update(ctx context.Context, p *domain.KYCProfile) error {
	p.UpdatedAt = time.Now()
	query := `
		UPDATE kyc_profiles SET
			status = :status,
			reason = :reason,
			reviewed_at = :reviewed_at,
			updated_at = :updated_at
		WHERE id = :id
	`
	_, err := r.db.NamedExecContext(ctx, query, p)
	return errors.Wrap(err, "failed to update kyc profile")
}

func (r *KYCRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*domain.KYCProfile, error) {
	p := &domain.KYCProfile{}
	query := `SELECT * FROM kyc_profiles WHERE user_id = $1 ORDER BY submitted_at DESC LIMIT 1`
	err := r.db.GetContext(ctx, p, query, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrKYCProfileNotFound
		}
		return nil, errors.Wrap(err, "failed to find kyc profile by user")
	}
	return p, nil
}

func (r *KYCRepository) FindByProviderRef(ctx context.Context, providerRef string) (*domain.KYCProfile, error) {
	p := &domain.KYCProfile{}
	query := `SELECT * FROM kyc_profiles WHERE provider_ref = $1`
	err := r.db.GetContext(ctx, p, query, providerRef)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrKYCProfileNotFound
		}
		return nil, errors.Wrap(err, "failed to find kyc profile by provider ref")
	}
	return p, nil
}
