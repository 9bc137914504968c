package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/kursadbilgin/message-courier/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UpsertResult reports the outcome of a credential upsert.
type UpsertResult struct {
	Credential *domain.Credential
	Created    bool
}

type CredentialRepository interface {
	FindByID(ctx context.Context, id string) (*domain.Credential, error)
	FindByKey(ctx context.Context, provider, key string) (*domain.Credential, error)

	// FindDefault returns the provider's oldest credential, used when no
	// explicit key is given. Returns domain.ErrNotFound when the provider
	// has no credentials at all.
	FindDefault(ctx context.Context, provider string) (*domain.Credential, error)

	// Upsert inserts or updates the credential for (provider, key)
	// atomically: two concurrent upserts for the same key never both
	// insert.
	Upsert(ctx context.Context, provider, key string, options map[string]string) (*UpsertResult, error)

	List(ctx context.Context, provider string) ([]domain.Credential, error)
}

type GormCredentialRepo struct {
	db *gorm.DB
}

func NewGormCredentialRepo(db *gorm.DB) *GormCredentialRepo {
	return &GormCredentialRepo{db: db}
}

func (r *GormCredentialRepo) FindByID(ctx context.Context, id string) (*domain.Credential, error) {
	var model CredentialModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return credentialModelToDomain(&model), nil
}

func (r *GormCredentialRepo) FindByKey(ctx context.Context, provider, key string) (*domain.Credential, error) {
	var model CredentialModel
	err := r.db.WithContext(ctx).
		Where("provider = ? AND key = ?", provider, key).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return credentialModelToDomain(&model), nil
}

func (r *GormCredentialRepo) FindDefault(ctx context.Context, provider string) (*domain.Credential, error) {
	var model CredentialModel
	err := r.db.WithContext(ctx).
		Where("provider = ?", provider).
		Order("created_at ASC").
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return credentialModelToDomain(&model), nil
}

func (r *GormCredentialRepo) Upsert(ctx context.Context, provider, key string, options map[string]string) (*UpsertResult, error) {
	candidateID := uuid.NewString()
	model := &CredentialModel{
		ID:       candidateID,
		Provider: provider,
		Key:      key,
		Options:  OptionsMap(options),
	}

	// ON CONFLICT keeps concurrent saves for the same (provider, key)
	// from both inserting.
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "provider"}, {Name: "key"}},
			DoUpdates: clause.Assignments(map[string]any{
				"options":    OptionsMap(options),
				"updated_at": gorm.Expr("NOW()"),
			}),
		}).
		Create(model).Error
	if err != nil {
		return nil, err
	}

	// Re-read to learn which row actually owns the pair now.
	stored, err := r.FindByKey(ctx, provider, key)
	if err != nil {
		return nil, err
	}

	return &UpsertResult{
		Credential: stored,
		Created:    stored.ID == candidateID,
	}, nil
}

func (r *GormCredentialRepo) List(ctx context.Context, provider string) ([]domain.Credential, error) {
	query := r.db.WithContext(ctx).Model(&CredentialModel{})
	if provider != "" {
		query = query.Where("provider = ?", provider)
	}

	var models []CredentialModel
	if err := query.Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}

	creds := make([]domain.Credential, 0, len(models))
	for i := range models {
		creds = append(creds, *credentialModelToDomain(&models[i]))
	}

	return creds, nil
}
