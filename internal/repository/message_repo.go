package repository

import (
	"context"
	"errors"
	"time"

	"github.com/kursadbilgin/message-courier/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MessageRepository interface {
	Create(ctx context.Context, m *domain.Message) error
	GetByID(ctx context.Context, id int64) (*domain.Message, error)
	GetByCorrelationID(ctx context.Context, correlationID string) (*domain.Message, error)

	// ClaimForUpdate acquires a row lock that skips rows already locked by
	// a concurrent transaction. It returns (nil, nil) when the row is
	// unavailable: locked elsewhere or deleted. Only meaningful inside a
	// Transaction closure.
	ClaimForUpdate(ctx context.Context, id int64) (*domain.Message, error)

	// ClaimAllPendingIDs returns the ids of every pending row not locked
	// elsewhere, ordered by creation time.
	ClaimAllPendingIDs(ctx context.Context) ([]int64, error)

	MarkSent(ctx context.Context, id int64, sentAt time.Time) error
	RecordFailure(ctx context.Context, id int64, errorText string, retries int) error

	FindPendingOrderedByCreation(ctx context.Context) ([]domain.Message, error)
	FindOldestPending(ctx context.Context) (*domain.Message, error)

	// Transaction runs fn inside a single database transaction; the
	// repository passed to fn is bound to that transaction. Returning an
	// error rolls the whole transaction back.
	Transaction(ctx context.Context, fn func(tx MessageRepository) error) error
}

type GormMessageRepo struct {
	db *gorm.DB
}

func NewGormMessageRepo(db *gorm.DB) *GormMessageRepo {
	return &GormMessageRepo{db: db}
}

func (r *GormMessageRepo) Create(ctx context.Context, m *domain.Message) error {
	model := messageModelFromDomain(m)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if m != nil {
		*m = *messageModelToDomain(model)
	}
	return nil
}

func (r *GormMessageRepo) GetByID(ctx context.Context, id int64) (*domain.Message, error) {
	var model MessageModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return messageModelToDomain(&model), nil
}

func (r *GormMessageRepo) GetByCorrelationID(ctx context.Context, correlationID string) (*domain.Message, error) {
	var model MessageModel
	err := r.db.WithContext(ctx).
		Where("correlation_id = ?", correlationID).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return messageModelToDomain(&model), nil
}

func (r *GormMessageRepo) ClaimForUpdate(ctx context.Context, id int64) (*domain.Message, error) {
	var model MessageModel
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return messageModelToDomain(&model), nil
}

func (r *GormMessageRepo) ClaimAllPendingIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&MessageModel{}).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("sent_at IS NULL").
		Order("created_at ASC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *GormMessageRepo) MarkSent(ctx context.Context, id int64, sentAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&MessageModel{}).
		Where("id = ?", id).
		Update("sent_at", sentAt)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormMessageRepo) RecordFailure(ctx context.Context, id int64, errorText string, retries int) error {
	result := r.db.WithContext(ctx).
		Model(&MessageModel{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"error":   errorText,
			"retries": retries,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormMessageRepo) FindPendingOrderedByCreation(ctx context.Context) ([]domain.Message, error) {
	var models []MessageModel
	err := r.db.WithContext(ctx).
		Where("sent_at IS NULL").
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	messages := make([]domain.Message, 0, len(models))
	for i := range models {
		messages = append(messages, *messageModelToDomain(&models[i]))
	}

	return messages, nil
}

func (r *GormMessageRepo) FindOldestPending(ctx context.Context) (*domain.Message, error) {
	var model MessageModel
	err := r.db.WithContext(ctx).
		Where("sent_at IS NULL").
		Order("created_at ASC").
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return messageModelToDomain(&model), nil
}

func (r *GormMessageRepo) Transaction(ctx context.Context, fn func(tx MessageRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormMessageRepo{db: tx})
	})
}
