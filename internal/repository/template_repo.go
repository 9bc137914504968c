package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/kursadbilgin/message-courier/internal/domain"
	"gorm.io/gorm"
)

type TemplateRepository interface {
	Create(ctx context.Context, t *domain.Template) error
	GetByID(ctx context.Context, id string) (*domain.Template, error)
	List(ctx context.Context) ([]domain.Template, error)
	Update(ctx context.Context, t *domain.Template) error
	Delete(ctx context.Context, id string) error
}

type GormTemplateRepo struct {
	db *gorm.DB
}

func NewGormTemplateRepo(db *gorm.DB) *GormTemplateRepo {
	return &GormTemplateRepo{db: db}
}

func (r *GormTemplateRepo) Create(ctx context.Context, t *domain.Template) error {
	model := templateModelFromDomain(t)
	if model.ID == "" {
		model.ID = uuid.NewString()
	}
	if model.Engine == "" {
		model.Engine = domain.DefaultTemplateEngine
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if t != nil {
		*t = *templateModelToDomain(model)
	}
	return nil
}

func (r *GormTemplateRepo) GetByID(ctx context.Context, id string) (*domain.Template, error) {
	var model TemplateModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return templateModelToDomain(&model), nil
}

func (r *GormTemplateRepo) List(ctx context.Context) ([]domain.Template, error) {
	var models []TemplateModel
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}

	templates := make([]domain.Template, 0, len(models))
	for i := range models {
		templates = append(templates, *templateModelToDomain(&models[i]))
	}

	return templates, nil
}

func (r *GormTemplateRepo) Update(ctx context.Context, t *domain.Template) error {
	result := r.db.WithContext(ctx).
		Model(&TemplateModel{}).
		Where("id = ?", t.ID).
		Updates(map[string]any{
			"name":    t.Name,
			"content": t.Content,
			"engine":  t.Engine,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormTemplateRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&TemplateModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
