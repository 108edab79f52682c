package repository

import (
	"context"
	"errors"

	"github.com/saegim/proofdesk/internal/domain"
	"gorm.io/gorm"
)

type OrganizationRepository interface {
	Create(ctx context.Context, o *domain.Organization) error
	GetByID(ctx context.Context, id int64) (*domain.Organization, error)
	GetByExternalOrgID(ctx context.Context, externalOrgID string) (*domain.Organization, error)
	List(ctx context.Context) ([]domain.Organization, error)
	UpdateFields(ctx context.Context, id int64, fields map[string]any) error
}

type GormOrganizationRepo struct {
	db *gorm.DB
}

func NewGormOrganizationRepo(db *gorm.DB) *GormOrganizationRepo {
	return &GormOrganizationRepo{db: db}
}

func (r *GormOrganizationRepo) Create(ctx context.Context, o *domain.Organization) error {
	model := organizationModelFromDomain(o)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isUniqueViolationError(err) {
			return domain.ErrConflict
		}
		return err
	}
	if o != nil {
		*o = *organizationModelToDomain(model)
	}
	return nil
}

func (r *GormOrganizationRepo) GetByID(ctx context.Context, id int64) (*domain.Organization, error) {
	var model OrganizationModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return organizationModelToDomain(&model), nil
}

func (r *GormOrganizationRepo) GetByExternalOrgID(ctx context.Context, externalOrgID string) (*domain.Organization, error) {
	var model OrganizationModel
	err := r.db.WithContext(ctx).
		Where("external_org_id = ?", externalOrgID).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return organizationModelToDomain(&model), nil
}

func (r *GormOrganizationRepo) List(ctx context.Context) ([]domain.Organization, error) {
	var models []OrganizationModel
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&models).Error; err != nil {
		return nil, err
	}

	orgs := make([]domain.Organization, 0, len(models))
	for i := range models {
		orgs = append(orgs, *organizationModelToDomain(&models[i]))
	}
	return orgs, nil
}

// UpdateFields applies a partial update. The fields map is column-keyed so a
// tri-state "set to null" arrives as an explicit nil value.
func (r *GormOrganizationRepo) UpdateFields(ctx context.Context, id int64, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}

	result := r.db.WithContext(ctx).
		Model(&OrganizationModel{}).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
