package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/saegim/proofdesk/internal/domain"
	"gorm.io/gorm"
)

type OrderListParams struct {
	OrganizationID *int64
	Status         *domain.OrderStatus
	Search         string
	Page           int
	PageSize       int
}

type OrderRepository interface {
	Create(ctx context.Context, o *domain.Order) error
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	GetByIDForOrg(ctx context.Context, id int64, organizationID int64) (*domain.Order, error)
	ListByIDsForOrg(ctx context.Context, ids []int64, organizationID int64) ([]domain.Order, error)
	List(ctx context.Context, params OrderListParams) ([]domain.Order, int64, error)
	AdvanceStatus(ctx context.Context, id int64, from, to domain.OrderStatus) error
}

type GormOrderRepo struct {
	db *gorm.DB
}

func NewGormOrderRepo(db *gorm.DB) *GormOrderRepo {
	return &GormOrderRepo{db: db}
}

func (r *GormOrderRepo) Create(ctx context.Context, o *domain.Order) error {
	model := orderModelFromDomain(o)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isUniqueViolationError(err) {
			return fmt.Errorf("%w: order number %q already exists", domain.ErrConflict, o.OrderNumber)
		}
		return err
	}
	if o != nil {
		*o = *orderModelToDomain(model)
	}
	return nil
}

func (r *GormOrderRepo) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	var model OrderModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return orderModelToDomain(&model), nil
}

func (r *GormOrderRepo) GetByIDForOrg(ctx context.Context, id int64, organizationID int64) (*domain.Order, error) {
	var model OrderModel
	err := r.db.WithContext(ctx).
		Where("id = ? AND organization_id = ?", id, organizationID).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return orderModelToDomain(&model), nil
}

func (r *GormOrderRepo) ListByIDsForOrg(ctx context.Context, ids []int64, organizationID int64) ([]domain.Order, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var models []OrderModel
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND id IN ?", organizationID, ids).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(models))
	for i := range models {
		orders = append(orders, *orderModelToDomain(&models[i]))
	}
	return orders, nil
}

func (r *GormOrderRepo) List(ctx context.Context, params OrderListParams) ([]domain.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&OrderModel{})

	if params.OrganizationID != nil {
		query = query.Where("organization_id = ?", *params.OrganizationID)
	}
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Search != "" {
		like := "%" + params.Search + "%"
		query = query.Where(
			"order_number ILIKE ? OR sender_name ILIKE ? OR recipient_name ILIKE ? OR context ILIKE ?",
			like, like, like, like,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := max(params.Page, 1)
	pageSize := params.PageSize
	if pageSize < 1 {
		pageSize = 50
	}
	pageSize = min(pageSize, 100)

	var models []OrderModel
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}

	orders := make([]domain.Order, 0, len(models))
	for i := range models {
		orders = append(orders, *orderModelToDomain(&models[i]))
	}
	return orders, total, nil
}

// AdvanceStatus applies one forward transition guarded by the expected
// current status. A row that exists but is not in `from` yields
// ErrInvalidStateTransition and is left untouched.
func (r *GormOrderRepo) AdvanceStatus(ctx context.Context, id int64, from, to domain.OrderStatus) error {
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidStateTransition, from, to)
	}

	result := r.db.WithContext(ctx).
		Model(&OrderModel{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&OrderModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return domain.ErrNotFound
		}
		return fmt.Errorf("%w: order %d is not in %s", domain.ErrInvalidStateTransition, id, from)
	}
	return nil
}
