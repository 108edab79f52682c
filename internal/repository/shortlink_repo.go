package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/saegim/proofdesk/internal/domain"
	"gorm.io/gorm"
)

type ShortLinkRepository interface {
	Create(ctx context.Context, link *domain.ShortLink) error
	GetByOrderID(ctx context.Context, orderID int64) (*domain.ShortLink, error)
	GetByCode(ctx context.Context, code string) (*domain.ShortLink, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	IncrementClick(ctx context.Context, code string, at time.Time) (*domain.ShortLink, error)
	UpdateTargetToken(ctx context.Context, code string, token string) (*domain.ShortLink, error)
}

type GormShortLinkRepo struct {
	db *gorm.DB
}

func NewGormShortLinkRepo(db *gorm.DB) *GormShortLinkRepo {
	return &GormShortLinkRepo{db: db}
}

func (r *GormShortLinkRepo) Create(ctx context.Context, link *domain.ShortLink) error {
	model := shortLinkModelFromDomain(link)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if isUniqueViolationError(err) {
			return fmt.Errorf("%w: short link already exists for order %d", domain.ErrConflict, link.OrderID)
		}
		return err
	}
	if link != nil {
		*link = *shortLinkModelToDomain(model)
	}
	return nil
}

func (r *GormShortLinkRepo) GetByOrderID(ctx context.Context, orderID int64) (*domain.ShortLink, error) {
	var model ShortLinkModel
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: short link for order %d", domain.ErrShortLinkNotFound, orderID)
		}
		return nil, err
	}
	return shortLinkModelToDomain(&model), nil
}

func (r *GormShortLinkRepo) GetByCode(ctx context.Context, code string) (*domain.ShortLink, error) {
	var model ShortLinkModel
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: code %s", domain.ErrShortLinkNotFound, code)
		}
		return nil, err
	}
	return shortLinkModelToDomain(&model), nil
}

func (r *GormShortLinkRepo) CodeExists(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&ShortLinkModel{}).
		Where("code = ?", code).
		Count(&count).Error
	return count > 0, err
}

// IncrementClick bumps the click counter in a single UPDATE so concurrent
// resolutions never lose a count, then reloads the row.
func (r *GormShortLinkRepo) IncrementClick(ctx context.Context, code string, at time.Time) (*domain.ShortLink, error) {
	res := r.db.WithContext(ctx).
		Model(&ShortLinkModel{}).
		Where("code = ?", code).
		Updates(map[string]any{
			"click_count":     gorm.Expr("click_count + 1"),
			"last_clicked_at": at,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: code %s", domain.ErrShortLinkNotFound, code)
	}
	return r.GetByCode(ctx, code)
}

// UpdateTargetToken repoints an existing code at a new token.
func (r *GormShortLinkRepo) UpdateTargetToken(ctx context.Context, code string, token string) (*domain.ShortLink, error) {
	res := r.db.WithContext(ctx).
		Model(&ShortLinkModel{}).
		Where("code = ?", code).
		Update("target_token", token)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("%w: code %s", domain.ErrShortLinkNotFound, code)
	}
	return r.GetByCode(ctx, code)
}
