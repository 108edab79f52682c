package repository

import (
	"context"
	"errors"
	"time"

	"github.com/saegim/proofdesk/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type TokenRepository interface {
	GetByOrderID(ctx context.Context, orderID int64) (*domain.QRToken, error)
	GetByToken(ctx context.Context, token string) (*domain.QRToken, error)
	TokenExists(ctx context.Context, token string) (bool, error)
	Replace(ctx context.Context, orderID int64, token string) (*domain.QRToken, error)
	Revoke(ctx context.Context, orderID int64) error
}

type GormTokenRepo struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormTokenRepo(db *gorm.DB) *GormTokenRepo {
	return &GormTokenRepo{db: db, now: time.Now}
}

func (r *GormTokenRepo) GetByOrderID(ctx context.Context, orderID int64) (*domain.QRToken, error) {
	var model QRTokenModel
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return tokenModelToDomain(&model), nil
}

func (r *GormTokenRepo) GetByToken(ctx context.Context, token string) (*domain.QRToken, error) {
	var model QRTokenModel
	err := r.db.WithContext(ctx).Where("token = ?", token).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return tokenModelToDomain(&model), nil
}

func (r *GormTokenRepo) TokenExists(ctx context.Context, token string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&QRTokenModel{}).
		Where("token = ?", token).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Replace atomically swaps the order's token: the old row (if any) is
// deleted, the new one inserted, and the order advanced from PENDING to
// TOKEN_ISSUED, all in one transaction. A crash mid-sequence can therefore
// never leave a TOKEN_ISSUED order without a token.
func (r *GormTokenRepo) Replace(ctx context.Context, orderID int64, token string) (*domain.QRToken, error) {
	model := &QRTokenModel{
		Token:   token,
		OrderID: orderID,
		IsValid: true,
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order OrderModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&order, "id = ?", orderID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrNotFound
		}
		if err != nil {
			return err
		}

		if err := tx.Where("order_id = ?", orderID).Delete(&QRTokenModel{}).Error; err != nil {
			return err
		}

		if err := tx.Create(model).Error; err != nil {
			if isUniqueViolationError(err) {
				return domain.ErrConflict
			}
			return err
		}

		if order.Status == domain.OrderStatusPending {
			if err := tx.Model(&OrderModel{}).
				Where("id = ?", orderID).
				Update("status", domain.OrderStatusTokenIssued).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return tokenModelToDomain(model), nil
}

func (r *GormTokenRepo) Revoke(ctx context.Context, orderID int64) error {
	result := r.db.WithContext(ctx).
		Model(&QRTokenModel{}).
		Where("order_id = ? AND is_valid", orderID).
		Updates(map[string]any{
			"is_valid":   false,
			"revoked_at": r.now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
