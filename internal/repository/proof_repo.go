package repository

import (
	"context"
	"errors"

	"github.com/saegim/proofdesk/internal/domain"
	"gorm.io/gorm"
)

// ProofRepository is read-only: proof rows are written by the upload
// handler outside this core.
type ProofRepository interface {
	GetByOrderID(ctx context.Context, orderID int64) (*domain.Proof, error)
	ExistsForOrder(ctx context.Context, orderID int64) (bool, error)
}

type GormProofRepo struct {
	db *gorm.DB
}

func NewGormProofRepo(db *gorm.DB) *GormProofRepo {
	return &GormProofRepo{db: db}
}

func (r *GormProofRepo) GetByOrderID(ctx context.Context, orderID int64) (*domain.Proof, error) {
	var model ProofModel
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return proofModelToDomain(&model), nil
}

func (r *GormProofRepo) ExistsForOrder(ctx context.Context, orderID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&ProofModel{}).
		Where("order_id = ?", orderID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
