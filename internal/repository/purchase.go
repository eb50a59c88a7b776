package repository

import (
	"context"

	"github.com/khanbhai009-cloud/Backend-digi/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PurchaseRepository interface {
	// Add records the product in the buyer's purchase set. Idempotent:
	// settling the same order twice may not produce a second row.
	Add(ctx context.Context, tx *gorm.DB, userID, productID string) error
	Exists(ctx context.Context, userID, productID string) (bool, error)
}

type purchaseRepoImpl struct {
	db *gorm.DB
}

func NewPurchaseRepository(db *gorm.DB) PurchaseRepository {
	return &purchaseRepoImpl{
		db: db,
	}
}

func (r *purchaseRepoImpl) Add(ctx context.Context, tx *gorm.DB, userID, productID string) error {
	return tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
		DoNothing: true,
	}).Create(&model.Purchase{
		UserID:    userID,
		ProductID: productID,
	}).Error
}

func (r *purchaseRepoImpl) Exists(ctx context.Context, userID, productID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Purchase{}).
		Where("user_id = ?", userID).
		Where("product_id = ?", productID).
		Count(&count).Error

	return count > 0, err
}
