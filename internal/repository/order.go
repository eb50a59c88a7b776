package repository

import (
	"context"
	"time"

	"github.com/khanbhai009-cloud/Backend-digi/internal/model"

	"gorm.io/gorm"
)

type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	FindByOrderID(ctx context.Context, orderID string) (*model.Order, error)
	// CompletedExists reports whether the buyer already has a completed
	// order for the product.
	CompletedExists(ctx context.Context, buyerID, productID string) (bool, error)
	// CompletedExistsForPair reports whether a completed order other than
	// orderID exists for the pair. Runs inside the settlement transaction
	// so a sibling PENDING order that settled first rolls this one back.
	CompletedExistsForPair(ctx context.Context, tx *gorm.DB, buyerID, productID, orderID string) (bool, error)
	// MarkCompleted transitions a PENDING order to COMPLETED with its fee
	// split. Returns false when the guard matched no row, i.e. the order
	// was already terminal — the caller must treat that as a no-op.
	MarkCompleted(ctx context.Context, tx *gorm.DB, orderID string, platformFee, sellerEarning int64) (bool, error)
	// MarkFailed transitions a PENDING order to FAILED. A completed order
	// is never downgraded; the guard makes that a no-op.
	MarkFailed(ctx context.Context, orderID string) (bool, error)
}

type orderRepoImpl struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepoImpl{
		db: db,
	}
}

func (r *orderRepoImpl) Create(ctx context.Context, order *model.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *orderRepoImpl) FindByOrderID(ctx context.Context, orderID string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&order).Error

	if err != nil {
		return nil, err
	}

	return &order, nil
}

func (r *orderRepoImpl) CompletedExists(ctx context.Context, buyerID, productID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("buyer_id = ?", buyerID).
		Where("product_id = ?", productID).
		Where("status = ?", model.OrderStatusCompleted).
		Count(&count).Error

	return count > 0, err
}

func (r *orderRepoImpl) CompletedExistsForPair(ctx context.Context, tx *gorm.DB, buyerID, productID, orderID string) (bool, error) {
	var count int64
	err := tx.WithContext(ctx).Model(&model.Order{}).
		Where("buyer_id = ?", buyerID).
		Where("product_id = ?", productID).
		Where("status = ?", model.OrderStatusCompleted).
		Where("order_id <> ?", orderID).
		Count(&count).Error

	return count > 0, err
}

func (r *orderRepoImpl) MarkCompleted(ctx context.Context, tx *gorm.DB, orderID string, platformFee, sellerEarning int64) (bool, error) {
	now := time.Now()
	result := tx.WithContext(ctx).Model(&model.Order{}).
		Where("order_id = ? AND status = ?", orderID, model.OrderStatusPending).
		Updates(map[string]interface{}{
			"status":         model.OrderStatusCompleted,
			"platform_fee":   platformFee,
			"seller_earning": sellerEarning,
			"completed_at":   now,
		})

	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

func (r *orderRepoImpl) MarkFailed(ctx context.Context, orderID string) (bool, error) {
	now := time.Now()
	result := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("order_id = ? AND status = ?", orderID, model.OrderStatusPending).
		Updates(map[string]interface{}{
			"status":    model.OrderStatusFailed,
			"failed_at": now,
		})

	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}
