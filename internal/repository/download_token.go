package repository

import (
	"context"
	"time"

	"github.com/khanbhai009-cloud/Backend-digi/internal/model"

	"gorm.io/gorm"
)

type DownloadTokenRepository interface {
	Create(ctx context.Context, token *model.DownloadToken) error
	FindByToken(ctx context.Context, token string) (*model.DownloadToken, error)
	// MarkUsed flips the used flag with a compare-and-set on its previous
	// value. Returns false when the token was already consumed, so two
	// concurrent redemptions can never both succeed.
	MarkUsed(ctx context.Context, token string) (bool, error)
}

type downloadTokenRepoImpl struct {
	db *gorm.DB
}

func NewDownloadTokenRepository(db *gorm.DB) DownloadTokenRepository {
	return &downloadTokenRepoImpl{
		db: db,
	}
}

func (r *downloadTokenRepoImpl) Create(ctx context.Context, token *model.DownloadToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

func (r *downloadTokenRepoImpl) FindByToken(ctx context.Context, token string) (*model.DownloadToken, error) {
	var dt model.DownloadToken
	err := r.db.WithContext(ctx).
		Where("token = ?", token).
		First(&dt).Error

	if err != nil {
		return nil, err
	}

	return &dt, nil
}

func (r *downloadTokenRepoImpl) MarkUsed(ctx context.Context, token string) (bool, error) {
	now := time.Now()
	result := r.db.WithContext(ctx).Model(&model.DownloadToken{}).
		Where("token = ? AND used = ?", token, false).
		Updates(map[string]interface{}{
			"used":    true,
			"used_at": now,
		})

	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}
