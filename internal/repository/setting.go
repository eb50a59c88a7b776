package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/khanbhai009-cloud/Backend-digi/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultCommissionRate applies when no platform setting row exists.
var DefaultCommissionRate = decimal.NewFromFloat(0.10)

type SettingRepository interface {
	CommissionRate(ctx context.Context) (decimal.Decimal, error)
	SetCommissionRate(ctx context.Context, rate decimal.Decimal) error
}

type settingRepoImpl struct {
	db *gorm.DB
}

func NewSettingRepository(db *gorm.DB) SettingRepository {
	return &settingRepoImpl{
		db: db,
	}
}

func (r *settingRepoImpl) CommissionRate(ctx context.Context) (decimal.Decimal, error) {
	var setting model.PlatformSetting
	err := r.db.WithContext(ctx).First(&setting, 1).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return DefaultCommissionRate, nil
		}
		return decimal.Zero, err
	}

	if setting.CommissionRate == "" {
		return DefaultCommissionRate, nil
	}

	rate, err := decimal.NewFromString(setting.CommissionRate)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse commission rate %q: %w", setting.CommissionRate, err)
	}

	return rate, nil
}

func (r *settingRepoImpl) SetCommissionRate(ctx context.Context, rate decimal.Decimal) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"commission_rate": rate.String(),
			"updated_at":      time.Now(),
		}),
	}).Create(&model.PlatformSetting{
		ID:             1,
		CommissionRate: rate.String(),
	}).Error
}
