package model

import "time"

type User struct {
	ID            string `gorm:"primaryKey;size:64;not null"`
	Email         string `gorm:"size:255;uniqueIndex;not null"`
	Name          string `gorm:"size:255"`
	WalletBalance int64  `gorm:"not null;default:0"` // minor units, credited at settlement
	TotalEarnings int64  `gorm:"not null;default:0"` // audit counter, never decremented
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Product struct {
	ID               string `gorm:"primaryKey;size:64;not null"`
	SellerID         string `gorm:"size:64;index;not null"`
	Title            string `gorm:"size:255;not null"`
	Price            int64  `gorm:"not null"` // minor units
	DiscountPrice    *int64
	Status           string `gorm:"size:32;index;not null"` // PENDING, APPROVED, REJECTED
	SalesCount       int64  `gorm:"not null;default:0"`
	FileURLEncrypted string `gorm:"size:2048"` // link cipher envelope, never plaintext
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type Order struct {
	OrderID       string `gorm:"primaryKey;size:64;not null"`
	BuyerID       string `gorm:"size:64;index;not null"`
	SellerID      string `gorm:"size:64;index;not null"`
	ProductID     string `gorm:"size:64;index;not null"`
	Amount        int64  `gorm:"not null"`               // fixed at initiation, minor units
	Status        string `gorm:"size:32;index;not null"` // PENDING, COMPLETED, FAILED
	PlatformFee   int64  `gorm:"not null;default:0"`
	SellerEarning int64  `gorm:"not null;default:0"`
	SessionID     string `gorm:"size:128"` // gateway checkout session handle
	CreatedAt     time.Time
	CompletedAt   *time.Time
	FailedAt      *time.Time
}

// Purchase is one row per (buyer, product) pair the buyer has paid for.
type Purchase struct {
	UserID    string `gorm:"primaryKey;size:64;not null"`
	ProductID string `gorm:"primaryKey;size:64;not null"`
	CreatedAt time.Time
}

type DownloadToken struct {
	Token     string `gorm:"primaryKey;size:128;not null"`
	UserID    string `gorm:"size:64;index;not null"`
	ProductID string `gorm:"size:64;not null"`
	TargetURL string `gorm:"size:2048;not null"`
	Used      bool   `gorm:"not null;default:false"`
	UsedAt    *time.Time
	ExpiresAt time.Time `gorm:"not null"`
	CreatedAt time.Time
}

type PlatformSetting struct {
	ID             uint   `gorm:"primaryKey"`
	CommissionRate string `gorm:"size:16"` // decimal fraction, e.g. "0.10"
	UpdatedAt      time.Time
}

const (
	OrderStatusPending   = "PENDING"
	OrderStatusCompleted = "COMPLETED"
	OrderStatusFailed    = "FAILED"

	ProductStatusPending  = "PENDING"
	ProductStatusApproved = "APPROVED"
	ProductStatusRejected = "REJECTED"
)
