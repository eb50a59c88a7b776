package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/khanbhai009-cloud/Backend-digi/internal/apperr"
	appcrypto "github.com/khanbhai009-cloud/Backend-digi/internal/crypto"
	"github.com/khanbhai009-cloud/Backend-digi/internal/model"
	"github.com/khanbhai009-cloud/Backend-digi/internal/repository"

	"gorm.io/gorm"
)

// tokenTTL is the redemption window measured from issuance.
const tokenTTL = 10 * time.Minute

type DownloadService interface {
	// RequestToken mints a single-use download token for a product the
	// user has a completed purchase of. Only the token leaves this call,
	// never the decrypted file location.
	RequestToken(ctx context.Context, userID, productID string) (string, error)
	// Redeem consumes a token and returns the redirect target. At most
	// one caller ever gets the target for a given token.
	Redeem(ctx context.Context, token string) (string, error)
}

type downloadServiceImpl struct {
	linkCipher  *appcrypto.LinkCipher
	tokenRepo   repository.DownloadTokenRepository
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
}

func NewDownloadService(
	linkCipher *appcrypto.LinkCipher,
	tokenRepo repository.DownloadTokenRepository,
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
) DownloadService {
	return &downloadServiceImpl{
		linkCipher:  linkCipher,
		tokenRepo:   tokenRepo,
		orderRepo:   orderRepo,
		productRepo: productRepo,
	}
}

func (s *downloadServiceImpl) RequestToken(ctx context.Context, userID, productID string) (string, error) {
	purchased, err := s.orderRepo.CompletedExists(ctx, userID, productID)
	if err != nil {
		return "", fmt.Errorf("check completed purchase: %w", err)
	}
	if !purchased {
		return "", apperr.Forbidden("purchase required")
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apperr.NotFound("product not found")
		}
		return "", fmt.Errorf("find product: %w", err)
	}
	if product.FileURLEncrypted == "" {
		return "", apperr.New(apperr.KindConfig, "product has no download location configured")
	}

	target, err := s.linkCipher.Decrypt(product.FileURLEncrypted)
	if err != nil {
		return "", apperr.Wrap(apperr.KindConfig, "decrypt download location", err)
	}

	token, err := generateToken()
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}

	err = s.tokenRepo.Create(ctx, &model.DownloadToken{
		Token:     token,
		UserID:    userID,
		ProductID: productID,
		TargetURL: target,
		Used:      false,
		ExpiresAt: time.Now().Add(tokenTTL),
	})
	if err != nil {
		return "", fmt.Errorf("store download token: %w", err)
	}

	return token, nil
}

func (s *downloadServiceImpl) Redeem(ctx context.Context, token string) (string, error) {
	dt, err := s.tokenRepo.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", apperr.NotFound("unknown download token")
		}
		return "", fmt.Errorf("find download token: %w", err)
	}

	if dt.Used {
		return "", apperr.Gone("download link already consumed")
	}
	if time.Now().After(dt.ExpiresAt) {
		return "", apperr.Gone("download link expired")
	}

	// CAS on the used flag; losing the race means another redemption of
	// this token already got the target.
	consumed, err := s.tokenRepo.MarkUsed(ctx, token)
	if err != nil {
		return "", fmt.Errorf("mark token used: %w", err)
	}
	if !consumed {
		return "", apperr.Gone("download link already consumed")
	}

	return dt.TargetURL, nil
}

// generateToken returns 32 bytes of crypto randomness hex-encoded; the
// value is not derivable from any order or product id.
func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
