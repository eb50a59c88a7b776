package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/khanbhai009-cloud/Backend-digi/internal/apperr"
	"github.com/khanbhai009-cloud/Backend-digi/internal/model"
)

const downloadTarget = "https://files.test/products/ebook.zip"

// completePurchase inserts a completed order for the pair, the
// precondition token issuance checks.
func (env *testEnv) completePurchase(t *testing.T, userID, productID string) {
	t.Helper()
	now := time.Now()
	if err := env.orderRepo.Create(context.Background(), &model.Order{
		OrderID:     "order-" + userID + "-" + productID,
		BuyerID:     userID,
		SellerID:    sellerID,
		ProductID:   productID,
		Amount:      1000,
		Status:      model.OrderStatusCompleted,
		CompletedAt: &now,
	}); err != nil {
		t.Fatalf("create completed order: %v", err)
	}
}

func TestRequestTokenRequiresPurchase(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, downloadTarget)

	_, err := env.downloads.RequestToken(context.Background(), buyerID, productID)
	if apperr.KindOf(err) != apperr.KindForbidden {
		t.Errorf("expected Forbidden without purchase, got %v", err)
	}
}

func TestRequestTokenMissingLocation(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, "") // product without a configured download location
	env.completePurchase(t, buyerID, productID)

	_, err := env.downloads.RequestToken(context.Background(), buyerID, productID)
	if apperr.KindOf(err) != apperr.KindConfig {
		t.Errorf("expected Config error, got %v", err)
	}
}

func TestDownloadTokenRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, downloadTarget)
	env.completePurchase(t, buyerID, productID)
	ctx := context.Background()

	token, err := env.downloads.RequestToken(ctx, buyerID, productID)
	if err != nil {
		t.Fatalf("request token: %v", err)
	}
	if len(token) != 64 {
		t.Errorf("expected 64 hex chars of token, got %d", len(token))
	}

	target, err := env.downloads.Redeem(ctx, token)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if target != downloadTarget {
		t.Errorf("expected %q, got %q", downloadTarget, target)
	}

	// a consumed token grants nothing further
	if _, err := env.downloads.Redeem(ctx, token); apperr.KindOf(err) != apperr.KindGone {
		t.Errorf("second redemption: expected Gone, got %v", err)
	}
}

func TestTokensAreUnique(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, downloadTarget)
	env.completePurchase(t, buyerID, productID)
	ctx := context.Background()

	first, err := env.downloads.RequestToken(ctx, buyerID, productID)
	if err != nil {
		t.Fatalf("request token: %v", err)
	}
	second, err := env.downloads.RequestToken(ctx, buyerID, productID)
	if err != nil {
		t.Fatalf("request token: %v", err)
	}
	if first == second {
		t.Error("two issued tokens must differ")
	}
}

func TestRedeemUnknownToken(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, downloadTarget)

	_, err := env.downloads.Redeem(context.Background(), "deadbeef")
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("expected NotFound, got %v", err)
	}
}

func TestRedeemExpiredToken(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, downloadTarget)
	ctx := context.Background()

	if err := env.tokenRepo.Create(ctx, &model.DownloadToken{
		Token:     "expiredtoken",
		UserID:    buyerID,
		ProductID: productID,
		TargetURL: downloadTarget,
		ExpiresAt: time.Now().Add(-time.Minute),
	}); err != nil {
		t.Fatalf("create token: %v", err)
	}

	_, err := env.downloads.Redeem(ctx, "expiredtoken")
	if apperr.KindOf(err) != apperr.KindGone {
		t.Errorf("expected Gone for expired token, got %v", err)
	}
}

func TestConcurrentRedeemGrantsOnce(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t, downloadTarget)
	env.completePurchase(t, buyerID, productID)
	ctx := context.Background()

	token, err := env.downloads.RequestToken(ctx, buyerID, productID)
	if err != nil {
		t.Fatalf("request token: %v", err)
	}

	const redemptions = 4
	targets := make([]string, redemptions)
	errs := make([]error, redemptions)
	var wg sync.WaitGroup
	for i := 0; i < redemptions; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			targets[i], errs[i] = env.downloads.Redeem(context.Background(), token)
		}(i)
	}
	wg.Wait()

	granted := 0
	for i := 0; i < redemptions; i++ {
		if errs[i] == nil {
			granted++
			if targets[i] != downloadTarget {
				t.Errorf("redeemed wrong target %q", targets[i])
			}
			continue
		}
		if apperr.KindOf(errs[i]) != apperr.KindGone {
			t.Errorf("loser got %v, expected Gone", errs[i])
		}
	}
	if granted != 1 {
		t.Errorf("expected exactly one successful redemption, got %d", granted)
	}
}
