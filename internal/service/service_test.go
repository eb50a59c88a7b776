package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"sync"
	"testing"

	"github.com/khanbhai009-cloud/Backend-digi/internal/client"
	appcrypto "github.com/khanbhai009-cloud/Backend-digi/internal/crypto"
	"github.com/khanbhai009-cloud/Backend-digi/internal/model"
	"github.com/khanbhai009-cloud/Backend-digi/internal/repository"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	testCallbackSecret = "test-callback-secret"
	testLinkKey        = "test-link-key"
	testBaseURL        = "https://marketplace.test"

	sellerID  = "seller-001"
	buyerID   = "buyer-001"
	productID = "product-001"
)

type fakeGateway struct {
	mu       sync.Mutex
	fail     bool
	requests []*client.CheckoutSessionRequest
}

func (f *fakeGateway) CreateCheckoutSession(_ context.Context, req *client.CheckoutSessionRequest) (*client.CheckoutSessionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return nil, errors.New("gateway unavailable")
	}
	f.requests = append(f.requests, req)
	return &client.CheckoutSessionResponse{
		SessionID:  "sess-" + req.OrderID,
		PaymentURL: "https://gateway.test/pay/" + req.OrderID,
	}, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) Notify(_ context.Context, userID, event string, _ map[string]any) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event+":"+userID)
}

type testEnv struct {
	db          *gorm.DB
	gateway     *fakeGateway
	notifier    *recordingNotifier
	cipher      *appcrypto.LinkCipher
	orderRepo   repository.OrderRepository
	userRepo    repository.UserRepository
	productRepo repository.ProductRepository
	purchRepo   repository.PurchaseRepository
	settingRepo repository.SettingRepository
	tokenRepo   repository.DownloadTokenRepository
	orders      OrderService
	downloads   DownloadService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// single connection keeps the in-memory database shared and
	// serializes concurrent transactions
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(
		&model.User{},
		&model.Product{},
		&model.Order{},
		&model.Purchase{},
		&model.DownloadToken{},
		&model.PlatformSetting{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	env := &testEnv{
		db:          db,
		gateway:     &fakeGateway{},
		notifier:    &recordingNotifier{},
		cipher:      appcrypto.NewLinkCipher(testLinkKey),
		orderRepo:   repository.NewOrderRepository(db),
		userRepo:    repository.NewUserRepository(db),
		productRepo: repository.NewProductRepository(db),
		purchRepo:   repository.NewPurchaseRepository(db),
		settingRepo: repository.NewSettingRepository(db),
		tokenRepo:   repository.NewDownloadTokenRepository(db),
	}

	env.orders = NewOrderService(
		db, env.gateway, testCallbackSecret, testBaseURL, env.notifier,
		env.orderRepo,
		env.userRepo,
		env.productRepo,
		env.purchRepo,
		env.settingRepo,
	)
	env.downloads = NewDownloadService(
		env.cipher,
		env.tokenRepo,
		env.orderRepo,
		env.productRepo,
	)

	return env
}

// seed creates a seller, a buyer and an approved product priced 1000
// with an encrypted download location.
func (env *testEnv) seed(t *testing.T, target string) {
	t.Helper()
	ctx := context.Background()

	if err := env.userRepo.Create(ctx, &model.User{ID: sellerID, Email: "seller@example.com", Name: "Seller"}); err != nil {
		t.Fatalf("create seller: %v", err)
	}
	if err := env.userRepo.Create(ctx, &model.User{ID: buyerID, Email: "buyer@example.com", Name: "Buyer"}); err != nil {
		t.Fatalf("create buyer: %v", err)
	}

	encrypted := ""
	if target != "" {
		var err error
		encrypted, err = env.cipher.Encrypt(target)
		if err != nil {
			t.Fatalf("encrypt target: %v", err)
		}
	}

	if err := env.productRepo.Create(ctx, &model.Product{
		ID:               productID,
		SellerID:         sellerID,
		Title:            "E-book",
		Price:            1000,
		Status:           model.ProductStatusApproved,
		FileURLEncrypted: encrypted,
	}); err != nil {
		t.Fatalf("create product: %v", err)
	}
}

func signCallback(body []byte, timestamp string) string {
	mac := hmac.New(sha256.New, []byte(testCallbackSecret))
	mac.Write([]byte(timestamp))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// deliver signs and delivers a callback body, returning the ack.
func (env *testEnv) deliver(t *testing.T, body string) string {
	t.Helper()
	const ts = "1700000000"
	return env.orders.HandleCallback(context.Background(), []byte(body), signCallback([]byte(body), ts), ts)
}

func (env *testEnv) mustOrder(t *testing.T, orderID string) *model.Order {
	t.Helper()
	order, err := env.orderRepo.FindByOrderID(context.Background(), orderID)
	if err != nil {
		t.Fatalf("find order %s: %v", orderID, err)
	}
	return order
}

func (env *testEnv) mustUser(t *testing.T, userID string) *model.User {
	t.Helper()
	user, err := env.userRepo.FindByID(context.Background(), userID)
	if err != nil {
		t.Fatalf("find user %s: %v", userID, err)
	}
	return user
}

func (env *testEnv) orderCount(t *testing.T) int64 {
	t.Helper()
	var count int64
	if err := env.db.Model(&model.Order{}).Count(&count).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	return count
}
