package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/khanbhai009-cloud/Backend-digi/internal/apperr"
	"github.com/khanbhai009-cloud/Backend-digi/internal/client"
	"github.com/khanbhai009-cloud/Backend-digi/internal/dto"
	"github.com/khanbhai009-cloud/Backend-digi/internal/model"
	"github.com/khanbhai009-cloud/Backend-digi/internal/notify"
	"github.com/khanbhai009-cloud/Backend-digi/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const defaultCurrency = "USD"

// errAlreadySettled aborts the settlement transaction when the
// conditional status update matched no row, i.e. a concurrent delivery
// won the race. The whole transaction rolls back as a no-op.
var errAlreadySettled = errors.New("order already settled")

// errDuplicatePurchase aborts the settlement transaction when another
// order for the same (buyer, product) pair completed first. Two PENDING
// orders can exist for one pair when initiations interleave before
// either settles; at most one of them may ever reach COMPLETED.
var errDuplicatePurchase = errors.New("pair already has a completed order")

type OrderService interface {
	// Initiate creates a gateway checkout session and a PENDING order.
	// The gateway call happens first so a failed session never leaves an
	// orphan order behind.
	Initiate(ctx context.Context, buyerID, productID string) (*dto.CreateOrderResponse, error)
	// HandleCallback drives the settlement state machine from a gateway
	// delivery. It always returns an acknowledgement; every failure is
	// swallowed here and logged so the gateway never sees a transport
	// error it would retry.
	HandleCallback(ctx context.Context, rawBody []byte, signature, timestamp string) string
	QueryStatus(ctx context.Context, orderID, requesterID string) (*dto.OrderStatusResponse, error)
}

type orderServiceImpl struct {
	db             *gorm.DB
	gatewayClient  client.GatewayClient
	callbackSecret string
	serviceBaseUrl string
	notifier       notify.Notifier
	orderRepo      repository.OrderRepository
	userRepo       repository.UserRepository
	productRepo    repository.ProductRepository
	purchaseRepo   repository.PurchaseRepository
	settingRepo    repository.SettingRepository
}

func NewOrderService(
	db *gorm.DB,
	gatewayClient client.GatewayClient,
	callbackSecret string,
	serviceBaseUrl string,
	notifier notify.Notifier,
	orderRepo repository.OrderRepository,
	userRepo repository.UserRepository,
	productRepo repository.ProductRepository,
	purchaseRepo repository.PurchaseRepository,
	settingRepo repository.SettingRepository,
) OrderService {
	return &orderServiceImpl{
		db:             db,
		gatewayClient:  gatewayClient,
		callbackSecret: callbackSecret,
		serviceBaseUrl: serviceBaseUrl,
		notifier:       notifier,
		orderRepo:      orderRepo,
		userRepo:       userRepo,
		productRepo:    productRepo,
		purchaseRepo:   purchaseRepo,
		settingRepo:    settingRepo,
	}
}

func (s *orderServiceImpl) Initiate(ctx context.Context, buyerID, productID string) (*dto.CreateOrderResponse, error) {
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("product not found")
		}
		return nil, fmt.Errorf("find product: %w", err)
	}
	if product.Status != model.ProductStatusApproved {
		return nil, apperr.Validation("product not available for purchase")
	}

	if _, err := s.userRepo.FindByID(ctx, buyerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("buyer not found")
		}
		return nil, fmt.Errorf("find buyer: %w", err)
	}

	purchased, err := s.orderRepo.CompletedExists(ctx, buyerID, productID)
	if err != nil {
		return nil, fmt.Errorf("check existing purchase: %w", err)
	}
	if purchased {
		return nil, apperr.Conflict("product already purchased")
	}

	amount := product.Price
	if product.DiscountPrice != nil {
		amount = *product.DiscountPrice
	}

	orderID := uuid.NewString()

	session, err := s.gatewayClient.CreateCheckoutSession(ctx, &client.CheckoutSessionRequest{
		OrderID:     orderID,
		Amount:      amount,
		Currency:    defaultCurrency,
		BuyerID:     buyerID,
		CallbackURL: s.serviceBaseUrl + "/api/payments/callback",
		ReturnURL:   s.serviceBaseUrl,
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindGateway, "create checkout session", err)
	}

	err = s.orderRepo.Create(ctx, &model.Order{
		OrderID:   orderID,
		BuyerID:   buyerID,
		SellerID:  product.SellerID,
		ProductID: productID,
		Amount:    amount,
		Status:    model.OrderStatusPending,
		SessionID: session.SessionID,
	})
	if err != nil {
		return nil, fmt.Errorf("store order in db: %w", err)
	}

	return &dto.CreateOrderResponse{
		OrderID:    orderID,
		SessionID:  session.SessionID,
		PaymentURL: session.PaymentURL,
	}, nil
}

func (s *orderServiceImpl) HandleCallback(ctx context.Context, rawBody []byte, signature, timestamp string) string {
	if signature == "" || timestamp == "" {
		return dto.AckSignatureMissing
	}
	if !s.verifySignature(rawBody, signature, timestamp) {
		log.Printf("callback: signature mismatch, dropping delivery")
		return dto.AckInvalidSignature
	}

	var event model.GatewayCallbackEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		log.Printf("callback: decode payload: %v", err)
		return dto.AckError
	}
	if event.OrderID == "" {
		return dto.AckMissingOrderID
	}

	order, err := s.orderRepo.FindByOrderID(ctx, event.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AckOrderNotFound
		}
		log.Printf("callback: load order %s: %v", event.OrderID, err)
		return dto.AckError
	}

	// Idempotency gate: a completed order is terminal, re-delivery of a
	// SUCCESS event must not touch the store again.
	if order.Status == model.OrderStatusCompleted {
		return dto.AckAlreadyCompleted
	}

	switch event.Status {
	case model.CallbackStatusSuccess:
		return s.settle(ctx, order)
	case model.CallbackStatusFailed:
		return s.fail(ctx, order)
	default:
		log.Printf("callback: unhandled status %q for order %s", event.Status, order.OrderID)
		return dto.AckOK
	}
}

// verifySignature recomputes base64(HMAC-SHA256(timestamp || rawBody))
// with the shared gateway secret. hmac.Equal keeps the comparison
// constant-time.
func (s *orderServiceImpl) verifySignature(rawBody []byte, signature, timestamp string) bool {
	mac := hmac.New(sha256.New, []byte(s.callbackSecret))
	mac.Write([]byte(timestamp))
	mac.Write(rawBody)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}

// settle applies the four settlement mutations as one transaction:
// order completed, seller wallet credited, sale counter bumped, product
// added to the buyer's purchase set. The fee is computed from the
// amount fixed at initiation, never from the live product price.
func (s *orderServiceImpl) settle(ctx context.Context, order *model.Order) string {
	rate, err := s.settingRepo.CommissionRate(ctx)
	if err != nil {
		log.Printf("callback: commission rate for order %s: %v", order.OrderID, err)
		return dto.AckError
	}

	platformFee := decimal.NewFromInt(order.Amount).Mul(rate).IntPart()
	sellerEarning := order.Amount - platformFee

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		won, err := s.orderRepo.MarkCompleted(ctx, tx, order.OrderID, platformFee, sellerEarning)
		if err != nil {
			return fmt.Errorf("mark order completed: %w", err)
		}
		if !won {
			return errAlreadySettled
		}

		// the per-order guard above does not protect the pair: a sibling
		// PENDING order for the same (buyer, product) may have settled
		// already, and only one completed order per pair may exist
		dup, err := s.orderRepo.CompletedExistsForPair(ctx, tx, order.BuyerID, order.ProductID, order.OrderID)
		if err != nil {
			return fmt.Errorf("check pair for completed order: %w", err)
		}
		if dup {
			return errDuplicatePurchase
		}

		if err := s.userRepo.CreditWallet(ctx, tx, order.SellerID, sellerEarning); err != nil {
			return fmt.Errorf("credit seller wallet: %w", err)
		}

		if err := s.productRepo.IncrementSales(ctx, tx, order.ProductID); err != nil {
			return fmt.Errorf("increment sales count: %w", err)
		}

		if err := s.purchaseRepo.Add(ctx, tx, order.BuyerID, order.ProductID); err != nil {
			return fmt.Errorf("add to purchase set: %w", err)
		}

		return nil
	})
	if err != nil {
		if errors.Is(err, errAlreadySettled) {
			return dto.AckAlreadyCompleted
		}
		if errors.Is(err, errDuplicatePurchase) {
			// the settlement rolled back; terminalize this order so
			// redeliveries stop re-running the rolled-back transaction
			if _, failErr := s.orderRepo.MarkFailed(ctx, order.OrderID); failErr != nil {
				log.Printf("callback: mark duplicate order %s failed: %v", order.OrderID, failErr)
			}
			log.Printf("callback: order %s dropped, buyer %s already owns product %s", order.OrderID, order.BuyerID, order.ProductID)
			return dto.AckAlreadyCompleted
		}
		log.Printf("callback: settle order %s: %v", order.OrderID, err)
		return dto.AckError
	}

	// Best effort, after the transaction committed. Never reverts it.
	go s.notifier.Notify(context.Background(), order.BuyerID, notify.EventPurchaseCompleted, map[string]any{
		"order_id":   order.OrderID,
		"product_id": order.ProductID,
	})
	go s.notifier.Notify(context.Background(), order.SellerID, notify.EventSaleCompleted, map[string]any{
		"order_id": order.OrderID,
		"earning":  sellerEarning,
	})

	return dto.AckOK
}

func (s *orderServiceImpl) fail(ctx context.Context, order *model.Order) string {
	if order.Status == model.OrderStatusFailed {
		return dto.AckOK
	}

	marked, err := s.orderRepo.MarkFailed(ctx, order.OrderID)
	if err != nil {
		log.Printf("callback: mark order %s failed: %v", order.OrderID, err)
		return dto.AckError
	}
	if !marked {
		// a concurrent success settled it first, never downgrade
		return dto.AckAlreadyCompleted
	}

	go s.notifier.Notify(context.Background(), order.BuyerID, notify.EventPurchaseFailed, map[string]any{
		"order_id":   order.OrderID,
		"product_id": order.ProductID,
	})

	return dto.AckOK
}

func (s *orderServiceImpl) QueryStatus(ctx context.Context, orderID, requesterID string) (*dto.OrderStatusResponse, error) {
	order, err := s.orderRepo.FindByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("order not found")
		}
		return nil, fmt.Errorf("find order: %w", err)
	}

	if order.BuyerID != requesterID {
		return nil, apperr.Forbidden("order belongs to another buyer")
	}

	return &dto.OrderStatusResponse{
		OrderID:   order.OrderID,
		Status:    order.Status,
		ProductID: order.ProductID,
	}, nil
}
