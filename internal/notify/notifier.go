package notify

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	NotifyExchange   = "marketplace.notify.exchange"
	NotifyQueue      = "marketplace.notify.queue"
	NotifyRoutingKey = "marketplace.notify"
)

const (
	EventPurchaseCompleted = "purchase.completed"
	EventPurchaseFailed    = "purchase.failed"
	EventSaleCompleted     = "sale.completed"
)

// Notifier is a best-effort push sink. Implementations never return an
// error; delivery failures are logged and otherwise dropped so they can
// never affect a settlement that has already committed.
type Notifier interface {
	Notify(ctx context.Context, userID, event string, payload map[string]any)
}

type notifyMessage struct {
	UserID    string         `json:"user_id"`
	Event     string         `json:"event"`
	Payload   map[string]any `json:"payload,omitempty"`
	Timestamp int64          `json:"timestamp"`
}

// AMQPNotifier publishes notification messages to a RabbitMQ exchange
// consumed by the push-delivery worker.
type AMQPNotifier struct {
	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

func NewAMQPNotifier(url string) (*AMQPNotifier, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	if err := ch.ExchangeDeclare(NotifyExchange, "direct", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	if _, err := ch.QueueDeclare(NotifyQueue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	if err := ch.QueueBind(NotifyQueue, NotifyRoutingKey, NotifyExchange, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &AMQPNotifier{conn: conn, channel: ch}, nil
}

func (n *AMQPNotifier) Notify(ctx context.Context, userID, event string, payload map[string]any) {
	body, err := json.Marshal(&notifyMessage{
		UserID:    userID,
		Event:     event,
		Payload:   payload,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		log.Printf("notify: marshal message for user %s: %v", userID, err)
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	err = n.channel.PublishWithContext(ctx, NotifyExchange, NotifyRoutingKey, false, false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		})
	if err != nil {
		log.Printf("notify: publish %s for user %s: %v", event, userID, err)
	}
}

func (n *AMQPNotifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.channel != nil {
		n.channel.Close()
	}
	if n.conn != nil {
		n.conn.Close()
	}
}

// LogNotifier is used when no broker is configured.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, userID, event string, _ map[string]any) {
	log.Printf("notify: %s -> user %s", event, userID)
}
