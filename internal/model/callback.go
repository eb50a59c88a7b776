package model

// GatewayCallbackEvent is the payload the payment gateway posts to our
// callback endpoint once a checkout session finishes. It is verified
// against the raw request bytes and never persisted.
type GatewayCallbackEvent struct {
	OrderID   string `json:"order_id"`
	SessionID string `json:"session_id"`
	Status    string `json:"status"` // SUCCESS, FAILED
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
}

const (
	CallbackStatusSuccess = "SUCCESS"
	CallbackStatusFailed  = "FAILED"
)
