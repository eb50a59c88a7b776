package dto

type CreateOrderRequest struct {
	ProductID string `json:"product_id"`
}

type CreateOrderResponse struct {
	OrderID    string `json:"order_id"`
	SessionID  string `json:"session_id"`
	PaymentURL string `json:"payment_url"`
}

type OrderStatusResponse struct {
	OrderID   string `json:"order_id"`
	Status    string `json:"status"`
	ProductID string `json:"product_id"`
}

// CallbackAck is always returned with HTTP 200 so the gateway never
// retries a delivery we have already decided on.
type CallbackAck struct {
	Result string `json:"result"`
}

const (
	AckOK               = "ok"
	AckSignatureMissing = "signature_missing"
	AckInvalidSignature = "invalid_signature"
	AckMissingOrderID   = "missing_order_id"
	AckOrderNotFound    = "order_not_found"
	AckAlreadyCompleted = "already_completed"
	AckError            = "error"
)

type DownloadTokenRequest struct {
	ProductID string `json:"product_id"`
}

type DownloadTokenResponse struct {
	Token string `json:"token"`
}
