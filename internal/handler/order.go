package handler

import (
	"io"
	"net/http"

	"github.com/khanbhai009-cloud/Backend-digi/internal/apperr"
	"github.com/khanbhai009-cloud/Backend-digi/internal/dto"
	"github.com/khanbhai009-cloud/Backend-digi/internal/service"

	"github.com/labstack/echo/v4"
)

type OrderHandler struct {
	orderService service.OrderService
}

func NewOrderHandler(orderService service.OrderService) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
	}
}

func userIDFromContext(c echo.Context) (string, error) {
	userID, _ := c.Get("user_id").(string)
	if userID == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authenticated identity")
	}
	return userID, nil
}

func mapError(err error) error {
	if status := apperr.HTTPStatus(err); status != http.StatusInternalServerError {
		return echo.NewHTTPError(status, err.Error())
	}
	return err
}

func (h *OrderHandler) CreateOrder(c echo.Context) error {
	ctx := c.Request().Context()

	buyerID, err := userIDFromContext(c)
	if err != nil {
		return err
	}

	var req dto.CreateOrderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}
	if req.ProductID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing product_id")
	}

	result, err := h.orderService.Initiate(ctx, buyerID, req.ProductID)
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusOK, result)
}

// GatewayCallback must see the exact request bytes for signature
// verification, so the body is read raw and never re-serialized. The
// response is always transport-success; the ack body carries the
// outcome so the gateway does not retry deliveries we already dropped.
func (h *OrderHandler) GatewayCallback(c echo.Context) error {
	ctx := c.Request().Context()

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusOK, &dto.CallbackAck{Result: dto.AckError})
	}

	ack := h.orderService.HandleCallback(ctx, body,
		c.Request().Header.Get("X-Signature"),
		c.Request().Header.Get("X-Timestamp"),
	)

	return c.JSON(http.StatusOK, &dto.CallbackAck{Result: ack})
}

func (h *OrderHandler) GetOrderStatus(c echo.Context) error {
	ctx := c.Request().Context()

	requesterID, err := userIDFromContext(c)
	if err != nil {
		return err
	}

	result, err := h.orderService.QueryStatus(ctx, c.Param("orderID"), requesterID)
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusOK, result)
}
