package handler

import (
	"net/http"

	"github.com/khanbhai009-cloud/Backend-digi/internal/dto"
	"github.com/khanbhai009-cloud/Backend-digi/internal/service"

	"github.com/labstack/echo/v4"
)

type DownloadHandler struct {
	downloadService service.DownloadService
}

func NewDownloadHandler(downloadService service.DownloadService) *DownloadHandler {
	return &DownloadHandler{
		downloadService: downloadService,
	}
}

func (h *DownloadHandler) RequestToken(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := userIDFromContext(c)
	if err != nil {
		return err
	}

	var req dto.DownloadTokenRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid req body")
	}
	if req.ProductID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing product_id")
	}

	token, err := h.downloadService.RequestToken(ctx, userID, req.ProductID)
	if err != nil {
		return mapError(err)
	}

	return c.JSON(http.StatusOK, &dto.DownloadTokenResponse{Token: token})
}

// Redeem is unauthenticated: possession of the token is the capability.
// Failure responses stay terse so the endpoint leaks nothing about
// whether a token ever existed.
func (h *DownloadHandler) Redeem(c echo.Context) error {
	ctx := c.Request().Context()

	token := c.Param("token")
	if token == "" {
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	}

	target, err := h.downloadService.Redeem(ctx, token)
	if err != nil {
		return mapError(err)
	}

	return c.Redirect(http.StatusFound, target)
}
