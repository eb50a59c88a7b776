package server

import (
	"context"

	"github.com/khanbhai009-cloud/Backend-digi/internal/handler"
	appmiddleware "github.com/khanbhai009-cloud/Backend-digi/internal/middleware"
	"github.com/khanbhai009-cloud/Backend-digi/internal/service"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type Server struct {
	echo            *echo.Echo
	orderHandler    *handler.OrderHandler
	downloadHandler *handler.DownloadHandler
	verifier        appmiddleware.CredentialVerifier
}

func NewServer(
	orderService service.OrderService,
	downloadService service.DownloadService,
	verifier appmiddleware.CredentialVerifier,
) *Server {
	e := echo.New()

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s := &Server{
		echo:            e,
		orderHandler:    handler.NewOrderHandler(orderService),
		downloadHandler: handler.NewDownloadHandler(downloadService),
		verifier:        verifier,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.echo.Group("/api")

	api.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{"status": "ok"})
	})

	auth := appmiddleware.AuthMiddleware(s.verifier)

	// -------- orders --------
	api.POST("/orders", s.orderHandler.CreateOrder, auth)
	api.GET("/orders/:orderID", s.orderHandler.GetOrderStatus, auth)

	// -------- gateway callback --------
	api.POST("/payments/callback", s.orderHandler.GatewayCallback)

	// -------- downloads --------
	api.POST("/downloads", s.downloadHandler.RequestToken, auth)
	api.GET("/downloads/:token", s.downloadHandler.Redeem)
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

// Shutdown stops accepting new connections and waits for in-flight
// requests until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
