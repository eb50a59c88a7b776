package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/khanbhai009-cloud/Backend-digi/internal/client"
	"github.com/khanbhai009-cloud/Backend-digi/internal/config"
	appcrypto "github.com/khanbhai009-cloud/Backend-digi/internal/crypto"
	appmiddleware "github.com/khanbhai009-cloud/Backend-digi/internal/middleware"
	"github.com/khanbhai009-cloud/Backend-digi/internal/notify"
	"github.com/khanbhai009-cloud/Backend-digi/internal/repository"
	"github.com/khanbhai009-cloud/Backend-digi/internal/server"
	"github.com/khanbhai009-cloud/Backend-digi/internal/service"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

func main() {
	// load .env into os.Environ
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found (ok in prod)")
	}

	cfg := &config.Config{}
	if err := env.Parse(cfg); err != nil {
		fmt.Printf("Failed to parse config: %v\n", err)
		os.Exit(1)
	}

	db := client.InitMysqlClient(cfg.DatabaseURL)
	gatewayClient := client.NewGatewayClient(&cfg.Gateway)
	linkCipher := appcrypto.NewLinkCipher(cfg.Download.LinkKey)

	var notifier notify.Notifier = notify.LogNotifier{}
	if cfg.AMQP.URL != "" {
		amqpNotifier, err := notify.NewAMQPNotifier(cfg.AMQP.URL)
		if err != nil {
			log.Println("AMQP unavailable, notifications fall back to log:", err)
		} else {
			defer amqpNotifier.Close()
			notifier = amqpNotifier
		}
	}

	orderRepo := repository.NewOrderRepository(db)
	userRepo := repository.NewUserRepository(db)
	productRepo := repository.NewProductRepository(db)
	purchaseRepo := repository.NewPurchaseRepository(db)
	settingRepo := repository.NewSettingRepository(db)
	tokenRepo := repository.NewDownloadTokenRepository(db)

	orderService := service.NewOrderService(
		db, gatewayClient, cfg.Gateway.CallbackSecret, cfg.BaseURL, notifier,
		orderRepo,
		userRepo,
		productRepo,
		purchaseRepo,
		settingRepo,
	)
	downloadService := service.NewDownloadService(
		linkCipher,
		tokenRepo,
		orderRepo,
		productRepo,
	)

	verifier := appmiddleware.NewJWTVerifier(cfg.Auth.JWTSecret)

	serverAddr := cfg.HTTP.Host + ":" + cfg.HTTP.Port

	// Init HTTP server
	srv := server.NewServer(orderService, downloadService, verifier)

	log.Println("Starting HTTP server on", serverAddr)
	go func() {
		if err := srv.Start(serverAddr); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	<-sigChan
	log.Println("Signal received, starting graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("HTTP server shutdown error")
	}
}
