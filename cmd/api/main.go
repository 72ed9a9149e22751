package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"storefront-checkout/internal/address"
	"storefront-checkout/internal/checkout"
	"storefront-checkout/internal/config"
	"storefront-checkout/internal/coupon"
	"storefront-checkout/internal/db"
	"storefront-checkout/internal/httpserver"
	"storefront-checkout/internal/payments"
	sessionrepo "storefront-checkout/internal/repository/session"
	"storefront-checkout/internal/shipping"
)

func main() {
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[api] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	ctx := context.Background()
	dbpool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatalf("connect to db: %v", err)
	}
	defer dbpool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()

	sessionRepo := sessionrepo.NewPostgres(dbpool)
	prefStore := shipping.NewRedisStore(redisClient)
	quoter := shipping.NewClient(cfg.ShippingBaseURL, cfg.OriginZip)
	coordinator := shipping.NewCoordinator(quoter, prefStore, logger, cfg.FreeShippingThreshold)

	couponClient := coupon.NewClient(cfg.CouponBaseURL)
	lookupClient := address.NewClient(cfg.PostalLookupBaseURL)
	gateway := payments.NewClient(cfg.PaymentBaseURL)
	tokenizer := payments.NewTokenizerClient(cfg.TokenizerBaseURL, cfg.TokenizerPublicKey)
	cardOrchestrator := payments.NewCardOrchestrator(tokenizer, gateway, logger)
	if err := cardOrchestrator.Mount(ctx); err != nil {
		// Card submissions answer 503 until restart; instant payments
		// are unaffected.
		logger.Printf("card tokenizer mount failed: %v", err)
	}

	svc := checkout.NewService(sessionRepo, coordinator, couponClient, lookupClient, gateway, cardOrchestrator, logger)

	srv, err := httpserver.New(cfg.HTTPAddr, logger, dbpool, svc, cfg.CORSOrigins)
	if err != nil {
		logger.Fatalf("init server: %v", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Printf("starting http server on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Printf("received signal %s, shutting down", sig)
	case err := <-serverErr:
		logger.Printf("server error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	} else {
		logger.Printf("server stopped")
	}
}
