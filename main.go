package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"storefront-backend/handlers"
	"storefront-backend/internal/auth"
	"storefront-backend/internal/cart"
	"storefront-backend/internal/categories"
	"storefront-backend/internal/consul"
	"storefront-backend/internal/orders"
	"storefront-backend/internal/products"
	"storefront-backend/internal/profiles"
	"storefront-backend/internal/stores/kafka"
	"storefront-backend/internal/stores/postgres"
	"storefront-backend/internal/users"
	"storefront-backend/pkg/logkey"

	"github.com/joho/godotenv"
)

const serviceName = "storefront"

func main() {
	if err := run(); err != nil {
		slog.Error("service stopped", slog.String(logkey.ERROR, err.Error()))
		os.Exit(1)
	}
}

func run() error {
	// .env is optional; real deployments set the environment directly.
	godotenv.Load()

	setupSlog()

	db, err := postgres.OpenDB()
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer db.Close()

	if err := postgres.RunMigrations(db); err != nil {
		return err
	}

	keys, err := loadAuthKeys()
	if err != nil {
		return err
	}

	cartConf, err := cart.NewConf(db)
	if err != nil {
		return err
	}
	productsConf, err := products.NewConf(db)
	if err != nil {
		return err
	}
	ordersConf, err := orders.NewConf(db, &productsConf)
	if err != nil {
		return err
	}
	categoriesConf, err := categories.NewConf(db)
	if err != nil {
		return err
	}
	profilesConf, err := profiles.NewConf(db)
	if err != nil {
		return err
	}
	usersConf, err := users.NewConf(db)
	if err != nil {
		return err
	}

	var kafkaConf *kafka.Conf
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		kafkaConf, err = kafka.NewConf(strings.Split(brokers, ","))
		if err != nil {
			return err
		}
		defer kafkaConf.Close()
	} else {
		slog.Warn("KAFKA_BROKERS not set, order events disabled")
	}

	host := os.Getenv("APP_HOST")
	if host == "" {
		host = "localhost"
	}
	port, err := strconv.Atoi(os.Getenv("APP_PORT"))
	if err != nil || port <= 0 {
		port = 8080
	}

	if os.Getenv("CONSUL_HTTP_ADDR") != "" {
		client, err := consul.NewClient()
		if err != nil {
			return err
		}
		if err := consul.RegisterService(client, serviceName, host, port); err != nil {
			// Discovery is not load-bearing for serving traffic.
			slog.Warn("consul registration failed", slog.String(logkey.ERROR, err.Error()))
		}
	}

	prefix := os.Getenv("SERVICE_ENDPOINT_PREFIX")
	r := handlers.API(prefix, keys, cartConf, ordersConf, productsConf, categoriesConf, profilesConf, usersConf, kafkaConf)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErrs := make(chan error, 1)
	go func() {
		slog.Info("server starting", slog.String("addr", srv.Addr))
		serverErrs <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrs:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			srv.Close()
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

func setupSlog() {
	level := slog.LevelInfo
	switch strings.ToLower(os.Getenv("APP_LOG_LEVEL")) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler).With("service", serviceName))
}

func loadAuthKeys() (*auth.Keys, error) {
	privateFile := os.Getenv("AUTH_PRIVATE_KEY_FILE")
	if privateFile == "" {
		privateFile = "private.pem"
	}
	publicFile := os.Getenv("AUTH_PUBLIC_KEY_FILE")
	if publicFile == "" {
		publicFile = "pubkey.pem"
	}

	privatePEM, err := os.ReadFile(privateFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key file: %w", err)
	}
	publicPEM, err := os.ReadFile(publicFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key file: %w", err)
	}

	keys, err := auth.NewKeys(privatePEM, publicPEM)
	if err != nil {
		return nil, err
	}
	return keys, nil
}
