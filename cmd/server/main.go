package main

import (
	"context"   // context package is needed for startup checks and shutdown
	"errors"    // Server close detection
	"net/http"  // HTTP server
	"os"        // Signals
	"os/signal" // Graceful shutdown
	"syscall"   // SIGTERM
	"time"      // Timeouts

	"notes_marketplace/internal/api"     // Custom package for API handlers
	"notes_marketplace/internal/config"  // Custom package for configuration
	"notes_marketplace/internal/db"      // Database connection and migration
	"notes_marketplace/internal/payment" // Payment gateway client
	"notes_marketplace/internal/service" // Business logic
	"notes_marketplace/internal/storage" // Object storage

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/rs/cors"           // CORS for the web frontend
	"github.com/sirupsen/logrus"   // Logrus for structured logging
)

// Main function to set up and run the server
func main() {
	cfg, err := config.LoadConfig() // Load configuration
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}

	// Setup logger
	if cfg.IsProd {
		logrus.SetFormatter(&logrus.JSONFormatter{}) // Machine readable logs in production
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	// Connect to the database and bring the schema up to date
	conn, err := db.Open(cfg)
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}
	if err := db.Migrate(conn); err != nil {
		logrus.Fatalf("failed to migrate DB: %v", err)
	}

	// Setup Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr, // Redis server address
		Password: cfg.RedisPass, // Redis password
		DB:       cfg.RedisDB,   // Redis database number
	})

	startCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	// Test Redis connection
	if _, err := redisClient.Ping(startCtx).Result(); err != nil {
		logrus.Fatalf("failed to connect to Redis: %v", err)
	}

	// Setup object storage
	store, err := storage.NewMinioStore(storage.Options{
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		UseSSL:    cfg.S3UseSSL,
		Bucket:    cfg.S3Bucket,
		Region:    cfg.S3Region,
	})
	if err != nil {
		logrus.Fatalf("failed to create storage client: %v", err)
	}
	if err := store.EnsureBucket(startCtx); err != nil {
		logrus.Fatalf("failed to prepare bucket: %v", err)
	}

	gateway := payment.NewMoyasarClient(cfg.MoyasarBaseURL, cfg.MoyasarSecretKey, &http.Client{Timeout: 15 * time.Second})

	services := service.New(service.Dependencies{
		DB:       conn,
		Redis:    redisClient,
		Store:    store,
		Gateway:  gateway,
		Settings: service.SettingsFromConfig(cfg),
	})

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup Gin
	r, err := api.NewRouter(services, conn, api.RouterOptions{
		JWTSecret:      cfg.JWTSecret,
		MaxUploadBytes: cfg.MaxUploadBytes(),
		TrustedProxies: []string{"127.0.0.1"},
	})
	if err != nil {
		logrus.Fatalf("failed to build router: %v", err)
	}

	handler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: cfg.AllowCredentials(), // Off for a wildcard origin
	}).Handler(r)

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logrus.WithField("port", cfg.AppPort).Info("Server running") // Log server start
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("listen: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutdown signal received")

	ctx, stop := context.WithTimeout(context.Background(), 15*time.Second)
	defer stop()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("forced shutdown: %v", err)
	}
	_ = redisClient.Close()
	if sqlDB, err := conn.DB(); err == nil {
		_ = sqlDB.Close()
	}
	logrus.Info("Server stopped")
}
