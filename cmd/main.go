/**
 * @description
 * This is the main entry point for the sendmestickers service. It is responsible for
 * initializing all components of the service, including configuration, database
 * connection, the Stripe and object storage clients, the message broker producer,
 * the repository, the core application service, and the HTTP server. It wires
 * everything together and starts the service.
 *
 * @dependencies
 * - log, net/http: Standard Go libraries for logging and HTTP server functionality.
 * - github.com/jackc/pgx/v5: PostgreSQL driver.
 * - internal/api, internal/app, internal/config, internal/store: Internal packages for the service.
 * - pkg/stripeclient, pkg/objectstore, pkg/rabbitmq: Clients for external services.
 */

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SerenityUX/sendmestickers/internal/api"
	"github.com/SerenityUX/sendmestickers/internal/app"
	"github.com/SerenityUX/sendmestickers/internal/config"
	"github.com/SerenityUX/sendmestickers/internal/store"
	"github.com/SerenityUX/sendmestickers/pkg/objectstore"
	"github.com/SerenityUX/sendmestickers/pkg/rabbitmq"
	"github.com/SerenityUX/sendmestickers/pkg/stripeclient"
)

func main() {
	// Load application configuration from environment variables.
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"config load failed\" err=%v", err)
	}
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"database url must be configured\" env=DATABASE_URL")
	}
	if strings.TrimSpace(cfg.StripeSecretKey) == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"stripe secret key must be configured\" env=STRIPE_SECRET_KEY")
	}

	log.Printf("level=info component=bootstrap msg=\"starting sendmestickers service\" port=%s", cfg.ServerPort)

	// Establish a connection pool to the PostgreSQL database.
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database url parse failed\" err=%v", err)
	}
	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	dbpool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database connection failed\" err=%v", err)
	}
	defer dbpool.Close()
	log.Println("level=info component=bootstrap msg=\"database connected\"")

	// Initialize the Stripe client for checkout sessions and webhooks.
	if strings.TrimSpace(cfg.StripeWebhookSecret) == "" {
		log.Println("level=warn component=bootstrap msg=\"stripe webhook secret not configured; webhook deliveries will be rejected\" env=STRIPE_WEBHOOK_SECRET")
	}
	stripeClient := stripeclient.NewClient(cfg.StripeSecretKey, cfg.StripeWebhookSecret)

	// Initialize the object storage client. Missing storage config should not
	// prevent the service from booting; image uploads will degrade.
	var storage app.ObjectStore
	if cfg.StorageEndpoint == "" || cfg.StorageBucket == "" || cfg.StorageAccessKey == "" || cfg.StorageSecretKey == "" {
		log.Printf("level=warn component=bootstrap msg=\"object storage not configured; image uploads disabled\" endpoint_set=%t bucket_set=%t",
			cfg.StorageEndpoint != "",
			cfg.StorageBucket != "",
		)
	} else {
		storageClient, err := objectstore.NewClient(context.Background(), cfg.StorageEndpoint, cfg.StorageRegion, cfg.StorageAccessKey, cfg.StorageSecretKey, cfg.StorageBucket)
		if err != nil {
			log.Fatalf("level=fatal component=bootstrap msg=\"object storage init failed\" err=%v", err)
		}
		storage = storageClient
		log.Println("level=info component=bootstrap msg=\"object storage configured\"")
	}

	// Initialize the RabbitMQ producer to publish events.
	var producer rabbitmq.Publisher
	if strings.TrimSpace(cfg.RabbitMQURL) == "" {
		log.Println("level=warn component=bootstrap msg=\"rabbitmq url missing; event publishing disabled\" env=RABBITMQ_URL")
	} else {
		eventProducer, err := rabbitmq.NewEventProducer(cfg.RabbitMQURL)
		if err != nil {
			log.Printf("level=warn component=bootstrap msg=\"rabbitmq producer unavailable; using fallback\" err=%v", err)
			producer = &rabbitmq.EventProducerFallback{}
		} else {
			defer eventProducer.Close()
			producer = eventProducer
			log.Println("level=info component=bootstrap msg=\"rabbitmq producer connected\"")
		}
	}

	// Initialize the data access layer (repository).
	repository := store.NewPostgresRepository(dbpool)

	// Initialize the core application service with its dependencies.
	stickerService := app.NewService(
		repository,
		stripeClient,
		storage,
		producer,
		cfg.EventExchange,
		cfg.StickerPriceCents,
		cfg.TestDiscountCode,
		cfg.PublicBaseURL,
	)

	// Initialize the API handlers and router.
	handlers := api.NewStickerHandlers(stickerService)
	router := api.Routes(handlers)

	serverAddr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Printf("level=info component=http msg=\"server listening\" addr=%s", serverAddr)

	server := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("level=fatal component=http msg=\"server stopped unexpectedly\" err=%v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("level=info component=http msg=\"shutdown started\"")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("level=error component=http msg=\"shutdown failed\" err=%v", err)
	}

	log.Println("level=info component=http msg=\"shutdown complete\"")
}
