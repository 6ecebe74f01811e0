package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	redisclient "github.com/redis/go-redis/v9"
	"github.com/tickethub/ticket-inventory/internal/adapters/crdb"
	mongoadapter "github.com/tickethub/ticket-inventory/internal/adapters/mongo"
	"github.com/tickethub/ticket-inventory/internal/adapters/rabbit"
	redisadapter "github.com/tickethub/ticket-inventory/internal/adapters/redis"
	"github.com/tickethub/ticket-inventory/internal/config"
	"github.com/tickethub/ticket-inventory/internal/gate"
	httphandler "github.com/tickethub/ticket-inventory/internal/http"
	"github.com/tickethub/ticket-inventory/internal/idempotency"
	"github.com/tickethub/ticket-inventory/internal/observability"
	"github.com/tickethub/ticket-inventory/internal/rateLimit"
	"github.com/tickethub/ticket-inventory/internal/registry"
	"github.com/tickethub/ticket-inventory/internal/service"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdown, err := observability.SetupOTel(context.Background(), cfg)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdown()

	logger := observability.NewLogger()

	pool, err := pgxpool.New(context.Background(), cfg.DBDSN)
	if err != nil {
		log.Fatalf("failed to connect to ledger db: %v", err)
	}
	defer pool.Close()
	ledger := crdb.NewLedger(pool)
	if err := ledger.EnsureSchema(context.Background()); err != nil {
		log.Fatalf("failed to ensure orders schema: %v", err)
	}

	var audit service.Auditor
	if cfg.MongoURI != "" {
		mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			log.Fatalf("failed to connect to mongo: %v", err)
		}
		defer mongoClient.Disconnect(context.Background())
		audit = mongoadapter.NewAuditLogger(mongoClient.Database("tickets"), logger)
	} else {
		logger.Warn("MONGO_URI not set, audit trail disabled")
	}

	var idemp *idempotency.Idempotency
	var rl *rateLimit.RateLimiter
	if cfg.RedisAddr != "" {
		redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
		redisIdemp := redisadapter.NewIdempotency(redisClient)
		idemp = idempotency.NewIdempotency(redisIdemp, cfg.IdempotencyTTL)
		rl = rateLimit.NewRateLimiter(redisIdemp)
	} else {
		logger.Warn("REDIS_ADDR not set, idempotency and rate limiting disabled")
	}

	var pub service.Publisher
	if cfg.RabbitURL != "" {
		rabbitConn, err := amqp.Dial(cfg.RabbitURL)
		if err != nil {
			log.Fatalf("failed to connect to rabbitmq: %v", err)
		}
		defer rabbitConn.Close()
		pub, err = rabbit.NewPublisher(rabbitConn)
		if err != nil {
			log.Fatalf("failed to create publisher: %v", err)
		}
	} else {
		logger.Warn("RABBIT_URL not set, lifecycle messages disabled")
	}

	svc := service.New(registry.New(), gate.New(), ledger, pub, audit, logger, cfg.LedgerRetries)
	handlers := httphandler.NewHandlers(svc, idemp, logger)
	r := httphandler.SetupRouter(handlers, logger, rl)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutdown Server ...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}
	logger.Info("Server exiting")
}
