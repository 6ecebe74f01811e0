package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBDSN          string
	MongoURI       string
	RedisAddr      string
	RabbitURL      string
	OTLPEndpoint   string
	HTTPAddr       string
	LedgerRetries  int
	IdempotencyTTL time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	retries, _ := strconv.Atoi(os.Getenv("LEDGER_RETRIES"))
	if retries == 0 {
		retries = 3
	}

	idemTTL, _ := time.ParseDuration(os.Getenv("IDEMPOTENCY_TTL"))
	if idemTTL == 0 {
		idemTTL = time.Hour
	}

	httpAddr := os.Getenv("HTTP_ADDR")
	if httpAddr == "" {
		httpAddr = ":8080"
	}

	return &Config{
		DBDSN:          os.Getenv("DB_DSN"),
		MongoURI:       os.Getenv("MONGO_URI"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RabbitURL:      os.Getenv("RABBIT_URL"),
		OTLPEndpoint:   os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		HTTPAddr:       httpAddr,
		LedgerRetries:  retries,
		IdempotencyTTL: idemTTL,
	}, nil
}
