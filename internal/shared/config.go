package shared

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	LogLevel    string
	HTTPAddr    string
	MetricsAddr string
	Store       string // mysql | memory
	MySQLDSN    string
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	CacheTTL    time.Duration

	IzipayMode         string // TEST | PRODUCTION
	IzipayBase         string
	IzipayUser         string
	IzipayPassword     string
	IzipayPasswordProd string
	IzipayHMAC         string
	IzipayHMACProd     string
	IzipayRPS          int
	Currency           string

	SecretKey    string
	PollInterval time.Duration
	PollWorkers  int

	OTLPEndpoint string
	ServiceName  string
}

func Load() Config {
	// optional .env; real environment wins
	_ = godotenv.Load()

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
		return def
	}
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		LogLevel:    env("LOG_LEVEL", "info"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ":9100"),
		Store:       strings.ToLower(env("STORE", "mysql")),
		MySQLDSN:    env("MYSQL_DSN", "root:root@tcp(localhost:3306)/hotel?parseTime=true&charset=utf8mb4,utf8&loc=UTC"),
		RedisAddr:   env("REDIS_ADDR", "localhost:6379"),
		RedisDB:     atoi("REDIS_DB", 0),
		RedisPass:   env("REDIS_PASSWORD", ""),
		CacheTTL:    time.Duration(atoi("CACHE_TTL_SECONDS", 60)) * time.Second,

		IzipayMode:         strings.ToUpper(env("IZIPAY_MODE", "TEST")),
		IzipayBase:         env("IZIPAY_BASE_URL", "https://api.micuentaweb.pe"),
		IzipayUser:         env("IZIPAY_USER", ""),
		IzipayPassword:     env("IZIPAY_PASSWORD", ""),
		IzipayPasswordProd: env("IZIPAY_PASSWORD_PROD", ""),
		IzipayHMAC:         env("IZIPAY_HMAC_SHA256", ""),
		IzipayHMACProd:     env("IZIPAY_HMAC_SHA256_PROD", ""),
		IzipayRPS:          atoi("IZIPAY_RPS", 5),
		Currency:           env("IZIPAY_CURRENCY", "PEN"),

		SecretKey:    env("SECRET_KEY", ""),
		PollInterval: time.Duration(atoi("POLL_INTERVAL_SECONDS", 300)) * time.Second,
		PollWorkers:  atoi("POLL_WORKERS", 4),

		OTLPEndpoint: env("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		ServiceName:  env("SERVICE_NAME", "hotel-reconciler"),
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 300 * time.Second
	}
	if c.HMACKey() == "" {
		log.Warn().Str("mode", c.IzipayMode).Msg("gateway HMAC key is empty; every push notification will be rejected")
	}
	if c.SecretKey == "" {
		log.Warn().Msg("SECRET_KEY is empty; admin endpoints will reject every session")
	}
	return c
}

func (c Config) Production() bool { return c.IzipayMode == "PRODUCTION" }

// GatewayPassword is the REST password for the active gateway mode.
func (c Config) GatewayPassword() string {
	if c.Production() {
		return c.IzipayPasswordProd
	}
	return c.IzipayPassword
}

// HMACKey signs push notifications in the active gateway mode.
func (c Config) HMACKey() string {
	if c.Production() {
		return c.IzipayHMACProd
	}
	return c.IzipayHMAC
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
