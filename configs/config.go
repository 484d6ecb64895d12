package config

import (
	"os"
	"strconv"
	"time"
)

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
	PublicURL  string
}

type Meta struct {
	GraphBaseURL string
	// FacebookPublishWithPageToken switches Facebook publishing from the
	// user token to the resolved page token.
	FacebookPublishWithPageToken bool
	HTTPTimeout                  time.Duration
}

type Publish struct {
	MaxAttempts    int
	InitialBackoff time.Duration
}

type Config struct {
	ListenAddr        string
	PostgresURI       string
	RedisURI          string
	FrontendURL       string
	SecretKey         string
	CookieName        string
	WorkerConcurrency int
	ReconcileInterval time.Duration
	ReconcileGrace    time.Duration
	Meta              Meta
	Publish           Publish
	R2                R2
}

func LoadConfig() *Config {
	return &Config{
		ListenAddr:        getEnv("LISTEN_ADDR", ":3000"),
		PostgresURI:       getEnv("POSTGRES_URI", ""),
		RedisURI:          getEnv("REDIS_URI", "localhost:6379"),
		FrontendURL:       getEnv("FRONTEND_URL", "http://localhost:5173"),
		SecretKey:         getEnv("SECRET_KEY", ""),
		CookieName:        getEnv("COOKIE_NAME", "postgate_session"),
		WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 10),
		ReconcileInterval: getEnvDuration("RECONCILE_INTERVAL", 10*time.Minute),
		ReconcileGrace:    getEnvDuration("RECONCILE_GRACE", 15*time.Minute),
		Meta: Meta{
			GraphBaseURL:                 getEnv("GRAPH_API_BASE_URL", "https://graph.facebook.com/v22.0"),
			FacebookPublishWithPageToken: getEnvBool("FACEBOOK_PUBLISH_WITH_PAGE_TOKEN", false),
			HTTPTimeout:                  getEnvDuration("HTTP_TIMEOUT", 30*time.Second),
		},
		Publish: Publish{
			MaxAttempts:    getEnvInt("PUBLISH_MAX_ATTEMPTS", 3),
			InitialBackoff: getEnvDuration("PUBLISH_BACKOFF_INITIAL", 500*time.Millisecond),
		},
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
			PublicURL:  getEnv("R2_PUBLIC_URL", ""),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}
