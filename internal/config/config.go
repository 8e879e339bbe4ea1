package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"violet-sync/internal/salesforce"
)

type Config struct {
	Port string

	// RetellAPIKey signs inbound webhooks. Empty disables signature
	// verification (logged as a warning at startup).
	RetellAPIKey string

	SlackWebhookURL string

	// DeadLetterFile is the jsonl log path; DeadLetterDSN, when set, selects
	// the Postgres-backed store instead.
	DeadLetterFile string
	DeadLetterDSN  string

	Salesforce salesforce.Config
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	deadLetterFile := os.Getenv("DEAD_LETTER_FILE")
	if deadLetterFile == "" {
		deadLetterFile = "dead_letter.jsonl"
	}

	return &Config{
		Port:            port,
		RetellAPIKey:    os.Getenv("RETELL_API_KEY"),
		SlackWebhookURL: os.Getenv("SLACK_WEBHOOK_URL"),
		DeadLetterFile:  deadLetterFile,
		DeadLetterDSN:   os.Getenv("DEAD_LETTER_DSN"),
		Salesforce: salesforce.Config{
			AccessToken:        os.Getenv("SF_ACCESS_TOKEN"),
			InstanceURL:        os.Getenv("SF_INSTANCE_URL"),
			ConnectorsHostname: os.Getenv("REPLIT_CONNECTORS_HOSTNAME"),
			ReplIdentity:       os.Getenv("REPL_IDENTITY"),
			WebReplRenewal:     os.Getenv("WEB_REPL_RENEWAL"),
			ClientID:           os.Getenv("SF_CLIENT_ID"),
			ClientSecret:       os.Getenv("SF_CLIENT_SECRET"),
			RefreshToken:       os.Getenv("SF_REFRESH_TOKEN"),
			Username:           os.Getenv("SF_USERNAME"),
			Password:           os.Getenv("SF_PASSWORD"),
			SecurityToken:      os.Getenv("SF_SECURITY_TOKEN"),
			LoginURL:           os.Getenv("SF_LOGIN_URL"),
			RequestTimeout:     envSeconds("SF_REQUEST_TIMEOUT", 30),
			TokenCacheTTL:      envSeconds("SF_TOKEN_CACHE_TTL", 1800),
		},
	}
}

func envSeconds(key string, def int) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
		log.Printf("Warning: invalid %s=%q, using default %ds", key, v, def)
	}
	return time.Duration(def) * time.Second
}
