package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// parseEnv overlays Config fields from environment variables, loading a
// .env file first when present.
//
// Recognized variables:
//
//	ADDRESS               HTTP bind address
//	DATABASE_DSN          PostgreSQL DSN
//	SESSION_SECRET        session HMAC secret
//	SESSION_TTL_HOURS     session validity, hours
//	BCRYPT_COST           bcrypt work factor
//	SUPER_ADMIN_PASSWORD  super-admin shared secret
//	REDIS_URL             rate-limit store (optional, absence = fail open)
//	MAIL_ENDPOINT         provider send endpoint
//	MAIL_API_KEY          provider API key (optional, absence = no sends)
//	MAIL_FROM             sender address
//	OPERATOR_EMAIL        fixed inbox for reset notices
//	ENVIRONMENT           "production" turns on secure cookies
func parseEnv(c *Config) {
	_ = godotenv.Load()

	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	setString("ADDRESS", &c.EndpointAddr)
	setString("DATABASE_DSN", &c.DatabaseDSN)
	setString("SESSION_SECRET", &c.SessionSecret)
	setString("SUPER_ADMIN_PASSWORD", &c.SuperAdminSecret)
	setString("REDIS_URL", &c.RedisURL)
	setString("MAIL_ENDPOINT", &c.MailEndpoint)
	setString("MAIL_API_KEY", &c.MailAPIKey)
	setString("MAIL_FROM", &c.MailFrom)
	setString("OPERATOR_EMAIL", &c.OperatorEmail)

	if v := os.Getenv("SESSION_TTL_HOURS"); v != "" {
		if hours, err := strconv.Atoi(v); err == nil && hours > 0 {
			c.SessionTTL = time.Duration(hours) * time.Hour
		}
	}
	if v := os.Getenv("BCRYPT_COST"); v != "" {
		if cost, err := strconv.Atoi(v); err == nil {
			c.BcryptCost = cost
		}
	}

	c.Production = os.Getenv("ENVIRONMENT") == "production"
}
