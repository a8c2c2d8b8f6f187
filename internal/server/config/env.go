package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dmitrijs2005/demoauth/internal/flagx"
	"github.com/joho/godotenv"
)

// Environment variable names. Durations use Go syntax ("15m", "120h").
const (
	envGRPCAddr       = "DEMOAUTH_GRPC_ADDR"
	envHTTPAddr       = "DEMOAUTH_HTTP_ADDR"
	envDBDriver       = "DEMOAUTH_DB_DRIVER"
	envDBDSN          = "DEMOAUTH_DB_DSN"
	envSigningKey     = "DEMOAUTH_JWT_SIGNING_KEY"
	envSigningMethod  = "DEMOAUTH_JWT_SIGNING_METHOD"
	envIssuer         = "DEMOAUTH_JWT_ISSUER"
	envAudience       = "DEMOAUTH_JWT_AUDIENCE"
	envAccessTTL      = "DEMOAUTH_ACCESS_TOKEN_TTL"
	envRefreshTTL     = "DEMOAUTH_REFRESH_TOKEN_TTL"
	envRedisURL       = "DEMOAUTH_REDIS_URL"
	envLogLevel       = "DEMOAUTH_LOG_LEVEL"
	envAllowedOrigins = "DEMOAUTH_ALLOWED_ORIGINS"
	envSecureCookies  = "DEMOAUTH_SECURE_COOKIES"
)

// loadDotenv is a seam for tests.
var loadDotenv = godotenv.Load

// parseEnv loads an optional dotenv file (given with -env, or ./.env when
// present) into the process environment and overlays every DEMOAUTH_*
// variable that is set. Variables already present in the environment win
// over the file.
func parseEnv(config *Config) error {
	if path := flagx.EnvFileFlags(); path != "" {
		if err := loadDotenv(path); err != nil {
			return fmt.Errorf("load env file %s: %w", path, err)
		}
	} else {
		_ = loadDotenv()
	}

	setString(&config.EndpointAddrGRPC, envGRPCAddr)
	setString(&config.EndpointAddrHTTP, envHTTPAddr)
	setString(&config.DatabaseDriver, envDBDriver)
	setString(&config.DatabaseDSN, envDBDSN)
	setString(&config.SecretKey, envSigningKey)
	setString(&config.SigningMethod, envSigningMethod)
	setString(&config.Issuer, envIssuer)
	setString(&config.Audience, envAudience)
	setString(&config.RedisURL, envRedisURL)
	setString(&config.LogLevel, envLogLevel)

	if v, ok := os.LookupEnv(envAllowedOrigins); ok {
		config.AllowedOrigins = splitList(v)
	}
	if err := setDuration(&config.AccessTokenValidityDuration, envAccessTTL); err != nil {
		return err
	}
	if err := setDuration(&config.RefreshTokenValidityDuration, envRefreshTTL); err != nil {
		return err
	}
	if v, ok := os.LookupEnv(envSecureCookies); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", envSecureCookies, err)
		}
		config.SecureCookies = b
	}
	return nil
}

func setString(dst *string, name string) {
	if v, ok := os.LookupEnv(name); ok && v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, name string) error {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	*dst = d
	return nil
}
