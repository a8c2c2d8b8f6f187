package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/demoauth/internal/flagx"
	"github.com/dmitrijs2005/demoauth/internal/timex"
)

// JsonConfig is the on-disk shape of the optional JSON config file. Durations
// accept "15m"-style strings or integer nanoseconds.
type JsonConfig struct {
	EndpointAddrGRPC             string         `json:"endpoint_addr_grpc"`
	EndpointAddrHTTP             string         `json:"endpoint_addr_http"`
	DatabaseDriver               string         `json:"database_driver"`
	DatabaseDSN                  string         `json:"database_dsn"`
	SecretKey                    string         `json:"secret_key"`
	SigningMethod                string         `json:"signing_method"`
	Issuer                       string         `json:"issuer"`
	Audience                     string         `json:"audience"`
	AccessTokenValidityDuration  timex.Duration `json:"access_token_validity_duration"`
	RefreshTokenValidityDuration timex.Duration `json:"refresh_token_validity_duration"`
	RedisURL                     string         `json:"redis_url"`
	LogLevel                     string         `json:"log_level"`
	AllowedOrigins               []string       `json:"allowed_origins"`
	SecureCookies                *bool          `json:"secure_cookies"`
}

// parseJson overlays values from the file named by -c/-config onto config.
// Absent or empty fields leave the current value alone. An unreadable file or
// invalid JSON panics, the same as a bad flag.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	overlay(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	overlay(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	overlay(&config.DatabaseDriver, c.DatabaseDriver)
	overlay(&config.DatabaseDSN, c.DatabaseDSN)
	overlay(&config.SecretKey, c.SecretKey)
	overlay(&config.SigningMethod, c.SigningMethod)
	overlay(&config.Issuer, c.Issuer)
	overlay(&config.Audience, c.Audience)
	overlay(&config.RedisURL, c.RedisURL)
	overlay(&config.LogLevel, c.LogLevel)
	if c.AccessTokenValidityDuration.Duration != 0 {
		config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	}
	if c.RefreshTokenValidityDuration.Duration != 0 {
		config.RefreshTokenValidityDuration = c.RefreshTokenValidityDuration.Duration
	}
	if c.AllowedOrigins != nil {
		config.AllowedOrigins = c.AllowedOrigins
	}
	if c.SecureCookies != nil {
		config.SecureCookies = *c.SecureCookies
	}
}

func overlay(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
