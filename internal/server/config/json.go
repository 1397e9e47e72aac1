package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/zeroledger/internal/flagx"
	"github.com/dmitrijs2005/zeroledger/internal/timex"
)

// JsonConfig mirrors Config for JSON files. Durations accept "90s" style
// strings or integer nanoseconds. Only keys present in the file override the
// current values.
type JsonConfig struct {
	EndpointAddrGRPC    *string         `json:"endpoint_addr_grpc"`
	EndpointAddrHTTP    *string         `json:"endpoint_addr_http"`
	DatabaseDSN         *string         `json:"database_dsn"`
	PublicBaseURL       *string         `json:"public_base_url"`
	LogFormat           *string         `json:"log_format"`
	ServerPrivateKeyHex *string         `json:"server_private_key_hex"`
	KeyID               *string         `json:"key_id"`
	KeyCreatedAt        *string         `json:"key_created_at"`
	KeyExpiresAt        *string         `json:"key_expires_at"`
	PrevKeyID           *string         `json:"prev_key_id"`
	TimestampTolerance  *timex.Duration `json:"timestamp_tolerance"`
	NonceRetention      *timex.Duration `json:"nonce_retention"`
	NonceSweepInterval  *timex.Duration `json:"nonce_sweep_interval"`
	StoreTimeout        *timex.Duration `json:"store_timeout"`
	IndexRetryAttempts  *int            `json:"index_retry_attempts"`
	RateLimitBackend    *string         `json:"rate_limit_backend"`
	RateLimitWindow     *timex.Duration `json:"rate_limit_window"`
	RateLimits          map[string]int  `json:"rate_limits"`
	RedisAddr           *string         `json:"redis_addr"`
	S3RootUser          *string         `json:"s3_root_user"`
	S3RootPassword      *string         `json:"s3_root_password"`
	S3Bucket            *string         `json:"s3_bucket"`
	S3Region            *string         `json:"s3_region"`
	S3BaseEndpoint      *string         `json:"s3_base_endpoint"`
}

// parseJson loads the file named by -c/-config, if any, and overlays it on
// config. An unreadable file or invalid JSON panics: the server must not
// start on a half-read configuration.
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

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.PublicBaseURL, c.PublicBaseURL)
	setString(&config.LogFormat, c.LogFormat)
	setString(&config.ServerPrivateKeyHex, c.ServerPrivateKeyHex)
	setString(&config.KeyID, c.KeyID)
	setString(&config.KeyCreatedAt, c.KeyCreatedAt)
	setString(&config.KeyExpiresAt, c.KeyExpiresAt)
	setString(&config.PrevKeyID, c.PrevKeyID)
	setString(&config.RateLimitBackend, c.RateLimitBackend)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)

	if c.TimestampTolerance != nil {
		config.TimestampTolerance = c.TimestampTolerance.Duration
	}
	if c.NonceRetention != nil {
		config.NonceRetention = c.NonceRetention.Duration
	}
	if c.NonceSweepInterval != nil {
		config.NonceSweepInterval = c.NonceSweepInterval.Duration
	}
	if c.StoreTimeout != nil {
		config.StoreTimeout = c.StoreTimeout.Duration
	}
	if c.RateLimitWindow != nil {
		config.RateLimitWindow = c.RateLimitWindow.Duration
	}
	if c.IndexRetryAttempts != nil {
		config.IndexRetryAttempts = *c.IndexRetryAttempts
	}
	if c.RateLimits != nil {
		config.RateLimits = c.RateLimits
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
