package config

import "github.com/dmitrijs2005/zeroledger/internal/flagx"

// parseEnv overlays secrets and deployment addresses that are usually
// injected by the environment rather than written into files.
func parseEnv(config *Config) {
	flagx.StringFromEnv(&config.DatabaseDSN, "DATABASE_URL", "DATABASE_DSN")
	flagx.StringFromEnv(&config.ServerPrivateKeyHex, "SERVER_PRIVATE_KEY_HEX")
	flagx.StringFromEnv(&config.RedisAddr, "REDIS_ADDR")
	flagx.StringFromEnv(&config.S3RootUser, "S3_ROOT_USER")
	flagx.StringFromEnv(&config.S3RootPassword, "S3_ROOT_PASSWORD")
}
