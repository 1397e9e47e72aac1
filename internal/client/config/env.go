package config

import "github.com/dmitrijs2005/zeroledger/internal/flagx"

func parseEnv(cfg *Config) {
	flagx.StringFromEnv(&cfg.ServerURL, "ZEROLEDGER_SERVER_URL")
	flagx.StringFromEnv(&cfg.GRPCAddr, "ZEROLEDGER_GRPC_ADDR")
	flagx.StringFromEnv(&cfg.Passphrase, "ZEROLEDGER_PASSPHRASE")
}
