package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/zeroledger/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   gRPC bind address (e.g., ":50051")
//	-w string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-k string   server Ed25519 private key, 64 hex chars
//	-i string   server key id
//	-z string   public base URL used in render links
//	-l string   log format: json, text or zap
//	-t int      timestamp tolerance, seconds
//	-n int      nonce retention, seconds
//	-o int      store call timeout, seconds
//	-x int      index assignment attempts
//	-m string   rate limit backend: memory or redis
//	-r string   redis address
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name (empty disables glyph publishing)
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-a", "-w", "-d", "-k", "-i", "-z", "-l", "-t", "-n", "-o", "-x", "-m", "-r",
		"-u", "-p", "-b", "-g", "-e",
	})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "gRPC address and port")
	fs.StringVar(&config.EndpointAddrHTTP, "w", config.EndpointAddrHTTP, "HTTP address and port")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.ServerPrivateKeyHex, "k", config.ServerPrivateKeyHex, "server private key (hex)")
	fs.StringVar(&config.KeyID, "i", config.KeyID, "server key id")
	fs.StringVar(&config.PublicBaseURL, "z", config.PublicBaseURL, "public base URL")
	fs.StringVar(&config.LogFormat, "l", config.LogFormat, "log format")

	tolerance := fs.Int("t", int(config.TimestampTolerance.Seconds()), "timestamp tolerance (in seconds)")
	retention := fs.Int("n", int(config.NonceRetention.Seconds()), "nonce retention (in seconds)")
	storeTimeout := fs.Int("o", int(config.StoreTimeout.Seconds()), "store call timeout (in seconds)")
	fs.IntVar(&config.IndexRetryAttempts, "x", config.IndexRetryAttempts, "index assignment attempts")

	fs.StringVar(&config.RateLimitBackend, "m", config.RateLimitBackend, "rate limit backend")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "redis address")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.TimestampTolerance = time.Duration(*tolerance) * time.Second
	config.NonceRetention = time.Duration(*retention) * time.Second
	config.StoreTimeout = time.Duration(*storeTimeout) * time.Second
}
