package config

import (
	"fmt"
	"path/filepath"
	"time"
)

// Transports.
const (
	TransportHTTP = "http"
	TransportGRPC = "grpc"
)

// DataDir is where the key file and journal live by default, relative to
// the working directory.
const DataDir = ".zeroledger"

type Config struct {
	ServerURL      string
	GRPCAddr       string
	Transport      string
	KeyFile        string
	JournalPath    string
	RequestTimeout time.Duration

	// Passphrase is only taken from the environment. When empty the agent
	// prompts on the terminal.
	Passphrase string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.GRPCAddr = "127.0.0.1:50051"
	c.Transport = TransportHTTP
	c.KeyFile = filepath.Join(DataDir, "agent_key.json")
	c.JournalPath = filepath.Join(DataDir, "journal.db")
	c.RequestTimeout = 10 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays JSON, the
// environment and flags. Later sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}

func (c *Config) Validate() error {
	switch c.Transport {
	case TransportHTTP, TransportGRPC:
	default:
		return fmt.Errorf("unknown transport %q", c.Transport)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive")
	}
	return nil
}
