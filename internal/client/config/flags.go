package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/zeroledger/internal/flagx"
)

// ValueFlags lists every flag that takes a value, -c/-config included.
// The CLI uses it to find its positional arguments.
var ValueFlags = []string{"-s", "-a", "-t", "-k", "-j", "-r", "-c", "-config"}

// parseFlags populates selected Config fields from command-line flags.
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with subcommand arguments.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-s", "-a", "-t", "-k", "-j", "-r"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerURL, "s", cfg.ServerURL, "HTTP endpoint base URL")
	fs.StringVar(&cfg.GRPCAddr, "a", cfg.GRPCAddr, "gRPC address and port")
	fs.StringVar(&cfg.Transport, "t", cfg.Transport, "transport: http or grpc")
	fs.StringVar(&cfg.KeyFile, "k", cfg.KeyFile, "sealed key file")
	fs.StringVar(&cfg.JournalPath, "j", cfg.JournalPath, "receipt journal path")
	timeout := fs.Int("r", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.RequestTimeout = time.Duration(*timeout) * time.Second
}
