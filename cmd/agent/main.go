package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/zeroledger/internal/client/cli"
	"github.com/dmitrijs2005/zeroledger/internal/client/config"
	"github.com/dmitrijs2005/zeroledger/internal/flagx"
)

func main() {

	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.NewApp(cfg, os.Stdin, os.Stdout).Run(ctx, flagx.Positional(os.Args[1:], config.ValueFlags))
	stop()

	os.Exit(code)
}
