package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
)

type command func(a *App, ctx context.Context, args []string) error

var commands = map[string]command{
	"init":     (*App).Init,
	"whoami":   (*App).WhoAmI,
	"ping":     (*App).Ping,
	"time":     (*App).ServerTime,
	"keys":     (*App).Keys,
	"express":  (*App).Express,
	"transfer": (*App).Transfer,
	"own":      (*App).Own,
	"history":  (*App).History,
	"verify":   (*App).Verify,
}

const usage = `Usage: agent [flags] <command> [args]

Commands:
  init                                   create and seal a new agent key
  whoami                                 print the agent public key
  ping                                   check the server is reachable
  time                                   show server time and local drift
  keys                                   show the server key document
  express <type> <payload-json>          record an expression
  transfer <to> <payload-json> [vis]     transfer to another wallet
  own [summary|full|history]             show the agent wallet
  own lookup <public_key> [query]        show another wallet
  own set-signature <expression_id>      set the signature expression
  history [limit]                        list journaled receipts
  verify [record_id]                     re-check journaled receipts
  shell                                  run commands interactively`

// Execute runs one command. "shell" reads further commands from the app
// input until EOF or exit.
func (a *App) Execute(ctx context.Context, args []string) error {
	if len(args) == 0 || args[0] == "help" {
		_, err := fmt.Fprintln(a.out, usage)
		return err
	}
	if args[0] == "shell" {
		runREPL(ctx, a.exec, bufio.NewScanner(a.reader))
		return nil
	}
	return a.exec(ctx, args)
}

func (a *App) exec(ctx context.Context, args []string) error {
	cmd, ok := commands[args[0]]
	if !ok {
		return fmt.Errorf("%w: unknown command %q", ErrUsage, args[0])
	}
	return cmd(a, ctx, args[1:])
}

// Run executes args and reports the outcome as a process exit code.
func (a *App) Run(ctx context.Context, args []string) int {
	defer a.Close()
	if err := a.Execute(ctx, args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}
