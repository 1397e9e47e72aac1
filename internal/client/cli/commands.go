package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/zeroledger/internal/client/client"
	"github.com/dmitrijs2005/zeroledger/internal/client/journal"
	"github.com/dmitrijs2005/zeroledger/internal/client/keystore"
	"github.com/dmitrijs2005/zeroledger/internal/common"
	"github.com/dmitrijs2005/zeroledger/internal/cryptox"
	"github.com/dmitrijs2005/zeroledger/internal/timex"
)

// ErrVerifyFailed is returned when at least one stored receipt does not
// verify.
var ErrVerifyFailed = errors.New("receipt verification failed")

// Init generates a new agent key and writes it sealed to the key file.
func (a *App) Init(ctx context.Context, _ []string) error {
	seed, pub, err := cryptox.GenerateKey()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(seed)

	var pass []byte
	if a.config.Passphrase != "" {
		pass = []byte(a.config.Passphrase)
	} else if pass, err = GetNewPassword(a.out); err != nil {
		return err
	}
	defer common.WipeByteArray(pass)

	if _, err := keystore.Create(a.config.KeyFile, seed, pass); err != nil {
		return err
	}
	return a.printJSON(map[string]string{
		"public_key": cryptox.EncodeHex(pub),
		"key_file":   a.config.KeyFile,
	})
}

// WhoAmI prints the agent public key without unsealing the seed.
func (a *App) WhoAmI(_ context.Context, _ []string) error {
	kf, err := keystore.Load(a.config.KeyFile)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.out, kf.PublicKey)
	return err
}

func (a *App) Ping(ctx context.Context, _ []string) error {
	c, err := a.connect()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, a.config.RequestTimeout)
	defer cancel()
	if err := c.Ping(ctx); err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.out, "OK")
	return err
}

// ServerTime prints the server clock and the local drift from it.
func (a *App) ServerTime(ctx context.Context, _ []string) error {
	before := time.Now()
	server, err := client.FetchServerTime(ctx, a.hc, a.config.ServerURL)
	if err != nil {
		return err
	}
	local := before.Add(time.Since(before) / 2)
	return a.printJSON(map[string]any{
		"server_time": timex.FormatISO(server),
		"local_time":  timex.FormatISO(local),
		"drift_ms":    local.Sub(server).Milliseconds(),
	})
}

func (a *App) Keys(ctx context.Context, _ []string) error {
	doc, err := client.FetchKeyDocument(ctx, a.hc, a.config.ServerURL)
	if err != nil {
		return err
	}
	return a.printJSON(doc)
}

// Express: express <expression_type> <payload-json>
func (a *App) Express(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: express <expression_type> <payload-json>", ErrUsage)
	}
	payload, err := parseObject("payload", args[1])
	if err != nil {
		return err
	}

	out, err := a.call(ctx, "express", map[string]any{
		"expression_type": args[0],
		"payload":         payload,
	})
	if err != nil {
		return err
	}
	if err := a.journalRecord(ctx, journal.KindExpression, out); err != nil {
		return err
	}
	return a.printJSON(out)
}

// Transfer: transfer <to> <payload-json> [public|metadata_only]
func (a *App) Transfer(ctx context.Context, args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return fmt.Errorf("%w: transfer <to> <payload-json> [visibility]", ErrUsage)
	}
	payload, err := parseObject("payload", args[1])
	if err != nil {
		return err
	}
	params := map[string]any{"to": args[0], "payload": payload}
	if len(args) == 3 {
		params["visibility"] = args[2]
	}

	out, err := a.call(ctx, "transfer", params)
	if err != nil {
		return err
	}
	if err := a.journalRecord(ctx, journal.KindTransfer, out); err != nil {
		return err
	}
	return a.printJSON(out)
}

// Own:
//
//	own [summary|full|history]
//	own lookup <public_key> [summary|full|history]
//	own set-signature <expression_id>
func (a *App) Own(ctx context.Context, args []string) error {
	params := map[string]any{}
	switch {
	case len(args) == 0:
	case len(args) == 1 && isOwnQuery(args[0]):
		params["query"] = args[0]
	case args[0] == "lookup" && (len(args) == 2 || len(args) == 3 && isOwnQuery(args[2])):
		params["action"] = "lookup"
		params["public_key"] = args[1]
		if len(args) == 3 {
			params["query"] = args[2]
		}
	case args[0] == "set-signature" && len(args) == 2:
		params["action"] = "set_signature"
		params["expression_id"] = args[1]
	default:
		return fmt.Errorf("%w: own [summary|full|history] | own lookup <public_key> [query] | own set-signature <expression_id>", ErrUsage)
	}

	out, err := a.call(ctx, "own", params)
	if err != nil {
		return err
	}
	return a.printJSON(out)
}

func isOwnQuery(s string) bool {
	return s == "summary" || s == "full" || s == "history"
}

func (a *App) journalRecord(ctx context.Context, kind string, out map[string]any) error {
	j, err := a.openJournal(ctx)
	if err != nil {
		return err
	}
	if kind == journal.KindTransfer {
		_, err = j.RecordTransfer(ctx, out)
	} else {
		_, err = j.RecordExpression(ctx, out)
	}
	if err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	return nil
}

// History: history [limit]
func (a *App) History(ctx context.Context, args []string) error {
	limit := 20
	if len(args) == 1 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 0 {
			return fmt.Errorf("%w: history [limit]", ErrUsage)
		}
		limit = n
	}
	j, err := a.openJournal(ctx)
	if err != nil {
		return err
	}
	entries, err := j.List(ctx, limit)
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Fprintf(a.out, "%s  %-10s  %-40s  #%d\n", e.ServerTimestamp, e.Kind, e.RecordID, e.LogIndex)
	}
	return nil
}

// Verify: verify [record_id]
//
// Re-checks stored receipts against every server key seen so far, after
// remembering the one currently announced.
func (a *App) Verify(ctx context.Context, args []string) error {
	j, err := a.openJournal(ctx)
	if err != nil {
		return err
	}

	var entries []*journal.Entry
	if len(args) == 1 {
		e, err := j.Get(ctx, args[0])
		if err != nil {
			return err
		}
		entries = append(entries, e)
	} else if entries, err = j.List(ctx, 0); err != nil {
		return err
	}

	doc, err := client.FetchKeyDocument(ctx, a.hc, a.config.ServerURL)
	if err != nil {
		return err
	}
	if err := j.RememberServerKey(ctx, doc.KeyID, doc.ServerPublicKey); err != nil {
		return err
	}
	keys, err := j.ServerKeys(ctx)
	if err != nil {
		return err
	}

	failed := 0
	for _, e := range entries {
		keyID, ok := e.VerifyAny(keys)
		if !ok {
			keyID = "FAILED"
			failed++
		}
		fmt.Fprintf(a.out, "%-10s  %-10s  %s\n", keyID, e.Kind, e.RecordID)
	}
	fmt.Fprintf(a.out, "%d checked, current key %s, %d failed\n", len(entries), doc.KeyID, failed)
	if failed > 0 {
		return ErrVerifyFailed
	}
	return nil
}
