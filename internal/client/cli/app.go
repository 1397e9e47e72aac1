package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/zeroledger/internal/client/client"
	"github.com/dmitrijs2005/zeroledger/internal/client/config"
	"github.com/dmitrijs2005/zeroledger/internal/client/journal"
	"github.com/dmitrijs2005/zeroledger/internal/client/keystore"
	"github.com/dmitrijs2005/zeroledger/internal/common"
	"github.com/dmitrijs2005/zeroledger/internal/filex"
)

var ErrUsage = errors.New("usage")

type App struct {
	config *config.Config
	reader *bufio.Reader
	out    io.Writer
	hc     *http.Client

	signer  *client.Signer
	client  client.Client
	journal *journal.Journal
}

func NewApp(c *config.Config, in io.Reader, out io.Writer) *App {
	return &App{
		config: c,
		reader: bufio.NewReader(in),
		out:    out,
		hc:     &http.Client{Timeout: c.RequestTimeout},
	}
}

// Close releases the connection and the journal and wipes the seed.
func (a *App) Close() error {
	var errs []error
	if a.client != nil {
		errs = append(errs, a.client.Close())
	}
	if a.journal != nil {
		errs = append(errs, a.journal.Close())
	}
	if a.signer != nil {
		a.signer.Wipe()
	}
	return errors.Join(errs...)
}

// passphrase returns the configured passphrase or prompts for one.
func (a *App) passphrase() ([]byte, error) {
	if a.config.Passphrase != "" {
		return []byte(a.config.Passphrase), nil
	}
	return GetPassword(a.out, "Passphrase: ")
}

// unlock opens the key file once per process.
func (a *App) unlock() (*client.Signer, error) {
	if a.signer != nil {
		return a.signer, nil
	}
	kf, err := keystore.Load(a.config.KeyFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("no key file at %s, run init first", a.config.KeyFile)
		}
		return nil, err
	}
	pass, err := a.passphrase()
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(pass)

	seed, err := kf.Open(pass)
	if err != nil {
		return nil, err
	}
	defer common.WipeByteArray(seed)

	s, err := client.NewSigner(seed)
	if err != nil {
		return nil, err
	}
	a.signer = s
	return s, nil
}

// connect dials the configured transport.
func (a *App) connect() (client.Client, error) {
	if a.client != nil {
		return a.client, nil
	}
	s, err := a.unlock()
	if err != nil {
		return nil, err
	}

	switch a.config.Transport {
	case config.TransportGRPC:
		c, err := client.NewGRPCClient(a.config.GRPCAddr, s)
		if err != nil {
			return nil, err
		}
		a.client = c
	default:
		a.client = client.NewHTTPClient(a.config.ServerURL, a.config.RequestTimeout, s)
	}
	return a.client, nil
}

func (a *App) openJournal(ctx context.Context) (*journal.Journal, error) {
	if a.journal != nil {
		return a.journal, nil
	}
	if _, err := filex.EnsureDir(filepath.Dir(a.config.JournalPath)); err != nil {
		return nil, err
	}
	j, err := journal.Open(ctx, a.config.JournalPath)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	a.journal = j
	return j, nil
}

// call runs one tool call with the configured request timeout.
func (a *App) call(ctx context.Context, tool string, params map[string]any) (map[string]any, error) {
	c, err := a.connect()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, a.config.RequestTimeout)
	defer cancel()
	return c.Call(ctx, tool, params)
}

func (a *App) printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.out, string(b))
	return err
}

// parseObject decodes a JSON object argument, keeping numbers exact.
func parseObject(name, s string) (map[string]any, error) {
	var m map[string]any
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	if err := dec.Decode(&m); err != nil || m == nil {
		return nil, fmt.Errorf("%s must be a JSON object", name)
	}
	return m, nil
}
