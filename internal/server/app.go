// Package server wires the ledger together: storage, signer, rate limiter,
// glyph publisher, the HTTP and gRPC transports and the background sweepers.
// It also handles graceful shutdown on SIGINT/SIGTERM.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/zeroledger/internal/dbx"
	"github.com/dmitrijs2005/zeroledger/internal/logging"
	"github.com/dmitrijs2005/zeroledger/internal/server/auth"
	"github.com/dmitrijs2005/zeroledger/internal/server/config"
	"github.com/dmitrijs2005/zeroledger/internal/server/dispatch"
	"github.com/dmitrijs2005/zeroledger/internal/server/glyph"
	"github.com/dmitrijs2005/zeroledger/internal/server/httpapi"
	"github.com/dmitrijs2005/zeroledger/internal/server/ledger"
	"github.com/dmitrijs2005/zeroledger/internal/server/ratelimit"
	"github.com/dmitrijs2005/zeroledger/internal/server/receipt"
	"github.com/dmitrijs2005/zeroledger/internal/server/repositories/memstore"
	"github.com/dmitrijs2005/zeroledger/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/zeroledger/internal/server/services"
	"github.com/redis/go-redis/v9"

	gs "github.com/dmitrijs2005/zeroledger/internal/server/grpc"
)

// MemoryDSN selects the in-process store instead of PostgreSQL.
const MemoryDSN = "memory"

const (
	retryBase            = 10 * time.Millisecond
	limiterCleanupPeriod = time.Minute
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	closers []io.Closer

	dispatcher *dispatch.Dispatcher
	query      *services.QueryService
	nonces     *services.NonceService
	limiter    ratelimit.Limiter
	keys       httpapi.KeyDocument
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger, err := logging.New(c.LogFormat, os.Stdout)
	if err != nil {
		return nil, err
	}

	pub, err := c.Validate()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	app := &App{config: c, logger: logger}

	db, repos, tx, err := app.openStore(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}

	signer, err := receipt.NewSignerFromHex(c.ServerPrivateKeyHex, nil)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("signer init error: %w", err)
	}

	publisher, err := app.newPublisher(ctx)
	if err != nil {
		app.Close()
		return nil, err
	}

	app.limiter = app.newLimiter()

	l := ledger.New(tx, repos, signer)
	app.nonces = services.NewNonceService(db, repos, c.NonceRetention, c.StoreTimeout, logger)
	app.query = services.NewQueryService(db, repos, c.PublicBaseURL, c.StoreTimeout)

	verifier := auth.NewVerifier(app.nonces, auth.WithTolerance(c.TimestampTolerance))
	app.dispatcher = dispatch.New(verifier, app.limiter, logger).RegisterServices(
		services.NewExpressService(l, publisher, c.PublicBaseURL, c.StoreTimeout, logger),
		services.NewOwnService(db, repos, c.PublicBaseURL, c.StoreTimeout),
		services.NewTransferService(l, c.StoreTimeout, logger),
	)

	app.keys = httpapi.KeyDocument{
		ServerPublicKey: signer.PublicKeyHex(),
		KeyID:           c.KeyID,
		CreatedAt:       c.KeyCreatedAt,
		ExpiresAt:       c.KeyExpiresAt,
		RotationPolicy:  httpapi.DefaultRotationPolicy(),
	}
	if c.PrevKeyID != "" {
		prev := c.PrevKeyID
		app.keys.PrevKeyID = &prev
	}

	logger.Info(ctx, "App initialized", "server_pubkey", fmt.Sprintf("%x", pub), "key_id", c.KeyID)

	return app, nil
}

// openStore connects to PostgreSQL and migrates it, or sets up the
// in-process store when the DSN is "memory".
func (app *App) openStore(ctx context.Context) (dbx.DBTX, repomanager.RepositoryManager, dbx.TxRunner, error) {
	c := app.config

	if c.DatabaseDSN == MemoryDSN {
		app.logger.Warn(ctx, "Using in-memory store, data will not survive a restart")
		store := memstore.New().WithAttempts(c.IndexRetryAttempts)
		return nil, store, store, nil
	}

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("db init error: %w", err)
	}
	app.closers = append(app.closers, db)

	pctx, cancel := context.WithTimeout(ctx, c.StoreTimeout)
	defer cancel()
	if err := db.PingContext(pctx); err != nil {
		return nil, nil, nil, fmt.Errorf("db ping error: %w", err)
	}

	repos := repomanager.NewPostgresRepositoryManager()
	if err := repos.RunMigrations(ctx, db); err != nil {
		return nil, nil, nil, fmt.Errorf("db migration error: %w", err)
	}

	tx := dbx.NewRetryingTxRunner(db, &sql.TxOptions{Isolation: sql.LevelReadCommitted}, c.IndexRetryAttempts, retryBase)
	return db, repos, tx, nil
}

func (app *App) newPublisher(ctx context.Context) (glyph.Publisher, error) {
	c := app.config
	if c.S3Bucket == "" {
		return glyph.NopPublisher{}, nil
	}
	p, err := glyph.NewS3Publisher(ctx, glyph.S3Config{
		Region:       c.S3Region,
		AccessKey:    c.S3RootUser,
		SecretKey:    c.S3RootPassword,
		Bucket:       c.S3Bucket,
		BaseEndpoint: c.S3BaseEndpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("s3 init error: %w", err)
	}
	return p, nil
}

func (app *App) newLimiter() ratelimit.Limiter {
	c := app.config
	limits := ratelimit.Limits(c.RateLimits)
	if c.RateLimitBackend == config.RateLimitRedis {
		rdb := redis.NewClient(&redis.Options{Addr: c.RedisAddr})
		app.closers = append(app.closers, rdb)
		return ratelimit.NewRedis(rdb, limits, c.RateLimitWindow)
	}
	return ratelimit.NewInMemory(limits, c.RateLimitWindow, nil)
}

// Close releases the database pool and the Redis client.
func (app *App) Close() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i].Close(); err != nil {
			app.logger.Warn(context.Background(), "close failed", "error", err)
		}
	}
	app.closers = nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.dispatcher)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := httpapi.NewHTTPServer(app.config.EndpointAddrHTTP, app.logger, app.dispatcher, app.query, app.keys)
	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

// Run blocks until a signal arrives or a transport fails, then waits for
// every worker to stop.
func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()
	defer app.Close()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	workers := []func(){
		func() { app.startGRPCServer(ctx, cancelFunc) },
		func() { app.startHTTPServer(ctx, cancelFunc) },
		func() { app.nonces.RunSweeper(ctx, app.config.NonceSweepInterval) },
	}
	if m, ok := app.limiter.(*ratelimit.InMemory); ok {
		workers = append(workers, func() { m.RunCleanup(ctx, limiterCleanupPeriod) })
	}

	for _, w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w()
		}()
	}

	wg.Wait()

	app.logger.Info(ctx, "App stopped")
}
