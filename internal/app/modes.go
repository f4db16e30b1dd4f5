package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"golang.org/x/sync/errgroup"

	"github.com/gameverse/tradecore/internal/chain"
	"github.com/gameverse/tradecore/internal/crypto"
	"github.com/gameverse/tradecore/internal/domain"
	"github.com/gameverse/tradecore/internal/feed"
	"github.com/gameverse/tradecore/internal/platform/polymarket"
	"github.com/gameverse/tradecore/internal/server"
	"github.com/gameverse/tradecore/internal/server/handler"
	"github.com/gameverse/tradecore/internal/service"
	"github.com/gameverse/tradecore/internal/session"
)

// core holds the domain services shared by every operating mode.
type core struct {
	orchestrator *session.Orchestrator
	trades       *service.TradeService
	prices       *service.PriceService
	bookFeed     *feed.BookFeed // nil when the websocket feed is disabled
	close        func()
}

// buildCore constructs the signer, on-chain approvals, session orchestrator,
// and trading/pricing services from configuration and wired dependencies.
func (a *App) buildCore(ctx context.Context, deps *Dependencies) (*core, error) {
	keyHex, err := crypto.ResolveKey(crypto.KeySource{
		RawPrivateKey:    a.cfg.Wallet.PrivateKey,
		EncryptedKeyPath: a.cfg.Wallet.EncryptedKeyPath,
		KeyPassword:      a.cfg.Wallet.KeyPassword,
	})
	if err != nil {
		return nil, err
	}

	chainID := int64(a.cfg.Polymarket.ChainID)
	signer, err := crypto.NewSigner(keyHex, chainID)
	if err != nil {
		return nil, err
	}

	ethClient, err := ethclient.DialContext(ctx, a.cfg.Chain.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial chain rpc: %w", err)
	}

	contracts := chain.PolygonMainnet()
	approvals, err := chain.NewApprovals(ethClient, contracts, signer.PrivateKey(), chainID, a.logger)
	if err != nil {
		ethClient.Close()
		return nil, err
	}

	var deriver session.SafeDeriver
	if a.cfg.Wallet.SafeAddress != "" {
		deriver = session.StaticDeriver{
			Address: common.HexToAddress(a.cfg.Wallet.SafeAddress),
			Checker: approvals,
		}
	} else {
		deriver = session.PassthroughDeriver{Checker: approvals}
	}

	builder := a.buildBuilderSigner()

	credsClient := polymarket.NewClobClient(a.cfg.Polymarket.ClobHost, signer)

	factory := func(creds domain.APICredentials) session.TradingClient {
		client := polymarket.NewClobClient(a.cfg.Polymarket.ClobHost, signer).WithCredentials(creds)
		if builder != nil {
			client = client.WithBuilder(builder)
		}
		return client
	}

	orch := session.New(session.Config{
		Signer:    signer,
		Deriver:   deriver,
		Creds:     credsClient,
		CredCache: deps.CredCache,
		Approvals: approvals,
		Sessions:  deps.SessionCache,
		Factory:   factory,
		Logger:    a.logger,
	})

	gamma := polymarket.NewGammaClient(a.cfg.Polymarket.GammaHost)

	trades := service.NewTradeService(
		orch, signer, contracts, gamma,
		deps.OrderStore, deps.AuditStore, deps.RateLimiter, deps.Notifier,
		a.logger,
	)

	prices := service.NewPriceService(credsClient, deps.BookCache, a.cfg.Feed.Tokens, a.logger)

	var bookFeed *feed.BookFeed
	if a.cfg.Feed.WebsocketEnabled {
		bookFeed = feed.NewBookFeed(a.cfg.Polymarket.WsHost, a.cfg.Feed.Tokens, deps.BookCache, a.logger)
	}

	return &core{
		orchestrator: orch,
		trades:       trades,
		prices:       prices,
		bookFeed:     bookFeed,
		close:        ethClient.Close,
	}, nil
}

// buildBuilderSigner returns the configured builder signer, or nil when the
// builder program is not in use.
func (a *App) buildBuilderSigner() polymarket.BuilderSigner {
	b := a.cfg.Builder
	if b.Endpoint != "" {
		return polymarket.NewBuilderClient(b.Endpoint, b.GatewayToken)
	}
	if b.APIKey != "" && b.APISecret != "" && b.APIPassphrase != "" {
		return polymarket.NewLocalBuilderSigner(domain.APICredentials{
			Key:        b.APIKey,
			Secret:     b.APISecret,
			Passphrase: b.APIPassphrase,
		})
	}
	return nil
}

// ServerMode runs the HTTP API plus the book polling and streaming
// goroutines. The trading session is driven through the API.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies, c *core) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startFeeds(ctx, g, c)
	a.startServer(ctx, g, deps, c)
	return g.Wait()
}

// TradeMode initializes the trading session at startup and keeps the book
// feeds running. There is no HTTP surface.
func (a *App) TradeMode(ctx context.Context, deps *Dependencies, c *core) error {
	a.logger.InfoContext(ctx, "starting trade mode")

	if err := a.startSession(ctx, c); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	a.startFeeds(ctx, g, c)
	a.startArchiver(ctx, g, deps)
	return g.Wait()
}

// FullMode runs everything: session auto-init, HTTP API, book feeds, and
// the archival loop.
func (a *App) FullMode(ctx context.Context, deps *Dependencies, c *core) error {
	a.logger.InfoContext(ctx, "starting full mode")

	// Best effort: a failed auto-init leaves the machine in the error
	// state, recoverable through POST /api/session/init.
	if err := a.startSession(ctx, c); err != nil {
		a.logger.WarnContext(ctx, "session auto-init failed",
			slog.String("error", err.Error()),
		)
	}

	g, ctx := errgroup.WithContext(ctx)
	a.startFeeds(ctx, g, c)
	a.startServer(ctx, g, deps, c)
	a.startArchiver(ctx, g, deps)
	return g.Wait()
}

// startSession resumes a persisted session when possible and otherwise runs
// a fresh initialization.
func (a *App) startSession(ctx context.Context, c *core) error {
	if err := c.orchestrator.Resume(ctx); err != nil {
		return err
	}
	if c.orchestrator.Step() == domain.StepReady {
		return nil
	}
	return c.orchestrator.Initialize(ctx)
}

// startFeeds launches the REST book poller and, when enabled, the websocket
// stream.
func (a *App) startFeeds(ctx context.Context, g *errgroup.Group, c *core) {
	g.Go(func() error {
		return c.prices.Run(ctx)
	})
	if c.bookFeed != nil {
		g.Go(func() error {
			return c.bookFeed.Run(ctx)
		})
	}
}

// startServer launches the HTTP API with graceful shutdown tied to ctx.
func (a *App) startServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, c *core) {
	checks := map[string]handler.HealthChecker{
		"redis": healthFunc(deps.Redis.Ping),
	}
	if deps.Postgres != nil {
		pool := deps.Postgres.Pool()
		checks["postgres"] = healthFunc(pool.Ping)
	}
	if deps.S3 != nil {
		checks["s3"] = healthFunc(deps.S3.Health)
	}

	srv := server.New(
		server.Config{
			Port:        a.cfg.Server.Port,
			CORSOrigins: a.cfg.Server.CORSOrigins,
			APIToken:    a.cfg.Server.APIToken,
		},
		server.Handlers{
			Health:  handler.NewHealthHandler(checks),
			Quote:   handler.NewQuoteHandler(c.prices),
			Session: handler.NewSessionHandler(c.orchestrator),
			Orders:  handler.NewOrderHandler(c.trades, deps.OrderStore),
		},
		deps.RateLimiter,
		a.logger,
	)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}

// startArchiver launches the periodic cold-storage archival loop when both
// the archiver and a retention policy are configured.
func (a *App) startArchiver(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	if deps.Archiver == nil || a.cfg.Archive.Interval.Duration <= 0 {
		return
	}

	retention := time.Duration(a.cfg.Archive.RetentionDays) * 24 * time.Hour
	g.Go(func() error {
		ticker := time.NewTicker(a.cfg.Archive.Interval.Duration)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				report, err := deps.Archiver.ArchiveBefore(ctx, time.Now().Add(-retention))
				if err != nil {
					a.logger.WarnContext(ctx, "archive run failed",
						slog.String("error", err.Error()),
					)
					continue
				}
				if report.Orders > 0 || report.AuditRecords > 0 {
					a.logger.InfoContext(ctx, "archive run",
						slog.Int("orders", report.Orders),
						slog.Int("audit_records", report.AuditRecords),
					)
				}
			}
		}
	})
}

// healthFunc adapts a plain ping function to handler.HealthChecker.
type healthFunc func(ctx context.Context) error

func (f healthFunc) Health(ctx context.Context) error { return f(ctx) }
