// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"crypto/rand"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/holomush/authd/internal/auth"
	"github.com/holomush/authd/internal/auth/postgres"
	"github.com/holomush/authd/internal/config"
	"github.com/holomush/authd/internal/logging"
	"github.com/holomush/authd/internal/observability"
	"github.com/holomush/authd/internal/store"
	"github.com/holomush/authd/internal/web"
	"github.com/holomush/authd/pkg/errutil"
)

// readinessTimeout bounds the database ping behind /healthz/readiness.
const readinessTimeout = 2 * time.Second

// serveOptions holds serve flags that are not configuration keys.
type serveOptions struct {
	migrate bool
}

// NewServeCmd creates the serve subcommand. A nil deps uses the defaults.
func NewServeCmd(root *rootOptions, deps *ServeDeps) *cobra.Command {
	opts := &serveOptions{}
	defaults := config.Default()

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the HTTP API, the expired session reaper and, unless disabled,
the metrics and health probe listener. The process stops gracefully on
SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, root)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg, opts, deps)
		},
	}

	cmd.Flags().String("env", defaults.Env, "deployment environment (production or development)")
	cmd.Flags().String("listen", defaults.Server.Addr, "HTTP listen address")
	cmd.Flags().String("metrics-addr", defaults.Metrics.Addr, "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().String("log-format", defaults.Log.Format, "log format (json or text)")
	cmd.Flags().String("log-level", defaults.Log.Level, "log level (debug, info, warn, error)")
	cmd.Flags().BoolVar(&opts.migrate, "migrate", true, "apply pending database migrations before serving")

	return cmd
}

// components is the auth stack behind the HTTP API.
type components struct {
	pool     *auth.HashPool
	sessions *auth.SessionStore
	service  *auth.Service
	resolver *auth.Resolver
	reaper   *auth.Reaper
}

// buildComponents wires the auth stack on top of db. metrics may be nil.
func buildComponents(cfg *config.Config, db Database, logger *slog.Logger, metrics *observability.Metrics) (*components, error) {
	hasher, err := auth.NewArgon2idHasher(cfg.Argon2Params())
	if err != nil {
		return nil, err
	}
	// Logins for unknown emails verify against this hash so they cost the
	// same as a wrong password.
	dummy, err := hasher.Hash(rand.Text())
	if err != nil {
		return nil, err
	}

	var poolOpts []auth.HashPoolOption
	var reaperOpts []auth.ReaperOption
	if metrics != nil {
		poolOpts = append(poolOpts, auth.WithHashObserver(metrics.ObserveHash))
		reaperOpts = append(reaperOpts, auth.WithReaperObserver(metrics.ObserveReap))
	}

	pool, err := auth.NewHashPool(hasher, cfg.Hasher.Workers, cfg.Hasher.Queue, poolOpts...)
	if err != nil {
		return nil, err
	}

	sessions, err := auth.NewSessionStore(postgres.NewSessionRepository(db), cfg.Session.InactivityTTL, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}

	service, err := auth.NewService(postgres.NewUserRepository(db), pool, logger, auth.WithDummyHash(dummy))
	if err != nil {
		pool.Close()
		return nil, err
	}

	reaper, err := auth.NewReaper(sessions, cfg.ReapInterval(), logger, reaperOpts...)
	if err != nil {
		pool.Close()
		return nil, err
	}

	return &components{
		pool:     pool,
		sessions: sessions,
		service:  service,
		resolver: auth.NewResolver(),
		reaper:   reaper,
	}, nil
}

func newLogger(cfg *config.Config, deps *ServeDeps) (*slog.Logger, error) {
	return logging.Setup(logging.Options{
		Service: "authd",
		Version: version,
		Format:  cfg.Log.Format,
		Level:   cfg.Log.Level,
	}, deps.LogOutput)
}

func connect(ctx context.Context, cfg *config.Config, deps *ServeDeps) (Database, error) {
	db, err := deps.Connect(ctx, cfg.Database.URL, store.PoolConfig{MaxConns: cfg.Database.MaxConns})
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	return db, nil
}

// runServe runs the API until ctx is cancelled or a listener fails.
func runServe(ctx context.Context, cfg *config.Config, opts *serveOptions, deps *ServeDeps) error {
	deps = deps.withDefaults()

	logger, err := newLogger(cfg, deps)
	if err != nil {
		return err
	}
	logger.Info("starting authd",
		"env", cfg.Env,
		"addr", cfg.Server.Addr,
		"reap_interval", cfg.ReapInterval(),
		"database", cfg.Redacted().Database.URL,
	)

	if opts.migrate {
		if err := deps.Migrate(cfg.Database.URL); err != nil {
			return oops.Code("MIGRATION_FAILED").With("operation", "apply migrations").Wrap(err)
		}
		logger.Info("database schema up to date")
	}

	db, err := connect(ctx, cfg, deps)
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("connected to database")

	var (
		obsServer *observability.Server
		metrics   *observability.Metrics
	)
	if cfg.Metrics.Addr != "" {
		obsServer = observability.NewServer(cfg.Metrics.Addr, func(ctx context.Context) bool {
			return store.Ready(ctx, db, readinessTimeout)
		}, logger)
		metrics = obsServer.Metrics()
	}

	comps, err := buildComponents(cfg, db, logger, metrics)
	if err != nil {
		return err
	}
	defer comps.pool.Close()

	routerCfg := web.RouterConfig{
		Service:  comps.service,
		Resolver: comps.resolver,
		Sessions: comps.sessions,
		Cookie: web.CookieConfig{
			Name:   cfg.Session.CookieName,
			Secure: cfg.Session.CookieSecure,
			MaxAge: cfg.Session.InactivityTTL,
		},
		Logger: logger,
	}
	if metrics != nil {
		routerCfg.Metrics = metrics
	}
	api := web.NewServer(cfg.Server.Addr, web.NewRouter(routerCfg), cfg.Server.ShutdownTimeout, logger)

	g, gctx := errgroup.WithContext(ctx)

	var metricsAddr string
	if obsServer != nil {
		obsErrs, err := obsServer.Start()
		if err != nil {
			return oops.With("operation", "start observability server").Wrap(err)
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := obsServer.Stop(stopCtx); err != nil {
				logger.Warn("error stopping observability server", "error", err)
			}
		}()
		metricsAddr = obsServer.Addr()
		logger.Info("observability server started", "addr", metricsAddr)

		g.Go(func() error {
			select {
			case err, ok := <-obsErrs:
				if ok && err != nil {
					return oops.In("observability").Wrap(err)
				}
			case <-gctx.Done():
			}
			return nil
		})
	}

	if err := comps.reaper.Start(gctx); err != nil {
		return err
	}
	defer comps.reaper.Stop()

	if err := api.Listen(); err != nil {
		return err
	}
	g.Go(func() error {
		return api.Serve(gctx)
	})

	deps.Ready(api.Addr(), metricsAddr)
	logger.Info("authd ready", "addr", api.Addr())

	if err := g.Wait(); err != nil {
		errutil.LogError(logger, "server error, shutting down", err)
		return err
	}
	logger.Info("shutdown complete")
	return nil
}
