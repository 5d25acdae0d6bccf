// Package app wires the beacon server runtime: config, logging, stores,
// HTTP routes, the notification gateway, and the expiry sweeper.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"beacon/internal/account"
	"beacon/internal/auth"
	"beacon/internal/notify"
	"beacon/internal/refresh"
	"beacon/internal/storage"
	"beacon/internal/token"
	"beacon/internal/user"

	"github.com/jackc/pgx/v5/pgxpool"
)

// App is the beacon server runtime.
type App struct {
	cfg Config
	log Logger

	dbPool    *pgxpool.Pool
	dbEnabled bool

	auth    *auth.Handler
	users   *user.Handler
	gateway *notify.Gateway
	sweeper *refresh.Sweeper

	// Non-empty when the local avatar backend should be served as static files.
	avatarDir string
}

// New constructs a fully wired App instance from config and logger.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel)
	}

	issuer, err := token.NewIssuer(token.Config{
		Secret:     cfg.TokenSecret,
		AccessTTL:  cfg.AccessTTL,
		RefreshTTL: cfg.RefreshTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("app: BEACON_TOKEN_SECRET: %w", err)
	}

	var (
		dbPool       *pgxpool.Pool
		dbEnabled    bool
		accountStore account.Store
		refreshStore refresh.Store
	)
	if cfg.DatabaseURL == "" {
		log.Info("db.disabled.inmemory_store")
		accountStore = account.NewMemoryStore()
		refreshStore = refresh.NewMemoryStore()
	} else {
		if cfg.MigrateOnStart {
			if err := RunMigrations(ctx, log, cfg.DatabaseURL); err != nil {
				return nil, err
			}
		}

		dbPool, err = NewDBPool(ctx, cfg)
		if err != nil {
			return nil, err
		}
		dbEnabled = true
		log.Info("db.enabled.postgres_store")

		accountStore = account.NewPostgresStore(dbPool)
		refreshStore = refresh.NewPostgresStore(dbPool)
	}

	blobs, avatarDir, err := newBlobStore(ctx, cfg)
	if err != nil {
		if dbPool != nil {
			dbPool.Close()
		}
		return nil, err
	}

	registry := notify.NewRegistry()
	dispatcher := notify.NewDispatcher(log, registry)
	gateway := notify.NewGateway(log, issuer, registry)

	authSvc := auth.NewService(log, accountStore, account.NewBcryptHasher(0), issuer, refreshStore)
	authHandler := auth.NewHandler(log, auth.Config{MaxBodyBytes: cfg.MaxBodyBytes}, authSvc)
	userHandler := user.NewHandler(log, authHandler, accountStore, refreshStore, blobs, dispatcher)

	sweeper := refresh.NewSweeper(log, refreshStore, refresh.SweeperConfig{
		Interval: cfg.SweepInterval,
		HourUTC:  cfg.SweepHourUTC,
	})

	return &App{
		cfg:       cfg,
		log:       log,
		dbPool:    dbPool,
		dbEnabled: dbEnabled,
		auth:      authHandler,
		users:     userHandler,
		gateway:   gateway,
		sweeper:   sweeper,
		avatarDir: avatarDir,
	}, nil
}

// Run starts the sweeper and HTTP server and blocks until context
// cancellation or fatal server error.
func (a *App) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	registerHTTP(mux, a.log, a.cfg, a.dbPool, a.dbEnabled, a.auth, a.users, a.gateway, a.avatarDir)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           WithRequestLogging(mux, a.log),
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    nonZeroInt(a.cfg.MaxHeaderBytes, 1<<20),
	}

	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	go a.sweeper.Run(sweepCtx)

	a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "db_enabled", a.dbEnabled)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("server.stop", "reason", "context_done")
	case err := <-errCh:
		a.log.Error("server.fail", "err", err)
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.log.Error("server.shutdown.fail", "err", err)
		return err
	}

	if a.dbPool != nil {
		a.dbPool.Close()
	}

	a.log.Info("server.stopped")
	return nil
}

func newBlobStore(ctx context.Context, cfg Config) (storage.BlobStore, string, error) {
	switch cfg.AvatarBackend {
	case "s3":
		st, err := storage.NewS3Store(ctx, storage.S3Config{
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
		if err != nil {
			return nil, "", err
		}
		return st, "", nil
	case "local", "":
		st, err := storage.NewLocalStore(cfg.AvatarDir)
		if err != nil {
			return nil, "", err
		}
		return st, st.Dir(), nil
	default:
		return nil, "", fmt.Errorf("app: unknown avatar backend %q", cfg.AvatarBackend)
	}
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}

func nonZeroInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
