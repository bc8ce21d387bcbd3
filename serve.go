package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/google/uuid"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"board-api/api"
	"board-api/config"
	"board-api/storage"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := cfg.NewLogger()
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo := storage.New(storage.WithLatency(cfg.StoreLatency))
	var snapshots *storage.TableSnapshot
	if cfg.StorageConnectionString != "" {
		snapshots, err = storage.NewTableSnapshot(cfg.StorageConnectionString, cfg.SnapshotTable)
		if err != nil {
			return fmt.Errorf("snapshot store: %w", err)
		}
	}
	if err := restore(ctx, repo, snapshots, cfg.SeedData, logger); err != nil {
		return err
	}

	var store api.Store = repo
	var deduper api.Deduper
	if cfg.RedisConnectionString != "" {
		opts, err := config.RedisOptions(cfg.RedisConnectionString)
		if err != nil {
			return err
		}
		rc := redis.NewClient(opts)
		defer rc.Close()
		store = storage.NewCache(repo, rc, cfg.BoardCacheTTL, logger)
		deduper = api.NewRedisDeduper(rc, cfg.IdempotencyTTL)
	} else {
		logger.Warn("REDIS_CONNECTION_STRING not set; board cache and bulk request deduplication disabled")
	}

	var outbox *api.Outbox
	if cfg.EventsQueue != "" {
		pub, err := storage.NewQueuePublisher(cfg.StorageConnectionString, cfg.EventsQueue)
		if err != nil {
			return fmt.Errorf("events queue: %w", err)
		}
		outbox = api.NewOutbox(pub, api.OutboxConfig{
			Workers:        cfg.OutboxWorkers,
			Buffer:         cfg.OutboxBuffer,
			PublishTimeout: cfg.OutboxTimeout,
			HandoffTimeout: cfg.OutboxHandoffTimeout,
		}, logger)
	}
	notifier := api.NewNotifier(outbox, logger)

	auth, err := newAuthenticator(cfg)
	if err != nil {
		return err
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, "Idempotency-Key"},
	}))
	e.Use(api.DecompressRequests())
	e.Use(echoprometheus.NewMiddleware("board_api"))
	e.GET("/metrics", echoprometheus.NewHandler())
	api.Register(e, store, auth, deduper, notifier, logger)

	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", cfg.ListenAddr).Info("board api listening")
		if err := e.Start(cfg.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("http shutdown failed")
	}
	if outbox != nil {
		outbox.Close()
	}
	if snapshots != nil {
		if err := snapshots.Save(shutdownCtx, repo.Export()); err != nil {
			return fmt.Errorf("save snapshot: %w", err)
		}
		logger.Info("snapshot saved")
	}
	return nil
}

// restore fills repo from the snapshot table, falling back to the bundled
// demo data when there is no snapshot yet.
func restore(ctx context.Context, repo *storage.Repository, snapshots *storage.TableSnapshot, seed bool, logger *log.Logger) error {
	if snapshots != nil {
		snap, err := snapshots.Load(ctx)
		if err != nil {
			return fmt.Errorf("load snapshot: %w", err)
		}
		if !snap.Empty() {
			repo.Import(snap)
			logger.WithFields(log.Fields{
				"projects": len(snap.Projects),
				"tasks":    len(snap.Tasks),
			}).Info("snapshot restored")
			return nil
		}
	}
	if !seed {
		return nil
	}
	if err := repo.Seed(); err != nil {
		return err
	}
	logger.Debug("seed data loaded")
	return nil
}

func newAuthenticator(cfg config.Config) (api.Authenticator, error) {
	switch cfg.AuthMode {
	case config.AuthHS256:
		return api.NewSharedSecretAuth([]byte(cfg.AuthSharedSecret), cfg.Auth0Audience, ""), nil
	case config.AuthJWKS:
		jwks, err := keyfunc.Get(cfg.JWKSURL(), keyfunc.Options{RefreshInterval: time.Hour})
		if err != nil {
			return nil, fmt.Errorf("jwks: %w", err)
		}
		return api.NewAuth(jwks, cfg.Auth0Audience, cfg.Issuer(), cfg.JWKSCacheTTL), nil
	default:
		return api.StaticAuth{UserID: cfg.DefaultUserID}, nil
	}
}
