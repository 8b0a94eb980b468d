package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"kakeibo/internal/backend"
	"kakeibo/internal/cache"
	"kakeibo/internal/cli"
	"kakeibo/internal/config"
	"kakeibo/internal/core"
	apphttp "kakeibo/internal/http"
	"kakeibo/internal/line"
	"kakeibo/internal/log"
	"kakeibo/internal/middleware/ratelimit"
	"kakeibo/internal/services"
)

func main() {
	if err := run(); err != nil {
		slog.Error("kakeibo stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	envErr := cli.LoadEnvFile()
	cfg, err := cli.LoadConfig((*config.Config).Validate)
	if err != nil {
		return err
	}
	logger := cli.SetupLogger(cfg.LogLevel, cfg.LogFormat, log.ComponentApp)
	if envErr != nil {
		logger.Warn("Ignoring .env file", "error", envErr)
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	b, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger).Create(ctx, bcfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := b.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", "error", err)
		}
	}()

	caches := cache.NewManager()
	var rowCache cache.Cache[[]core.RawRow]
	if cfg.ArchiveCacheTTL > 0 {
		lru := cache.NewLRUCache[[]core.RawRow](1, cfg.ArchiveCacheTTL)
		caches.Register(lru)
		caches.StartCleanup(cfg.ArchiveCacheTTL)
		rowCache = lru
	}
	defer caches.Stop()

	var events services.EventPublisher
	if b.Events != nil {
		events = b.Events
	}
	expenses := services.NewExpenseService(b.Live, b.Archive, loc, rowCache)
	archiver := services.NewArchiveService(b.Live, b.Archive, events)
	archiver.OnMoved(expenses.InvalidateArchive)
	expenses.WithMoves(archiver)

	var lineOpts []line.Option
	if cfg.LineAPIEndpoint != "" {
		lineOpts = append(lineOpts, line.WithEndpoint(cfg.LineAPIEndpoint))
	}
	replier, err := line.NewClient(cfg.LineChannelAccessToken, lineOpts...)
	if err != nil {
		return err
	}

	srv, err := apphttp.NewServer(apphttp.Config{
		Addr:          ":" + cfg.Port,
		ChannelSecret: cfg.LineChannelSecret,
		RateLimit: ratelimit.Config{
			RequestsPerSecond: cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
		},
		TrustedProxies: cfg.TrustedProxies,
	}, apphttp.Deps{
		Summer:      expenses,
		Archiver:    archiver,
		Replier:     replier,
		ReadyChecks: readyChecks(b.ReadyChecks),
	}, logger)
	if err != nil {
		return err
	}

	var scheduler *services.ArchiveScheduler
	if cfg.ArchiveInterval > 0 {
		scheduler = services.NewArchiveScheduler(archiver, cfg.ArchiveInterval)
		if err := scheduler.Start(log.WithLogger(ctx, logger.WithComponent(log.ComponentScheduler))); err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting kakeibo server",
			"port", cfg.Port,
			"live_backend", cfg.LiveBackend,
			"archive_backend", cfg.ArchiveBackend,
			"timezone", loc.String(),
			"archive_interval", cfg.ArchiveInterval)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if scheduler != nil {
			if err := scheduler.Stop(shutdownCtx); err != nil {
				logger.Warn("Archive scheduler did not stop cleanly", "error", err)
			}
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		logger.Info("Server stopped gracefully")
		return nil
	})
	return g.Wait()
}

func readyChecks(in map[string]func(context.Context) error) map[string]apphttp.ReadyCheck {
	out := make(map[string]apphttp.ReadyCheck, len(in))
	for name, fn := range in {
		out[name] = fn
	}
	return out
}
