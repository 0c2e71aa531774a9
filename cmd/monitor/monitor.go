// Package monitor implements the long-running monitoring command.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Rierra/fblstner/internal/config"
	"github.com/Rierra/fblstner/internal/extractor"
	"github.com/Rierra/fblstner/internal/fanout"
	"github.com/Rierra/fblstner/internal/fetch"
	"github.com/Rierra/fblstner/internal/logger"
	"github.com/Rierra/fblstner/internal/notify"
	"github.com/Rierra/fblstner/internal/registry"
	"github.com/Rierra/fblstner/internal/seen"
	"github.com/Rierra/fblstner/internal/store"
)

const redisPingTimeout = 5 * time.Second

// cleanupSchedule runs the seen-set expiry and trim once a day, off-peak.
const cleanupSchedule = "0 3 * * *"

// Command returns the monitor command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "monitor",
		Short: "Run the keyword monitor until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context())
		},
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logger.New(&logger.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		Encoding:    cfg.Logging.Encoding,
	})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	log = log.WithComponent("monitor")

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer client.Close()

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
	}

	seenStore := seen.NewRedisStore(client)

	snapshots := store.NewFileStore(filepath.Join(cfg.Storage.DataDir, cfg.Storage.SnapshotFile))
	snap, err := snapshots.Load()
	if err != nil {
		return fmt.Errorf("failed to load snapshot: %w", err)
	}

	reg := registry.New()
	snap.ApplyToRegistry(reg)
	initState := fanout.NewInitState()
	initState.Load(snap.Initialized)
	log.Info("state loaded",
		"destinations", len(reg.List()),
		"initialized_pairs", len(snap.Initialized))

	fetcher, err := fetch.NewSessionFetcher(
		cfg.Fetch.BaseURL,
		cfg.Fetch.CookiesFile,
		fetch.WithTimeout(cfg.Fetch.Timeout),
	)
	if err != nil {
		return fmt.Errorf("failed to create fetcher: %w", err)
	}

	notifier := notify.NewTelegramNotifier(
		cfg.Telegram.BotToken,
		notify.WithAPIBaseURL(cfg.Telegram.APIBaseURL),
	)

	engine := fanout.NewEngine(fanout.Options{
		Params: fanout.Params{
			CheckInterval:        cfg.Monitor.CheckInterval,
			InitialBackfillCount: cfg.Monitor.InitialBackfillCount,
			DeliveryDelay:        cfg.Monitor.DeliveryDelay,
			KeywordDelay:         cfg.Monitor.KeywordDelay,
		},
		Searcher: fanout.NewPageSearcher(
			fetcher,
			extractor.New(cfg.Monitor.MaxPostsPerPage, cfg.Monitor.MinPostLength),
		),
		Seen:      seenStore,
		Registry:  reg,
		Deliverer: notifier,
		Snapshots: snapshots,
		Init:      initState,
		Logger:    log,
	})

	scheduler := startCleanup(ctx, log, seenStore, cfg)
	defer scheduler.Stop()

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("monitor started",
		"check_interval", cfg.Monitor.CheckInterval.String(),
		"backfill_count", cfg.Monitor.InitialBackfillCount)

	err = engine.Run(runCtx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("monitor stopped: %w", err)
	}

	// A cancelled cycle may have skipped its end-of-cycle persist.
	if err := snapshots.Save(store.FromRegistry(reg, initState.Export())); err != nil {
		log.WithError(err).Error("failed to save snapshot on shutdown")
	}
	log.Info("monitor stopped")
	return nil
}

// startCleanup schedules the daily seen-set expiry and trim.
func startCleanup(ctx context.Context, log logger.Interface, seenStore seen.Store, cfg *config.Config) *cron.Cron {
	scheduler := cron.New()
	_, err := scheduler.AddFunc(cleanupSchedule, func() {
		expired, err := seenStore.Expire(ctx, cfg.Monitor.SeenRetention)
		if err != nil {
			log.WithError(err).Error("seen-set expiry failed")
		}

		// Past the ceiling, cut back to half so trims stay infrequent.
		trimmed := 0
		count, err := seenStore.Count(ctx)
		if err != nil {
			log.WithError(err).Error("seen-set count failed")
		} else if count > cfg.Monitor.SeenMaxEntries {
			trimmed, err = seenStore.Trim(ctx, cfg.Monitor.SeenMaxEntries/2)
			if err != nil {
				log.WithError(err).Error("seen-set trim failed")
			}
		}

		if expired > 0 || trimmed > 0 {
			log.Info("seen-set cleanup done", "expired", expired, "trimmed", trimmed)
		}
	})
	if err != nil {
		log.WithError(err).Error("failed to schedule seen-set cleanup")
	}
	scheduler.Start()
	return scheduler
}
