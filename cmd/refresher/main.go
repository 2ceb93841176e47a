package main

import (
	"context"
	"os/signal"
	"syscall"

	"tmtresearch-service/internal/bootstrap"
	"tmtresearch-service/internal/config"
	"tmtresearch-service/internal/infrastructure/logx"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func init() { _ = godotenv.Load() }

// Refresher runs one full batch refresh and exits; schedule it with cron or a
// systemd timer.
func main() {
	log := logx.L()
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, closeStores, err := bootstrap.BuildStores(ctx, cfg)
	if err != nil {
		log.Fatal("bootstrap stores", zap.Error(err))
	}
	defer closeStores()

	lock, closeLock, err := bootstrap.BuildLock(cfg)
	if err != nil {
		log.Fatal("bootstrap lock", zap.Error(err))
	}
	defer closeLock()

	providers := bootstrap.BuildProviders(cfg)
	svc, err := bootstrap.BuildService(stores, providers, lock, cfg)
	if err != nil {
		log.Fatal("bootstrap service", zap.Error(err))
	}

	tickers := cfg.Tickers
	if len(tickers) == 0 {
		tickers, err = stores.Companies.ListTickers(ctx)
		if err != nil {
			log.Fatal("list tickers", zap.Error(err))
		}
	}
	if len(tickers) == 0 {
		log.Fatal("no tickers to refresh; set TICKERS or seed the companies table")
	}

	if err := svc.Refresh(ctx, tickers, cfg.ChunkSize); err != nil {
		log.Fatal("refresh failed", zap.Error(err))
	}
	log.Info("refresh complete", zap.Int("tickers", len(tickers)))
}
