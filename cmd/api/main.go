package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"tmtresearch-service/internal/bootstrap"
	"tmtresearch-service/internal/config"
	infraconfig "tmtresearch-service/internal/infrastructure/config"
	httpserver "tmtresearch-service/internal/infrastructure/http"
	"tmtresearch-service/internal/infrastructure/logx"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func init() { _ = godotenv.Load() }

func main() {
	ctx := context.Background()
	logger := logx.L()
	cfg := config.Load()
	addr := ":" + cfg.Port

	stores, closeStores, err := bootstrap.BuildStores(ctx, cfg)
	if err != nil {
		logger.Fatal("bootstrap stores", zap.Error(err))
	}
	defer closeStores()

	lock, closeLock, err := bootstrap.BuildLock(cfg)
	if err != nil {
		logger.Fatal("bootstrap lock", zap.Error(err))
	}
	defer closeLock()

	providers := bootstrap.BuildProviders(cfg)
	svc, err := bootstrap.BuildService(stores, providers, lock, cfg)
	if err != nil {
		logger.Fatal("bootstrap service", zap.Error(err))
	}

	srv := httpserver.NewServer(svc, httpserver.Defaults{
		Tickers:   cfg.Tickers,
		ChunkSize: cfg.ChunkSize,
		Threshold: cfg.VolatilityThreshold,
		MaxAge:    cfg.MaxQuoteAge,
		NewsLimit: cfg.NewsLimit,
	})
	srv.SetReadyCheck(stores.DB.Ping)
	mux := httpserver.NewRouter(srv)

	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		logger.Info("server started", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	shutdownCtx, shCancel := context.WithTimeout(context.Background(), infraconfig.DefaultShutdownTimeout)
	defer shCancel()
	_ = server.Shutdown(shutdownCtx)
	logger.Info("server stopped")
}
