package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"learnpath-backend-go/internal/config"
	"learnpath-backend-go/internal/db"
	httpapi "learnpath-backend-go/internal/http"
	"learnpath-backend-go/internal/migrations"
	"learnpath-backend-go/internal/services"
)

const logRetentionDays = 7

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	logger, closeLogs, err := setupLogger()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer closeLogs()

	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Fatalw("db open", "error", err)
	}
	defer database.Close()
	if err := migrations.Apply(database, "migrations"); err != nil {
		logger.Fatalw("migrations", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	statusHub := services.NewHub(func(status services.LearnerStatus) string {
		return status.CourseID
	})
	metricsHub := services.NewHub(func(services.MetricSample) string {
		return ""
	})

	server := httpapi.NewServer(database, cfg, logger, statusHub, metricsHub)

	addr := ":8080"
	if value := os.Getenv("PORT"); value != "" {
		addr = ":" + value
	}
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		statusHub.Run(ctx)
		return nil
	})
	group.Go(func() error {
		metricsHub.Run(ctx)
		return nil
	})
	group.Go(func() error {
		return metricsLoop(ctx, server)
	})
	group.Go(func() error {
		logger.Infow("listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Fatalw("server", "error", err)
	}
	logger.Infow("shutdown complete")
}

func setupLogger() (*zap.SugaredLogger, func(), error) {
	logDir := os.Getenv("LOG_DIR")
	if logDir == "" {
		logDir = "storage/logs"
	}
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, nil, err
	}
	filename := filepath.Join(logDir, fmt.Sprintf("app-%s.log", time.Now().Format("2006-01-02")))
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}
	cleanupOldLogs(logDir)

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderCfg),
		zapcore.NewMultiWriteSyncer(zapcore.AddSync(os.Stdout), zapcore.AddSync(file)),
		zapcore.InfoLevel,
	)
	logger := zap.New(core)
	return logger.Sugar(), func() {
		_ = logger.Sync()
		_ = file.Close()
	}, nil
}

func cleanupOldLogs(logDir string) {
	entries, err := os.ReadDir(logDir)
	if err != nil {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -(logRetentionDays - 1))
	for _, entry := range entries {
		name := entry.Name()
		if !entry.Type().IsRegular() {
			continue
		}
		if !strings.HasPrefix(name, "app-") || !strings.HasSuffix(name, ".log") {
			continue
		}
		datePart := strings.TrimSuffix(strings.TrimPrefix(name, "app-"), ".log")
		logDate, err := time.Parse("2006-01-02", datePart)
		if err != nil {
			continue
		}
		if logDate.Before(cutoff) {
			_ = os.Remove(filepath.Join(logDir, name))
		}
	}
}

func metricsLoop(ctx context.Context, server *httpapi.Server) error {
	ticker := time.NewTicker(time.Duration(server.Config.MetricsSampleSeconds) * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			sample, err := services.CaptureMetrics(server.DB, server.Config.MetricsDiskPath)
			if err != nil {
				server.Logger.Warnw("metrics capture", "error", err)
				continue
			}
			server.MetricsHub.Broadcast(sample)
		case <-ctx.Done():
			return nil
		}
	}
}
