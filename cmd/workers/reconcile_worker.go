package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"firmadocs/signing-portal/signing-portal-backend/internal/config"
	"firmadocs/signing-portal/signing-portal-backend/internal/reconcile"
	"firmadocs/signing-portal/signing-portal-backend/internal/signing"
	"firmadocs/signing-portal/signing-portal-backend/pkg/storage"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.LoadConfig("config.json")
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	db, err := sqlx.Connect("postgres", cfg.Database.GetDatabaseURL())
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s3, err := storage.NewS3Client(ctx, storage.Options{
		Region:          cfg.Storage.Region,
		Endpoint:        cfg.Storage.Endpoint,
		AccessKeyID:     cfg.Storage.AccessKeyID,
		SecretAccessKey: cfg.Storage.SecretAccessKey,
	})
	if err != nil {
		logger.Fatal("Failed to initialize object storage", zap.Error(err))
	}

	sweeper := reconcile.NewSweeper(signing.NewRepository(db), s3, logger)

	c := cron.New()
	_, err = c.AddFunc(cfg.Reconcile.CronSpec, func() {
		if _, err := sweeper.Sweep(ctx); err != nil {
			logger.Error("sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		logger.Fatal("Invalid reconcile schedule", zap.String("spec", cfg.Reconcile.CronSpec), zap.Error(err))
	}

	logger.Info("Reconcile worker started", zap.String("schedule", cfg.Reconcile.CronSpec))
	c.Start()

	// Run one sweep immediately rather than waiting a full interval.
	if _, err := sweeper.Sweep(ctx); err != nil {
		logger.Error("initial sweep failed", zap.Error(err))
	}

	<-ctx.Done()
	logger.Info("Reconcile worker shutting down")
	<-c.Stop().Done()
}
