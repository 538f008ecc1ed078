package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"lifestyle-planner/internal/bot"
	"lifestyle-planner/internal/chef"
	"lifestyle-planner/internal/config"
	"lifestyle-planner/internal/logger"
	"lifestyle-planner/internal/repository"
	"lifestyle-planner/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		// logger settings come from config, so fall back to a production logger here
		zap.Must(zap.NewProduction()).Fatal("config", zap.Error(err))
	}

	log := logger.New(cfg.Logger)
	defer func() { _ = log.Sync() }()

	store, closeStore, err := openStore(cfg.Storage, log)
	if err != nil {
		log.Fatal("open storage", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
	}
	defer closeStore()

	gemini, err := chef.NewGemini(ctx, cfg.AI, log)
	if err != nil {
		log.Fatal("chef", zap.Error(err))
	}

	taskSvc := service.NewTaskService(repository.NewTaskRepository(store, cfg.Location, log), cfg.Location, log.Named("tasks"))
	recipeSvc := service.NewRecipeService(repository.NewRecipeRepository(store, log), gemini, log.Named("recipes"))
	taskSvc.Load(ctx)
	recipeSvc.Load(ctx)

	reminderSvc := service.NewReminderService(taskSvc, log.Named("reminder"))
	reminderSvc.Refresh()

	telegramBot, err := bot.New(cfg.TelegramToken, taskSvc, recipeSvc, reminderSvc, bot.Options{
		OwnerChatID: cfg.OwnerChatID,
		AITimeout:   cfg.AI.Timeout,
	}, log)
	if err != nil {
		log.Fatal("bot", zap.Error(err))
	}

	scheduler := service.NewSchedulerService(cfg.Location, log)
	if _, err := scheduler.ScheduleInterval(cfg.RefreshInterval, func() {
		board, grew := reminderSvc.Refresh()
		if !grew {
			return
		}
		if err := telegramBot.NotifyOverdue(board); err != nil {
			log.Warn("overdue notice", zap.Error(err))
		}
	}); err != nil {
		log.Fatal("schedule refresh", zap.Error(err))
	}
	if cfg.DigestTime != "" {
		if _, err := scheduler.ScheduleDaily(cfg.DigestTime, func() {
			board, _ := reminderSvc.Refresh()
			if err := telegramBot.SendDigest(board); err != nil {
				log.Warn("daily digest", zap.Error(err))
			}
		}); err != nil {
			log.Fatal("schedule digest", zap.String("at", cfg.DigestTime), zap.Error(err))
		}
	}
	scheduler.Start()
	defer scheduler.Stop()

	log.Info("lifestyle planner started",
		zap.String("storage", cfg.Storage.Driver),
		zap.String("timezone", cfg.Location.String()),
		zap.Duration("refresh", cfg.RefreshInterval),
	)
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("bot stopped with error", zap.Error(err))
		return
	}
	log.Info("shutdown complete")
}

func openStore(cfg config.StorageConfig, log *zap.Logger) (repository.BlobStore, func(), error) {
	switch cfg.Driver {
	case config.DriverBolt:
		store, err := repository.OpenBolt(cfg.BoltPath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {
			if err := store.Close(); err != nil {
				log.Warn("close bolt", zap.Error(err))
			}
		}, nil
	default:
		db, err := repository.NewDB(cfg.DatabaseURL, log)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewSQLiteBlobStore(db), func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}, nil
	}
}
