package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"adloom/internal/config"
	"adloom/internal/daemon"
	"adloom/internal/logging"
	"adloom/internal/notifications"
	"adloom/internal/orchestrator"
	"adloom/internal/session"
)

func main() {
	configPath := flag.String("config", "", "path to the adloom config file")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, resolvedPath, found, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	if found {
		logger.Info("loaded configuration", logging.String("path", resolvedPath))
	} else {
		logger.Info("no config file found, using defaults")
	}

	store, err := session.Open(cfg)
	if err != nil {
		logger.Error("open session store", logging.Error(err))
		os.Exit(1)
	}

	hub := logging.NewStreamHub(cfg.Workflow.StreamBuffer)
	notifier := notifications.NewService(cfg)
	handlers := orchestrator.DefaultHandlers(cfg, store, logger)
	orch := orchestrator.New(cfg, store, logger, hub, notifier, handlers...)

	d, err := daemon.New(cfg, store, logger, orch, hub)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		store.Close()
		os.Exit(1)
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("start daemon", logging.Error(err))
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("adloomd shutting down")
	d.Stop()
}
