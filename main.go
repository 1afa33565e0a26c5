package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/giygas/pharmdb/config"
	"github.com/giygas/pharmdb/data"
	"github.com/giygas/pharmdb/handlers"
	"github.com/giygas/pharmdb/health"
	"github.com/giygas/pharmdb/loader"
	"github.com/giygas/pharmdb/logging"
	"github.com/giygas/pharmdb/scheduler"
	"github.com/giygas/pharmdb/server"
	"github.com/giygas/pharmdb/validation"
	"github.com/joho/godotenv"
)

func loadEnv() {
	// Get the working directory and read the env variables
	if err := godotenv.Load(); err == nil {
		return
	}

	// If failed, try loading from executable directory
	ex, err := os.Executable()
	if err != nil {
		return
	}
	// A missing .env is fine, the environment may already be set
	_ = godotenv.Load(filepath.Join(filepath.Dir(ex), ".env"))
}

func main() {
	serverStart := time.Now()
	loadEnv()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid log level: %v\n", err)
		os.Exit(1)
	}
	logging.InitLogger(logging.Options{
		Dir:            cfg.LogDir,
		Level:          level,
		RetentionWeeks: cfg.LogRetentionWeeks,
		MaxFileSize:    cfg.MaxLogFileSize,
	})
	defer func() {
		if err := logging.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to close log file: %v\n", err)
		}
	}()

	logging.Info("Configuration loaded",
		"env", cfg.Env.String(),
		"address", cfg.Address,
		"port", cfg.Port,
		"catalog_source", cfg.CatalogSource,
	)

	dataContainer := data.NewDataContainer()
	dataContainer.SetServerStartTime(serverStart)

	validator := validation.NewDataValidator()

	sourceConfigured := cfg.CatalogSource != ""
	var sched *scheduler.Scheduler
	if sourceConfigured {
		sched = scheduler.NewScheduler(dataContainer, loader.New(cfg.CatalogSource, validator), cfg.CatalogReloadAt)
		if err := sched.Start(); err != nil {
			// Keep serving: the next scheduled reload may succeed
			logging.Error("Catalog not loaded at startup", "error", err)
		}
	} else {
		logging.Info("No catalog source configured, starting with an empty catalog")
	}

	healthChecker := health.NewHealthChecker(dataContainer, cfg.CatalogReloadAt, sourceConfigured)
	httpHandler := handlers.NewHTTPHandler(dataContainer, validator, healthChecker, cfg.DefaultMaxSteps)
	srv := server.NewServer(cfg, dataContainer, httpHandler)

	// Channel to listen for interrupt signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	exitCode := 0
	select {
	case <-quit:
	case err := <-serverErr:
		if err != nil {
			logging.Error("Server failed", "error", err)
			exitCode = 1
		}
	}

	if sched != nil {
		sched.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		exitCode = 1
	}

	if exitCode != 0 {
		_ = logging.Close()
		os.Exit(exitCode)
	}
}
