package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/echochat/internal/infrastructure/config"
	"github.com/GriffinCanCode/echochat/internal/infrastructure/logging"
	"github.com/GriffinCanCode/echochat/internal/infrastructure/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "echochat: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Flags override the environment
	flags := pflag.NewFlagSet("echochat", pflag.ContinueOnError)
	flags.StringVar(&cfg.Server.Port, "port", cfg.Server.Port, "HTTP listen port")
	flags.StringVar(&cfg.Server.Host, "host", cfg.Server.Host, "HTTP listen host")
	flags.StringVar(&cfg.Logging.Level, "log-level", cfg.Logging.Level, "log level (debug, info, warn, error)")
	flags.BoolVar(&cfg.Logging.Development, "dev", cfg.Logging.Development, "development logging")
	flags.DurationVar(&cfg.Session.TTL, "session-ttl", cfg.Session.TTL, "idle time before a session is evicted")
	flags.StringVar(&cfg.Retrieval.URL, "retrieval-url", cfg.Retrieval.URL, "search service base URL")
	flags.StringVar(&cfg.Model.PromptFile, "prompt-file", cfg.Model.PromptFile, "YAML prompt overrides")
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		return err
	}
	defer logger.Sync()

	srv, err := server.New(cfg, server.WithLogger(logger))
	if err != nil {
		logger.Error("Failed to create server", zap.Error(err))
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.Run(ctx)
}
