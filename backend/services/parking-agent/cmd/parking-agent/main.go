package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"parkingagent/backend/libs/logging"
	app "parkingagent/backend/services/parking-agent/internal/app"
	"parkingagent/backend/services/parking-agent/internal/cmd"
	"parkingagent/backend/services/parking-agent/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := logging.NewLogger()
	if err != nil {
		panic(err)
	}
	defer logger.Sync() // best-effort flush

	root := cmd.NewRootCommand(func(ctx context.Context) (cmd.Agent, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, err
		}
		application, err := app.New(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		return application, nil
	})

	if err := root.ExecuteContext(ctx); err != nil {
		logger.Error("parking-agent failed", zap.Error(err))
		_ = logger.Sync()
		stop()
		os.Exit(1)
	}
}
