package main

import (
	"context"
	"flag"
	"os"

	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"

	"tickerflow/internal/app"
	"tickerflow/internal/config"
)

func main() {
	if err := run(); err != nil {
		logs.Errorf("scheduler: %+v", err)
		os.Exit(1)
	}
}

func run() error {
	configFlag := flag.String("config", os.Getenv("TICKERFLOW_CONFIG"), "config file path")
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-sys.Shutdown():
			logs.Info("scheduler: shutdown signal received")
			cancel()
		case <-ctx.Done():
		}
	}()

	return app.RunScheduler(ctx, cfg, cancel)
}
