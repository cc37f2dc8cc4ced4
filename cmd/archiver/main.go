package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	logger := newLogger(nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := NewRunner(RunnerOpts{Logger: logger})
	if err := runner.App().Run(ctx, os.Args); err != nil {
		stop()
		logger.Fatal("archiver failed", "err", err)
	}
}
