package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/handrecon/internal/handctl"
	"github.com/okian/handrecon/pkg/logger"
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := handctl.NewRootCommand().ExecuteContext(ctx)
	stop()
	_ = logger.Sync()
	if err != nil {
		os.Stderr.WriteString("handctl: " + err.Error() + "\n")
		os.Exit(1)
	}
}
