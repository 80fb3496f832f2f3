package flow

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// Run calls startup, waits until ctx is done, then calls shutdown.
func Run(ctx context.Context, startup func() error, shutdown func()) error {
	if err := startup(); err != nil {
		return err
	}
	<-ctx.Done()
	shutdown()
	return nil
}

// Main is the entry point of standalone generated programs. It runs until
// SIGINT or SIGTERM.
func Main(startup func() error, shutdown func()) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := Run(ctx, startup, shutdown)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
