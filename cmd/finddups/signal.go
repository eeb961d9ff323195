package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
)

// setupSignalHandler returns a context that is cancelled on SIGINT or
// SIGTERM. A second signal restores the default behaviour so the process
// can still be killed while shutting down.
func setupSignalHandler(parent context.Context, stderr io.Writer) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			fmt.Fprintf(stderr, "\nReceived signal: %v\n", sig)
			fmt.Fprintf(stderr, "Initiating graceful shutdown...\n")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}
