// File: cmd/scriptwalk/main.go
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/xkilldash9x/scriptwalk/cmd"
)

// Allows mocking os.Exit in tests.
var osExit = os.Exit

func main() {
	// Set up a context that listens for interrupt signals (SIGINT, SIGTERM) for graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx); err != nil {
		stop()
		osExit(exitCode(err))
	}
}

// exitCode maps a command error to the process status. An interrupted run
// exits 130 like a shell would.
func exitCode(err error) int {
	if errors.Is(err, context.Canceled) {
		return 130
	}
	return 1
}
