package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand(os.Stderr).ExecuteContext(ctx); err != nil {
		_, _ = os.Stderr.WriteString("takraw-sim: " + err.Error() + "\n")
		stop()
		os.Exit(1)
	}
}
