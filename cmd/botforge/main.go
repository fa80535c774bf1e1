// Package main contains the botforge entrypoint: the manager bot server and
// the command line tools that create, restart and inspect generated bots.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "botforge: %s\n", err)
		os.Exit(1)
	}
}
