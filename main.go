package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/stealthrocket/travioli/internal/cmd"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cmd.Root(ctx, os.Args[1:]...)
	cancel()
	os.Exit(code)
}
