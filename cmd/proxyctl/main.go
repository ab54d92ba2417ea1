// Package main is the entry point for the proxyctl CLI
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"keepersecurity.com/ksm-proxy-users/internal/cli"
)

// version is set at build time via ldflags
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	cli.SetVersion(version)
	code := cli.Execute(ctx)
	stop()
	os.Exit(code)
}
