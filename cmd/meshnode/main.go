// Package main 提供 meshnode 命令行入口
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	meshnode "github.com/dep2p/go-meshnode"
	"github.com/dep2p/go-meshnode/internal/app"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}
	if f.version {
		fmt.Println(meshnode.VersionInfo())
		return nil
	}

	cfg, err := buildConfig(f, os.Getenv)
	if err != nil {
		return fmt.Errorf("配置错误: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return app.New(cfg, app.WithStreams(app.Streams{Input: os.Stdin, Output: os.Stderr})).Run(ctx)
}
