/*
This is an example of application that will use the
engine package to test things out
*/
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/ember/engine"
	"github.com/spaghettifunk/ember/engine/core"
	"github.com/spaghettifunk/ember/engine/platform/desktop"
	"github.com/spaghettifunk/ember/engine/renderer/vulkan"
	"github.com/spaghettifunk/ember/testbed"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "", "path to the TOML configuration file")
	flag.Parse()

	cfg, err := engine.LoadApplicationConfig(*configPath)
	if err != nil {
		core.LogFatal("failed to load configuration: %s", err)
	}

	tb, err := testbed.NewTestGame(cfg)
	if err != nil {
		core.LogFatal("failed to create the testbed: %s", err)
	}

	window := desktop.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	var opts []engine.Option
	if *configPath != "" {
		watcher, err := engine.NewConfigWatcher(*configPath)
		if err != nil {
			core.LogWarn("config hot reload disabled: %s", err)
		} else {
			opts = append(opts, engine.WithConfigUpdates(watcher.Updates()))
			g.Go(func() error { return watcher.Run(gctx) })
		}
	}

	// signal channel to capture system calls
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	g.Go(func() error {
		defer signal.Stop(sigCh)
		select {
		case <-sigCh:
			core.LogInfo("signal received, closing the window")
			window.RequestClose()
		case <-gctx.Done():
		}
		return nil
	})

	e, err := engine.New(tb.Game, window, vulkan.New(), opts...)
	if err != nil {
		core.LogFatal("failed to create the engine: %s", err)
	}
	if err := e.Initialize(); err != nil {
		core.LogFatal("failed to initialize the engine: %s", err)
	}

	// run engine
	runErr := e.Run()
	if err := e.Shutdown(); err != nil {
		core.LogError("shutdown: %s", err)
	}

	cancel()
	if err := g.Wait(); err != nil {
		core.LogError("background task failed: %s", err)
	}
	if runErr != nil {
		core.LogFatal("%s", runErr)
	}
}
