// Package main is a demonstration harness for the actionflow pipeline. It
// wires stores, handlers and optional Lua scripts from a config file, then
// runs a small dispatch sequence with live config reload enabled.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/dshills/actionflow/internal/action"
	"github.com/dshills/actionflow/internal/config"
	"github.com/dshills/actionflow/internal/dispatcher"
	"github.com/dshills/actionflow/internal/dispatcher/handler"
	"github.com/dshills/actionflow/internal/event"
	"github.com/dshills/actionflow/internal/logging"
	"github.com/dshills/actionflow/internal/pipeline"
	"github.com/dshills/actionflow/internal/script"
	"github.com/dshills/actionflow/internal/store"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath  string
		showVersion bool
	)
	flag.StringVar(&configPath, "config", "", "Path to configuration file")
	flag.StringVar(&configPath, "c", "", "Path to configuration file (shorthand)")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit")
	flag.Parse()

	if showVersion {
		fmt.Printf("actionflow %s (%s)\n", version, commit)
		return 0
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	log := logging.New(cfg.Logging, os.Stderr)

	dispatchCfg, err := cfg.Dispatcher()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	stores := store.NewRegistry()
	if _, err := stores.Create("counter", 0); err != nil {
		log.Error().Err(err).Msg("creating counter store")
		return 1
	}

	d := dispatcher.New(dispatchCfg,
		dispatcher.WithStores(stores),
		dispatcher.WithLogger(log),
	)

	offEvents := observeLifecycle(d, log)
	defer offEvents()

	if _, err := d.Register("counter.add", func(ctx context.Context, exec *pipeline.Context) pipeline.Result {
		s, err := exec.Stores().Get("counter")
		if err != nil {
			return pipeline.Error(err)
		}
		n, _ := exec.Payload().(int)
		s.Update(func(cur any) any { return cur.(int) + n })
		return pipeline.SuccessWith(s.Get())
	}, handler.Registration{ID: "counter-add", Blocking: true}); err != nil {
		log.Error().Err(err).Msg("registering handler")
		return 1
	}

	if cfg.Scripts.Dir != "" {
		engine := script.NewEngine(d, log)
		defer engine.Close()
		if err := engine.LoadDir(cfg.Scripts.Dir); err != nil {
			log.Error().Err(err).Msg("loading scripts")
			return 1
		}
	}

	if configPath != "" {
		watcher, err := config.NewWatcher(configPath, func(next config.Config) {
			log.Info().
				Str("mode", next.Dispatch.Mode).
				Str("level", next.Logging.Level).
				Msg("configuration reloaded")
		}, config.WithErrorFunc(func(err error) {
			log.Warn().Err(err).Msg("config reload failed")
		}))
		if err != nil {
			log.Warn().Err(err).Msg("config watch unavailable")
		} else {
			defer watcher.Close()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for _, n := range []int{1, 2, 3} {
		out, err := d.DispatchAction(ctx, action.New("counter.add", n))
		if err != nil {
			log.Error().Err(err).Msg("dispatch failed")
			return 1
		}
		log.Info().
			Int("payload", n).
			Bool("success", out.Success).
			Interface("results", out.Results).
			Msg("dispatched counter.add")
	}

	s, err := stores.Get("counter")
	if err != nil {
		log.Error().Err(err).Msg("reading counter")
		return 1
	}
	fmt.Printf("counter = %v\n", s.Get())

	if m := d.Metrics(); m != nil {
		for name, stats := range m.Snapshot() {
			log.Info().
				Str("action", name).
				Uint64("dispatches", stats.DispatchCount).
				Dur("avg", stats.AverageDuration()).
				Msg("action metrics")
		}
	}
	return 0
}

// observeLifecycle logs every lifecycle event the dispatcher emits and
// returns a closure that removes the listeners.
func observeLifecycle(d *dispatcher.Dispatcher, log zerolog.Logger) func() {
	kinds := []event.Kind{
		event.KindActionStart,
		event.KindActionComplete,
		event.KindActionError,
		event.KindActionAbort,
		event.KindGuardBlocked,
	}

	offs := make([]func(), 0, len(kinds))
	for _, kind := range kinds {
		off, err := d.Events().On(kind, func(ev event.Event) {
			entry := log.Debug().
				Str("event", ev.Kind.String()).
				Str("action", ev.Action)
			if ev.HandlerID != "" {
				entry = entry.Str("handler", ev.HandlerID)
			}
			if ev.Err != nil {
				entry = entry.Err(ev.Err)
			}
			if ev.Reason != "" {
				entry = entry.Str("reason", ev.Reason)
			}
			entry.Msg("lifecycle")
		})
		if err != nil {
			continue
		}
		offs = append(offs, off)
	}

	return func() {
		for _, off := range offs {
			off()
		}
	}
}
