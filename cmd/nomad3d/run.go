package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/milk9111/nomad3d/collision"
	"github.com/milk9111/nomad3d/config"
	"github.com/milk9111/nomad3d/engine"
	"github.com/milk9111/nomad3d/link"
	"github.com/milk9111/nomad3d/transport"
)

func runEngine(ctx context.Context, opts options) error {
	logger := log.Default()
	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return err
	}
	tree, err := loadModel(cfg, opts.modelPath)
	if err != nil {
		return err
	}

	var cl closers
	defer cl.close()

	bindings := link.CollectBindings(tree, logger)
	source, err := newSource(ctx, cfg, bindings, &cl)
	if err != nil {
		return err
	}
	feed := link.NewFeed(source, link.FeedConfig{MinInterval: cfg.MinInterval(), Logger: logger})

	req, err := newBackend(ctx, cfg, engine.TreeBlocks{Tree: tree}, &cl)
	if err != nil {
		return err
	}
	bridge := collision.NewBridge(req, collision.BridgeConfig{Timeout: cfg.CollisionsTimeout(), Logger: logger})
	objects := engine.NewObjects(bridge, logger)
	objects.Correction = cfg.Collisions.Correction

	eng, err := engine.New(engine.Deps{
		Tree:      tree,
		Feed:      feed,
		Bindings:  bindings,
		Bridge:    bridge,
		Objects:   objects,
		Observers: []engine.Observer{logObserver{logger: logger}},
		Logger:    logger,
	}, cfg.Options())
	if err != nil {
		return err
	}
	if err := eng.Init(ctx); err != nil {
		return err
	}
	for _, o := range cfg.Objects {
		spec, err := o.Engine()
		if err != nil {
			return err
		}
		if _, err := objects.Add(ctx, spec); err != nil {
			logger.Printf("Objects: add %s: %v", o.Name, err)
		}
	}

	var (
		events <-chan string
		errs   <-chan error
	)
	if opts.watch && opts.configPath != "" {
		w, err := config.NewWatcher(opts.configPath)
		if err != nil {
			return fmt.Errorf("config: watch %s: %w", opts.configPath, err)
		}
		cl = append(cl, w.Close)
		events, errs = w.Events, w.Errors
	}
	commands := readCommands(ctx, os.Stdin)

	ticker := time.NewTicker(opts.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			for _, line := range eng.History() {
				logger.Print(line)
			}
			return nil
		case <-ticker.C:
			eng.Tick(ctx)
		case line, ok := <-commands:
			if !ok {
				commands = nil
				continue
			}
			if err := execute(ctx, eng, line, logger); err != nil {
				logger.Printf("Command: %v", err)
			}
		case name, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			next, err := config.LoadConfig(opts.configPath)
			if err != nil {
				logger.Printf("Config: reload %s: %v", name, err)
				continue
			}
			next.Apply(eng)
			logger.Printf("Config: reloaded %s", name)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Printf("Config: watch: %v", err)
		}
	}
}

// lockedSource serialises a PositionSource shared by several connections.
type lockedSource struct {
	mu     sync.Mutex
	source link.PositionSource
}

func (s *lockedSource) Positions(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source.Positions(ctx)
}

func (s *lockedSource) Pause(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source.Pause(ctx)
}

func (s *lockedSource) Restart(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source.Restart(ctx)
}

// runServer stands in for the external systems: the loopback backend
// poses its own copy of the model, and the configured source answers
// position requests.
func runServer(ctx context.Context, addr string, opts options) error {
	logger := log.Default()
	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return err
	}
	tree, err := loadModel(cfg, opts.modelPath)
	if err != nil {
		return err
	}

	var cl closers
	defer cl.close()

	served := engine.NewServedTree(tree, cfg.Configuration, logger)
	mux := http.NewServeMux()
	mux.Handle("/collisions", transport.NewServer(newLoopback(cfg, served), transport.ServerConfig{Logger: logger}))

	if cfg.Positions.Kind != config.SourceRemote {
		source, err := newSource(ctx, cfg, served.Bindings(), &cl)
		if err != nil {
			return err
		}
		if source != nil {
			mux.Handle("/positions", transport.NewServer(link.SourceResponder{Source: &lockedSource{source: source}}, transport.ServerConfig{Logger: logger}))
		}
	}

	srv := &http.Server{Addr: addr, Handler: mux}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	logger.Printf("Server: listening on %s", addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
