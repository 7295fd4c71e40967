package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/milk9111/nomad3d/collision"
	"github.com/milk9111/nomad3d/config"
	"github.com/milk9111/nomad3d/link"
	"github.com/milk9111/nomad3d/model"
	"github.com/milk9111/nomad3d/transport"
)

type options struct {
	configPath string
	modelPath  string
	tick       time.Duration
	watch      bool
}

// closers collects what has to be released on shutdown.
type closers []func() error

func (c closers) close() {
	for i := len(c) - 1; i >= 0; i-- {
		if err := c[i](); err != nil {
			log.Printf("Shutdown: %v", err)
		}
	}
}

func loadModel(cfg *config.Config, override string) (*model.Tree, error) {
	name := cfg.Model
	if override != "" {
		name = override
	}
	spec, err := config.LoadModel(name)
	if err != nil {
		return nil, err
	}
	return spec.Build()
}

// newSource builds the configured position source. Nil means no source.
func newSource(ctx context.Context, cfg *config.Config, bindings *link.Bindings, cl *closers) (link.PositionSource, error) {
	p := cfg.Positions
	switch p.Kind {
	case config.SourceNone:
		return nil, nil
	case config.SourceSimulated:
		return link.NewSimulatedSource(link.ChannelsFromBindings(bindings), p.Frequency, time.Now), nil
	case config.SourceScript:
		src, err := config.LoadScript(p.Script)
		if err != nil {
			return nil, fmt.Errorf("positions: load script %s: %w", p.Script, err)
		}
		return link.NewScriptSource(p.Script, src, link.ChannelsFromBindings(bindings), time.Now)
	case config.SourceReplay:
		f, err := os.Open(p.Replay)
		if err != nil {
			return nil, fmt.Errorf("positions: open replay: %w", err)
		}
		defer f.Close()
		entries, err := link.ParseReplay(f)
		if err != nil {
			return nil, fmt.Errorf("positions: %s: %w", p.Replay, err)
		}
		return link.NewReplaySource(entries, p.Repeat, time.Now), nil
	case config.SourceRemote:
		conn, err := transport.Dial(ctx, p.Endpoint, transport.DialConfig{})
		if err != nil {
			return nil, fmt.Errorf("positions: %w", err)
		}
		*cl = append(*cl, conn.Close)
		src := link.NewRemoteSource(conn)
		src.Timeout = cfg.PositionsTimeout()
		return src, nil
	default:
		return nil, fmt.Errorf("positions: unknown kind %q", p.Kind)
	}
}

// newBackend returns the collision requester: a websocket when an
// endpoint is configured, the in-process loopback otherwise.
func newBackend(ctx context.Context, cfg *config.Config, source collision.BlockSource, cl *closers) (collision.Requester, error) {
	c := cfg.Collisions
	if !c.Enabled {
		return nil, nil
	}
	if c.Endpoint != "" {
		conn, err := transport.Dial(ctx, c.Endpoint, transport.DialConfig{})
		if err != nil {
			return nil, fmt.Errorf("collisions: %w", err)
		}
		*cl = append(*cl, conn.Close)
		return conn, nil
	}
	return newLoopback(cfg, source), nil
}

func newLoopback(cfg *config.Config, source collision.BlockSource) *collision.Loopback {
	lb := collision.NewLoopback(source, cfg.Collisions.Margin)
	for _, s := range cfg.Collisions.Shapes {
		lb.AddShape(s.FileName, s.LocalBoxes()...)
	}
	return lb
}
