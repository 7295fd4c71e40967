package link

import (
	"context"
	"fmt"
	"time"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
)

// ScriptSource computes positions with a tengo script. The script sees
// `t` (seconds since start) and `channels` (name -> {min, max}) and fills
// the `positions` map.
type ScriptSource struct {
	name     string
	compiled *tengo.Compiled
	clock    *clock
}

func NewScriptSource(name string, src []byte, channels []Channel, now func() time.Time) (*ScriptSource, error) {
	chans := make(map[string]any, len(channels))
	for _, c := range channels {
		chans[c.Name] = map[string]any{"min": c.Min, "max": c.Max}
	}

	script := tengo.NewScript(src)
	_ = script.Add("t", 0.0)
	_ = script.Add("channels", chans)
	_ = script.Add("positions", map[string]any{})
	script.SetImports(stdlib.GetModuleMap(stdlib.AllModuleNames()...))

	compiled, err := script.Compile()
	if err != nil {
		return nil, fmt.Errorf("link: compile script %s: %w", name, err)
	}
	s := &ScriptSource{name: name, compiled: compiled, clock: newClock(now)}
	s.clock.begin()
	return s, nil
}

// At runs the script for time t.
func (s *ScriptSource) At(ctx context.Context, t float64) (PositionSet, error) {
	if err := s.compiled.Set("t", t); err != nil {
		return nil, err
	}
	if err := s.compiled.Set("positions", map[string]any{}); err != nil {
		return nil, err
	}
	if err := s.compiled.RunContext(ctx); err != nil {
		return nil, fmt.Errorf("link: run script %s: %w", s.name, err)
	}

	out := s.compiled.Get("positions").Map()
	set := make(PositionSet, len(out))
	for name, v := range out {
		switch n := v.(type) {
		case float64:
			set[name] = n
		case int64:
			set[name] = float64(n)
		default:
			return nil, fmt.Errorf("link: script %s: position %s is %T", s.name, name, v)
		}
	}
	return set, nil
}

func (s *ScriptSource) Positions(ctx context.Context) (string, error) {
	set, err := s.At(ctx, s.clock.elapsed().Seconds())
	if err != nil {
		return "", err
	}
	return encodePositions(set)
}

func (s *ScriptSource) Pause(context.Context) error {
	s.clock.stop()
	return nil
}

func (s *ScriptSource) Restart(context.Context) error {
	s.clock.resume()
	return nil
}
