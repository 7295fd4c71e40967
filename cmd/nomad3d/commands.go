package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/milk9111/nomad3d/engine"
)

var errUsage = errors.New("usage")

// readCommands forwards non-empty input lines until r is exhausted or ctx
// is done.
func readCommands(ctx context.Context, r io.Reader) <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" {
				continue
			}
			select {
			case out <- line:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// execute runs one operator command against the engine. It must be called
// from the goroutine that ticks the engine.
func execute(ctx context.Context, eng *engine.Engine, line string, logger *log.Logger) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "pause":
		return eng.Pause(ctx)
	case "resume":
		return eng.Resume(ctx)
	case "clear":
		eng.ClearHistory()
	case "filter":
		return eng.FilterHistory(ctx)
	case "history":
		for _, l := range eng.History() {
			logger.Print(l)
		}
	case "status":
		logger.Printf("Status: %s paused=%t focus=%t pause-on-collision=%t", eng.Alert(), eng.Paused(), eng.Focus(), eng.PauseOnCollision())
	case "focus":
		on, err := onOff(args)
		if err != nil {
			return fmt.Errorf("focus on|off: %w", err)
		}
		eng.SetFocus(on)
	case "autopause":
		on, err := onOff(args)
		if err != nil {
			return fmt.Errorf("autopause on|off: %w", err)
		}
		eng.SetPauseOnCollision(on)
	case "correction":
		on, err := onOff(args)
		if err != nil {
			return fmt.Errorf("correction on|off: %w", err)
		}
		eng.Objects().Correction = on
	case "show", "hide":
		i, err := objectIndex(eng, args)
		if err != nil {
			return fmt.Errorf("%s <object>: %w", cmd, err)
		}
		return eng.Objects().SetVisible(ctx, i, cmd == "show")
	case "position":
		i, err := objectIndex(eng, args)
		if err != nil {
			return fmt.Errorf("position <object>: %w", err)
		}
		eng.Objects().TogglePositioning(i)
	case "reset":
		i, err := objectIndex(eng, args)
		if err != nil {
			return fmt.Errorf("reset <object>: %w", err)
		}
		eng.Objects().Reset(i)
	case "move":
		if len(args) != 4 {
			return fmt.Errorf("move <object> <x> <y> <z>: %w", errUsage)
		}
		i, err := objectIndex(eng, args[:1])
		if err != nil {
			return fmt.Errorf("move: %w", err)
		}
		var v mgl64.Vec3
		for k := range v {
			if v[k], err = strconv.ParseFloat(args[k+1], 64); err != nil {
				return fmt.Errorf("move: %w", err)
			}
		}
		obj, _ := eng.Objects().Get(i)
		m := obj.Placement.Current
		m.SetCol(3, v.Vec4(1))
		eng.Objects().Move(i, m)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	return nil
}

func onOff(args []string) (bool, error) {
	if len(args) != 1 {
		return false, errUsage
	}
	switch strings.ToLower(args[0]) {
	case "on", "true", "1":
		return true, nil
	case "off", "false", "0":
		return false, nil
	}
	return false, errUsage
}

// objectIndex accepts an object name or its index.
func objectIndex(eng *engine.Engine, args []string) (int, error) {
	if len(args) != 1 {
		return 0, errUsage
	}
	for i, o := range eng.Objects().All() {
		if o.Spec.Name == args[0] {
			return i, nil
		}
	}
	i, err := strconv.Atoi(args[0])
	if err != nil || i < 0 || i >= eng.Objects().Len() {
		return 0, fmt.Errorf("no object %q", args[0])
	}
	return i, nil
}
