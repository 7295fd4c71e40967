package main

import (
	"context"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/milk9111/nomad3d/collision"
	"github.com/milk9111/nomad3d/config"
	"github.com/milk9111/nomad3d/engine"
)

func testEngine(t *testing.T) *engine.Engine {
	t.Helper()
	logger := log.New(io.Discard, "", 0)
	cfg, err := config.LoadConfig("")
	require.NoError(t, err)
	tree, err := loadModel(cfg, "")
	require.NoError(t, err)

	bridge := collision.NewBridge(newLoopback(cfg, engine.TreeBlocks{Tree: tree}), collision.BridgeConfig{Logger: logger})
	eng, err := engine.New(engine.Deps{Tree: tree, Bridge: bridge, Logger: logger}, cfg.Options())
	require.NoError(t, err)
	require.NoError(t, eng.Init(context.Background()))

	spec, err := cfg.Objects[0].Engine()
	require.NoError(t, err)
	_, err = eng.Objects().Add(context.Background(), spec)
	require.NoError(t, err)
	return eng
}

func TestExecute(t *testing.T) {
	eng := testEngine(t)
	ctx := context.Background()
	logger := log.New(io.Discard, "", 0)

	require.NoError(t, execute(ctx, eng, "focus on", logger))
	assert.True(t, eng.Focus())
	require.NoError(t, execute(ctx, eng, "autopause on", logger))
	assert.True(t, eng.PauseOnCollision())
	require.NoError(t, execute(ctx, eng, "correction off", logger))
	assert.False(t, eng.Objects().Correction)

	require.NoError(t, execute(ctx, eng, "move probe 1 2 3", logger))
	obj, _ := eng.Objects().Get(0)
	assert.Equal(t, mgl64.Vec3{1, 2, 3}, obj.Placement.Current.Col(3).Vec3())
	assert.Equal(t, 0, eng.Objects().Moving())

	require.NoError(t, execute(ctx, eng, "position 0", logger))
	assert.True(t, obj.Positioning)
	require.NoError(t, execute(ctx, eng, "reset probe", logger))
	assert.False(t, obj.Positioning)
	assert.Equal(t, obj.Placement.Initial, obj.Placement.Current)

	require.NoError(t, execute(ctx, eng, "hide probe", logger))
	assert.False(t, obj.Registered)
	require.NoError(t, execute(ctx, eng, "show probe", logger))
	assert.True(t, obj.Registered)

	require.NoError(t, execute(ctx, eng, "clear", logger))
	require.NoError(t, execute(ctx, eng, "status", logger))
}

func TestExecuteErrors(t *testing.T) {
	eng := testEngine(t)
	for _, line := range []string{
		"jump",
		"focus maybe",
		"move probe 1 2",
		"move probe a b c",
		"reset ghost",
		"show 7",
	} {
		t.Run(line, func(t *testing.T) {
			assert.Error(t, execute(context.Background(), eng, line, log.New(io.Discard, "", 0)))
		})
	}
}

func TestReadCommands(t *testing.T) {
	var got []string
	for line := range readCommands(context.Background(), strings.NewReader("pause\n\n  focus on \nresume\n")) {
		got = append(got, line)
	}
	assert.Equal(t, []string{"pause", "focus on", "resume"}, got)
}
