package config

import (
	"context"
	"image/color"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/colornames"
	"gopkg.in/yaml.v3"

	"github.com/milk9111/nomad3d/engine"
	"github.com/milk9111/nomad3d/link"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "bench.yaml", cfg.Model)
	assert.Equal(t, SourceSimulated, cfg.Positions.Kind)
	assert.Equal(t, 40*time.Millisecond, cfg.MinInterval())
	assert.Equal(t, 30*time.Millisecond, cfg.CollisionsTimeout())
	require.NotNil(t, cfg.Highlight.Color)
	assert.Equal(t, colornames.Red, cfg.Highlight.Color.Color)
	require.Len(t, cfg.Objects, 1)
	assert.Equal(t, []string{"Tip", "Stem"}, cfg.Objects[0].Blocks)
	require.Len(t, cfg.Collisions.Shapes, 1)
	assert.Len(t, cfg.Collisions.Shapes[0].LocalBoxes(), 2)
}

func TestLoadConfigKeepsDefaultsForMissingKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte("min_delta_time_ms: 10\npositions:\n  kind: replay\n  replay: run.log\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Millisecond, cfg.MinInterval())
	assert.Equal(t, SourceReplay, cfg.Positions.Kind)
	assert.Equal(t, "run.log", cfg.Positions.Replay)
	assert.Equal(t, 200, cfg.Positions.TimeoutMS)
	assert.True(t, cfg.Collisions.Enabled)
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		ok     bool
	}{
		{name: "defaults", mutate: func(*Config) {}, ok: true},
		{name: "unknown source", mutate: func(c *Config) { c.Positions.Kind = "serial" }},
		{name: "script without file", mutate: func(c *Config) { c.Positions.Kind = SourceScript }},
		{name: "remote without endpoint", mutate: func(c *Config) { c.Positions.Kind = SourceRemote }},
		{name: "inverted opacity", mutate: func(c *Config) { c.Highlight.MinOpacity, c.Highlight.MaxOpacity = 0.9, 0.1 }},
		{name: "zero step", mutate: func(c *Config) { c.Highlight.Step = 0 }},
		{name: "negative margin", mutate: func(c *Config) { c.Collisions.Margin = -1 }},
		{name: "object without file", mutate: func(c *Config) { c.Objects = []ObjectSpec{{Name: "x"}} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}

	cfg := Default()
	cfg.Objects = []ObjectSpec{{Name: "x", FileName: "x.glb", Direction: "Up"}}
	assert.ErrorIs(t, cfg.Validate(), engine.ErrBadDirection)
}

func TestYAMLColor(t *testing.T) {
	tests := []struct {
		in      string
		want    color.Color
		wantErr bool
	}{
		{in: `"red"`, want: colornames.Red},
		{in: `"Orange"`, want: colornames.Orange},
		{in: `"#00ff00"`, want: color.NRGBA{G: 0xff, A: 0xff}},
		{in: `"0000ff80"`, want: color.NRGBA{B: 0xff, A: 0x80}},
		{in: `"#12345"`, wantErr: true},
		{in: `"#gg0000"`, wantErr: true},
		{in: `[1, 2, 3]`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var c YAMLColor
			err := yaml.Unmarshal([]byte(tt.in), &c)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.Color)
		})
	}
}

func TestPulse(t *testing.T) {
	cfg := Default()
	cfg.Highlight.Color = &YAMLColor{Color: colornames.Yellow}
	cfg.Highlight.MinOpacity = 0.2
	cfg.Highlight.MaxOpacity = 0.6

	p := cfg.Pulse()
	assert.Equal(t, colornames.Yellow, p.Color)
	assert.Equal(t, 0.2, p.Opacity)
	assert.Equal(t, 0.6, p.Max)
	assert.True(t, p.Rising)
}

func TestObjectSpecEngine(t *testing.T) {
	o := ObjectSpec{
		Name:        "probe",
		FileName:    "probe.glb",
		Translation: [3]float64{1, 2, 3},
		Rotation:    [3]float64{0, 90, 0},
		Direction:   "Rx+",
		Blocks:      []string{"Tip"},
	}
	spec, err := o.Engine()
	require.NoError(t, err)

	assert.Equal(t, engine.Direction{Axis: 0, Sign: 1}, spec.Direction)
	assert.Equal(t, mgl64.Vec3{1, 2, 3}, spec.Placement.Col(3).Vec3())
	x := spec.Placement.Mul4x1(mgl64.Vec4{1, 0, 0, 0}).Vec3()
	assert.True(t, x.ApproxEqualThreshold(mgl64.Vec3{0, 0, -1}, 1e-9), "got %v", x)

	o.Direction = "sideways"
	_, err = o.Engine()
	assert.ErrorIs(t, err, engine.ErrBadDirection)
}

func TestBuildBenchModel(t *testing.T) {
	spec, err := LoadModel("bench.yaml")
	require.NoError(t, err)
	tree, err := spec.Build()
	require.NoError(t, err)

	assert.Equal(t, 7, tree.Len())
	var blocks []string
	for _, n := range tree.Blocks() {
		blocks = append(blocks, n.Name)
	}
	assert.Equal(t, []string{"table", "column", "saddle", "spindle", "cover"}, blocks)

	bindings := link.CollectBindings(tree, log.New(io.Discard, "", 0))
	assert.Equal(t, []string{"TX", "TY"}, bindings.Names())

	tree.BindConfiguration("default")
	cover, ok := tree.Find("cover")
	require.True(t, ok)
	assert.False(t, cover.Visible())

	spindle, _ := tree.Find("spindle")
	world, err := tree.Absolute(spindle.ID())
	require.NoError(t, err)
	assert.True(t, world.Col(3).Vec3().ApproxEqual(mgl64.Vec3{0, 40, 0}))
}

func TestBuildModelErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "duplicate", yaml: "root:\n  name: a\n  children:\n    - name: b\n    - name: b\n"},
		{name: "unnamed", yaml: "root:\n  children:\n    - name: b\n"},
		{name: "axis type", yaml: "root:\n  name: a\n  axis:\n    type: Helical\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := ParseModel([]byte(tt.yaml))
			require.NoError(t, err)
			_, err = spec.Build()
			assert.Error(t, err)
		})
	}
}

func TestEmbeddedScriptsRun(t *testing.T) {
	for _, name := range []string{"sweep.tengo", "scripts/park.tengo"} {
		t.Run(name, func(t *testing.T) {
			src, err := LoadScript(name)
			require.NoError(t, err)

			channels := []link.Channel{
				{Name: "TY", Min: 0, Max: 10},
				{Name: "FREE", Min: math.Inf(-1), Max: math.Inf(1)},
			}
			s, err := link.NewScriptSource(name, src, channels, time.Now)
			require.NoError(t, err)
			set, err := s.At(context.Background(), 0)
			require.NoError(t, err)
			assert.Equal(t, 0.0, set["FREE"])
			ty, ok := set.Get("TY")
			require.True(t, ok)
			assert.True(t, ty >= 0 && ty <= 10)
		})
	}
}

func TestApply(t *testing.T) {
	spec, err := LoadModel("bench.yaml")
	require.NoError(t, err)
	tree, err := spec.Build()
	require.NoError(t, err)

	e, err := engine.New(engine.Deps{Tree: tree, Logger: log.New(io.Discard, "", 0)}, Default().Options())
	require.NoError(t, err)

	cfg := Default()
	cfg.PauseOnCollision = true
	cfg.Focus = true
	cfg.MinDeltaTimeMS = 10
	cfg.Collisions.Correction = true
	cfg.Apply(e)

	assert.True(t, e.PauseOnCollision())
	assert.True(t, e.Focus())
	assert.Equal(t, 10*time.Millisecond, e.Feed().MinInterval())
	assert.True(t, e.Objects().Correction)
}

func TestWatcherReportsWrites(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte("focus: false\n"), 0o644))

	w, err := NewWatcher(path)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x: 1\n"), 0o644))
	require.NoError(t, os.WriteFile(path, []byte("focus: true\n"), 0o644))

	want, err := filepath.Abs(path)
	require.NoError(t, err)
	select {
	case got := <-w.Events:
		assert.Equal(t, want, got)
	case <-time.After(2 * time.Second):
		t.Fatal("no event for the watched file")
	}
}
