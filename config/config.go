package config

import (
	"errors"
	"fmt"
	"image/color"
	"strconv"
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/image/colornames"
	"gopkg.in/yaml.v3"

	"github.com/milk9111/nomad3d/collision"
	"github.com/milk9111/nomad3d/ecs/component"
	"github.com/milk9111/nomad3d/ecs/system"
	"github.com/milk9111/nomad3d/engine"
)

// DefaultFile is the name of the embedded configuration.
const DefaultFile = "default.yaml"

var ErrInvalid = errors.New("config: invalid")

// Position source kinds.
const (
	SourceSimulated = "simulated"
	SourceScript    = "script"
	SourceReplay    = "replay"
	SourceRemote    = "remote"
	SourceNone      = "none"
)

type Config struct {
	Model            string         `yaml:"model"`
	Configuration    string         `yaml:"configuration"`
	MinDeltaTimeMS   int            `yaml:"min_delta_time_ms"`
	PauseOnCollision bool           `yaml:"pause_on_collision"`
	Focus            bool           `yaml:"focus"`
	Highlight        HighlightSpec  `yaml:"highlight"`
	Positions        PositionsSpec  `yaml:"positions"`
	Collisions       CollisionsSpec `yaml:"collisions"`
	Objects          []ObjectSpec   `yaml:"objects"`
}

type HighlightSpec struct {
	Color      *YAMLColor `yaml:"color"`
	MinOpacity float64    `yaml:"min_opacity"`
	MaxOpacity float64    `yaml:"max_opacity"`
	Step       float64    `yaml:"step"`
}

type PositionsSpec struct {
	Kind      string  `yaml:"kind"`
	Endpoint  string  `yaml:"endpoint"`
	Script    string  `yaml:"script"`
	Replay    string  `yaml:"replay"`
	Repeat    bool    `yaml:"repeat"`
	Frequency float64 `yaml:"frequency"`
	TimeoutMS int     `yaml:"timeout_ms"`
}

type CollisionsSpec struct {
	Enabled    bool        `yaml:"enabled"`
	Endpoint   string      `yaml:"endpoint"`
	Margin     float64     `yaml:"margin"`
	TimeoutMS  int         `yaml:"timeout_ms"`
	Correction bool        `yaml:"correction"`
	Shapes     []ShapeSpec `yaml:"shapes"`
}

// ShapeSpec gives the loopback backend the blocks of an object file.
type ShapeSpec struct {
	FileName string    `yaml:"file_name"`
	Boxes    []BoxSpec `yaml:"boxes"`
}

type BoxSpec struct {
	Name string     `yaml:"name"`
	Min  [3]float64 `yaml:"min"`
	Max  [3]float64 `yaml:"max"`
}

type ObjectSpec struct {
	Name        string     `yaml:"name"`
	Path        string     `yaml:"path"`
	FileName    string     `yaml:"file_name"`
	Visible     bool       `yaml:"visible"`
	Translation [3]float64 `yaml:"translation"`
	Rotation    [3]float64 `yaml:"rotation"`
	Direction   string     `yaml:"direction"`
	Blocks      []string   `yaml:"blocks"`
}

func LoadSpec[T any](filename string) (T, error) {
	var zero T
	data, err := Load(filename)
	if err != nil {
		return zero, fmt.Errorf("config: load %s: %w", filename, err)
	}

	var spec T
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return zero, fmt.Errorf("config: unmarshal %s: %w", filename, err)
	}

	return spec, nil
}

// LoadConfig reads a configuration file. Values it leaves out are taken
// from the defaults.
func LoadConfig(filename string) (*Config, error) {
	if filename == "" {
		filename = DefaultFile
	}
	cfg := Default()
	data, err := Load(filename)
	if err != nil {
		return nil, fmt.Errorf("config: load %s: %w", filename, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal %s: %w", filename, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", filename, err)
	}
	return cfg, nil
}

// Default is the configuration used when no file sets a value.
func Default() *Config {
	return &Config{
		Model:          "bench.yaml",
		MinDeltaTimeMS: 40,
		Highlight: HighlightSpec{
			MinOpacity: system.DefaultPulseMin,
			MaxOpacity: system.DefaultPulseMax,
			Step:       system.DefaultPulseStep,
		},
		Positions: PositionsSpec{
			Kind:      SourceSimulated,
			Frequency: 1,
			TimeoutMS: 200,
		},
		Collisions: CollisionsSpec{
			Enabled:   true,
			TimeoutMS: 30,
		},
	}
}

func (c *Config) Validate() error {
	switch c.Positions.Kind {
	case SourceSimulated, SourceScript, SourceReplay, SourceRemote, SourceNone:
	default:
		return fmt.Errorf("%w: positions kind %q", ErrInvalid, c.Positions.Kind)
	}
	if c.Positions.Kind == SourceScript && c.Positions.Script == "" {
		return fmt.Errorf("%w: script source without script", ErrInvalid)
	}
	if c.Positions.Kind == SourceReplay && c.Positions.Replay == "" {
		return fmt.Errorf("%w: replay source without log", ErrInvalid)
	}
	if c.Positions.Kind == SourceRemote && c.Positions.Endpoint == "" {
		return fmt.Errorf("%w: remote source without endpoint", ErrInvalid)
	}
	if c.MinDeltaTimeMS < 0 {
		return fmt.Errorf("%w: min_delta_time_ms %d", ErrInvalid, c.MinDeltaTimeMS)
	}
	h := c.Highlight
	if h.MinOpacity < 0 || h.MaxOpacity > 1 || h.MinOpacity > h.MaxOpacity {
		return fmt.Errorf("%w: highlight opacity [%g, %g]", ErrInvalid, h.MinOpacity, h.MaxOpacity)
	}
	if h.Step <= 0 {
		return fmt.Errorf("%w: highlight step %g", ErrInvalid, h.Step)
	}
	if c.Collisions.Margin < 0 {
		return fmt.Errorf("%w: collision margin %g", ErrInvalid, c.Collisions.Margin)
	}
	for _, o := range c.Objects {
		if o.FileName == "" {
			return fmt.Errorf("%w: object %q without file_name", ErrInvalid, o.Name)
		}
		if _, err := engine.ParseDirection(o.Direction); err != nil {
			return fmt.Errorf("object %q: %w", o.Name, err)
		}
	}
	return nil
}

func (c *Config) MinInterval() time.Duration {
	return time.Duration(c.MinDeltaTimeMS) * time.Millisecond
}

func (c *Config) PositionsTimeout() time.Duration {
	return time.Duration(c.Positions.TimeoutMS) * time.Millisecond
}

func (c *Config) CollisionsTimeout() time.Duration {
	return time.Duration(c.Collisions.TimeoutMS) * time.Millisecond
}

// Pulse builds the highlight pulse, starting at the lower opacity.
func (c *Config) Pulse() component.HighlightPulse {
	p := system.DefaultPulse()
	if c.Highlight.Color != nil && c.Highlight.Color.Color != nil {
		p.Color = c.Highlight.Color.Color
	}
	p.Min = c.Highlight.MinOpacity
	p.Max = c.Highlight.MaxOpacity
	p.Step = c.Highlight.Step
	p.Opacity = p.Min
	p.Rising = true
	return p
}

// Options maps the runtime settings onto engine options.
func (c *Config) Options() engine.Options {
	return engine.Options{
		Configuration:    c.Configuration,
		PauseOnCollision: c.PauseOnCollision,
		Focus:            c.Focus,
		Pulse:            c.Pulse(),
	}
}

// Apply pushes the settings that may change while running onto a live
// engine.
func (c *Config) Apply(e *engine.Engine) {
	e.SetPauseOnCollision(c.PauseOnCollision)
	e.SetFocus(c.Focus)
	e.SetPulse(c.Pulse())
	e.Feed().SetMinInterval(c.MinInterval())
	e.Objects().Correction = c.Collisions.Correction
}

func (b BoxSpec) Local() collision.LocalBox {
	return collision.LocalBox{Name: b.Name, Min: mgl64.Vec3(b.Min), Max: mgl64.Vec3(b.Max)}
}

func (s ShapeSpec) LocalBoxes() []collision.LocalBox {
	out := make([]collision.LocalBox, 0, len(s.Boxes))
	for _, b := range s.Boxes {
		out = append(out, b.Local())
	}
	return out
}

// Engine converts the object description. Rotation is in degrees about
// X, then Y, then Z.
func (o ObjectSpec) Engine() (engine.ObjectSpec, error) {
	dir, err := engine.ParseDirection(o.Direction)
	if err != nil {
		return engine.ObjectSpec{}, fmt.Errorf("config: object %s: %w", o.Name, err)
	}
	m := eulerDegrees(o.Rotation).Mat4()
	m.SetCol(3, mgl64.Vec3(o.Translation).Vec4(1))
	return engine.ObjectSpec{
		Name:      o.Name,
		Path:      o.Path,
		FileName:  o.FileName,
		Visible:   o.Visible,
		Placement: m,
		Blocks:    append([]string(nil), o.Blocks...),
		Direction: dir,
	}, nil
}

func eulerDegrees(r [3]float64) mgl64.Mat3 {
	x := mgl64.Rotate3DX(mgl64.DegToRad(r[0]))
	y := mgl64.Rotate3DY(mgl64.DegToRad(r[1]))
	z := mgl64.Rotate3DZ(mgl64.DegToRad(r[2]))
	return z.Mul3(y).Mul3(x)
}

// YAMLColor accepts an SVG colour name or #rrggbb / #rrggbbaa.
type YAMLColor struct {
	color.Color
}

func (c *YAMLColor) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("config: color must be a string")
	}
	if named, ok := colornames.Map[strings.ToLower(strings.TrimSpace(value.Value))]; ok {
		c.Color = named
		return nil
	}

	s := strings.TrimPrefix(strings.TrimSpace(value.Value), "#")
	if len(s) != 6 && len(s) != 8 {
		return fmt.Errorf("config: invalid color %q", value.Value)
	}
	if len(s) == 6 {
		s += "ff"
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return fmt.Errorf("config: invalid color %q: %w", value.Value, err)
	}
	c.Color = color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}
	return nil
}
