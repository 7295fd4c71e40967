package link

import (
	"context"
	"math"
	"time"
)

// Channel is one simulated signal and the range it sweeps.
type Channel struct {
	Name string
	Min  float64
	Max  float64
}

func (c Channel) bounded() bool {
	return !math.IsInf(c.Min, 0) && !math.IsInf(c.Max, 0)
}

// ChannelsFromBindings describes every bound axis as a channel.
func ChannelsFromBindings(bs *Bindings) []Channel {
	out := make([]Channel, 0, bs.Len())
	seen := make(map[string]bool, bs.Len())
	for _, b := range bs.list {
		if seen[b.name] {
			continue
		}
		seen[b.name] = true
		out = append(out, Channel{Name: b.name, Min: b.node.Axis.Min(), Max: b.node.Axis.Max()})
	}
	return out
}

// clock measures elapsed time that does not advance while stopped.
type clock struct {
	now     func() time.Time
	start   time.Time
	stopped time.Duration
	stopAt  time.Time
	running bool
}

func newClock(now func() time.Time) *clock {
	if now == nil {
		now = time.Now
	}
	return &clock{now: now}
}

func (c *clock) begin() {
	c.start = c.now()
	c.stopped = 0
	c.running = true
}

func (c *clock) stop() {
	if c.running {
		c.stopAt = c.now()
		c.running = false
	}
}

func (c *clock) resume() {
	if c.running {
		return
	}
	if c.start.IsZero() {
		c.begin()
		return
	}
	c.stopped += c.now().Sub(c.stopAt)
	c.running = true
}

func (c *clock) elapsed() time.Duration {
	if c.start.IsZero() {
		return 0
	}
	end := c.now()
	if !c.running {
		end = c.stopAt
	}
	return end.Sub(c.start) - c.stopped
}

// SimulatedSource sweeps each channel as m + a·sin(f·t) with m the middle
// of the range and a half its width. Unbounded channels sit at 0.
type SimulatedSource struct {
	channels  []Channel
	frequency float64
	clock     *clock
	paused    bool
}

// NewSimulatedSource starts the sweep immediately. A zero frequency means
// 1 rad/s.
func NewSimulatedSource(channels []Channel, frequency float64, now func() time.Time) *SimulatedSource {
	if frequency == 0 {
		frequency = 1
	}
	s := &SimulatedSource{
		channels:  append([]Channel(nil), channels...),
		frequency: frequency,
		clock:     newClock(now),
	}
	s.clock.begin()
	return s
}

func (s *SimulatedSource) At(t float64) PositionSet {
	set := make(PositionSet, len(s.channels))
	for _, c := range s.channels {
		if !c.bounded() {
			set[c.Name] = 0
			continue
		}
		m := 0.5 * (c.Max + c.Min)
		a := 0.5 * math.Abs(c.Max-c.Min)
		set[c.Name] = m + a*math.Sin(s.frequency*t)
	}
	return set
}

func (s *SimulatedSource) Positions(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return encodePositions(s.At(s.clock.elapsed().Seconds()))
}

func (s *SimulatedSource) Pause(context.Context) error {
	s.clock.stop()
	return nil
}

func (s *SimulatedSource) Restart(context.Context) error {
	s.clock.resume()
	return nil
}
