package link

import (
	"context"
	"log"
	"time"
)

const DefaultMinInterval = 40 * time.Millisecond

// Sample is what one Poll hands back. Fresh is set only when the source
// was actually queried during this call.
type Sample struct {
	Positions PositionSet
	Fresh     bool
}

func (s Sample) Empty() bool {
	return len(s.Positions) == 0
}

type FeedConfig struct {
	MinInterval time.Duration
	Now         func() time.Time
	Logger      *log.Logger
}

// Feed rate limits a PositionSource. It is meant to be polled every tick
// from a single goroutine.
type Feed struct {
	source      PositionSource
	minInterval time.Duration
	now         func() time.Time
	logger      *log.Logger

	fetched bool
	last    time.Time
	cached  PositionSet
	paused  bool
	fetches int
}

// NewFeed wraps source. A nil source gives a feed whose polls are always
// empty.
func NewFeed(source PositionSource, cfg FeedConfig) *Feed {
	f := &Feed{
		source:      source,
		minInterval: cfg.MinInterval,
		now:         cfg.Now,
		logger:      cfg.Logger,
	}
	if f.minInterval <= 0 {
		f.minInterval = DefaultMinInterval
	}
	if f.now == nil {
		f.now = time.Now
	}
	if f.logger == nil {
		f.logger = log.Default()
	}
	return f
}

func (f *Feed) Enabled() bool {
	return f != nil && f.source != nil
}

func (f *Feed) Paused() bool {
	return f.paused
}

// Fetches counts the calls that reached the source.
func (f *Feed) Fetches() int {
	return f.fetches
}

func (f *Feed) MinInterval() time.Duration {
	return f.minInterval
}

func (f *Feed) SetMinInterval(d time.Duration) {
	if d > 0 {
		f.minInterval = d
	}
}

// Poll returns the latest positions. Within MinInterval of the previous
// fetch, and while paused, the cached set is returned without touching
// the source.
func (f *Feed) Poll(ctx context.Context) Sample {
	if !f.Enabled() {
		return Sample{}
	}
	now := f.now()
	if f.paused || (f.fetched && now.Sub(f.last) <= f.minInterval) {
		return Sample{Positions: f.cached}
	}

	f.fetched = true
	f.last = now
	f.fetches++

	text, err := f.source.Positions(ctx)
	if err != nil {
		f.logger.Printf("Feed: positions: %v", err)
		f.cached = nil
		return Sample{}
	}
	set, err := ParsePositions(text)
	if err != nil {
		f.logger.Printf("Feed: %v", err)
		f.cached = nil
		return Sample{}
	}
	f.cached = set
	return Sample{Positions: set, Fresh: len(set) > 0}
}

// Pause asks the source to stop and suspends fetching. Pausing twice is a
// no-op.
func (f *Feed) Pause(ctx context.Context) error {
	if !f.Enabled() || f.paused {
		return nil
	}
	f.paused = true
	return f.source.Pause(ctx)
}

// Resume restarts the source. The next Poll fetches immediately.
func (f *Feed) Resume(ctx context.Context) error {
	if !f.Enabled() || !f.paused {
		return nil
	}
	f.paused = false
	f.fetched = false
	return f.source.Restart(ctx)
}
