package link

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// replayPrefix is how many entries are applied before the clock starts, so
// the first pose is complete.
const replayPrefix = 10

// ReplayEntry is one recorded sample.
type ReplayEntry struct {
	At    time.Duration
	Name  string
	Value float64
}

// ParseReplay reads "<micros>, <name>, <value>" lines. Blank lines are
// skipped.
func ParseReplay(r io.Reader) ([]ReplayEntry, error) {
	var out []ReplayEntry
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		fields := strings.Split(text, ",")
		if len(fields) != 3 {
			return nil, fmt.Errorf("link: replay line %d: want 3 fields, got %d", line, len(fields))
		}
		micros, err := strconv.ParseInt(strings.TrimSpace(fields[0]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("link: replay line %d: %w", line, err)
		}
		value, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
		if err != nil {
			return nil, fmt.Errorf("link: replay line %d: %w", line, err)
		}
		out = append(out, ReplayEntry{
			At:    time.Duration(micros) * time.Microsecond,
			Name:  strings.TrimSpace(fields[1]),
			Value: value,
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("link: read replay: %w", err)
	}
	return out, nil
}

// ReplaySource plays recorded entries back against a clock. Timestamps are
// relative to the first entry. With Repeat set the log loops.
type ReplaySource struct {
	Repeat bool

	entries []ReplayEntry
	origin  time.Duration
	clock   *clock
	idx     int
	started bool
	state   PositionSet
}

func NewReplaySource(entries []ReplayEntry, repeat bool, now func() time.Time) *ReplaySource {
	s := &ReplaySource{
		Repeat:  repeat,
		entries: append([]ReplayEntry(nil), entries...),
		clock:   newClock(now),
		state:   make(PositionSet),
	}
	if len(s.entries) > 0 {
		s.origin = s.entries[0].At
	}
	return s
}

func (s *ReplaySource) Done() bool {
	return !s.Repeat && s.idx >= len(s.entries)
}

// Positions returns the latest value of every name replayed so far. The
// first call applies the leading entries and starts the clock.
func (s *ReplaySource) Positions(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(s.entries) == 0 {
		return "", nil
	}
	if !s.started {
		for ; s.idx < len(s.entries) && s.idx < replayPrefix; s.idx++ {
			s.apply(s.entries[s.idx])
		}
		s.started = true
		s.clock.begin()
		return encodePositions(s.state)
	}

	if s.idx >= len(s.entries) {
		if !s.Repeat {
			return encodePositions(s.state)
		}
		s.idx = 0
		s.clock.begin()
	}
	t := s.origin + s.clock.elapsed()
	for ; s.idx < len(s.entries); s.idx++ {
		e := s.entries[s.idx]
		if e.At > t {
			break
		}
		s.apply(e)
	}
	return encodePositions(s.state)
}

func (s *ReplaySource) apply(e ReplayEntry) {
	s.state[e.Name] = e.Value
}

func (s *ReplaySource) Pause(context.Context) error {
	s.clock.stop()
	return nil
}

func (s *ReplaySource) Restart(context.Context) error {
	s.clock.resume()
	return nil
}
