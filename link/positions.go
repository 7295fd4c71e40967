package link

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// PositionSet maps controller names to absolute axis positions.
type PositionSet map[string]float64

func (p PositionSet) Get(name string) (float64, bool) {
	v, ok := p[name]
	return v, ok
}

func (p PositionSet) Len() int {
	return len(p)
}

// Names returns the controller names in sorted order.
func (p PositionSet) Names() []string {
	names := make([]string, 0, len(p))
	for n := range p {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ParsePositions decodes the JSON object a position source returns. Blank
// text means no data and yields a nil set.
func ParsePositions(text string) (PositionSet, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	var set PositionSet
	if err := json.Unmarshal([]byte(text), &set); err != nil {
		return nil, fmt.Errorf("link: parse positions: %w", err)
	}
	return set, nil
}

// PositionSource is the external control system. Positions returns the
// JSON text of the latest positions, or "" when none are available.
type PositionSource interface {
	Positions(ctx context.Context) (string, error)
	Pause(ctx context.Context) error
	Restart(ctx context.Context) error
}

// encodePositions is the inverse of ParsePositions for in-process sources.
func encodePositions(set PositionSet) (string, error) {
	if len(set) == 0 {
		return "", nil
	}
	data, err := json.Marshal(set)
	if err != nil {
		return "", fmt.Errorf("link: encode positions: %w", err)
	}
	return string(data), nil
}
