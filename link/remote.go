package link

import (
	"context"
	"fmt"
	"time"
)

// Requester carries one text request to the control system and returns
// its answer. transport.Conn satisfies it.
type Requester interface {
	Request(ctx context.Context, payload []byte) ([]byte, error)
}

const (
	requestPositions = "POSITIONS"
	requestPause     = "PAUSE"
	requestRestart   = "RESTART"
)

// RemoteSource talks to the control system's position server. A non-zero
// Timeout bounds every request.
type RemoteSource struct {
	Timeout time.Duration

	req Requester
}

func NewRemoteSource(req Requester) *RemoteSource {
	return &RemoteSource{req: req}
}

func (s *RemoteSource) request(ctx context.Context, what string) ([]byte, error) {
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	reply, err := s.req.Request(ctx, []byte(what))
	if err != nil {
		return nil, fmt.Errorf("link: %s: %w", what, err)
	}
	return reply, nil
}

func (s *RemoteSource) Positions(ctx context.Context) (string, error) {
	reply, err := s.request(ctx, requestPositions)
	if err != nil {
		return "", err
	}
	return string(reply), nil
}

func (s *RemoteSource) Pause(ctx context.Context) error {
	_, err := s.request(ctx, requestPause)
	return err
}

func (s *RemoteSource) Restart(ctx context.Context) error {
	_, err := s.request(ctx, requestRestart)
	return err
}

// SourceResponder serves a PositionSource over the same text protocol, so
// an in-process source can stand in for the control system.
type SourceResponder struct {
	Source PositionSource
}

func (r SourceResponder) Request(ctx context.Context, payload []byte) ([]byte, error) {
	switch string(payload) {
	case requestPositions:
		text, err := r.Source.Positions(ctx)
		return []byte(text), err
	case requestPause:
		return []byte("OK"), r.Source.Pause(ctx)
	case requestRestart:
		return []byte("OK"), r.Source.Restart(ctx)
	default:
		return nil, fmt.Errorf("link: unknown request %q", payload)
	}
}
