package collision

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// Requester is the transport to the collision backend: one JSON envelope
// out, one JSON answer back.
type Requester interface {
	Request(ctx context.Context, payload []byte) ([]byte, error)
}

// ObjectTransform is the placement of one attached object to forward.
type ObjectTransform struct {
	ID        ObjectID
	Transform mgl64.Mat4
}

type BridgeConfig struct {
	// Timeout bounds every backend request. Zero means 30ms.
	Timeout time.Duration
	Logger  *log.Logger
}

// Bridge serializes model state for the collision backend and parses its
// reports. A Bridge without a Requester is disabled and never sends.
type Bridge struct {
	req     Requester
	timeout time.Duration
	logger  *log.Logger
}

func NewBridge(req Requester, cfg BridgeConfig) *Bridge {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Millisecond
	}
	return &Bridge{req: req, timeout: timeout, logger: logger}
}

// Enabled reports whether a backend is attached.
func (b *Bridge) Enabled() bool {
	return b != nil && b.req != nil
}

// PushAndQuery forwards the placement of every moved object, then asks for
// the collisions given the current axis positions.
func (b *Bridge) PushAndQuery(ctx context.Context, positions map[string]float64, moved []ObjectTransform) (Report, error) {
	if !b.Enabled() {
		return Report{}, ErrBackendUnavailable
	}
	for _, o := range moved {
		if err := b.MoveObject(ctx, o.ID, o.Transform); err != nil {
			return Report{}, err
		}
	}
	if positions == nil {
		positions = map[string]float64{}
	}
	resp, err := b.send(ctx, collisionsRequest{Type: RequestCollisions, Positions: positions})
	if err != nil {
		return Report{}, err
	}
	report, err := ParseReport(resp)
	if err != nil {
		return Report{}, fmt.Errorf("collision: query: %w", err)
	}
	return report, nil
}

// MoveObject sends the corrected 12-float placement of an attached object.
func (b *Bridge) MoveObject(ctx context.Context, id ObjectID, m mgl64.Mat4) error {
	if !b.Enabled() {
		return ErrBackendUnavailable
	}
	_, err := b.send(ctx, moveObjectRequest{Type: RequestMoveObject, ObjectID: id, BackendTransform: EncodeTransform(m)})
	return err
}

// RegisterObject loads fileName from path on the backend and returns the
// id it was given.
func (b *Bridge) RegisterObject(ctx context.Context, path, fileName string) (ObjectID, error) {
	if !b.Enabled() {
		return 0, ErrBackendUnavailable
	}
	resp, err := b.send(ctx, addObjectRequest{Type: RequestAddObject, Path: path, FileName: fileName})
	if err != nil {
		return 0, err
	}
	var out addObjectResponse
	if err := json.Unmarshal(resp, &out); err != nil || out.ObjectID == nil {
		return 0, fmt.Errorf("collision: add object %s: %w", fileName, ErrMalformedReport)
	}
	return *out.ObjectID, nil
}

func (b *Bridge) UnregisterObject(ctx context.Context, id ObjectID) error {
	if !b.Enabled() {
		return ErrBackendUnavailable
	}
	_, err := b.send(ctx, removeObjectRequest{Type: RequestRemoveObject, ObjectID: id})
	return err
}

// Filter declares pairs as false positives; the backend stops reporting them.
func (b *Bridge) Filter(ctx context.Context, pairs []Pair) error {
	if !b.Enabled() {
		return ErrBackendUnavailable
	}
	if pairs == nil {
		pairs = []Pair{}
	}
	_, err := b.send(ctx, filterRequest{Type: RequestFilterCollisions, CollisionsList: pairs})
	return err
}

func (b *Bridge) send(ctx context.Context, request any) ([]byte, error) {
	payload, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("collision: encode request: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	resp, err := b.req.Request(ctx, payload)
	if err != nil {
		kind, _ := envelopeType(payload)
		return nil, fmt.Errorf("collision: %s request: %w", kind, err)
	}
	return resp, nil
}
