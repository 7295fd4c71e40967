package collision

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrMalformedReport    = errors.New("collision: malformed report")
	ErrBackendUnavailable = errors.New("collision: backend unavailable")
	ErrUnknownObject      = errors.New("collision: unknown object")
)

// ObjectID identifies a model instance on the backend. The main model is 0.
type ObjectID int

const MainModel ObjectID = 0

// RequestType is the discriminator of a backend request envelope.
type RequestType string

const (
	RequestCollisions       RequestType = "COLLISIONS"
	RequestAddObject        RequestType = "ADD_OBJECT"
	RequestRemoveObject     RequestType = "REMOVE_OBJECT"
	RequestMoveObject       RequestType = "MOVE_OBJECT"
	RequestFilterCollisions RequestType = "FILTER_COLLISIONS"
)

// Status is the overall verdict of a collision report.
type Status string

const (
	StatusOK        Status = "OK"
	StatusColliding Status = "COLLIDING"
)

// Pair is one colliding couple of blocks as reported by the backend.
type Pair struct {
	BlockA  string   `json:"mergedBlockA"`
	BlockB  string   `json:"mergedBlockB"`
	ObjectA ObjectID `json:"objectIdA"`
	ObjectB ObjectID `json:"objectIdB"`
}

// BlockKey is the identity of one side of a pair.
type BlockKey struct {
	Object ObjectID
	Name   string
}

func (p Pair) A() BlockKey { return BlockKey{Object: p.ObjectA, Name: p.BlockA} }
func (p Pair) B() BlockKey { return BlockKey{Object: p.ObjectB, Name: p.BlockB} }

// Report is the parsed answer to a COLLISIONS request.
type Report struct {
	Status Status `json:"status"`
	Pairs  []Pair `json:"collisions,omitempty"`
}

func (r Report) Colliding() bool {
	return r.Status == StatusColliding
}

// ParseReport decodes and validates a COLLISIONS response.
func ParseReport(data []byte) (Report, error) {
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return Report{}, fmt.Errorf("%w: %v", ErrMalformedReport, err)
	}
	switch r.Status {
	case StatusOK:
		r.Pairs = nil
	case StatusColliding:
		for i, p := range r.Pairs {
			if p.BlockA == "" || p.BlockB == "" {
				return Report{}, fmt.Errorf("%w: collision %d has an empty block name", ErrMalformedReport, i)
			}
		}
	default:
		return Report{}, fmt.Errorf("%w: status %q", ErrMalformedReport, r.Status)
	}
	return r, nil
}

type collisionsRequest struct {
	Type      RequestType        `json:"type"`
	Positions map[string]float64 `json:"positions"`
}

type addObjectRequest struct {
	Type     RequestType `json:"type"`
	Path     string      `json:"path"`
	FileName string      `json:"fileName"`
}

type addObjectResponse struct {
	ObjectID *ObjectID `json:"objectId"`
}

type removeObjectRequest struct {
	Type     RequestType `json:"type"`
	ObjectID ObjectID    `json:"objectId"`
}

type moveObjectRequest struct {
	Type     RequestType `json:"type"`
	ObjectID ObjectID    `json:"objectId"`
	BackendTransform
}

type filterRequest struct {
	Type           RequestType `json:"type"`
	CollisionsList []Pair      `json:"collisionsList"`
}

// envelopeType peeks at the discriminator of a request.
func envelopeType(data []byte) (RequestType, error) {
	var head struct {
		Type RequestType `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return "", err
	}
	return head.Type, nil
}
