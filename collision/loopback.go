package collision

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/jakecoffman/cp"
)

// LocalBox is an axis aligned box in the frame of its owner.
type LocalBox struct {
	Name string
	Min  mgl64.Vec3
	Max  mgl64.Vec3
}

// BlockBox is a main model block placed in the viewer frame.
type BlockBox struct {
	World mgl64.Mat4
	Box   LocalBox
}

// BlockSource lists the main model blocks as currently posed.
type BlockSource interface {
	BlockBoxes() []BlockBox
}

// Poser is a BlockSource that poses itself from the positions carried by
// a COLLISIONS request. Sources sharing the caller's model need not
// implement it.
type Poser interface {
	Pose(positions map[string]float64)
}

type loopbackObject struct {
	file  string
	boxes []LocalBox
	world mgl64.Mat4
}

type worldBox struct {
	key  BlockKey
	flat cp.BB
	minY float64
	maxY float64
}

// Loopback answers backend requests in process with bounding box tests.
// Boxes are shrunk by Margin on every side so blocks that merely touch do
// not collide.
type Loopback struct {
	Margin float64

	mu       sync.Mutex
	source   BlockSource
	shapes   map[string][]LocalBox
	objects  map[ObjectID]*loopbackObject
	nextID   ObjectID
	filtered map[pairKey]struct{}
}

func NewLoopback(source BlockSource, margin float64) *Loopback {
	return &Loopback{
		Margin:   margin,
		source:   source,
		shapes:   make(map[string][]LocalBox),
		objects:  make(map[ObjectID]*loopbackObject),
		nextID:   MainModel + 1,
		filtered: make(map[pairKey]struct{}),
	}
}

// AddShape makes fileName loadable through ADD_OBJECT.
func (l *Loopback) AddShape(fileName string, boxes ...LocalBox) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.shapes[fileName] = append([]LocalBox(nil), boxes...)
}

// Objects returns the ids of the attached objects.
func (l *Loopback) Objects() []ObjectID {
	l.mu.Lock()
	defer l.mu.Unlock()
	ids := make([]ObjectID, 0, len(l.objects))
	for id := range l.objects {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (l *Loopback) Request(ctx context.Context, payload []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	kind, err := envelopeType(payload)
	if err != nil {
		return nil, fmt.Errorf("loopback: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	switch kind {
	case RequestCollisions:
		var req collisionsRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, fmt.Errorf("loopback: %w", err)
		}
		if p, ok := l.source.(Poser); ok && len(req.Positions) > 0 {
			p.Pose(req.Positions)
		}
		return json.Marshal(l.collide())
	case RequestAddObject:
		var req addObjectRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, fmt.Errorf("loopback: %w", err)
		}
		boxes, ok := l.shapes[req.FileName]
		if !ok {
			return nil, fmt.Errorf("loopback: file %s: %w", req.FileName, ErrUnknownObject)
		}
		id := l.nextID
		l.nextID++
		l.objects[id] = &loopbackObject{file: req.FileName, boxes: boxes, world: mgl64.Ident4()}
		return json.Marshal(addObjectResponse{ObjectID: &id})
	case RequestRemoveObject:
		var req removeObjectRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, fmt.Errorf("loopback: %w", err)
		}
		if _, ok := l.objects[req.ObjectID]; !ok {
			return nil, fmt.Errorf("loopback: object %d: %w", req.ObjectID, ErrUnknownObject)
		}
		delete(l.objects, req.ObjectID)
		return json.Marshal(Report{Status: StatusOK})
	case RequestMoveObject:
		var req moveObjectRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, fmt.Errorf("loopback: %w", err)
		}
		o, ok := l.objects[req.ObjectID]
		if !ok {
			return nil, fmt.Errorf("loopback: object %d: %w", req.ObjectID, ErrUnknownObject)
		}
		o.world = req.BackendTransform.Decode()
		return json.Marshal(Report{Status: StatusOK})
	case RequestFilterCollisions:
		var req filterRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, fmt.Errorf("loopback: %w", err)
		}
		for _, p := range req.CollisionsList {
			l.filtered[keyOf(p)] = struct{}{}
		}
		return json.Marshal(Report{Status: StatusOK})
	default:
		return nil, fmt.Errorf("loopback: unsupported request %q", kind)
	}
}

func (l *Loopback) collide() Report {
	var boxes []worldBox
	if l.source != nil {
		for _, b := range l.source.BlockBoxes() {
			boxes = append(boxes, l.place(BlockKey{Object: MainModel, Name: b.Box.Name}, b.World, b.Box))
		}
	}
	ids := make([]ObjectID, 0, len(l.objects))
	for id := range l.objects {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		o := l.objects[id]
		for _, b := range o.boxes {
			boxes = append(boxes, l.place(BlockKey{Object: id, Name: b.Name}, o.world, b))
		}
	}

	var pairs []Pair
	for i := 0; i < len(boxes); i++ {
		for j := i + 1; j < len(boxes); j++ {
			a, b := boxes[i], boxes[j]
			if a.key == b.key {
				continue
			}
			if !a.flat.Intersects(b.flat) || a.maxY < b.minY || b.maxY < a.minY {
				continue
			}
			p := Pair{BlockA: a.key.Name, BlockB: b.key.Name, ObjectA: a.key.Object, ObjectB: b.key.Object}
			if _, ok := l.filtered[keyOf(p)]; ok {
				continue
			}
			pairs = append(pairs, p)
		}
	}
	if len(pairs) == 0 {
		return Report{Status: StatusOK}
	}
	return Report{Status: StatusColliding, Pairs: pairs}
}

// place turns a local box into a world aligned box. The floor plane (X, Z)
// goes through cp.BB and the height is kept apart.
func (l *Loopback) place(key BlockKey, world mgl64.Mat4, box LocalBox) worldBox {
	lo := mgl64.Vec3{math.Inf(1), math.Inf(1), math.Inf(1)}
	hi := mgl64.Vec3{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	for i := 0; i < 8; i++ {
		c := box.Min
		if i&1 != 0 {
			c[0] = box.Max[0]
		}
		if i&2 != 0 {
			c[1] = box.Max[1]
		}
		if i&4 != 0 {
			c[2] = box.Max[2]
		}
		p := mgl64.TransformCoordinate(c, world)
		for k := 0; k < 3; k++ {
			lo[k] = math.Min(lo[k], p[k])
			hi[k] = math.Max(hi[k], p[k])
		}
	}
	m := l.Margin
	return worldBox{
		key:  key,
		flat: cp.BB{L: lo[0] + m, B: lo[2] + m, R: hi[0] - m, T: hi[2] - m},
		minY: lo[1] + m,
		maxY: hi[1] - m,
	}
}
