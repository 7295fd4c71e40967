package engine

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/milk9111/nomad3d/collision"
	"github.com/milk9111/nomad3d/link"
	"github.com/milk9111/nomad3d/model"
)

type queuedSource struct {
	texts    []string
	calls    int
	pauses   int
	restarts int
}

func (s *queuedSource) Positions(context.Context) (string, error) {
	s.calls++
	if len(s.texts) == 0 {
		return "", nil
	}
	t := s.texts[0]
	if len(s.texts) > 1 {
		s.texts = s.texts[1:]
	}
	return t, nil
}

func (s *queuedSource) Pause(context.Context) error {
	s.pauses++
	return nil
}

func (s *queuedSource) Restart(context.Context) error {
	s.restarts++
	return nil
}

type recorder struct {
	NopObserver
	events  []collision.Event
	alerts  []Alert
	pauses  []bool
	focus   []bool
	cleared int
}

func (r *recorder) OnCollisions(events []collision.Event) { r.events = append(r.events, events...) }
func (r *recorder) OnAlert(a Alert, _ []collision.Pair)   { r.alerts = append(r.alerts, a) }
func (r *recorder) OnPause(p bool)                        { r.pauses = append(r.pauses, p) }
func (r *recorder) OnFocus(f bool)                        { r.focus = append(r.focus, f) }
func (r *recorder) OnHistoryCleared()                     { r.cleared++ }

func unit() *model.Box {
	return &model.Box{Min: mgl64.Vec3{0, 0, 0}, Max: mgl64.Vec3{1, 1, 1}}
}

func at(x float64) []model.Configuration {
	return []model.Configuration{{Name: "default", Visible: true, Translation: mgl64.Vec3{x, 0, 0}, Rotation: mgl64.Ident3()}}
}

// benchTree is root -> {base at 0, lift at -3 sliding on X, idle at 10}.
func benchTree(t *testing.T) *model.Tree {
	t.Helper()
	tree := model.NewTree()
	_, err := tree.Add(model.NoNode, &model.Node{Name: "root", Configurations: at(0)})
	require.NoError(t, err)
	for _, n := range []*model.Node{
		{Name: "base", Configurations: at(0), Bounds: unit()},
		{
			Name:           "lift",
			Axis:           model.NewAxis(model.AxisSpec{Kind: model.AxisTranslation, Direction: mgl64.Vec3{1, 0, 0}}),
			Controller:     "TX",
			Configurations: at(-3),
			Bounds:         unit(),
		},
		{Name: "idle", Configurations: at(10), Bounds: unit()},
	} {
		_, err := tree.Add(0, n)
		require.NoError(t, err)
	}
	return tree
}

type rig struct {
	engine   *Engine
	source   *queuedSource
	clock    time.Time
	loopback *collision.Loopback
	recorder *recorder
}

func (r *rig) tick(t *testing.T) TickResult {
	t.Helper()
	r.clock = r.clock.Add(50 * time.Millisecond)
	return r.engine.Tick(context.Background())
}

func newRig(t *testing.T, opts Options, texts ...string) *rig {
	t.Helper()
	logger := log.New(io.Discard, "", 0)
	tree := benchTree(t)
	r := &rig{
		source:   &queuedSource{texts: texts},
		clock:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		recorder: &recorder{},
	}
	r.loopback = collision.NewLoopback(TreeBlocks{Tree: tree}, 0.01)
	bridge := collision.NewBridge(r.loopback, collision.BridgeConfig{Logger: logger})
	feed := link.NewFeed(r.source, link.FeedConfig{Now: func() time.Time { return r.clock }, Logger: logger})

	e, err := New(Deps{
		Tree:      tree,
		Feed:      feed,
		Bridge:    bridge,
		Objects:   NewObjects(bridge, logger),
		Observers: []Observer{r.recorder},
		Logger:    logger,
	}, opts)
	require.NoError(t, err)
	require.NoError(t, e.Init(context.Background()))
	r.engine = e
	return r
}

func key(name string) collision.BlockKey {
	return collision.BlockKey{Object: collision.MainModel, Name: name}
}

func TestEngineCollisionLifecycle(t *testing.T) {
	r := newRig(t, Options{Configuration: "default"}, `{"TX": 0}`, `{"TX": 0}`, `{"TX": 2.5}`, `{"TX": 2.5}`, `{"TX": 0}`)

	res := r.tick(t)
	require.True(t, res.Queried)
	assert.False(t, res.Report.Colliding())
	assert.Empty(t, r.recorder.alerts, "starting clear is not a change")

	res = r.tick(t)
	require.True(t, res.Report.Colliding())
	require.Len(t, res.Added, 1)
	assert.Equal(t, "base collided with lift", res.Added[0].String())
	assert.Equal(t, 1, res.Moved)
	assert.ElementsMatch(t, []collision.BlockKey{key("base"), key("lift")}, res.Highlighted)

	v, ok := r.engine.Visual(key("base"))
	require.True(t, ok)
	assert.True(t, v.Highlighted)
	assert.True(t, v.Current)
	v, _ = r.engine.Visual(key("idle"))
	assert.False(t, v.Highlighted)

	res = r.tick(t)
	assert.Empty(t, res.Added, "same pair is recorded once")
	assert.Equal(t, 1, r.engine.Ledger().Len())

	res = r.tick(t)
	assert.False(t, res.Report.Colliding())
	assert.ElementsMatch(t, []collision.BlockKey{key("base"), key("lift")}, res.Restored)
	v, _ = r.engine.Visual(key("lift"))
	assert.False(t, v.Highlighted)
	assert.Equal(t, DefaultMaterial, v.Material)

	assert.Equal(t, []Alert{AlertColliding, AlertClear}, r.recorder.alerts)
	assert.Len(t, r.recorder.events, 1)
	assert.Equal(t, 2, r.engine.Stats().Highlights)
	assert.Equal(t, 2, r.engine.Stats().Restores)
}

func TestEngineRateLimitSkipsQueries(t *testing.T) {
	r := newRig(t, Options{}, `{"TX": 1}`)
	r.tick(t)
	calls := r.source.calls

	res := r.engine.Tick(context.Background())
	assert.False(t, res.Sample.Fresh)
	assert.False(t, res.Queried)
	assert.Equal(t, calls, r.source.calls)
}

func TestEnginePauseOnCollision(t *testing.T) {
	r := newRig(t, Options{PauseOnCollision: true}, `{"TX": 0}`, `{"TX": 0}`, `{"TX": 2.5}`, `{"TX": 0}`)

	r.tick(t)
	res := r.tick(t)
	require.Len(t, res.Added, 1)
	assert.True(t, res.Paused)
	assert.True(t, r.engine.Paused())
	assert.Equal(t, 1, r.source.pauses)
	assert.Equal(t, []bool{true}, r.recorder.pauses)

	calls := r.source.calls
	res = r.tick(t)
	assert.False(t, res.Queried, "paused feed stops the pipeline")
	assert.Equal(t, calls, r.source.calls)

	require.NoError(t, r.engine.Resume(context.Background()))
	res = r.tick(t)
	assert.True(t, res.Queried)
	assert.False(t, res.Report.Colliding())
	assert.Equal(t, []bool{true, false}, r.recorder.pauses)
}

func TestEngineFilterAndClearHistory(t *testing.T) {
	r := newRig(t, Options{}, `{"TX": 0}`, `{"TX": 0}`, `{"TX": 2.5}`, `{"TX": 2.4}`)
	r.tick(t)
	r.tick(t)
	r.tick(t)
	require.Equal(t, 1, r.engine.Ledger().Len())

	require.NoError(t, r.engine.FilterHistory(context.Background()))
	r.engine.ClearHistory()
	assert.Equal(t, []string{"No collisions were found"}, r.engine.History())
	assert.Equal(t, 1, r.recorder.cleared)

	res := r.tick(t)
	assert.False(t, res.Report.Colliding(), "backend stops reporting filtered pairs")
	assert.Equal(t, 0, r.engine.Ledger().Len())
}

func TestEngineFocus(t *testing.T) {
	r := newRig(t, Options{}, `{"TX": 0}`, `{"TX": 0}`, `{"TX": 2.5}`)
	r.engine.SetFocus(true)
	r.engine.SetFocus(true)
	assert.Equal(t, []bool{true}, r.recorder.focus)

	r.tick(t)
	v, _ := r.engine.Visual(key("idle"))
	assert.True(t, v.Visible, "nothing colliding shows everything")

	r.tick(t)
	v, _ = r.engine.Visual(key("idle"))
	assert.False(t, v.Visible)
	v, _ = r.engine.Visual(key("lift"))
	assert.True(t, v.Visible)

	r.engine.SetFocus(false)
	r.tick(t)
	v, _ = r.engine.Visual(key("idle"))
	assert.True(t, v.Visible)
}

func TestEngineAttachedObjects(t *testing.T) {
	r := newRig(t, Options{})
	r.loopback.AddShape("probe.glb", collision.LocalBox{Name: "Tip", Min: mgl64.Vec3{-0.1, -0.1, -0.1}, Max: mgl64.Vec3{0.1, 0.1, 0.1}})
	objs := r.engine.Objects()
	objs.Correction = true

	idx, err := objs.Add(context.Background(), ObjectSpec{
		Name:      "probe",
		FileName:  "probe.glb",
		Visible:   true,
		Placement: mgl64.Translate3D(0.5, 1.2, 0.5),
		Blocks:    []string{"Tip"},
	})
	require.NoError(t, err)
	obj, _ := objs.Get(idx)
	require.True(t, obj.Registered)
	assert.Equal(t, collision.ObjectID(1), obj.ID)

	res := r.tick(t)
	require.True(t, res.Queried, "pending move triggers a query")
	assert.False(t, res.Report.Colliding())
	_, ok := r.engine.Visual(collision.BlockKey{Object: obj.ID, Name: "Tip"})
	assert.True(t, ok, "object blocks get render state")

	objs.TogglePositioning(idx)
	require.True(t, obj.Positioning)
	var hit TickResult
	for i := 0; i < 5 && obj.Positioning; i++ {
		hit = r.tick(t)
	}
	require.True(t, hit.Report.Colliding())
	assert.False(t, obj.Positioning, "collision stops positioning")
	assert.InDelta(t, 1.05+0.005, obj.Placement.Current[13], 1e-9)
	assert.Equal(t, []collision.Pair{{BlockA: "base", BlockB: "Tip", ObjectA: collision.MainModel, ObjectB: obj.ID}}, hit.Report.Pairs)

	objs.Reset(idx)
	assert.Equal(t, mgl64.Translate3D(0.5, 1.2, 0.5), obj.Placement.Current)

	require.NoError(t, objs.SetVisible(context.Background(), idx, false))
	assert.Empty(t, r.loopback.Objects())
	r.tick(t)
	_, ok = r.engine.Visual(collision.BlockKey{Object: obj.ID, Name: "Tip"})
	assert.False(t, ok)
}

// flakyRequester fails the first failMoves MOVE_OBJECT requests.
type flakyRequester struct {
	next      collision.Requester
	failMoves int
	moves     int
}

func (f *flakyRequester) Request(ctx context.Context, payload []byte) ([]byte, error) {
	if bytes.Contains(payload, []byte(`"MOVE_OBJECT"`)) {
		f.moves++
		if f.moves <= f.failMoves {
			return nil, errors.New("backend busy")
		}
	}
	return f.next.Request(ctx, payload)
}

func TestEngineResendsFailedMoves(t *testing.T) {
	logger := log.New(io.Discard, "", 0)
	tree := benchTree(t)
	lb := collision.NewLoopback(TreeBlocks{Tree: tree}, 0.01)
	lb.AddShape("gauge.glb", collision.LocalBox{Name: "Tip", Min: mgl64.Vec3{-0.1, -0.1, -0.1}, Max: mgl64.Vec3{0.1, 0.1, 0.1}})
	req := &flakyRequester{next: lb, failMoves: 1}
	bridge := collision.NewBridge(req, collision.BridgeConfig{Logger: logger})
	objs := NewObjects(bridge, logger)
	e, err := New(Deps{Tree: tree, Bridge: bridge, Objects: objs, Logger: logger}, Options{})
	require.NoError(t, err)
	require.NoError(t, e.Init(context.Background()))

	_, err = objs.Add(context.Background(), ObjectSpec{
		Name:      "gauge",
		FileName:  "gauge.glb",
		Visible:   true,
		Placement: mgl64.Translate3D(0.5, 5, 0.5),
		Blocks:    []string{"Tip"},
	})
	require.NoError(t, err)

	res := e.Tick(context.Background())
	assert.False(t, res.Queried)
	assert.Len(t, objs.PendingMoves(), 1, "failed placement stays pending")

	res = e.Tick(context.Background())
	assert.True(t, res.Queried)
	assert.Empty(t, objs.PendingMoves())

	res = e.Tick(context.Background())
	assert.False(t, res.Queried)
	assert.Equal(t, 2, req.moves)
}

func TestAckKeepsPlacementsMovedSince(t *testing.T) {
	r := newRig(t, Options{})
	r.loopback.AddShape("gauge.glb", collision.LocalBox{Name: "Tip", Max: mgl64.Vec3{0.1, 0.1, 0.1}})
	objs := r.engine.Objects()
	idx, err := objs.Add(context.Background(), ObjectSpec{Name: "gauge", FileName: "gauge.glb", Visible: true})
	require.NoError(t, err)

	sent := objs.PendingMoves()
	require.Len(t, sent, 1)
	objs.Move(idx, mgl64.Translate3D(0, 8, 0))
	objs.Ack(sent)
	assert.Len(t, objs.PendingMoves(), 1)

	objs.Ack(objs.PendingMoves())
	assert.Empty(t, objs.PendingMoves())
}

func TestShowRetriesAfterFailedRegistration(t *testing.T) {
	r := newRig(t, Options{})
	objs := r.engine.Objects()

	idx, err := objs.Add(context.Background(), ObjectSpec{Name: "gauge", FileName: "gauge.glb", Visible: true})
	require.ErrorIs(t, err, collision.ErrUnknownObject)
	obj, _ := objs.Get(idx)
	assert.False(t, obj.Visible)
	assert.False(t, obj.Registered)

	r.loopback.AddShape("gauge.glb", collision.LocalBox{Name: "Tip", Max: mgl64.Vec3{0.1, 0.1, 0.1}})
	require.NoError(t, objs.SetVisible(context.Background(), idx, true))
	assert.True(t, obj.Visible)
	assert.True(t, obj.Registered)
	assert.Len(t, r.loopback.Objects(), 1)
}

func TestClearHistoryAnnouncesNextAlert(t *testing.T) {
	r := newRig(t, Options{}, `{"TX": 0}`, `{"TX": 0}`, `{"TX": 2.5}`, `{"TX": 2.4}`)
	r.tick(t)
	r.tick(t)
	require.Equal(t, []Alert{AlertColliding}, r.recorder.alerts)

	r.engine.ClearHistory()
	res := r.tick(t)
	require.True(t, res.Report.Colliding())
	assert.Equal(t, []Alert{AlertColliding, AlertColliding}, r.recorder.alerts)
	require.Len(t, res.Added, 1)
	assert.Equal(t, 0, res.Added[0].Seq)

	r.tick(t)
	assert.Len(t, r.recorder.alerts, 2, "unchanged state is announced once")
}

func TestParseDirection(t *testing.T) {
	tests := []struct {
		in      string
		want    Direction
		wantErr bool
	}{
		{in: "", want: DefaultDirection},
		{in: "Gy-", want: Direction{Axis: 1, Sign: -1}},
		{in: "Rx+", want: Direction{Axis: 0, Sign: 1}},
		{in: "bz-", want: Direction{Axis: 2, Sign: -1}},
		{in: "Qx+", wantErr: true},
		{in: "Gy*", wantErr: true},
		{in: "Gy", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDirection(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrBadDirection)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			if tt.in != "" && tt.in != "bz-" {
				assert.Equal(t, tt.in, got.String())
			}
		})
	}
}

func TestServedTreeFollowsRequestPositions(t *testing.T) {
	logger := log.New(io.Discard, "", 0)
	lb := collision.NewLoopback(NewServedTree(benchTree(t), "default", logger), 0.01)
	bridge := collision.NewBridge(lb, collision.BridgeConfig{Logger: logger})
	ctx := context.Background()

	report, err := bridge.PushAndQuery(ctx, map[string]float64{"TX": 0}, nil)
	require.NoError(t, err)
	assert.False(t, report.Colliding())

	report, err = bridge.PushAndQuery(ctx, map[string]float64{"TX": 2.5}, nil)
	require.NoError(t, err)
	require.True(t, report.Colliding())
	assert.Equal(t, []collision.Pair{{BlockA: "base", BlockB: "lift"}}, report.Pairs)
}
