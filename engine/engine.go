package engine

import (
	"context"
	"fmt"
	"log"

	"github.com/milk9111/nomad3d/collision"
	"github.com/milk9111/nomad3d/ecs"
	"github.com/milk9111/nomad3d/ecs/component"
	"github.com/milk9111/nomad3d/ecs/system"
	"github.com/milk9111/nomad3d/link"
	"github.com/milk9111/nomad3d/model"
)

// Deps are the collaborators an Engine drives. Only Tree is required; a
// nil Feed or Bridge leaves that part of the pipeline inert.
type Deps struct {
	Tree      *model.Tree
	Feed      *link.Feed
	Bindings  *link.Bindings
	Bridge    *collision.Bridge
	Ledger    *collision.Ledger
	Objects   *Objects
	World     *ecs.World
	Observers []Observer
	Logger    *log.Logger
}

type Options struct {
	Configuration    string
	PauseOnCollision bool
	Focus            bool
	Pulse            component.HighlightPulse
	Material         component.Material
}

// TickResult describes what one Tick did.
type TickResult struct {
	Sample      link.Sample
	Moved       int
	Queried     bool
	Report      collision.Report
	Added       []collision.Event
	Paused      bool
	Highlighted []collision.BlockKey
	Restored    []collision.BlockKey
}

// Engine runs the position to highlight pipeline once per Tick. It is not
// safe for concurrent use; call it from the render loop goroutine.
type Engine struct {
	tree      *model.Tree
	feed      *link.Feed
	bindings  *link.Bindings
	bridge    *collision.Bridge
	ledger    *collision.Ledger
	objects   *Objects
	world     *ecs.World
	scheduler *ecs.Scheduler
	highlight *system.HighlightSystem
	blocks    *blockIndex
	observers observers
	logger    *log.Logger

	configuration    string
	pauseOnCollision bool
	alert            Alert
	alertStale       bool
	pulseEntity      ecs.Entity
	focusEntity      ecs.Entity
}

func New(deps Deps, opts Options) (*Engine, error) {
	if deps.Tree == nil {
		return nil, fmt.Errorf("engine: nil model tree")
	}
	e := &Engine{
		tree:             deps.Tree,
		feed:             deps.Feed,
		bindings:         deps.Bindings,
		bridge:           deps.Bridge,
		ledger:           deps.Ledger,
		objects:          deps.Objects,
		world:            deps.World,
		observers:        observers(deps.Observers),
		logger:           deps.Logger,
		configuration:    opts.Configuration,
		pauseOnCollision: opts.PauseOnCollision,
	}
	if e.logger == nil {
		e.logger = log.Default()
	}
	if e.feed == nil {
		e.feed = link.NewFeed(nil, link.FeedConfig{Logger: e.logger})
	}
	if e.bridge == nil {
		e.bridge = collision.NewBridge(nil, collision.BridgeConfig{Logger: e.logger})
	}
	if e.ledger == nil {
		e.ledger = collision.NewLedger()
	}
	if e.objects == nil {
		e.objects = NewObjects(e.bridge, e.logger)
	}
	if e.world == nil {
		e.world = ecs.NewWorld()
	}
	if e.bindings == nil {
		e.bindings = link.CollectBindings(e.tree, e.logger)
	}

	pulse := opts.Pulse
	if pulse.Step == 0 {
		pulse = system.DefaultPulse()
	}
	material := opts.Material
	if material.Color == nil {
		material = DefaultMaterial
	}

	e.pulseEntity = ecs.CreateEntity(e.world)
	if err := ecs.Add(e.world, e.pulseEntity, component.HighlightPulseComponent, pulse); err != nil {
		return nil, fmt.Errorf("engine: pulse: %w", err)
	}
	e.focusEntity = ecs.CreateEntity(e.world)
	if err := ecs.Add(e.world, e.focusEntity, component.FocusComponent, component.Focus{Enabled: opts.Focus}); err != nil {
		return nil, fmt.Errorf("engine: focus: %w", err)
	}

	e.blocks = newBlockIndex(e.world, material)
	e.highlight = system.NewHighlightSystem(e.logger)
	e.scheduler = ecs.NewScheduler(e.highlight, system.NewFocusSystem())
	return e, nil
}

// Init places the model for its configuration, creates the block state and
// establishes the starting pose from a first poll.
func (e *Engine) Init(ctx context.Context) error {
	e.tree.BindConfiguration(e.configuration)
	for _, n := range e.tree.Blocks() {
		if err := e.blocks.add(collision.BlockKey{Object: collision.MainModel, Name: n.Name}, n.Visible()); err != nil {
			return fmt.Errorf("engine: block %s: %w", n.Name, err)
		}
	}
	sample := e.feed.Poll(ctx)
	e.bindings.Init(sample.Positions)
	e.logger.Printf("Engine: model initialised with %d blocks and %d controllers", len(e.blocks.entities), e.bindings.Len())
	return nil
}

// Tick runs one pass of the pipeline. External failures are logged and
// the tick carries on with what it has.
func (e *Engine) Tick(ctx context.Context) TickResult {
	var res TickResult

	res.Sample = e.feed.Poll(ctx)
	if res.Sample.Fresh {
		res.Moved = e.bindings.Update(res.Sample.Positions)
	}

	e.objects.Step()
	if err := e.blocks.syncObjects(e.objects.Registered()); err != nil {
		e.logger.Printf("Engine: object blocks: %v", err)
	}

	moves := e.objects.PendingMoves()
	if e.bridge.Enabled() && (res.Sample.Fresh || len(moves) > 0) {
		positions := map[string]float64(res.Sample.Positions)
		if !res.Sample.Fresh {
			positions = e.bindings.Positions()
		}
		report, err := e.bridge.PushAndQuery(ctx, positions, moves)
		if err != nil {
			e.logger.Printf("Engine: collision query: %v", err)
		} else {
			e.objects.Ack(moves)
			res.Queried = true
			res.Report = report
			res.Added, res.Paused = e.handleReport(ctx, report)
		}
	}

	e.scheduler.Update(e.world)
	for _, evt := range e.world.Events().Drain() {
		b, ok := evt.Data.(component.Block)
		if !ok {
			continue
		}
		key := collision.BlockKey{Object: collision.ObjectID(b.ObjectID), Name: b.Name}
		switch evt.Type {
		case ecs.EventHighlighted:
			res.Highlighted = append(res.Highlighted, key)
		case ecs.EventRestored:
			res.Restored = append(res.Restored, key)
		}
	}
	return res
}

func (e *Engine) handleReport(ctx context.Context, report collision.Report) ([]collision.Event, bool) {
	var added []collision.Event
	paused := false
	if report.Colliding() {
		added = e.ledger.Ingest(report.Pairs)
		if len(added) > 0 {
			for _, ev := range added {
				e.logger.Printf("Engine: collision %d: %s", ev.Seq, ev)
			}
			e.observers.collisions(added)
			if e.pauseOnCollision && !e.feed.Paused() {
				paused = e.pause(ctx)
			}
		}
		e.objects.UpdatePositioning(report.Pairs)
	}

	alert := AlertClear
	if report.Colliding() {
		alert = AlertColliding
	}
	if alert != e.alert || e.alertStale {
		e.alert = alert
		e.alertStale = false
		e.observers.alert(alert, report.Pairs)
	}

	req := component.CollisionReportRequest{Colliding: report.Colliding()}
	for _, p := range report.Pairs {
		req.Blocks = append(req.Blocks,
			component.Block{ObjectID: int(p.ObjectA), Name: p.BlockA},
			component.Block{ObjectID: int(p.ObjectB), Name: p.BlockB})
	}
	carrier := ecs.CreateEntity(e.world)
	if err := ecs.Add(e.world, carrier, component.CollisionReportRequestComponent, req); err != nil {
		e.logger.Printf("Engine: report request: %v", err)
	}
	return added, paused
}

func (e *Engine) pause(ctx context.Context) bool {
	if err := e.feed.Pause(ctx); err != nil {
		e.logger.Printf("Engine: pause: %v", err)
	}
	if !e.feed.Paused() {
		return false
	}
	e.logger.Printf("Engine: positions paused on new collision")
	e.observers.pause(true)
	return true
}

// Pause suspends position fetching.
func (e *Engine) Pause(ctx context.Context) error {
	if e.feed.Paused() {
		return nil
	}
	err := e.feed.Pause(ctx)
	if e.feed.Paused() {
		e.observers.pause(true)
	}
	return err
}

// Resume restarts a feed paused by a collision or by Pause.
func (e *Engine) Resume(ctx context.Context) error {
	if !e.feed.Paused() {
		return nil
	}
	err := e.feed.Resume(ctx)
	if !e.feed.Paused() {
		e.observers.pause(false)
	}
	return err
}

func (e *Engine) Paused() bool {
	return e.feed.Paused()
}

func (e *Engine) SetPauseOnCollision(on bool) {
	e.pauseOnCollision = on
}

func (e *Engine) PauseOnCollision() bool {
	return e.pauseOnCollision
}

// SetFocus turns focus mode on or off. The visible state follows on the
// next Tick.
func (e *Engine) SetFocus(on bool) {
	f, ok := ecs.Get(e.world, e.focusEntity, component.FocusComponent)
	if !ok || f.Enabled == on {
		return
	}
	f.Enabled = on
	e.observers.focus(on)
}

func (e *Engine) Focus() bool {
	f, ok := ecs.Get(e.world, e.focusEntity, component.FocusComponent)
	return ok && f.Enabled
}

// SetPulse replaces the highlight pulse, keeping the current opacity when
// it is still inside the new bounds.
func (e *Engine) SetPulse(p component.HighlightPulse) {
	cur, ok := ecs.Get(e.world, e.pulseEntity, component.HighlightPulseComponent)
	if !ok {
		return
	}
	if cur.Opacity >= p.Min && cur.Opacity <= p.Max {
		p.Opacity = cur.Opacity
		p.Rising = cur.Rising
	}
	*cur = p
}

// ClearHistory empties the collision history. Filtered pairs stay
// filtered. The next report announces its alert state again.
func (e *Engine) ClearHistory() {
	e.ledger.Clear()
	e.alertStale = true
	e.observers.cleared()
}

// FilterHistory declares every recorded collision a false positive.
func (e *Engine) FilterHistory(ctx context.Context) error {
	if e.ledger.Len() == 0 {
		return nil
	}
	var f collision.Filterer
	if e.bridge.Enabled() {
		f = e.bridge
	}
	return e.ledger.Filter(ctx, f, nil)
}

func (e *Engine) History() []string {
	return e.ledger.History()
}

func (e *Engine) Alert() Alert {
	return e.alert
}

func (e *Engine) Tree() *model.Tree            { return e.tree }
func (e *Engine) Feed() *link.Feed             { return e.feed }
func (e *Engine) Bridge() *collision.Bridge    { return e.bridge }
func (e *Engine) Ledger() *collision.Ledger    { return e.ledger }
func (e *Engine) Objects() *Objects            { return e.objects }
func (e *Engine) World() *ecs.World            { return e.world }
func (e *Engine) Bindings() *link.Bindings     { return e.bindings }
func (e *Engine) Stats() system.HighlightStats { return e.highlight.Stats() }

// Visual returns the render state of a block.
func (e *Engine) Visual(key collision.BlockKey) (component.BlockVisual, bool) {
	v, ok := e.blocks.visual(key)
	if !ok {
		return component.BlockVisual{}, false
	}
	return *v, true
}
