// Package orchestrator is the single-threaded control loop at the center of
// the appliance: it multiplexes button events, decoded remote events, the
// refresh signal and a one-second timeout, and owns the binding table, the
// state store and the render cache. Nothing here is shared with another
// goroutine; everything crosses by channel.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/dpp/homer/internal/pkg/model"
	"github.com/dpp/homer/internal/pkg/readiness"
	"github.com/dpp/homer/internal/pkg/session"
	"github.com/dpp/homer/internal/pkg/state"
)

// Seeder is the synchronous query endpoint used for first-sample bootstrap.
type Seeder interface {
	GetState(ctx context.Context, entityID string) (string, error)
}

// BindingSource supplies the declarative binding table.
type BindingSource interface {
	Load() model.Bindings
}

const tick = time.Second

type Orchestrator struct {
	flags   *readiness.Flags
	source  BindingSource
	seeder  Seeder
	buttons <-chan model.ButtonID
	events  <-chan *model.EventFrame
	refresh <-chan struct{}
	draw    chan<- model.DrawCmd
	cmds    chan<- session.Command
	loc     *time.Location
	logger  *zap.Logger

	store        *state.Store
	bindings     model.Bindings
	lastTime     string
	bootstrapped bool
	now          func() time.Time
}

type Channels struct {
	Buttons <-chan model.ButtonID
	Events  <-chan *model.EventFrame
	Refresh <-chan struct{}
	Draw    chan<- model.DrawCmd
	Session chan<- session.Command
}

func New(flags *readiness.Flags, source BindingSource, seeder Seeder, loc *time.Location, ch Channels) *Orchestrator {
	return &Orchestrator{
		flags:   flags,
		source:  source,
		seeder:  seeder,
		buttons: ch.Buttons,
		events:  ch.Events,
		refresh: ch.Refresh,
		draw:    ch.Draw,
		cmds:    ch.Session,
		loc:     loc,
		logger:  zap.L(),
		store:   state.New(),
		now:     time.Now,
	}
}

// Run drives the control loop until the context ends.
func (o *Orchestrator) Run(ctx context.Context) error {
	for {
		if !o.bootstrapped && o.flags.NetworkReady() {
			o.bootstrap(ctx)
		}
		o.renderClock()

		select {
		case id := <-o.buttons:
			o.onButton(id)
		case ev := <-o.events:
			o.onEvent(ev)
		case <-o.refresh:
			// next iteration re-fetches bindings and re-seeds
			o.logger.Info("binding refresh requested")
			o.bootstrapped = false
		case <-time.After(tick):
			// nothing happened; the clock check above re-runs
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// bootstrap fetches the binding table and seeds the state store with one
// synchronous query per tracked identity. Per-identity failures leave that
// entry empty; they never abort the rest of the bootstrap.
func (o *Orchestrator) bootstrap(ctx context.Context) {
	o.bindings = o.source.Load()
	o.store.Reset()
	ids := o.bindings.EntityIDs()
	o.store.Track(ids)
	for _, id := range ids {
		value, err := o.seeder.GetState(ctx, id)
		if err != nil {
			o.logger.Warn("failed to seed state", zap.String("entity_id", id), zap.Error(err))
			continue
		}
		o.store.ApplySeed(id, value)
	}
	o.bootstrapped = true
	o.render()
}

func (o *Orchestrator) render() {
	for _, cmd := range o.store.EvaluateBindings(o.bindings) {
		o.draw <- cmd
	}
}

// renderClock keeps the clock line live. It has its own last-rendered
// value, independent of the binding render cache.
func (o *Orchestrator) renderClock() {
	if !o.flags.TimeSynced() {
		return
	}
	now := o.now().In(o.loc)
	text := fmt.Sprintf("%9d:%02d", now.Hour(), now.Minute())
	if text == o.lastTime {
		return
	}
	o.lastTime = text
	o.draw <- model.Text(model.PointPos(10, 20), text, model.ColorBlack, model.ColorWhite, true)
}

// onButton looks up every toggle binding wired to the pressed button and
// dispatches its current action. A press with no binding is ignored.
func (o *Orchestrator) onButton(id model.ButtonID) {
	matches := lo.Filter(o.bindings, func(b model.Binding, _ int) bool {
		tb, ok := b.(model.ToggleBinding)
		return ok && tb.Button == id
	})
	for _, b := range matches {
		tb := b.(model.ToggleBinding)
		action := state.Dispatch(tb, o.store)
		request := action.Request()
		o.logger.Debug("dispatching action",
			zap.Int("button", int(id)),
			zap.String("entity_id", tb.EntityID),
			zap.Int64("request_id", request.ID),
		)
		o.cmds <- session.SendMessage{Payload: request}
	}
}

// onEvent applies one decoded remote event. Only tracked identities mutate
// the store, and only an actual change re-runs evaluation.
func (o *Orchestrator) onEvent(ev *model.EventFrame) {
	id, ok := ev.EntityID()
	if !ok {
		return
	}
	value, ok := ev.NewState()
	if !ok {
		return
	}
	if o.store.ApplyDelta(id, value) {
		o.render()
	}
}
