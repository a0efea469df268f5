package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dpp/homer/internal/pkg/model"
	"github.com/dpp/homer/internal/pkg/readiness"
	"github.com/dpp/homer/internal/pkg/session"
)

type fakeSource struct {
	bindings model.Bindings
}

func (f *fakeSource) Load() model.Bindings {
	return f.bindings
}

type fakeSeeder struct {
	states map[string]string
}

func (f *fakeSeeder) GetState(_ context.Context, entityID string) (string, error) {
	v, ok := f.states[entityID]
	if !ok {
		return "", errors.New("entity not found")
	}
	return v, nil
}

type harness struct {
	orch *Orchestrator
	draw chan model.DrawCmd
	cmds chan session.Command
}

func newHarness(bindings model.Bindings, states map[string]string) *harness {
	flags := readiness.New()
	flags.SetNetworkReady()

	draw := make(chan model.DrawCmd, 32)
	cmds := make(chan session.Command, 8)
	orch := New(flags, &fakeSource{bindings: bindings}, &fakeSeeder{states: states}, time.UTC, Channels{
		Buttons: make(chan model.ButtonID),
		Events:  make(chan *model.EventFrame),
		Refresh: make(chan struct{}, 1),
		Draw:    draw,
		Session: cmds,
	})
	return &harness{orch: orch, draw: draw, cmds: cmds}
}

func (h *harness) drainDraw() []model.DrawCmd {
	var out []model.DrawCmd
	for {
		select {
		case cmd := <-h.draw:
			out = append(out, cmd)
		default:
			return out
		}
	}
}

func testBindings() model.Bindings {
	return model.Bindings{
		model.DisplayBinding{Line: 0, Text: "Office", Color: model.ColorBlack},
		model.MirrorBinding{Line: 1, EntityID: "sensor.temp", Text: "Temp: ", MakeInt: true, Color: model.ColorGreen},
		model.ToggleBinding{
			Button:    2,
			EntityID:  "light.desk",
			Cmp:       model.CmpStr("on"),
			TextOn:    "Off",
			TextOff:   "On",
			ActionOn:  model.SceneAction("scene.desk_on"),
			ActionOff: model.ServiceAction{EntityID: "light.desk", Service: "turn_off"},
			Color:     model.ColorRed,
		},
	}
}

func TestBootstrapSeedsAndRenders(t *testing.T) {
	t.Parallel()

	h := newHarness(testBindings(), map[string]string{
		"sensor.temp": "21.6",
		"light.desk":  "on",
	})
	h.orch.bootstrap(context.Background())

	texts := []string{}
	for _, cmd := range h.drainDraw() {
		texts = append(texts, cmd.Text)
	}
	assert.Equal(t, []string{"Office", "Temp: 22", "Off"}, texts)
}

func TestBootstrapSurvivesSeedFailures(t *testing.T) {
	t.Parallel()

	// light.desk is missing from the seeder: its entry stays empty and
	// the rest of the bootstrap proceeds
	h := newHarness(testBindings(), map[string]string{"sensor.temp": "19.2"})
	h.orch.bootstrap(context.Background())

	v, ok := h.orch.store.Value("light.desk")
	require.True(t, ok)
	assert.Equal(t, "", v)

	v, ok = h.orch.store.Value("sensor.temp")
	require.True(t, ok)
	assert.Equal(t, "19.2", v)
}

func TestButtonDispatchesCurrentAction(t *testing.T) {
	t.Parallel()

	h := newHarness(testBindings(), map[string]string{"light.desk": "on"})
	h.orch.bootstrap(context.Background())
	h.drainDraw()

	h.orch.onButton(2)

	select {
	case cmd := <-h.cmds:
		msg, ok := cmd.(session.SendMessage)
		require.True(t, ok)
		req, ok := msg.Payload.(model.CallServiceRequest)
		require.True(t, ok)
		assert.Equal(t, "turn_off", req.Service)
		assert.Equal(t, "light.desk", req.Target.EntityID)
		assert.GreaterOrEqual(t, req.ID, int64(1024))
	default:
		t.Fatal("no command enqueued")
	}
}

func TestButtonWithoutBindingIsIgnored(t *testing.T) {
	t.Parallel()

	h := newHarness(testBindings(), map[string]string{"light.desk": "on"})
	h.orch.bootstrap(context.Background())
	h.drainDraw()

	h.orch.onButton(0)
	assert.Empty(t, h.cmds)
}

func testEvent(entityID, value string) *model.EventFrame {
	frame := &model.EventFrame{Type: "event"}
	frame.Event.Data.EntityID = entityID
	frame.Event.Data.NewState = &struct {
		State string `json:"state"`
	}{State: value}
	return frame
}

func TestEventAppliesDeltaAndRenders(t *testing.T) {
	t.Parallel()

	h := newHarness(testBindings(), map[string]string{"sensor.temp": "20"})
	h.orch.bootstrap(context.Background())
	h.drainDraw()

	h.orch.onEvent(testEvent("sensor.temp", "25.4"))
	cmds := h.drainDraw()
	require.Len(t, cmds, 1)
	assert.Equal(t, "Temp: 25", cmds[0].Text)

	// identical value: no change, no redraw
	h.orch.onEvent(testEvent("sensor.temp", "25.4"))
	assert.Empty(t, h.drainDraw())

	// untracked identity: ignored entirely
	h.orch.onEvent(testEvent("sensor.elsewhere", "99"))
	assert.Empty(t, h.drainDraw())
	_, ok := h.orch.store.Value("sensor.elsewhere")
	assert.False(t, ok)
}

func TestClockRendersOnlyOnChange(t *testing.T) {
	t.Parallel()

	h := newHarness(model.Bindings{}, nil)
	now := time.Date(2026, 8, 31, 9, 5, 0, 0, time.UTC)
	h.orch.now = func() time.Time { return now }

	// before sync the clock stays dark
	h.orch.renderClock()
	assert.Empty(t, h.drainDraw())

	h.orch.flags.SetTimeSynced()

	h.orch.renderClock()
	cmds := h.drainDraw()
	require.Len(t, cmds, 1)
	assert.Equal(t, "        9:05", cmds[0].Text)

	// same minute: nothing new
	now = now.Add(20 * time.Second)
	h.orch.renderClock()
	assert.Empty(t, h.drainDraw())

	now = now.Add(time.Minute)
	h.orch.renderClock()
	cmds = h.drainDraw()
	require.Len(t, cmds, 1)
	assert.Equal(t, "        9:06", cmds[0].Text)
}

func TestRefreshSignalRebootstraps(t *testing.T) {
	t.Parallel()

	h := newHarness(testBindings(), map[string]string{"sensor.temp": "20"})
	h.orch.bootstrap(context.Background())
	require.True(t, h.orch.bootstrapped)
	h.drainDraw()

	h.orch.bootstrapped = false
	h.orch.bootstrap(context.Background())
	// render cache was reset with the store, so the full layout repaints
	assert.NotEmpty(t, h.drainDraw())
}
