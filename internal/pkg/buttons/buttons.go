package buttons

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dpp/homer/internal/pkg/model"
)

// ErrRead wraps an analog sense line failure. It is fatal to the decoder:
// there is no recovery path, the process supervisor restarts the appliance.
var ErrRead = errors.New("analog read failed")

// AnalogReader is the hardware boundary: one multiplexed sense line shared
// by all buttons, reporting a single raw sample per read.
type AnalogReader interface {
	Read() (uint16, error)
}

const PollInterval = 50 * time.Millisecond

// decode maps a raw sample to a button via three non-overlapping, gapped
// threshold bands. Values between bands or outside all bands decode to no
// button. The highest band is button 0, the lowest button 2; this ordering
// is the wiring contract, not a choice.
func decode(reading uint16) (model.ButtonID, bool) {
	switch {
	case reading > 700 && reading < 1000:
		return 2, true
	case reading > 1800 && reading < 2200:
		return 1, true
	case reading > 2300 && reading < 2600:
		return 0, true
	default:
		return 0, false
	}
}

// Decoder polls the sense line at a fixed cadence and emits one event per
// rising edge. Holding a button emits nothing further until release and
// re-press; releases emit nothing.
type Decoder struct {
	reader AnalogReader
	events chan<- model.ButtonID
	logger *zap.Logger

	interval time.Duration
	pressed  [model.ButtonCount]bool
}

func New(reader AnalogReader, events chan<- model.ButtonID) *Decoder {
	return &Decoder{
		reader:   reader,
		events:   events,
		logger:   zap.L(),
		interval: PollInterval,
	}
}

// Run polls until the context ends or a read fails. A read error is always
// fatal.
func (d *Decoder) Run(ctx context.Context) error {
	for {
		reading, err := d.reader.Read()
		if err != nil {
			d.logger.Error("sense line read failed", zap.Error(err))
			return fmt.Errorf("%w: %v", ErrRead, err)
		}
		d.Sample(reading)
		select {
		case <-time.After(d.interval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Sample feeds one raw reading through edge detection. Exposed separately
// from Run so the band/edge behavior is verifiable without a clock.
func (d *Decoder) Sample(reading uint16) {
	var now [model.ButtonCount]bool
	if id, ok := decode(reading); ok {
		now[id] = true
	}
	if now == d.pressed {
		return
	}
	for id := model.ButtonID(0); id < model.ButtonCount; id++ {
		if now[id] && !d.pressed[id] {
			d.logger.Debug("button pressed", zap.Int("button", int(id)))
			d.events <- id
		}
	}
	d.pressed = now
}
