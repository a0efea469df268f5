// Package renderer carries draw instructions to the external rasterizer.
// There is exactly one renderer; the handoff is synchronous, so a slow sink
// legitimately blocks the core.
package renderer

import (
	"context"

	"go.uber.org/zap"

	"github.com/dpp/homer/internal/pkg/model"
)

// Sink is the rasterizer boundary. Draw must apply instructions in arrival
// order; it may block while it paints.
type Sink interface {
	Draw(cmd model.DrawCmd) error
}

// Loop drains the draw channel into the sink. A sink failure is fatal to
// the loop; the supervisor restarts the appliance.
type Loop struct {
	sink   Sink
	draw   <-chan model.DrawCmd
	logger *zap.Logger
}

func NewLoop(sink Sink, draw <-chan model.DrawCmd) *Loop {
	return &Loop{
		sink:   sink,
		draw:   draw,
		logger: zap.L(),
	}
}

func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case cmd := <-l.draw:
			if err := l.sink.Draw(cmd); err != nil {
				l.logger.Error("renderer sink failed", zap.Error(err))
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// LogSink writes draw instructions to the log; it serves development runs
// and tests where no panel is attached.
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink() *LogSink {
	return &LogSink{logger: zap.L()}
}

func (s *LogSink) Draw(cmd model.DrawCmd) error {
	s.logger.Info("draw",
		zap.String("op", string(cmd.Op)),
		zap.String("text", cmd.Text),
		zap.Uint16("color", uint16(cmd.Color)),
	)
	return nil
}
