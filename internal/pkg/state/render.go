package state

import (
	"fmt"
	"math"
	"strconv"

	"github.com/dpp/homer/internal/pkg/model"
)

// Fixed panel layout: binding lines start two rows below the clock banner.
const (
	lineX      = 10
	lineHeight = 30
	lineBase   = 2
)

func linePos(line uint8) model.DrawPos {
	return model.PointPos(lineX, lineHeight*(int(line)+lineBase))
}

// EvaluateBindings computes the desired rendered text for every binding and
// emits exactly one draw instruction per binding whose text differs from the
// render cache. Running it twice with no intervening state change produces
// nothing on the second run.
func (s *Store) EvaluateBindings(bindings model.Bindings) []model.DrawCmd {
	var cmds []model.DrawCmd
	for _, b := range bindings {
		switch b := b.(type) {
		case model.DisplayBinding:
			if cmd, ok := s.renderKeyed(b.Text, b.Text, linePos(b.Line), b.Color, true); ok {
				cmds = append(cmds, cmd)
			}
		case model.MirrorBinding:
			value, ok := s.Value(b.EntityID)
			if !ok {
				continue
			}
			text := b.Text + mirrorSuffix(value, b.MakeInt)
			if cmd, ok := s.renderKeyed(b.EntityID, text, linePos(b.Line), b.Color, true); ok {
				cmds = append(cmds, cmd)
			}
		case model.ToggleBinding:
			text := b.TextOff
			if b.On(s.Value(b.EntityID)) {
				text = b.TextOn
			}
			if cmd, ok := s.renderKeyed(b.EntityID, text, model.ButtonPos(b.Button), b.Color, false); ok {
				cmds = append(cmds, cmd)
			}
		}
	}
	return cmds
}

func (s *Store) renderKeyed(key, text string, pos model.DrawPos, color model.Color, large bool) (model.DrawCmd, bool) {
	if s.cache[key] == text {
		return model.DrawCmd{}, false
	}
	s.cache[key] = text
	return model.Text(pos, text, color, model.ColorWhite, large), true
}

// mirrorSuffix renders the tracked value, rounded to the nearest integer
// when asked. Non-numeric values under rounding degrade to an empty suffix.
func mirrorSuffix(value string, makeInt bool) string {
	if !makeInt {
		return value
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%d", int64(math.Round(f)))
}
