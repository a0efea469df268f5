package state

import (
	"go.uber.org/zap"

	"github.com/dpp/homer/internal/pkg/model"
)

// Store holds the authoritative mirror of remote entity state for the
// tracked identity set, plus the render cache used to suppress redundant
// draw instructions. It is owned by the orchestrator loop and is never
// shared across goroutines.
type Store struct {
	values map[string]string
	cache  map[string]string
	logger *zap.Logger
}

func New() *Store {
	return &Store{
		values: map[string]string{},
		cache:  map[string]string{},
		logger: zap.L(),
	}
}

// Track declares the closed identity set. Entries start at the empty value;
// deltas for identities outside this set never grow the store.
func (s *Store) Track(ids []string) {
	for _, id := range ids {
		if _, ok := s.values[id]; !ok {
			s.values[id] = ""
		}
	}
}

// Reset drops all tracked values and the render cache, ahead of a config
// refresh re-seeding a possibly different identity set.
func (s *Store) Reset() {
	s.values = map[string]string{}
	s.cache = map[string]string{}
}

// ApplySeed initializes one entry from the bootstrap fetch.
func (s *Store) ApplySeed(id, value string) {
	s.values[id] = value
}

// ApplyDelta updates a tracked entry and reports whether anything actually
// changed. Unknown identities are ignored.
func (s *Store) ApplyDelta(id, value string) bool {
	old, ok := s.values[id]
	if !ok {
		return false
	}
	if old == value {
		return false
	}
	s.values[id] = value
	s.logger.Debug("state delta", zap.String("entity_id", id), zap.String("state", value))
	return true
}

// Value returns the tracked value for an identity.
func (s *Store) Value(id string) (string, bool) {
	v, ok := s.values[id]
	return v, ok
}

// Dispatch evaluates a toggle binding against current state and selects the
// action to issue: the off-action while the entity reads as on, the
// on-action otherwise. It never mutates the store; the remote service is the
// source of truth and the next delta confirms the switch.
func Dispatch(b model.ToggleBinding, s *Store) model.Action {
	if b.On(s.Value(b.EntityID)) {
		return b.ActionOff
	}
	return b.ActionOn
}
