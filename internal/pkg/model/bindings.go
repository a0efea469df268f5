package model

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// CmpValue is a typed comparison value for toggle bindings. A tracked state
// value (always a string on the wire) is coerced to the declared type before
// equality is tested, so Int(1) matches "1" but not "1.0" or "on".
type CmpValue struct {
	kind cmpKind
	i    int64
	f    float64
	s    string
}

type cmpKind int

const (
	cmpInt cmpKind = iota
	cmpFloat
	cmpStr
)

func CmpInt(i int64) CmpValue     { return CmpValue{kind: cmpInt, i: i} }
func CmpFloat(f float64) CmpValue { return CmpValue{kind: cmpFloat, f: f} }
func CmpStr(s string) CmpValue    { return CmpValue{kind: cmpStr, s: s} }

// Matches reports whether the tracked value equals this comparison value
// under type-aware coercion.
func (c CmpValue) Matches(value string) bool {
	switch c.kind {
	case cmpInt:
		i, err := strconv.ParseInt(value, 10, 64)
		return err == nil && i == c.i
	case cmpFloat:
		f, err := strconv.ParseFloat(value, 64)
		return err == nil && f == c.f
	default:
		return c.s == value
	}
}

// UnmarshalJSON accepts the externally tagged config encoding:
// {"Int":1}, {"Float":21.5} or {"Str":"on"}.
func (c *CmpValue) UnmarshalJSON(data []byte) error {
	var tagged map[string]json.RawMessage
	if err := json.Unmarshal(data, &tagged); err != nil {
		return err
	}
	if len(tagged) != 1 {
		return fmt.Errorf("cmp value must carry exactly one variant, got %d", len(tagged))
	}
	for tag, raw := range tagged {
		switch tag {
		case "Int":
			c.kind = cmpInt
			return json.Unmarshal(raw, &c.i)
		case "Float":
			c.kind = cmpFloat
			return json.Unmarshal(raw, &c.f)
		case "Str":
			c.kind = cmpStr
			return json.Unmarshal(raw, &c.s)
		default:
			return fmt.Errorf("unknown cmp variant %q", tag)
		}
	}
	return nil
}

// Action is a command descriptor dispatched to the remote service. Request
// serializes the action to a uniquely numbered call_service frame.
type Action interface {
	Request() CallServiceRequest
}

// SceneAction activates a named scene.
type SceneAction string

func (a SceneAction) Request() CallServiceRequest {
	return CallServiceRequest{
		Type:    FrameCallService.String(),
		Domain:  "scene",
		Service: "turn_on",
		Target:  Target{EntityID: string(a)},
		ID:      NextRequestID(),
	}
}

// ServiceAction invokes a named service on a named entity.
type ServiceAction struct {
	EntityID string `json:"ha_id"`
	Service  string `json:"service"`
}

func (a ServiceAction) Request() CallServiceRequest {
	return CallServiceRequest{
		Type:    FrameCallService.String(),
		Domain:  "light",
		Service: a.Service,
		Target:  Target{EntityID: a.EntityID},
		ID:      NextRequestID(),
	}
}

func decodeAction(data json.RawMessage) (Action, error) {
	var tagged map[string]json.RawMessage
	if err := json.Unmarshal(data, &tagged); err != nil {
		return nil, err
	}
	if len(tagged) != 1 {
		return nil, fmt.Errorf("action must carry exactly one variant, got %d", len(tagged))
	}
	for tag, raw := range tagged {
		switch tag {
		case "Scene":
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				return nil, err
			}
			return SceneAction(s), nil
		case "Service":
			var a ServiceAction
			if err := json.Unmarshal(raw, &a); err != nil {
				return nil, err
			}
			return a, nil
		default:
			return nil, fmt.Errorf("unknown action variant %q", tag)
		}
	}
	return nil, nil
}

// Binding is one declarative rule mapping display content or a button action
// to remote entity state. The variant set is closed: Display, Mirror, Toggle.
type Binding interface {
	// Key is the render key used to deduplicate draw instructions; for
	// Display bindings it doubles as the static text, for the others it is
	// the tracked entity id.
	Key() string
	isBinding()
}

// DisplayBinding is a fixed line of static text.
type DisplayBinding struct {
	Line  uint8  `json:"line"`
	Text  string `json:"text"`
	Color Color  `json:"color"`
}

func (b DisplayBinding) Key() string { return b.Text }
func (DisplayBinding) isBinding()    {}

// MirrorBinding renders a text template followed by a tracked entity's
// current value. With MakeInt set the value is rendered as its nearest
// integer; values that fail to parse render an empty numeric suffix.
type MirrorBinding struct {
	Line     uint8  `json:"line"`
	EntityID string `json:"ha_id"`
	Text     string `json:"text"`
	MakeInt  bool   `json:"make_int"`
	Color    Color  `json:"color"`
}

func (b MirrorBinding) Key() string { return b.EntityID }
func (MirrorBinding) isBinding()    {}

// ToggleBinding ties a physical button to an entity: the comparison value
// decides whether the entity reads as "on", which selects both the label for
// the button slot and the action dispatched on press.
type ToggleBinding struct {
	Button    ButtonID
	EntityID  string
	Cmp       CmpValue
	TextOn    string
	TextOff   string
	ActionOn  Action
	ActionOff Action
	Color     Color
}

func (b ToggleBinding) Key() string { return b.EntityID }
func (ToggleBinding) isBinding()    {}

// On reports whether the entity's tracked value currently matches the
// comparison value. An untracked or missing value is never on.
func (b ToggleBinding) On(value string, ok bool) bool {
	return ok && b.Cmp.Matches(value)
}

func (b *ToggleBinding) UnmarshalJSON(data []byte) error {
	var raw struct {
		Button    ButtonID        `json:"button"`
		EntityID  string          `json:"ha_id"`
		Cmp       CmpValue        `json:"cmp"`
		TextOn    string          `json:"text_on"`
		TextOff   string          `json:"text_off"`
		ActionOn  json.RawMessage `json:"action_on"`
		ActionOff json.RawMessage `json:"action_off"`
		Color     Color           `json:"color"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	on, err := decodeAction(raw.ActionOn)
	if err != nil {
		return err
	}
	off, err := decodeAction(raw.ActionOff)
	if err != nil {
		return err
	}
	*b = ToggleBinding{
		Button:    raw.Button,
		EntityID:  raw.EntityID,
		Cmp:       raw.Cmp,
		TextOn:    raw.TextOn,
		TextOff:   raw.TextOff,
		ActionOn:  on,
		ActionOff: off,
		Color:     raw.Color,
	}
	return nil
}

// Bindings decodes the externally tagged config encoding, one object per
// binding: {"Text":{...}}, {"Line":{...}} or {"Button":{...}}.
type Bindings []Binding

func (bs *Bindings) UnmarshalJSON(data []byte) error {
	var items []map[string]json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	out := make(Bindings, 0, len(items))
	for _, item := range items {
		if len(item) != 1 {
			return fmt.Errorf("binding must carry exactly one variant, got %d", len(item))
		}
		for tag, raw := range item {
			switch tag {
			case "Text":
				var b DisplayBinding
				if err := json.Unmarshal(raw, &b); err != nil {
					return err
				}
				out = append(out, b)
			case "Line":
				var b MirrorBinding
				if err := json.Unmarshal(raw, &b); err != nil {
					return err
				}
				out = append(out, b)
			case "Button":
				var b ToggleBinding
				if err := json.Unmarshal(raw, &b); err != nil {
					return err
				}
				out = append(out, b)
			default:
				return fmt.Errorf("unknown binding variant %q", tag)
			}
		}
	}
	*bs = out
	return nil
}

// EntityIDs returns the distinct tracked entity ids, in binding order. This
// is the closed set of identities the state store mirrors.
func (bs Bindings) EntityIDs() []string {
	seen := make(map[string]struct{}, len(bs))
	out := make([]string, 0, len(bs))
	for _, b := range bs {
		switch b.(type) {
		case DisplayBinding:
			continue
		}
		if _, ok := seen[b.Key()]; ok {
			continue
		}
		seen[b.Key()] = struct{}{}
		out = append(out, b.Key())
	}
	return out
}
