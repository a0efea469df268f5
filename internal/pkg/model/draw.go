package model

// DrawPos addresses where an instruction lands: a named button-label slot,
// an absolute point, or a rectangular region. Exactly one field is set.
type DrawPos struct {
	Button *ButtonID `json:"button,omitempty"`
	Point  *Point    `json:"point,omitempty"`
	Box    *Box      `json:"box,omitempty"`
}

type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type Box struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

func ButtonPos(b ButtonID) DrawPos {
	return DrawPos{Button: &b}
}

func PointPos(x, y int) DrawPos {
	return DrawPos{Point: &Point{X: x, Y: y}}
}

func BoxPos(x, y, w, h int) DrawPos {
	return DrawPos{Box: &Box{X: x, Y: y, W: w, H: h}}
}

type DrawOp string

const (
	// OpErase clears the whole panel with Color.
	OpErase DrawOp = "erase"
	// OpClear fills the region at Pos with Color.
	OpClear DrawOp = "clear"
	// OpText draws Text at Pos in Color, first filling the text's bounding
	// region with Background when set.
	OpText DrawOp = "text"
)

// DrawCmd is one abstract, renderer-agnostic screen-update instruction. The
// renderer applies instructions in arrival order and may block the core
// while it draws.
type DrawCmd struct {
	Op         DrawOp  `json:"op"`
	Pos        DrawPos `json:"pos,omitempty"`
	Text       string  `json:"text,omitempty"`
	Color      Color   `json:"color"`
	Background *Color  `json:"background,omitempty"`
	// LargeFont selects the big clock/status face instead of the default.
	LargeFont bool `json:"large_font,omitempty"`
}

func Erase(color Color) DrawCmd {
	return DrawCmd{Op: OpErase, Color: color}
}

func Clear(pos DrawPos, color Color) DrawCmd {
	return DrawCmd{Op: OpClear, Pos: pos, Color: color}
}

func Text(pos DrawPos, text string, color Color, background Color, large bool) DrawCmd {
	bg := background
	return DrawCmd{Op: OpText, Pos: pos, Text: text, Color: color, Background: &bg, LargeFont: large}
}
