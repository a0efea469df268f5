package model

// ButtonID identifies one of the physical buttons sharing the analog sense
// line. The band-to-id mapping is a wiring contract: the highest analog band
// decodes to button 0, the lowest to button 2.
type ButtonID int

const ButtonCount = 3

// Color is a raw RGB565 value, matching the panel's native pixel format.
type Color uint16

const (
	ColorBlack   Color = 0x0000
	ColorBlue    Color = 0x001f
	ColorGreen   Color = 0x07e0
	ColorCyan    Color = 0x07ff
	ColorRed     Color = 0xf800
	ColorMagenta Color = 0xf81f
	ColorYellow  Color = 0xffe3
	ColorWhite   Color = 0xffff
)

type FrameType string

func (ft FrameType) String() string {
	return string(ft)
}

const (
	FrameAuth            FrameType = "auth"
	FrameAuthOK          FrameType = "auth_ok"
	FrameSubscribeEvents FrameType = "subscribe_events"
	FrameCallService     FrameType = "call_service"
)

// SubscribeRequestID is the fixed, well-known id used for the single
// subscription request issued per session.
const SubscribeRequestID = 42
