package session

// Command is one entry on the single-producer outbound queue. The manager
// drains exactly one per loop iteration while a session is live.
type Command interface {
	isCommand()
}

// Reconnect forces a full teardown; the next iteration rebuilds the session.
type Reconnect struct{}

func (Reconnect) isCommand() {}

// SendText transmits a raw text frame verbatim.
type SendText string

func (SendText) isCommand() {}

// SendMessage transmits a structured message encoded as JSON.
type SendMessage struct {
	Payload any
}

func (SendMessage) isCommand() {}
