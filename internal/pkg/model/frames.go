package model

import "sync/atomic"

// AuthRequest is the first frame sent on every fresh connection.
type AuthRequest struct {
	Type        string `json:"type"`
	AccessToken string `json:"access_token"`
}

func NewAuthRequest(token string) AuthRequest {
	return AuthRequest{Type: FrameAuth.String(), AccessToken: token}
}

// SubscribeRequest asks the event stream for all state changes. It always
// carries SubscribeRequestID; the service echoes the id in its result frame.
type SubscribeRequest struct {
	ID   int    `json:"id"`
	Type string `json:"type"`
}

func NewSubscribeRequest() SubscribeRequest {
	return SubscribeRequest{ID: SubscribeRequestID, Type: FrameSubscribeEvents.String()}
}

// EventFrame is the decoded shape of an inbound text frame. The wire format
// is opaque beyond Type and the event.data.entity_id /
// event.data.new_state.state paths; everything else is ignored.
type EventFrame struct {
	Type  string `json:"type"`
	Event struct {
		Data struct {
			EntityID string `json:"entity_id"`
			NewState *struct {
				State string `json:"state"`
			} `json:"new_state"`
		} `json:"data"`
	} `json:"event"`
}

// EntityID returns the entity the frame refers to, if any.
func (f *EventFrame) EntityID() (string, bool) {
	id := f.Event.Data.EntityID
	return id, id != ""
}

// NewState returns the entity's new state value, if the frame carries one.
func (f *EventFrame) NewState() (string, bool) {
	if f.Event.Data.NewState == nil {
		return "", false
	}
	return f.Event.Data.NewState.State, true
}

type Target struct {
	EntityID string `json:"entity_id"`
}

// CallServiceRequest is the outbound command frame produced by dispatching
// an Action.
type CallServiceRequest struct {
	Type        string   `json:"type"`
	Domain      string   `json:"domain"`
	Service     string   `json:"service"`
	Target      Target   `json:"target"`
	ServiceData struct{} `json:"service_data"`
	ID          int64    `json:"id"`
}

const requestIDBase = 1024

var requestID atomic.Int64

func init() {
	requestID.Store(requestIDBase)
}

// NextRequestID hands out process-wide unique outbound request ids. Ids are
// monotonically increasing from 1024 and never reused within a process
// lifetime.
func NextRequestID() int64 {
	return requestID.Add(1) - 1
}
