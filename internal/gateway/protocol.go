package gateway

import "encoding/json"

// Frame is the universal WebSocket message format.
// Three types: "req" (page→server), "res" (server→page), "event" (server→page push).
type Frame struct {
	Type    string          `json:"type"`              // "req" | "res" | "event"
	ID      string          `json:"id,omitempty"`      // request/response correlation ID
	Method  string          `json:"method,omitempty"`  // for req: method name
	Params  json.RawMessage `json:"params,omitempty"`  // for req: method parameters
	OK      *bool           `json:"ok,omitempty"`      // for res: success flag
	Payload json.RawMessage `json:"payload,omitempty"` // for res/event: data
	Error   *ErrorPayload   `json:"error,omitempty"`   // for res: error details
	Event   string          `json:"event,omitempty"`   // for event: event name
	Seq     int             `json:"seq,omitempty"`     // for event: per-view sequence number
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Events pushed to every connection of a view.
const (
	EventChatMessage  = "chat.message"
	EventApplyStatus  = "apply.status"
	EventApplyControl = "apply.control"
)

// Methods accepted over the socket.
const (
	MethodChatSend = "chat.send"
	MethodChatKey  = "chat.key"
)

// ChatSendParams is the body of a chat request, over HTTP or the socket.
// Key is set when the send was triggered by a keypress.
type ChatSendParams struct {
	Text string `json:"text"`
	Key  string `json:"key,omitempty"`
}

type chatMessageEvent struct {
	ID     string `json:"id"`
	Sender string `json:"sender"`
	Text   string `json:"text"`
	At     string `json:"at"`
	Scroll bool   `json:"scroll"` // the log must show this entry
}

type applyStatusEvent struct {
	Status string `json:"status"`
}

type applyControlEvent struct {
	Enabled bool `json:"enabled"`
}

func ResOK(id string, payload any) Frame {
	data, _ := json.Marshal(payload)
	ok := true
	return Frame{Type: "res", ID: id, OK: &ok, Payload: data}
}

func ResErr(id string, code, message string) Frame {
	ok := false
	return Frame{Type: "res", ID: id, OK: &ok, Error: &ErrorPayload{Code: code, Message: message}}
}

func EventFrame(event string, seq int, payload any) Frame {
	data, _ := json.Marshal(payload)
	return Frame{Type: "event", Event: event, Seq: seq, Payload: data}
}
