package gateway

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lhdbsbz/applydesk/internal/chat"
)

// View is the server side of one page view: its chat transcript, the
// submit control and the status line. Nothing of it outlives the process.
type View struct {
	ID        string
	CreatedAt time.Time
	Chat      *chat.Handler

	lastSeen atomic.Int64

	mu            sync.Mutex
	conns         map[string]*Conn
	seq           int
	submitEnabled bool
	status        string
	unsubscribe   func()
}

func newView(id string, handler *chat.Handler) *View {
	v := &View{
		ID:            id,
		CreatedAt:     time.Now(),
		Chat:          handler,
		conns:         make(map[string]*Conn),
		submitEnabled: true,
	}
	v.touch()
	v.unsubscribe = handler.Log().Subscribe(chat.RendererFunc(v.renderMessage))
	return v
}

func (v *View) touch() { v.lastSeen.Store(time.Now().UnixNano()) }

// LastSeen is the time of the last request or socket frame for this view.
func (v *View) LastSeen() time.Time { return time.Unix(0, v.lastSeen.Load()) }

func (v *View) renderMessage(m chat.Message) {
	v.Broadcast(EventChatMessage, chatMessageEvent{
		ID:     m.ID,
		Sender: string(m.Sender),
		Text:   m.Text,
		At:     m.At.Format(time.RFC3339Nano),
		Scroll: true,
	})
}

// Disable and Enable drive the submit control (apply.Control).
func (v *View) Disable() { v.setSubmitEnabled(false) }
func (v *View) Enable()  { v.setSubmitEnabled(true) }

func (v *View) setSubmitEnabled(enabled bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.submitEnabled = enabled
	v.broadcastLocked(EventApplyControl, applyControlEvent{Enabled: enabled})
}

// SetStatus replaces the status line text (apply.StatusLine).
func (v *View) SetStatus(text string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.status = text
	v.broadcastLocked(EventApplyStatus, applyStatusEvent{Status: text})
}

func (v *View) SubmitEnabled() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.submitEnabled
}

func (v *View) Status() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.status
}

// Broadcast sends an event to every socket of the view.
func (v *View) Broadcast(event string, payload any) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.broadcastLocked(event, payload)
}

func (v *View) broadcastLocked(event string, payload any) {
	v.seq++
	frame := EventFrame(event, v.seq, payload)
	for _, conn := range v.conns {
		if err := conn.Send(frame); err != nil {
			slog.Warn("broadcast failed", "view", v.ID, "conn", conn.ID, "error", err)
		}
	}
}

func (v *View) addConn(c *Conn) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.conns[c.ID] = c
}

func (v *View) removeConn(id string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.conns, id)
}

func (v *View) ConnCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.conns)
}

// Snapshot is what a page needs to draw the view from scratch. Seq is the
// last event sequence number the status and control values reflect; a page
// ignores status and control events at or below it.
type Snapshot struct {
	ViewID        string         `json:"viewId"`
	Messages      []chat.Message `json:"messages"`
	Status        string         `json:"status"`
	SubmitEnabled bool           `json:"submitEnabled"`
	Seq           int            `json:"seq"`
}

func (v *View) Snapshot() Snapshot {
	// The log lock is taken before v.mu when rendering, so never inside it.
	msgs := v.Chat.Log().Messages()
	v.mu.Lock()
	defer v.mu.Unlock()
	return Snapshot{
		ViewID:        v.ID,
		Messages:      msgs,
		Status:        v.status,
		SubmitEnabled: v.submitEnabled,
		Seq:           v.seq,
	}
}

func (v *View) close() {
	if v.unsubscribe != nil {
		v.unsubscribe()
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, c := range v.conns {
		c.WS.Close()
	}
	v.conns = make(map[string]*Conn)
}
