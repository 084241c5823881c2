package chat

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Message is one entry of the transcript. It is never modified after Append.
type Message struct {
	ID     string    `json:"id"`
	Sender Sender    `json:"sender"`
	Text   string    `json:"text"`
	At     time.Time `json:"at"`
}

// Renderer shows a freshly appended message and brings it into view.
// Render is called with the log locked and must not call back into it.
type Renderer interface {
	Render(Message)
}

// RendererFunc adapts a plain function to Renderer.
type RendererFunc func(Message)

func (f RendererFunc) Render(m Message) { f(m) }

// Log is an append-only, unbounded transcript for one page view.
type Log struct {
	mu        sync.Mutex
	messages  []Message
	renderers map[int]Renderer
	nextID    int
}

func NewLog() *Log {
	return &Log{renderers: make(map[int]Renderer)}
}

// Append records a message and renders it on every subscriber, in order.
func (l *Log) Append(sender Sender, text string) Message {
	m := Message{
		ID:     uuid.NewString(),
		Sender: sender,
		Text:   text,
		At:     time.Now(),
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, m)
	for _, r := range l.renderers {
		r.Render(m)
	}
	return m
}

// Subscribe attaches a renderer for future appends. The returned func detaches it.
func (l *Log) Subscribe(r Renderer) (unsubscribe func()) {
	l.mu.Lock()
	id := l.nextID
	l.nextID++
	l.renderers[id] = r
	l.mu.Unlock()

	return func() {
		l.mu.Lock()
		delete(l.renderers, id)
		l.mu.Unlock()
	}
}

// Messages returns a copy of the transcript.
func (l *Log) Messages() []Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Message, len(l.messages))
	copy(out, l.messages)
	return out
}

func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.messages)
}
