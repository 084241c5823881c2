package chat

import (
	"fmt"
	"sync"
	"testing"
)

func TestLogRendersInAppendOrder(t *testing.T) {
	l := NewLog()
	var rendered []string
	unsubscribe := l.Subscribe(RendererFunc(func(m Message) {
		rendered = append(rendered, m.Text)
	}))

	l.Append(SenderUser, "one")
	l.Append(SenderBot, "two")
	unsubscribe()
	l.Append(SenderUser, "three")

	if fmt.Sprint(rendered) != "[one two]" {
		t.Errorf("rendered = %v", rendered)
	}
	if l.Len() != 3 {
		t.Errorf("len = %d, want 3", l.Len())
	}
}

func TestLogMessagesIsACopy(t *testing.T) {
	l := NewLog()
	l.Append(SenderUser, "original")

	msgs := l.Messages()
	msgs[0].Text = "edited"

	if got := l.Messages()[0].Text; got != "original" {
		t.Errorf("log mutated through copy: %q", got)
	}
}

func TestLogConcurrentAppends(t *testing.T) {
	l := NewLog()
	var seen int
	l.Subscribe(RendererFunc(func(Message) { seen++ }))

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Append(SenderUser, fmt.Sprint(i))
		}()
	}
	wg.Wait()

	if l.Len() != 50 || seen != 50 {
		t.Errorf("len=%d seen=%d, want 50", l.Len(), seen)
	}
	ids := make(map[string]bool)
	for _, m := range l.Messages() {
		ids[m.ID] = true
	}
	if len(ids) != 50 {
		t.Errorf("unique ids = %d", len(ids))
	}
}
