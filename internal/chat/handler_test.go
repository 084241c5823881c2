package chat

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"
)

type fakeAsker struct {
	answer string
	err    error
	asked  []string
	before func()
}

func (a *fakeAsker) Ask(ctx context.Context, q string) (string, error) {
	if a.before != nil {
		a.before()
	}
	a.asked = append(a.asked, q)
	return a.answer, a.err
}

func newTestHandler(a Asker) *Handler {
	return NewHandler(a, NewLog(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type line struct {
	Sender Sender
	Text   string
}

func transcript(l *Log) []line {
	var out []line
	for _, m := range l.Messages() {
		out = append(out, line{m.Sender, m.Text})
	}
	return out
}

func TestSendIgnoresBlankInput(t *testing.T) {
	a := &fakeAsker{answer: "x"}
	h := newTestHandler(a)
	in := &TextInput{Text: "  \t\n "}

	if _, ok := h.Send(context.Background(), in); ok {
		t.Error("blank input reported as sent")
	}
	if h.Log().Len() != 0 || len(a.asked) != 0 {
		t.Errorf("log len=%d asked=%d", h.Log().Len(), len(a.asked))
	}
	if in.Cleared {
		t.Error("input cleared on no-op")
	}
}

func TestSendAppendsAnswer(t *testing.T) {
	in := &TextInput{Text: "  What roles are open? "}
	a := &fakeAsker{answer: "Hello"}
	a.before = func() {
		if !in.Cleared {
			t.Error("input not cleared before the request")
		}
	}
	h := newTestHandler(a)

	turn, ok := h.Send(context.Background(), in)
	if !ok || turn.Err != nil {
		t.Fatalf("ok=%v err=%v", ok, turn.Err)
	}

	want := []line{{SenderUser, "What roles are open?"}, {SenderBot, "Hello"}}
	if diff := cmp.Diff(want, transcript(h.Log())); diff != "" {
		t.Errorf("transcript (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"What roles are open?"}, a.asked); diff != "" {
		t.Errorf("asked (-want +got):\n%s", diff)
	}
}

func TestSendFallbacks(t *testing.T) {
	tests := []struct {
		name  string
		asker *fakeAsker
		want  string
	}{
		{name: "missing answer", asker: &fakeAsker{}, want: NoAnswerText},
		{name: "request failure", asker: &fakeAsker{err: errors.New("dial tcp: refused")}, want: ErrorText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(tt.asker)
			turn, ok := h.Send(context.Background(), &TextInput{Text: "hi"})
			if !ok {
				t.Fatal("not sent")
			}
			msgs := h.Log().Messages()
			if len(msgs) != 2 {
				t.Fatalf("messages = %d, want 2", len(msgs))
			}
			if msgs[1].Sender != SenderBot || msgs[1].Text != tt.want {
				t.Errorf("bot message = %+v", msgs[1])
			}
			if (turn.Err != nil) != (tt.asker.err != nil) {
				t.Errorf("turn err = %v", turn.Err)
			}
		})
	}
}

func TestKeyDownOnlySendsOnEnter(t *testing.T) {
	a := &fakeAsker{answer: "ok"}
	h := newTestHandler(a)

	if _, ok := h.KeyDown(context.Background(), "a", &TextInput{Text: "hi"}); ok {
		t.Error("non-Enter key sent")
	}
	if _, ok := h.KeyDown(context.Background(), KeyEnter, &TextInput{Text: "hi"}); !ok {
		t.Error("Enter did not send")
	}
	if len(a.asked) != 1 {
		t.Errorf("asked = %d, want 1", len(a.asked))
	}
}
