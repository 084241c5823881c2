package chat

import (
	"context"
	"log/slog"
	"strings"
)

const (
	NoAnswerText = "No answer received."
	ErrorText    = "Error getting answer. Please try again later."
)

// KeyEnter is the only key that sends.
const KeyEnter = "Enter"

// Input is the text box the question is typed into.
type Input interface {
	Value() string
	Clear()
}

type Asker interface {
	Ask(ctx context.Context, question string) (string, error)
}

// Turn is one question and the bot message that answered it.
type Turn struct {
	Question Message `json:"question"`
	Answer   Message `json:"answer"`
	Err      error   `json:"-"`
}

type Handler struct {
	asker  Asker
	log    *Log
	logger *slog.Logger
}

func NewHandler(asker Asker, log *Log, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{asker: asker, log: log, logger: logger}
}

func (h *Handler) Log() *Log { return h.log }

// KeyDown sends on Enter and ignores every other key.
func (h *Handler) KeyDown(ctx context.Context, key string, in Input) (Turn, bool) {
	if key != KeyEnter {
		return Turn{}, false
	}
	return h.Send(ctx, in)
}

// Send posts the input as a question. Blank input is ignored (false).
// The user message is shown and the input cleared before the request; a
// failed request still ends in a bot message.
func (h *Handler) Send(ctx context.Context, in Input) (Turn, bool) {
	q := strings.TrimSpace(in.Value())
	if q == "" {
		return Turn{}, false
	}

	turn := Turn{Question: h.log.Append(SenderUser, q)}
	in.Clear()

	answer, err := h.asker.Ask(ctx, q)
	switch {
	case err != nil:
		h.logger.Warn("chat request failed", "error", err)
		turn.Err = err
		answer = ErrorText
	case answer == "":
		answer = NoAnswerText
	}
	turn.Answer = h.log.Append(SenderBot, answer)
	return turn, true
}

// TextInput is an Input backed by a plain string, for callers that already
// hold the submitted text (HTTP bodies, terminal lines).
type TextInput struct {
	Text    string
	Cleared bool
}

func (t *TextInput) Value() string { return t.Text }

func (t *TextInput) Clear() {
	t.Text = ""
	t.Cleared = true
}
