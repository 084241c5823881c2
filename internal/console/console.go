// Package console drives the submission and chat flows from a terminal.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/lhdbsbz/applydesk/internal/apply"
	"github.com/lhdbsbz/applydesk/internal/chat"
)

// Console renders status lines and chat messages as text lines. It serves
// as apply.StatusLine, apply.Control and chat.Renderer at once.
type Console struct {
	mu      sync.Mutex
	out     io.Writer
	enabled bool
}

func New(out io.Writer) *Console {
	return &Console{out: out, enabled: true}
}

func (c *Console) SetStatus(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, text)
}

func (c *Console) Disable() { c.setEnabled(false) }
func (c *Console) Enable()  { c.setEnabled(true) }

func (c *Console) setEnabled(v bool) {
	c.mu.Lock()
	c.enabled = v
	c.mu.Unlock()
	slog.Debug("submit control", "enabled", v)
}

func (c *Console) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// Render prints a chat message; a terminal always shows the newest line.
func (c *Console) Render(m chat.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "[%s] %s\n", m.Sender, m.Text)
}

// FileForm is an application form filled from flags.
type FileForm struct {
	Values apply.Fields
	Path   string
}

func (f *FileForm) Fields() apply.Fields { return f.Values }

func (f *FileForm) File() (apply.Attachment, bool) {
	if strings.TrimSpace(f.Path) == "" {
		return nil, false
	}
	return apply.FromPath(f.Path), true
}

func (f *FileForm) Reset() {
	f.Values = apply.Fields{}
	f.Path = ""
}

// RunChat reads questions line by line until EOF or ctx is done. Each line
// ends with Enter, so each non-blank line is one question.
func RunChat(ctx context.Context, h *chat.Handler, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		h.KeyDown(ctx, chat.KeyEnter, &chat.TextInput{Text: scanner.Text()})
	}
	return scanner.Err()
}
