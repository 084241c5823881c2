package endpoint

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/lhdbsbz/applydesk/internal/config"
)

const (
	maxReplySize = 1 << 20
	maxDrainSize = 64 << 10

	// opaqueContentType is what a browser attaches to a string body sent
	// without explicit headers; script endpoints read it as raw post data.
	opaqueContentType = "text/plain;charset=UTF-8"
)

// Client talks to the automation endpoint. Settings can be swapped while
// requests are in flight (config hot reload); each request uses a snapshot.
type Client struct {
	mu   sync.RWMutex
	cfg  config.EndpointConfig
	http *http.Client
}

func NewClient(cfg config.EndpointConfig) *Client {
	return &Client{cfg: cfg, http: &http.Client{}}
}

// Configure applies new endpoint settings to subsequent requests.
func (c *Client) Configure(cfg config.EndpointConfig) {
	c.mu.Lock()
	c.cfg = cfg
	c.mu.Unlock()
}

func (c *Client) settings() config.EndpointConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg
}

// URL returns the endpoint currently in use.
func (c *Client) URL() string { return c.settings().URL }

// Submit posts the application in opaque mode: status and body of the
// response are never looked at, only transport errors surface.
func (c *Client) Submit(ctx context.Context, p SubmissionPayload) (Dispatch, error) {
	p.Kind = KindSubmit
	body, err := json.Marshal(p)
	if err != nil {
		return Dispatch{}, fmt.Errorf("marshal submission: %w", err)
	}

	resp, cancel, err := c.post(ctx, body, opaqueContentType)
	if err != nil {
		return Dispatch{}, fmt.Errorf("dispatch submission: %w", err)
	}
	defer cancel()
	io.Copy(io.Discard, io.LimitReader(resp.Body, maxDrainSize))
	resp.Body.Close()

	return Dispatch{At: time.Now(), Bytes: len(body)}, nil
}

// Ask sends a question and returns the answer text, which is empty when the
// reply carries no answer. The HTTP status is not consulted; a body that is
// not JSON, or is JSON null, is an error.
func (c *Client) Ask(ctx context.Context, question string) (string, error) {
	p, err := NewChatPayload(question)
	if err != nil {
		return "", err
	}
	body, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal question: %w", err)
	}

	resp, cancel, err := c.post(ctx, body, "application/json")
	if err != nil {
		return "", fmt.Errorf("send question: %w", err)
	}
	defer cancel()
	defer resp.Body.Close()

	slog.Debug("chat reply", "status", resp.StatusCode)

	var raw json.RawMessage
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxReplySize)).Decode(&raw); err != nil {
		return "", fmt.Errorf("decode reply (status %d): %w", resp.StatusCode, err)
	}
	answer, err := answerText(raw)
	if err != nil {
		return "", fmt.Errorf("decode reply (status %d): %w", resp.StatusCode, err)
	}
	return answer, nil
}

// answerText pulls the answer out of a reply document. Only a null document
// is rejected; a document that is not an object has no answer. Scalar answers
// are rendered as text, and false, 0 and null count as no answer.
func answerText(raw json.RawMessage) (string, error) {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return "", ErrNullReply
	}
	var reply ChatReply
	if err := json.Unmarshal(raw, &reply); err != nil {
		// Arrays, strings and numbers at the top level.
		return "", nil
	}

	v := bytes.TrimSpace(reply.Answer)
	if len(v) == 0 {
		return "", nil
	}
	switch v[0] {
	case '"':
		var text string
		if err := json.Unmarshal(v, &text); err != nil {
			return "", err
		}
		return text, nil
	case 'n', 'f':
		return "", nil
	case '{', '[', 't':
		return string(v), nil
	default:
		var n json.Number
		if err := json.Unmarshal(v, &n); err != nil {
			return "", err
		}
		if f, err := n.Float64(); err == nil && f == 0 {
			return "", nil
		}
		return n.String(), nil
	}
}

// post returns the response plus the cancel func of the request timeout,
// which must only run once the body has been consumed.
func (c *Client) post(ctx context.Context, body []byte, contentType string) (*http.Response, context.CancelFunc, error) {
	cfg := c.settings()
	if cfg.URL == "" {
		return nil, nil, ErrNoEndpoint
	}

	cancel := context.CancelFunc(func() {})
	if cfg.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.URL, bytes.NewReader(body))
	if err != nil {
		cancel()
		return nil, nil, err
	}
	req.Header.Set("Content-Type", contentType)
	if cfg.UserAgent != "" {
		req.Header.Set("User-Agent", cfg.UserAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	return resp, cancel, nil
}
