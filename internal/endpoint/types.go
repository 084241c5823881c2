package endpoint

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Kind discriminates the two request shapes the endpoint accepts.
type Kind string

const (
	KindSubmit Kind = "submit"
	KindChat   Kind = "chat"
)

var (
	ErrNoEndpoint    = errors.New("endpoint url not configured")
	ErrEmptyQuestion = errors.New("question is empty")
	ErrNullReply     = errors.New("reply is null")
)

// SubmissionPayload is the application envelope. FileB64 is bare base64,
// never a data URL.
type SubmissionPayload struct {
	Kind     Kind   `json:"kind"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Filename string `json:"filename"`
	MIMEType string `json:"mimeType"`
	FileB64  string `json:"fileB64"`
}

// ChatPayload carries one question.
type ChatPayload struct {
	Kind     Kind   `json:"kind"`
	Question string `json:"question"`
}

// ChatReply is what the endpoint answers to a chat request. The answer is
// usually a string but is kept raw so other scalars can still be shown.
type ChatReply struct {
	Answer json.RawMessage `json:"answer,omitempty"`
}

// Dispatch reports that a submission left without a transport error.
// The response is opaque, so it never means the endpoint accepted it.
type Dispatch struct {
	At    time.Time `json:"at"`
	Bytes int       `json:"bytes"`
}

// NewSubmissionPayload trims every text field; fileB64 is taken as is.
func NewSubmissionPayload(name, email, phone, filename, mimeType, fileB64 string) SubmissionPayload {
	return SubmissionPayload{
		Kind:     KindSubmit,
		Name:     strings.TrimSpace(name),
		Email:    strings.TrimSpace(email),
		Phone:    strings.TrimSpace(phone),
		Filename: strings.TrimSpace(filename),
		MIMEType: strings.TrimSpace(mimeType),
		FileB64:  fileB64,
	}
}

func NewChatPayload(question string) (ChatPayload, error) {
	q := strings.TrimSpace(question)
	if q == "" {
		return ChatPayload{}, ErrEmptyQuestion
	}
	return ChatPayload{Kind: KindChat, Question: q}, nil
}
