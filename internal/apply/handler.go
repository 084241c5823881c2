package apply

import (
	"context"
	"errors"
	"log/slog"

	"github.com/lhdbsbz/applydesk/internal/endpoint"
)

// Status texts shown to the applicant.
const (
	StatusUploading = "Uploading and scoring your resume..."
	StatusNoFile    = "Please select a resume file."
	StatusSubmitted = "Submitted! You will receive an email with next steps."
	StatusFailed    = "Submission failed. Check console or try again."
)

var ErrNoFile = errors.New("no resume file selected")

type Fields struct {
	Name  string `json:"name" form:"name"`
	Email string `json:"email" form:"email"`
	Phone string `json:"phone" form:"phone"`
}

// Form is the application form as the handler sees it.
type Form interface {
	Fields() Fields
	File() (Attachment, bool)
	// Reset clears the fields and the file selection.
	Reset()
}

// Control is the trigger that starts a submission.
type Control interface {
	Disable()
	Enable()
}

type StatusLine interface {
	SetStatus(text string)
}

type Dispatcher interface {
	Submit(ctx context.Context, p endpoint.SubmissionPayload) (endpoint.Dispatch, error)
}

type Outcome string

const (
	OutcomeDispatched Outcome = "dispatched"
	OutcomeNoFile     Outcome = "no_file"
	OutcomeFailed     Outcome = "failed"
)

// Result of one submission attempt. Dispatched never implies the endpoint
// accepted the application.
type Result struct {
	Outcome  Outcome           `json:"outcome"`
	Status   string            `json:"status"`
	Dispatch endpoint.Dispatch `json:"dispatch,omitzero"`
	Err      error             `json:"-"`
}

type Handler struct {
	Dispatcher Dispatcher
	Logger     *slog.Logger
}

func NewHandler(d Dispatcher, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{Dispatcher: d, Logger: logger}
}

// Submit runs one submission. control is disabled for the whole call and
// re-enabled exactly once on every path.
func (h *Handler) Submit(ctx context.Context, form Form, control Control, status StatusLine) Result {
	control.Disable()
	defer control.Enable()

	status.SetStatus(StatusUploading)

	fields := form.Fields()
	att, ok := form.File()
	if !ok || att == nil {
		status.SetStatus(StatusNoFile)
		return Result{Outcome: OutcomeNoFile, Status: StatusNoFile, Err: ErrNoFile}
	}

	fail := func(err error) Result {
		h.Logger.Error("submission failed", "file", att.Filename(), "error", err)
		status.SetStatus(StatusFailed)
		return Result{Outcome: OutcomeFailed, Status: StatusFailed, Err: err}
	}

	encoded, err := ReadAsDataURL(ctx, att)
	if err != nil {
		return fail(err)
	}

	payload := endpoint.NewSubmissionPayload(
		fields.Name, fields.Email, fields.Phone,
		att.Filename(), encoded.MIME, StripDataURLPrefix(encoded.URL),
	)
	d, err := h.Dispatcher.Submit(ctx, payload)
	if err != nil {
		return fail(err)
	}

	h.Logger.Info("submission dispatched", "file", payload.Filename, "mime", payload.MIMEType, "bytes", d.Bytes)
	status.SetStatus(StatusSubmitted)
	form.Reset()
	return Result{Outcome: OutcomeDispatched, Status: StatusSubmitted, Dispatch: d}
}
