package console

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/lhdbsbz/applydesk/internal/apply"
	"github.com/lhdbsbz/applydesk/internal/chat"
	"github.com/lhdbsbz/applydesk/internal/endpoint"
)

type echoAsker struct{ asked []string }

func (e *echoAsker) Ask(ctx context.Context, q string) (string, error) {
	e.asked = append(e.asked, q)
	return "re: " + q, nil
}

func TestRunChatRendersEveryTurn(t *testing.T) {
	var out bytes.Buffer
	con := New(&out)
	log := chat.NewLog()
	log.Subscribe(con)
	asker := &echoAsker{}
	h := chat.NewHandler(asker, log, slog.New(slog.NewTextHandler(io.Discard, nil)))

	if err := RunChat(context.Background(), h, strings.NewReader("first\n   \nsecond\n")); err != nil {
		t.Fatalf("RunChat: %v", err)
	}

	want := "[user] first\n[bot] re: first\n[user] second\n[bot] re: second\n"
	if diff := cmp.Diff(want, out.String()); diff != "" {
		t.Errorf("output (-want +got):\n%s", diff)
	}
	if len(asker.asked) != 2 {
		t.Errorf("asked = %v", asker.asked)
	}
}

type captureDispatcher struct{ got []endpoint.SubmissionPayload }

func (d *captureDispatcher) Submit(ctx context.Context, p endpoint.SubmissionPayload) (endpoint.Dispatch, error) {
	d.got = append(d.got, p)
	return endpoint.Dispatch{Bytes: 1}, nil
}

func TestFileFormSubmission(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resume.txt")
	if err := os.WriteFile(path, []byte("plain text resume"), 0600); err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	con := New(&out)
	form := &FileForm{Values: apply.Fields{Name: "Ada"}, Path: path}
	d := &captureDispatcher{}

	res := apply.NewHandler(d, slog.New(slog.NewTextHandler(io.Discard, nil))).Submit(context.Background(), form, con, con)

	if res.Outcome != apply.OutcomeDispatched {
		t.Fatalf("result = %+v", res)
	}
	if len(d.got) != 1 || d.got[0].MIMEType != "text/plain" || d.got[0].Filename != "resume.txt" {
		t.Errorf("payload = %+v", d.got)
	}
	if form.Path != "" || !con.Enabled() {
		t.Errorf("form path=%q enabled=%v", form.Path, con.Enabled())
	}
	if want := apply.StatusUploading + "\n" + apply.StatusSubmitted + "\n"; out.String() != want {
		t.Errorf("output = %q", out.String())
	}
}

func TestFileFormWithoutPath(t *testing.T) {
	if _, ok := (&FileForm{Path: "  "}).File(); ok {
		t.Error("blank path reported as a file")
	}
}
