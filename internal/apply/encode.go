package apply

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const fallbackMIME = "application/octet-stream"

// DataURL is a file rendered as data:<mime>;base64,<payload>.
type DataURL struct {
	MIME string
	URL  string
}

// ReadAsDataURL reads the whole attachment and encodes it. A missing
// content type is sniffed from the bytes.
func ReadAsDataURL(ctx context.Context, att Attachment) (DataURL, error) {
	if err := ctx.Err(); err != nil {
		return DataURL{}, err
	}
	rc, err := att.Open()
	if err != nil {
		return DataURL{}, fmt.Errorf("open %s: %w", att.Filename(), err)
	}
	defer rc.Close()

	data, err := io.ReadAll(ctxReader{ctx: ctx, r: rc})
	if err != nil {
		return DataURL{}, fmt.Errorf("read %s: %w", att.Filename(), err)
	}

	mimeType := strings.TrimSpace(att.ContentType())
	if mimeType == "" {
		mimeType = DetectMIME(data)
	}

	var b strings.Builder
	b.Grow(len("data:;base64,") + len(mimeType) + base64.StdEncoding.EncodedLen(len(data)))
	b.WriteString("data:")
	b.WriteString(mimeType)
	b.WriteString(";base64,")
	b.WriteString(base64.StdEncoding.EncodeToString(data))
	return DataURL{MIME: mimeType, URL: b.String()}, nil
}

// StripDataURLPrefix returns the text after the first comma. Input without
// a comma is assumed to be bare base64 already.
func StripDataURLPrefix(s string) string {
	if _, payload, ok := strings.Cut(s, ","); ok {
		return payload
	}
	return s
}

// DetectMIME sniffs data and returns the bare media type, without parameters.
func DetectMIME(data []byte) string {
	mt := mimetype.Detect(data).String()
	if base, _, ok := strings.Cut(mt, ";"); ok {
		mt = base
	}
	mt = strings.TrimSpace(mt)
	if mt == "" {
		return fallbackMIME
	}
	return mt
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
