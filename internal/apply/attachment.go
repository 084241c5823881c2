package apply

import (
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
)

// Attachment is one selected file, read lazily.
type Attachment interface {
	Filename() string
	ContentType() string // "" when the source declared none
	Open() (io.ReadCloser, error)
}

type multipartFile struct {
	fh *multipart.FileHeader
}

// FromMultipart wraps an uploaded form file.
func FromMultipart(fh *multipart.FileHeader) Attachment {
	return multipartFile{fh: fh}
}

func (f multipartFile) Filename() string             { return f.fh.Filename }
func (f multipartFile) ContentType() string          { return f.fh.Header.Get("Content-Type") }
func (f multipartFile) Open() (io.ReadCloser, error) { return f.fh.Open() }

type pathFile struct {
	path string
}

// FromPath wraps a file on disk; its type is sniffed from the content.
func FromPath(path string) Attachment {
	return pathFile{path: path}
}

func (f pathFile) Filename() string             { return filepath.Base(f.path) }
func (f pathFile) ContentType() string          { return "" }
func (f pathFile) Open() (io.ReadCloser, error) { return os.Open(f.path) }
