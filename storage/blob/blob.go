// Package blob contains the helpers shared by the file stores of uploaded course content.
package blob

import (
	"bytes"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// sniffLen is the number of leading bytes used to detect a file's type.
const sniffLen = 3072

// Sniff detects the content type of r from its first bytes.
// The returned reader yields the whole content of r.
func Sniff(r io.Reader) (contentType string, body io.Reader, err error) {
	header := make([]byte, sniffLen)
	n, err := io.ReadFull(r, header)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", nil, err
	}
	header = header[:n]
	return mimetype.Detect(header).String(), io.MultiReader(bytes.NewReader(header), r), nil
}

// NewKey returns a unique key for a file named filename, grouped by upload month, e.g. "2021/01/<uuid>.png".
func NewKey(filename string, now time.Time) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	return path.Join(now.UTC().Format("2006/01"), uuid.New().String()+ext)
}

// URL joins a base URL and a key.
func URL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}
