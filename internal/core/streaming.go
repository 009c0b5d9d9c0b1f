package core

// streaming.go prepares an uploaded file for the CSV reader.
//
//   - the size cap stops a runaway upload before it is parsed
//   - the UTF-8 BOM written by Windows tools is dropped so the first
//     header matches "Code"
//   - invalid UTF-8 is replaced so error messages stay printable

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrFileTooLarge is returned when an import exceeds the configured size.
var ErrFileTooLarge = errors.New("file too large")

// ErrEmptyFile is returned when an import has no bytes at all.
var ErrEmptyFile = errors.New("empty file")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// BOMSkippingReader drops a leading UTF-8 byte order mark.
type BOMSkippingReader struct {
	r       *bufio.Reader
	checked bool
}

func NewBOMSkippingReader(r io.Reader) *BOMSkippingReader {
	return &BOMSkippingReader{r: bufio.NewReader(r)}
}

func (b *BOMSkippingReader) Read(p []byte) (int, error) {
	if !b.checked {
		b.checked = true
		if head, err := b.r.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
			_, _ = b.r.Discard(len(utf8BOM))
		}
	}
	return b.r.Read(p)
}

// ReadImport reads at most maxBytes from r (0 means no limit), strips a
// BOM and sanitizes UTF-8. The whole file is needed anyway: row checks
// look back at every earlier row.
func ReadImport(r io.Reader, maxBytes int64) (string, error) {
	src := io.Reader(NewBOMSkippingReader(r))
	if maxBytes > 0 {
		src = io.LimitReader(src, maxBytes+1)
	}

	data, err := io.ReadAll(src)
	if err != nil {
		return "", fmt.Errorf("read import: %w", err)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return "", fmt.Errorf("%w: limit is %d bytes", ErrFileTooLarge, maxBytes)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return "", ErrEmptyFile
	}
	return strings.ToValidUTF8(string(data), "\uFFFD"), nil
}
