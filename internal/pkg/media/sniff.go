package media

import (
	"bytes"
	"io"
	"mime"

	"github.com/gabriel-vasile/mimetype"
)

const (
	ContentTypePDF  = "application/pdf"
	ContentTypeJPEG = "image/jpeg"
	ContentTypePNG  = "image/png"
)

// sniffLen matches mimetype's default read limit
const sniffLen = 3072

// SniffContentType detects the MIME type from the leading bytes of r and
// returns a reader that replays them.
func SniffContentType(r io.Reader) (string, io.Reader, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", nil, err
	}
	head = head[:n]
	return mimetype.Detect(head).String(), io.MultiReader(bytes.NewReader(head), r), nil
}

// IsPDF reports whether a declared or sniffed type is a PDF document.
// Parameters such as charset are ignored.
func IsPDF(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	return err == nil && mt == ContentTypePDF
}
