package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

var (
	ErrUnsupportedType = errors.New("unsupported document type")
	ErrEmptyDocument   = errors.New("document is empty")
	ErrUnreadable      = errors.New("document could not be read")
)

// Reader extracts plain text from uploaded patient documents. PDF files
// and plain text files are supported.
type Reader struct{}

func NewReader() Reader {
	return Reader{}
}

// Text returns the text of the document. An empty result means the file
// was read but carried no text.
func (Reader) Text(ctx context.Context, filename string, content []byte) (string, error) {
	if len(content) == 0 {
		return "", ErrEmptyDocument
	}
	switch kind := detectKind(filename, content); kind {
	case kindPDF:
		return pdfText(ctx, content)
	case kindText:
		if !utf8.Valid(content) {
			return "", fmt.Errorf("%w: text is not valid UTF-8", ErrUnreadable)
		}
		return strings.TrimSpace(strings.ReplaceAll(string(content), "\r\n", "\n")), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, kind)
	}
}

const (
	kindPDF  = "pdf"
	kindText = "text"
)

func detectKind(filename string, content []byte) string {
	if bytes.HasPrefix(content, []byte("%PDF-")) {
		return kindPDF
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return kindPDF
	case ".txt", ".md", ".text":
		return kindText
	}
	sniffed := http.DetectContentType(content)
	if strings.HasPrefix(sniffed, "text/plain") {
		return kindText
	}
	return sniffed
}

func pdfText(ctx context.Context, content []byte) (text string, err error) {
	// The pdf package panics on some malformed inputs.
	defer func() {
		if recovered := recover(); recovered != nil {
			text = ""
			err = fmt.Errorf("%w: %v", ErrUnreadable, recovered)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	var builder strings.Builder
	for index := 1; index <= reader.NumPage(); index++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := reader.Page(index)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("%w: page %d: %v", ErrUnreadable, index, err)
		}
		if trimmed := strings.TrimSpace(pageText); trimmed != "" {
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(trimmed)
		}
	}
	return builder.String(), nil
}
