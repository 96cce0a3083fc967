package consult

import (
	"context"
	"errors"
	"strings"
)

// Upload is a document attached to a turn.
type Upload struct {
	Filename string
	Content  []byte
}

type DocumentReader interface {
	Text(ctx context.Context, filename string, content []byte) (string, error)
}

// Normalize merges the document text and the message into one model input:
// the document text first, then a newline and the message. An upload
// without a filename is ignored.
func Normalize(ctx context.Context, reader DocumentReader, upload *Upload, message string) (string, error) {
	var input strings.Builder

	if upload != nil && strings.TrimSpace(upload.Filename) != "" {
		if reader == nil {
			return "", documentReadError(errors.New("no document reader configured"))
		}
		text, err := reader.Text(ctx, upload.Filename, upload.Content)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", ctxErr
			}
			return "", documentReadError(err)
		}
		input.WriteString(text)
	}
	if message != "" {
		input.WriteString("\n")
		input.WriteString(message)
	}

	normalized := strings.TrimSpace(input.String())
	if normalized == "" {
		return "", emptyInputError()
	}
	return normalized, nil
}
