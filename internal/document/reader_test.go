package document

import (
	"context"
	"errors"
	"testing"
)

func TestReaderPlainText(t *testing.T) {
	text, err := NewReader().Text(context.Background(), "report.txt", []byte("  Hb: 11.2 g/dL\r\nTSH: 3.1\r\n"))
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if text != "Hb: 11.2 g/dL\nTSH: 3.1" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestReaderSniffsTextWithoutExtension(t *testing.T) {
	text, err := NewReader().Text(context.Background(), "notes", []byte("fever for two days"))
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if text != "fever for two days" {
		t.Fatalf("unexpected text %q", text)
	}
}

func TestReaderFailures(t *testing.T) {
	cases := []struct {
		name     string
		filename string
		content  []byte
		want     error
	}{
		{name: "empty", filename: "a.pdf", content: nil, want: ErrEmptyDocument},
		{name: "broken pdf", filename: "scan.pdf", content: []byte("%PDF-1.4\nnot really a pdf"), want: ErrUnreadable},
		{name: "pdf extension without pdf body", filename: "scan.pdf", content: []byte("hello"), want: ErrUnreadable},
		{name: "image", filename: "photo.png", content: []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), want: ErrUnsupportedType},
		{name: "invalid utf8 text", filename: "a.txt", content: []byte{0xff, 0xfe, 0xfd}, want: ErrUnreadable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewReader().Text(context.Background(), tc.filename, tc.content)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}
