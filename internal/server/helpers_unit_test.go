package server

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestClaimHasAudience(t *testing.T) {
	if !claimHasAudience("expected", "expected") {
		t.Fatalf("expected string audience to match")
	}
	if claimHasAudience("other", "expected") {
		t.Fatalf("expected mismatched string audience to fail")
	}
	if !claimHasAudience([]any{"x", "expected", "y"}, "expected") {
		t.Fatalf("expected []any audience to match")
	}
	if !claimHasAudience([]string{"x", "expected", "y"}, "expected") {
		t.Fatalf("expected []string audience to match")
	}
	if claimHasAudience(nil, "expected") {
		t.Fatalf("expected nil audience to fail")
	}
}

func TestIsBodyTooLarge(t *testing.T) {
	wrapped := fmt.Errorf("multipart: NextPart: %w", &http.MaxBytesError{Limit: 10})
	if !isBodyTooLarge(wrapped) {
		t.Fatalf("expected wrapped MaxBytesError to be detected")
	}
	if isBodyTooLarge(errors.New("unexpected EOF")) {
		t.Fatalf("expected unrelated error to be ignored")
	}
	if isBodyTooLarge(nil) {
		t.Fatalf("expected nil error to be ignored")
	}
}

func TestCORSConfigWildcard(t *testing.T) {
	app := New(newTestConfig(), nil, nil)
	cfg := app.corsConfig()
	if !cfg.AllowAllOrigins || len(cfg.AllowOrigins) != 0 {
		t.Fatalf("expected wildcard to allow all origins, got %+v", cfg)
	}

	restricted := newTestConfig()
	restricted.CORSAllowOrigins = []string{"https://clinic.example"}
	cfg = New(restricted, nil, nil).corsConfig()
	if cfg.AllowAllOrigins || len(cfg.AllowOrigins) != 1 {
		t.Fatalf("expected explicit origin list, got %+v", cfg)
	}
}
