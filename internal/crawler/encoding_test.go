package crawler

import (
	"strings"
	"testing"
	"unicode/utf8"
)

// TestDecodeBody tests the charset resolution chain.
func TestDecodeBody(t *testing.T) {
	t.Parallel()

	t.Run("valid utf-8 passes through", func(t *testing.T) {
		t.Parallel()

		body := []byte("<html><title>café application</title></html>")
		got := DecodeBody(body, "text/html; charset=utf-8")
		if got != string(body) {
			t.Errorf("expected passthrough, got %q", got)
		}
	})

	t.Run("header charset decodes latin-1", func(t *testing.T) {
		t.Parallel()

		body := []byte("caf\xe9")
		got := DecodeBody(body, "text/html; charset=iso-8859-1")
		if got != "café" {
			t.Errorf("expected café, got %q", got)
		}
	})

	t.Run("meta charset used when header is silent", func(t *testing.T) {
		t.Parallel()

		body := []byte(`<html><head><meta charset="windows-1252"></head><body>caf` + "\xe9" + `</body></html>`)
		got := DecodeBody(body, "text/html")
		if !strings.Contains(got, "café") {
			t.Errorf("expected meta charset decode, got %q", got)
		}
	})

	t.Run("wrong header charset falls through the chain", func(t *testing.T) {
		t.Parallel()

		// Claimed UTF-8 but invalid; the chain must still produce
		// valid UTF-8 output.
		body := []byte("caf\xe9")
		got := DecodeBody(body, "text/html; charset=utf-8")
		if !utf8.ValidString(got) {
			t.Errorf("expected valid UTF-8 output, got %q", got)
		}
		if got == "" {
			t.Error("expected non-empty output")
		}
	})

	t.Run("no charset information still yields valid utf-8", func(t *testing.T) {
		t.Parallel()

		body := []byte("plain ascii content")
		got := DecodeBody(body, "")
		if got != "plain ascii content" {
			t.Errorf("expected ascii passthrough, got %q", got)
		}
	})
}

// TestHeaderCharset tests Content-Type parameter extraction.
func TestHeaderCharset(t *testing.T) {
	t.Parallel()

	tests := []struct {
		contentType string
		want        string
	}{
		{"text/html; charset=utf-8", "utf-8"},
		{"text/html; charset=ISO-8859-1", "iso-8859-1"},
		{"text/html", ""},
		{"", ""},
		{"garbage;;;", ""},
	}
	for _, tt := range tests {
		got := headerCharset(tt.contentType)
		if !strings.EqualFold(got, tt.want) {
			t.Errorf("headerCharset(%q) = %q, want %q", tt.contentType, got, tt.want)
		}
	}
}
