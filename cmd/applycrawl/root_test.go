package main

import (
	"bytes"
	"strings"
	"testing"
)

// TestNewRootCmd tests command registration and metadata.
func TestNewRootCmd(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()
	if cmd.Use != "applycrawl" {
		t.Errorf("unexpected use line %q", cmd.Use)
	}

	want := map[string]bool{"crawl": false, "history": false, "version": false}
	for _, sub := range cmd.Commands() {
		if _, ok := want[sub.Name()]; ok {
			want[sub.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("expected subcommand %q registered", name)
		}
	}

	if cmd.PersistentFlags().Lookup("verbose") == nil {
		t.Error("expected persistent verbose flag")
	}
}

// TestVersionCmd tests the version output format.
func TestVersionCmd(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	cmd := NewVersionCmd()
	cmd.SetOut(&out)
	cmd.Run(cmd, nil)

	got := out.String()
	for _, want := range []string{"applycrawl version", "commit:", "built:"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected version output to contain %q, got %q", want, got)
		}
	}
}

// TestGetVersion tests the ldflags override.
func TestGetVersion(t *testing.T) {
	old := version
	defer func() { version = old }()

	version = "1.2.3"
	if got := getVersion(); got != "1.2.3" {
		t.Errorf("expected ldflags version, got %q", got)
	}

	version = ""
	if got := getVersion(); got == "" {
		t.Error("expected non-empty fallback version")
	}
}
