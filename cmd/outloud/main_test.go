package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestRootCommandRegistersSubcommands(t *testing.T) {
	cmd := newRootCommand()

	expected := []string{
		"serve", "add", "list", "show", "watch",
		"retry", "clean", "regenerate", "complete", "uncomplete",
		"cancel", "delete", "voices", "status", "config",
	}
	registered := map[string]bool{}
	for _, sub := range cmd.Commands() {
		registered[sub.Name()] = true
	}
	for _, name := range expected {
		if !registered[name] {
			t.Errorf("command %q not registered", name)
		}
	}
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	cmd := newRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{"config", "init", "--path", target})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("config init failed: %v", err)
	}

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample config: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("sample config is empty")
	}

	// A second run without --overwrite must refuse to clobber.
	cmd = newRootCommand()
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{"config", "init", "--path", target})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error when config already exists")
	}
}

func TestParseItemID(t *testing.T) {
	if _, err := parseItemID("abc"); err == nil {
		t.Error("expected error for non-numeric id")
	}
	if _, err := parseItemID("0"); err == nil {
		t.Error("expected error for zero id")
	}
	id, err := parseItemID("42")
	if err != nil {
		t.Fatalf("parseItemID failed: %v", err)
	}
	if id != 42 {
		t.Fatalf("expected 42, got %d", id)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("unexpected truncation: %q", got)
	}
	if got := truncate("a very long title indeed", 10); len([]rune(got)) != 10 {
		t.Errorf("expected 10 runes, got %q", got)
	}
}

func TestYesNo(t *testing.T) {
	if yesNo(true) != "yes" || yesNo(false) != "no" {
		t.Error("yesNo mapping broken")
	}
}
