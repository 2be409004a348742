package msgcat

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEmbeddedMessagesRender(t *testing.T) {
	c, err := New("")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := c.Render("state.playing", map[string]any{"Turn": "white"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got != "white to move" {
		t.Fatalf("got %q", got)
	}
	if _, err := c.Render("state.playing", map[string]any{}); err == nil {
		t.Fatalf("missing field should fail")
	}
	if _, err := c.Render("nope.nope", nil); err == nil {
		t.Fatalf("unknown key should fail")
	}
	if got := c.Text("nope.nope", nil); got != "nope.nope" {
		t.Fatalf("Text fallback=%q", got)
	}
}

func TestOverrideDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("state:\n  waiting: \"Looking for a rival\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o600); err != nil {
		t.Fatal(err)
	}
	c, err := New(dir)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := c.Text("state.waiting", nil); got != "Looking for a rival" {
		t.Fatalf("override not applied: %q", got)
	}
	if got := c.Text("status.check", nil); got != "Check!" {
		t.Fatalf("embedded key lost: %q", got)
	}
}

func TestOverrideDuplicateKeys(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.yaml", "b.yml"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("help: x\n"), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	_, err := New(dir)
	if err == nil || !strings.Contains(err.Error(), "duplicate override key") {
		t.Fatalf("err=%v", err)
	}
}

func TestNonStringLeafRejected(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.yaml"), []byte("state:\n  waiting: 3\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := New(dir); err == nil {
		t.Fatalf("expected error for numeric leaf")
	}
}
