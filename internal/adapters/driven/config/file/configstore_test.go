package file

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfigStore(t *testing.T) {
	t.Run("set and get", func(t *testing.T) {
		s, err := NewConfigStore(t.TempDir())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if err := s.Set("github.token", "tok"); err != nil {
			t.Fatalf("set failed: %v", err)
		}
		if got := s.GetString("github.token"); got != "tok" {
			t.Errorf("expected tok, got %q", got)
		}
	})

	t.Run("missing keys return zero values", func(t *testing.T) {
		s, err := NewConfigStore(t.TempDir())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := s.GetString("nope"); got != "" {
			t.Errorf("expected empty string, got %q", got)
		}
		if got := s.GetInt("nope"); got != 0 {
			t.Errorf("expected 0, got %d", got)
		}
		if got := s.GetBool("nope"); got {
			t.Error("expected false")
		}
	})

	t.Run("wrong types return zero values", func(t *testing.T) {
		s, err := NewConfigStore(t.TempDir())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := s.Set("key", 42); err != nil {
			t.Fatal(err)
		}
		if got := s.GetString("key"); got != "" {
			t.Errorf("expected empty string for int value, got %q", got)
		}
		if got := s.GetInt("key"); got != 42 {
			t.Errorf("expected 42, got %d", got)
		}
	})

	t.Run("delete", func(t *testing.T) {
		s, err := NewConfigStore(t.TempDir())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := s.Set("gone", "x"); err != nil {
			t.Fatal(err)
		}
		if err := s.Delete("gone"); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		if _, ok := s.Get("gone"); ok {
			t.Error("expected key to be deleted")
		}
	})

	t.Run("persists across reopen with flattened keys", func(t *testing.T) {
		dir := t.TempDir()
		s, err := NewConfigStore(dir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := s.Set("qdrant.port", int64(6334)); err != nil {
			t.Fatal(err)
		}
		if err := s.Set("embedding.provider", "ollama"); err != nil {
			t.Fatal(err)
		}

		reopened, err := NewConfigStore(dir)
		if err != nil {
			t.Fatalf("reopen failed: %v", err)
		}
		if got := reopened.GetInt("qdrant.port"); got != 6334 {
			t.Errorf("expected 6334, got %d", got)
		}
		if got := reopened.GetString("embedding.provider"); got != "ollama" {
			t.Errorf("expected ollama, got %q", got)
		}
	})

	t.Run("loads nested TOML tables as dotted keys", func(t *testing.T) {
		dir := t.TempDir()
		content := "[github]\ntoken = \"tok\"\n\n[review]\nmodel = \"gpt-4o-mini\"\n"
		if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0600); err != nil {
			t.Fatal(err)
		}

		s, err := NewConfigStore(dir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := s.GetString("github.token"); got != "tok" {
			t.Errorf("expected tok, got %q", got)
		}
		if got := s.GetString("review.model"); got != "gpt-4o-mini" {
			t.Errorf("expected gpt-4o-mini, got %q", got)
		}
	})

	t.Run("config file has restricted permissions", func(t *testing.T) {
		dir := t.TempDir()
		s, err := NewConfigStore(dir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := s.Set("secret", "value"); err != nil {
			t.Fatal(err)
		}

		info, err := os.Stat(s.Path())
		if err != nil {
			t.Fatal(err)
		}
		if perm := info.Mode().Perm(); perm != 0600 {
			t.Errorf("expected 0600 permissions, got %o", perm)
		}
	})
}
