package media

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()

	t.Run("put get roundtrip", func(t *testing.T) {
		m := NewMemoryStore()
		url, err := m.Put(ctx, "owner/take.m4a", strings.NewReader("audio"), 5, "audio/m4a")
		if err != nil {
			t.Fatalf("Put() error = %v", err)
		}
		if url == "" {
			t.Fatal("Put() returned empty URL")
		}

		var buf bytes.Buffer
		if err := m.Get(ctx, "owner/take.m4a", &buf); err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if buf.String() != "audio" {
			t.Errorf("Get() content = %q", buf.String())
		}
	})

	t.Run("put rejects size mismatch", func(t *testing.T) {
		m := NewMemoryStore()
		if _, err := m.Put(ctx, "k", strings.NewReader("audio"), 99, "audio/m4a"); err == nil {
			t.Error("Put() with wrong size succeeded")
		}
	})

	t.Run("same key overwrites", func(t *testing.T) {
		m := NewMemoryStore()
		if _, err := m.Put(ctx, "k", strings.NewReader("one"), 3, "audio/m4a"); err != nil {
			t.Fatal(err)
		}
		if _, err := m.Put(ctx, "k", strings.NewReader("twoo"), 4, "audio/m4a"); err != nil {
			t.Fatal(err)
		}
		var buf bytes.Buffer
		if err := m.Get(ctx, "k", &buf); err != nil {
			t.Fatal(err)
		}
		if buf.String() != "twoo" {
			t.Errorf("content after overwrite = %q", buf.String())
		}
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		m := NewMemoryStore()
		if _, err := m.Put(ctx, "k", strings.NewReader("x"), 1, "audio/m4a"); err != nil {
			t.Fatal(err)
		}
		if err := m.Delete(ctx, "k"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if err := m.Delete(ctx, "k"); err != nil {
			t.Fatalf("second Delete() error = %v", err)
		}
		if m.Has("k") {
			t.Error("object survived delete")
		}
	})

	t.Run("key from url", func(t *testing.T) {
		m := NewMemoryStore()
		url, err := m.Put(ctx, "owner/take.m4a", strings.NewReader("x"), 1, "audio/m4a")
		if err != nil {
			t.Fatal(err)
		}
		if got := m.KeyFromURL(url); got != "owner/take.m4a" {
			t.Errorf("KeyFromURL(%q) = %q", url, got)
		}
		if got := m.KeyFromURL("https://elsewhere/owner/take.m4a"); got != "" {
			t.Errorf("KeyFromURL(foreign) = %q, want empty", got)
		}
	})
}
