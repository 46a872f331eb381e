package config

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestConfigRoundTrip(t *testing.T) {
	cfg := NewConfig("owner-123", "/data/dreamlog")
	cfg.OpenAI.StructuringModel = "gpt-4o"
	cfg.Media = MediaConfig{
		Type:            "s3",
		S3Bucket:        "dreams",
		S3Prefix:        "audio",
		S3Region:        "us-east-1",
		S3Endpoint:      "http://localhost:9000",
		S3AccessKey:     "ak",
		S3SecretKey:     "sk",
		S3PublicBaseURL: "http://localhost:9000/dreams",
	}

	m := &Manager{}
	var buf bytes.Buffer
	if err := m.Write(&buf, cfg); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if !reflect.DeepEqual(got, cfg) {
		t.Errorf("round trip mismatch:\ngot  %+v\nwant %+v", got, cfg)
	}
}

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig("owner-123", "/data/dreamlog")

	if cfg.OwnerID != "owner-123" {
		t.Errorf("OwnerID = %q", cfg.OwnerID)
	}
	if cfg.Media.Type != "filesystem" {
		t.Errorf("Media.Type = %q, want filesystem", cfg.Media.Type)
	}
	if cfg.Database.Type != "sqlite" {
		t.Errorf("Database.Type = %q, want sqlite", cfg.Database.Type)
	}
	if cfg.Capture.Type != "exec" {
		t.Errorf("Capture.Type = %q, want exec", cfg.Capture.Type)
	}

	found := false
	for _, arg := range cfg.Capture.Command {
		if arg == "{output}" {
			found = true
		}
	}
	if !found {
		t.Errorf("Capture.Command %v has no {output} placeholder", cfg.Capture.Command)
	}
}

func TestAPIKey(t *testing.T) {
	t.Run("environment wins over key file", func(t *testing.T) {
		cfg := NewConfig("o", t.TempDir())
		if err := cfg.WriteAPIKey("sk-from-file"); err != nil {
			t.Fatalf("WriteAPIKey() error = %v", err)
		}
		t.Setenv(EnvAPIKey, "sk-from-env")
		if got := cfg.APIKey(); got != "sk-from-env" {
			t.Errorf("APIKey() = %q, want sk-from-env", got)
		}
	})

	t.Run("falls back to key file", func(t *testing.T) {
		cfg := NewConfig("o", t.TempDir())
		if err := cfg.WriteAPIKey("sk-from-file"); err != nil {
			t.Fatalf("WriteAPIKey() error = %v", err)
		}
		t.Setenv(EnvAPIKey, "")
		if got := cfg.APIKey(); got != "sk-from-file" {
			t.Errorf("APIKey() = %q, want sk-from-file", got)
		}
	})

	t.Run("empty when neither is set", func(t *testing.T) {
		cfg := NewConfig("o", t.TempDir())
		t.Setenv(EnvAPIKey, "")
		if got := cfg.APIKey(); got != "" {
			t.Errorf("APIKey() = %q, want empty", got)
		}
	})

	t.Run("key file written with owner-only permissions", func(t *testing.T) {
		cfg := NewConfig("o", t.TempDir())
		if err := cfg.WriteAPIKey("sk-test"); err != nil {
			t.Fatalf("WriteAPIKey() error = %v", err)
		}
		info, err := os.Stat(cfg.OpenAI.KeyPath)
		if err != nil {
			t.Fatal(err)
		}
		if perm := info.Mode().Perm(); perm != 0600 {
			t.Errorf("key file permissions = %o, want 600", perm)
		}
	})
}

func TestInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf", "dreamlog.toml")
	cfg := NewConfig("owner-123", "/data/dreamlog")

	if err := Init(path, cfg); err != nil {
		t.Fatalf("Init() error = %v", err)
	}

	got, err := ReadFromFile(path)
	if err != nil {
		t.Fatalf("ReadFromFile() error = %v", err)
	}
	if got.OwnerID != "owner-123" {
		t.Errorf("OwnerID = %q", got.OwnerID)
	}

	if err := Init(path, cfg); err == nil {
		t.Error("Init() over an existing file succeeded")
	}
}
