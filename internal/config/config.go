package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for dreamlog.
type Config struct {
	OwnerID  string         `toml:"owner_id"`
	BaseDir  string         `toml:"base_dir"`
	LogDir   string         `toml:"log_dir"`
	OpenAI   OpenAIConfig   `toml:"openai"`
	Media    MediaConfig    `toml:"media"`
	Database DatabaseConfig `toml:"database"`
	Capture  CaptureConfig  `toml:"capture"`
}

// OpenAIConfig holds the speech-to-text and language-model API settings.
// The API key itself is never written to disk; it comes from the
// DREAMLOG_OPENAI_API_KEY environment variable or the key file.
type OpenAIConfig struct {
	KeyPath            string `toml:"key_path"`
	TranscriptionURL   string `toml:"transcription_url,omitempty"`
	CompletionsURL     string `toml:"completions_url,omitempty"`
	TranscriptionModel string `toml:"transcription_model,omitempty"`
	StructuringModel   string `toml:"structuring_model,omitempty"`
}

// MediaConfig represents configuration for the audio object store.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type MediaConfig struct {
	Type string `toml:"type"` // "memory", "s3", or "filesystem"

	// S3-specific fields (only used when Type == "s3")
	S3Bucket        string `toml:"s3_bucket,omitempty"`
	S3Prefix        string `toml:"s3_prefix,omitempty"`
	S3Region        string `toml:"s3_region,omitempty"`
	S3Endpoint      string `toml:"s3_endpoint,omitempty"`
	S3AccessKey     string `toml:"s3_access_key,omitempty"`
	S3SecretKey     string `toml:"s3_secret_key,omitempty"`
	S3PublicBaseURL string `toml:"s3_public_base_url,omitempty"`

	// FileSystem-specific fields (only used when Type == "filesystem")
	FSRoot string `toml:"fs_root,omitempty"`
}

// DatabaseConfig represents configuration for the entry database.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type DatabaseConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// CaptureConfig represents configuration for the microphone backend.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type CaptureConfig struct {
	Type         string   `toml:"type"` // "exec" or "memory"
	RecordingDir string   `toml:"recording_dir,omitempty"`
	Command      []string `toml:"command,omitempty"` // recorder command; "{output}" is the destination path
}

// env var names for credentials and path overrides.
const (
	EnvAPIKey     = "DREAMLOG_OPENAI_API_KEY"
	EnvConfigPath = "DREAMLOG_CONFIG_PATH"
	EnvHome       = "DREAMLOG_HOME"
)

// NewConfig creates a new Config with the provided owner and sensible
// defaults rooted at baseDir.
func NewConfig(ownerID, baseDir string) *Config {
	return &Config{
		OwnerID: ownerID,
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		OpenAI: OpenAIConfig{
			KeyPath: filepath.Join(baseDir, "keys", "openai.key"),
		},
		Media: MediaConfig{
			Type:   "filesystem",
			FSRoot: filepath.Join(baseDir, "media"),
		},
		Database: DatabaseConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "db"),
		},
		Capture: CaptureConfig{
			Type:         "exec",
			RecordingDir: filepath.Join(baseDir, "recordings"),
			Command:      []string{"ffmpeg", "-hide_banner", "-f", "alsa", "-i", "default", "-c:a", "aac", "-y", "{output}"},
		},
	}
}

// APIKey resolves the OpenAI API key: environment first, then the key file.
// Returns "" when neither is set.
func (c *Config) APIKey() string {
	if key := os.Getenv(EnvAPIKey); key != "" {
		return key
	}
	if c.OpenAI.KeyPath != "" {
		if data, err := os.ReadFile(c.OpenAI.KeyPath); err == nil {
			return trimKey(string(data))
		}
	}
	return ""
}

// WriteAPIKey stores the key at the configured key path with owner-only
// permissions.
func (c *Config) WriteAPIKey(key string) error {
	if c.OpenAI.KeyPath == "" {
		return fmt.Errorf("no key_path configured")
	}
	if err := os.MkdirAll(filepath.Dir(c.OpenAI.KeyPath), 0700); err != nil {
		return fmt.Errorf("creating key directory: %w", err)
	}
	if err := os.WriteFile(c.OpenAI.KeyPath, []byte(trimKey(key)+"\n"), 0600); err != nil {
		return fmt.Errorf("writing key file: %w", err)
	}
	return nil
}

func trimKey(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r' || s[len(s)-1] == ' ') {
		s = s[:len(s)-1]
	}
	return s
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
