package audio

import (
	"fmt"

	"dreamlog/internal/config"
)

// NewDeviceFromConfig creates a capture Device based on the capture config
// type.
func NewDeviceFromConfig(cfg config.CaptureConfig) (Device, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryDevice(cfg.RecordingDir), nil
	case "exec":
		if cfg.RecordingDir == "" {
			return nil, fmt.Errorf("exec capture requires recording_dir to be set")
		}
		return NewExecDevice(cfg.Command, cfg.RecordingDir)
	default:
		return nil, fmt.Errorf("unknown capture type: %s", cfg.Type)
	}
}
