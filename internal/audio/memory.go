package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	"dreamlog/internal/dream"
)

// MemoryDevice is a scripted Device for tests. It "records" canned bytes to a
// real temp file so the rest of the pipeline can read it back, and can be
// told to refuse the permission check.
type MemoryDevice struct {
	// DenyPermission makes Acquire fail as the platform would on a refused
	// microphone prompt.
	DenyPermission bool
	// Levels is consumed one reading per Meter call; when exhausted the last
	// value repeats. Empty means silence.
	Levels []float64
	// Content is written to the finalized file. Defaults to a placeholder.
	Content []byte

	dir      string
	acquired bool
	taking   bool
	paused   bool
	takes    int
	meterPos atomic.Int64
	metered  atomic.Int64
	lastPath string
}

// NewMemoryDevice creates a scripted device writing files under dir.
func NewMemoryDevice(dir string) *MemoryDevice {
	return &MemoryDevice{dir: dir}
}

func (d *MemoryDevice) Acquire(_ context.Context) error {
	if d.DenyPermission {
		return fmt.Errorf("%w: microphone access refused", dream.ErrPermissionDenied)
	}
	if d.acquired {
		return fmt.Errorf("device already acquired")
	}
	d.acquired = true
	return nil
}

func (d *MemoryDevice) Begin() error {
	if !d.acquired {
		return fmt.Errorf("device not acquired")
	}
	d.taking = true
	d.paused = false
	return nil
}

func (d *MemoryDevice) Pause() error {
	if !d.taking || d.paused {
		return fmt.Errorf("not recording")
	}
	d.paused = true
	return nil
}

func (d *MemoryDevice) Resume() error {
	if !d.taking || !d.paused {
		return fmt.Errorf("not paused")
	}
	d.paused = false
	return nil
}

func (d *MemoryDevice) End() (string, error) {
	if !d.taking {
		return "", fmt.Errorf("no take in progress")
	}
	d.taking = false
	d.takes++

	content := d.Content
	if content == nil {
		content = []byte("m4a")
	}
	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(d.dir, fmt.Sprintf("recording-%d.m4a", d.takes))
	if err := os.WriteFile(path, content, 0644); err != nil {
		return "", err
	}
	d.lastPath = path
	return path, nil
}

func (d *MemoryDevice) Abort() error {
	d.taking = false
	d.paused = false
	if d.lastPath != "" {
		if err := os.Remove(d.lastPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		d.lastPath = ""
	}
	return nil
}

func (d *MemoryDevice) Meter() float64 {
	d.metered.Add(1)
	if len(d.Levels) == 0 {
		return meterFloor
	}
	pos := d.meterPos.Load()
	v := d.Levels[pos]
	if pos < int64(len(d.Levels)-1) {
		d.meterPos.Add(1)
	}
	return v
}

func (d *MemoryDevice) Release() { d.acquired = false }

// MeterCalls reports how many times the session sampled the device. Lets
// tests assert that sampling stops after cancel.
func (d *MemoryDevice) MeterCalls() int { return int(d.metered.Load()) }

var _ Device = (*MemoryDevice)(nil)
