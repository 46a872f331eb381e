package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"dreamlog/internal/dream"
)

// ExecDevice captures microphone audio by running an external recorder
// command (ffmpeg, arecord, sox, ...) that writes an m4a file. The command
// template names the binary and its arguments, with "{output}" standing in
// for the destination path. Pause and resume are delivered as SIGSTOP and
// SIGCONT; End stops the process with SIGINT so the recorder can finalize
// the container.
//
// Command-line recorders expose no live meter, so Meter reports silence.
type ExecDevice struct {
	command []string
	dir     string

	cmd      *exec.Cmd
	path     string
	lastPath string
	acquired bool
}

// NewExecDevice creates a device that records using the given command
// template into dir.
func NewExecDevice(command []string, dir string) (*ExecDevice, error) {
	if len(command) == 0 {
		return nil, fmt.Errorf("recorder command not configured")
	}
	found := false
	for _, arg := range command[1:] {
		if strings.Contains(arg, "{output}") {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("recorder command has no {output} placeholder")
	}
	return &ExecDevice{command: command, dir: dir}, nil
}

// Acquire verifies the recorder binary and destination directory are usable.
func (d *ExecDevice) Acquire(_ context.Context) error {
	if d.acquired {
		return fmt.Errorf("device already acquired")
	}
	if _, err := exec.LookPath(d.command[0]); err != nil {
		return fmt.Errorf("%w: recorder binary %q not found", dream.ErrConfig, d.command[0])
	}
	if err := os.MkdirAll(d.dir, 0755); err != nil {
		if errors.Is(err, os.ErrPermission) {
			return fmt.Errorf("%w: cannot write recordings to %s", dream.ErrPermissionDenied, d.dir)
		}
		return fmt.Errorf("creating recording directory: %w", err)
	}
	d.acquired = true
	return nil
}

// Begin spawns the recorder process writing to a fresh file.
func (d *ExecDevice) Begin() error {
	name := fmt.Sprintf("recording-%s.m4a", time.Now().UTC().Format("20060102T150405Z"))
	d.path = filepath.Join(d.dir, name)

	args := make([]string, 0, len(d.command)-1)
	for _, arg := range d.command[1:] {
		args = append(args, strings.ReplaceAll(arg, "{output}", d.path))
	}

	cmd := exec.Command(d.command[0], args...)
	if err := cmd.Start(); err != nil {
		if errors.Is(err, os.ErrPermission) {
			return fmt.Errorf("%w: starting recorder", dream.ErrPermissionDenied)
		}
		return fmt.Errorf("starting recorder: %w", err)
	}
	d.cmd = cmd
	return nil
}

// Pause suspends the recorder process.
func (d *ExecDevice) Pause() error {
	if d.cmd == nil || d.cmd.Process == nil {
		return fmt.Errorf("no recorder process")
	}
	return d.cmd.Process.Signal(syscall.SIGSTOP)
}

// Resume continues a suspended recorder process.
func (d *ExecDevice) Resume() error {
	if d.cmd == nil || d.cmd.Process == nil {
		return fmt.Errorf("no recorder process")
	}
	return d.cmd.Process.Signal(syscall.SIGCONT)
}

// End asks the recorder to finish and returns the recorded file.
func (d *ExecDevice) End() (string, error) {
	if d.cmd == nil || d.cmd.Process == nil {
		return "", fmt.Errorf("no recorder process")
	}

	// SIGCONT first in case the take ends while paused.
	_ = d.cmd.Process.Signal(syscall.SIGCONT)
	_ = d.cmd.Process.Signal(syscall.SIGINT)
	// Recorders exit non-zero on SIGINT; only the output file matters.
	_ = d.cmd.Wait()
	d.cmd = nil

	if _, err := os.Stat(d.path); err != nil {
		return "", fmt.Errorf("recorder produced no file: %w", err)
	}
	d.lastPath = d.path
	return d.path, nil
}

// Abort kills any running recorder and removes the partial or finalized file.
func (d *ExecDevice) Abort() error {
	if d.cmd != nil && d.cmd.Process != nil {
		_ = d.cmd.Process.Signal(syscall.SIGCONT)
		_ = d.cmd.Process.Kill()
		_ = d.cmd.Wait()
		d.cmd = nil
	}
	for _, p := range []string{d.path, d.lastPath} {
		if p != "" {
			if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("removing recording: %w", err)
			}
		}
	}
	d.path = ""
	d.lastPath = ""
	return nil
}

// Meter reports silence; the recorder process owns the input stream.
func (d *ExecDevice) Meter() float64 { return meterFloor }

// Release returns the device. Safe to call when not acquired.
func (d *ExecDevice) Release() { d.acquired = false }

var _ Device = (*ExecDevice)(nil)
