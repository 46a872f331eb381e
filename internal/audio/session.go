package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"dreamlog/internal/dream"
	"dreamlog/internal/model"
)

// samplePeriod is the cadence of amplitude sampling while recording. The
// samples feed UI feedback only; nothing depends on exact timing.
const samplePeriod = 100 * time.Millisecond

// ErrInvalidTransition is returned when a session operation is invoked from a
// state that does not permit it. Invalid calls never start or restart a
// recording silently.
var ErrInvalidTransition = errors.New("invalid capture state transition")

// sessionActive enforces one active recording session per process. The
// microphone is a single owned resource, not a pool.
var sessionActive atomic.Bool

// Session drives one microphone capture through the state machine
//
//	idle → recording ⇄ paused → stopped
//
// with cancel returning any non-consumed state to idle. It owns the Device
// handle for the whole non-idle lifetime and guarantees release on every exit
// path, including Close on teardown.
type Session struct {
	device Device
	logger dream.Logger

	mu          sync.Mutex
	state       model.CaptureState
	elapsed     time.Duration // accumulated across pauses
	resumedAt   time.Time     // start of the current recording stretch
	level       float64
	audioPath   string
	duration    time.Duration
	samplerDone chan struct{}
}

// NewSession creates an idle capture session over the given device.
func NewSession(device Device, logger dream.Logger) *Session {
	return &Session{
		device: device,
		logger: logger,
		state:  model.CaptureIdle,
	}
}

// Start acquires the microphone and begins recording. Fails with a
// permission error if the device refuses, and with ErrInvalidTransition if
// this session is not idle or another session already holds the microphone.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != model.CaptureIdle {
		return fmt.Errorf("%w: start from %q", ErrInvalidTransition, s.state)
	}
	if !sessionActive.CompareAndSwap(false, true) {
		return fmt.Errorf("%w: another recording session is active", ErrInvalidTransition)
	}

	if err := s.device.Acquire(ctx); err != nil {
		sessionActive.Store(false)
		return fmt.Errorf("acquiring microphone: %w", err)
	}
	if err := s.device.Begin(); err != nil {
		s.device.Release()
		sessionActive.Store(false)
		return fmt.Errorf("starting recording: %w", err)
	}

	s.state = model.CaptureRecording
	s.elapsed = 0
	s.resumedAt = time.Now()
	s.startSampler()
	s.logger.Info("recording started")
	return nil
}

// Pause suspends recording. Valid only while recording.
func (s *Session) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != model.CaptureRecording {
		return fmt.Errorf("%w: pause from %q", ErrInvalidTransition, s.state)
	}
	if err := s.device.Pause(); err != nil {
		return fmt.Errorf("pausing recording: %w", err)
	}

	s.elapsed += time.Since(s.resumedAt)
	s.state = model.CapturePaused
	s.stopSampler()
	s.level = 0
	return nil
}

// Resume continues a paused recording. Valid only while paused.
func (s *Session) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != model.CapturePaused {
		return fmt.Errorf("%w: resume from %q", ErrInvalidTransition, s.state)
	}
	if err := s.device.Resume(); err != nil {
		return fmt.Errorf("resuming recording: %w", err)
	}

	s.state = model.CaptureRecording
	s.resumedAt = time.Now()
	s.startSampler()
	return nil
}

// Stop finalizes the recording and returns the local audio file and its
// duration. Valid from recording or paused; calling Stop again after the
// session is stopped is a no-op returning the same reference.
func (s *Session) Stop() (string, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case model.CaptureStopped:
		return s.audioPath, s.duration, nil
	case model.CaptureRecording:
		s.elapsed += time.Since(s.resumedAt)
	case model.CapturePaused:
		// elapsed already accumulated at pause time
	default:
		return "", 0, fmt.Errorf("%w: stop from %q", ErrInvalidTransition, s.state)
	}

	s.stopSampler()
	s.level = 0

	path, err := s.device.End()
	s.device.Release()
	sessionActive.Store(false)
	if err != nil {
		s.state = model.CaptureIdle
		return "", 0, fmt.Errorf("finalizing recording: %w", err)
	}

	s.state = model.CaptureStopped
	s.audioPath = path
	s.duration = s.elapsed
	s.logger.Info("recording stopped", "path", path, "duration", s.duration)
	return path, s.duration, nil
}

// Cancel discards the in-progress audio, releases the microphone and returns
// the session to idle. Valid from any non-idle state; a stopped session may
// be cancelled as long as its file has not been consumed.
func (s *Session) Cancel() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == model.CaptureIdle {
		return fmt.Errorf("%w: cancel from %q", ErrInvalidTransition, s.state)
	}

	s.stopSampler()
	wasStopped := s.state == model.CaptureStopped

	if err := s.device.Abort(); err != nil {
		s.logger.Warn("discarding recording failed", "error", err)
	}
	if !wasStopped {
		s.device.Release()
		sessionActive.Store(false)
	}

	s.state = model.CaptureIdle
	s.elapsed = 0
	s.level = 0
	s.audioPath = ""
	s.duration = 0
	s.logger.Info("recording cancelled")
	return nil
}

// Close releases the microphone regardless of state. For teardown paths; a
// live recording is discarded.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == model.CaptureIdle || s.state == model.CaptureStopped {
		return nil
	}
	s.stopSampler()
	if err := s.device.Abort(); err != nil {
		s.logger.Warn("discarding recording failed", "error", err)
	}
	s.device.Release()
	sessionActive.Store(false)
	s.state = model.CaptureIdle
	return nil
}

// Session returns a snapshot of the recording state for UI feedback.
func (s *Session) Session() model.RecordingSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	elapsed := s.elapsed
	if s.state == model.CaptureRecording {
		elapsed += time.Since(s.resumedAt)
	}
	return model.RecordingSession{
		State:   s.state,
		Elapsed: elapsed,
		Level:   s.level,
	}
}

// startSampler begins periodic amplitude sampling. Caller holds s.mu.
func (s *Session) startSampler() {
	done := make(chan struct{})
	s.samplerDone = done

	go func() {
		ticker := time.NewTicker(samplePeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				s.mu.Lock()
				if s.state == model.CaptureRecording {
					s.level = NormalizeLevel(s.device.Meter())
				}
				s.mu.Unlock()
			}
		}
	}()
}

// stopSampler halts amplitude sampling. Caller holds s.mu.
func (s *Session) stopSampler() {
	if s.samplerDone != nil {
		close(s.samplerDone)
		s.samplerDone = nil
	}
}

// Compile-time check that Session implements the pipeline's Recorder.
var _ dream.Recorder = (*Session)(nil)
