package audio

import "context"

// meterFloor is the dBFS value treated as silence when normalizing amplitude
// for UI metering. The platform range [-160dB, 0dB] maps onto [0, 1].
const meterFloor = -160.0

// Device is a platform microphone backend. A device is exclusively owned
// between Acquire and Release; implementations reject a second Acquire while
// held. All audio written between Begin and End belongs to one take; Abort
// discards it instead.
type Device interface {
	// Acquire requests the microphone. A refusal surfaces as a permission
	// error; the device stays unowned.
	Acquire(ctx context.Context) error

	// Begin starts writing audio to a new take.
	Begin() error

	// Pause suspends audio intake without discarding the take.
	Pause() error

	// Resume continues a paused take.
	Resume() error

	// End finalizes the take and returns the local audio file path.
	End() (string, error)

	// Abort discards the take and any partial file.
	Abort() error

	// Meter returns the current input level in dBFS, within
	// [meterFloor, 0]. Devices without live metering return meterFloor.
	Meter() float64

	// Release returns the microphone. Safe to call when not acquired.
	Release()
}

// NormalizeLevel maps a raw dBFS meter reading onto [0,1], clamped.
func NormalizeLevel(db float64) float64 {
	v := (db - meterFloor) / -meterFloor
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
