package playback

import (
	"sync"
	"time"
)

// VolumeControl coalesces rapid repeated volume signals from input devices
// into single steps. Signals that arrive within the debounce window of the
// last accepted one are dropped, and applied levels clamp to [0, max].
type VolumeControl struct {
	mu     sync.Mutex
	level  int
	max    int
	window time.Duration
	last   time.Time
	now    func() time.Time
}

// NewVolumeControl creates a control starting at the maximum level.
func NewVolumeControl(max int, window time.Duration) *VolumeControl {
	if max < 0 {
		max = 0
	}
	return &VolumeControl{
		level:  max,
		max:    max,
		window: window,
		now:    time.Now,
	}
}

// Step applies a relative volume change. It returns the resulting level and
// whether the level actually changed; debounced or fully clamped signals
// return false.
func (v *VolumeControl) Step(delta int) (int, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	now := v.now()
	if !v.last.IsZero() && now.Sub(v.last) < v.window {
		return v.level, false
	}
	v.last = now

	level := v.level + delta
	if level < 0 {
		level = 0
	}
	if level > v.max {
		level = v.max
	}
	if level == v.level {
		return v.level, false
	}
	v.level = level
	return level, true
}

// Set applies an absolute level, clamped to [0, max], bypassing the debounce.
func (v *VolumeControl) Set(level int) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	if level < 0 {
		level = 0
	}
	if level > v.max {
		level = v.max
	}
	v.level = level
	return level
}

// Level returns the current level.
func (v *VolumeControl) Level() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.level
}

// ClockTransport is an AudioTransport for sources with no audio engine
// attached (synthetic patterns, muted playback). Position derives from a
// monotonic clock minus accumulated paused time, wrapping at the duration
// when one is known. It implements the full transport contract so the
// extraction loop cannot tell it apart from a real engine.
type ClockTransport struct {
	mu         sync.Mutex
	durationMs int64
	baseMs     int64     // position when playback last resumed or seeked
	resumedAt  time.Time // wall-clock instant of that resume
	playing    bool
	volume     int
	now        func() time.Time
}

// NewClockTransport creates a transport that wraps its position at
// durationMs. A zero duration means the position grows without bound.
func NewClockTransport(durationMs int64) *ClockTransport {
	return &ClockTransport{durationMs: durationMs, now: time.Now}
}

// Load resets the clock to position zero, paused.
func (t *ClockTransport) Load(uri string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.baseMs = 0
	t.playing = false
	return nil
}

// Play starts or resumes the clock. No-op while already playing.
func (t *ClockTransport) Play() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.playing {
		return nil
	}
	t.resumedAt = t.now()
	t.playing = true
	return nil
}

// Pause freezes the clock at the current position. No-op while paused.
func (t *ClockTransport) Pause() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.playing {
		return nil
	}
	t.baseMs = t.positionLocked()
	t.playing = false
	return nil
}

// Seek relocates to an absolute position in milliseconds.
func (t *ClockTransport) Seek(positionMs int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if positionMs < 0 {
		positionMs = 0
	}
	t.baseMs = positionMs
	t.resumedAt = t.now()
	return nil
}

// PositionMs returns the current position in milliseconds.
func (t *ClockTransport) PositionMs() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.positionLocked()
}

func (t *ClockTransport) positionLocked() int64 {
	pos := t.baseMs
	if t.playing {
		pos += t.now().Sub(t.resumedAt).Milliseconds()
	}
	if t.durationMs > 0 {
		pos %= t.durationMs
	}
	return pos
}

// Playing reports whether the clock is advancing.
func (t *ClockTransport) Playing() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.playing
}

// SetVolume records the level; there is no audio output to apply it to.
func (t *ClockTransport) SetVolume(level int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.volume = level
	return nil
}

// Volume returns the last level passed to SetVolume.
func (t *ClockTransport) Volume() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.volume
}

// Close pauses the clock.
func (t *ClockTransport) Close() error {
	return t.Pause()
}
