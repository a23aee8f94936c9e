package playback

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SessionConfig configures a playback session.
type SessionConfig struct {
	MaxWidth       int             // Widest frame published to the renderer (default: 854)
	FrameInterval  time.Duration   // Pacing between extraction ticks (default: 66ms, ~15 fps)
	IdleInterval   time.Duration   // Poll interval while audio is paused (default: 50ms)
	ErrorBackoff   time.Duration   // Sleep after an absorbed in-loop failure (default: 100ms)
	CloseTimeout   time.Duration   // Bounded wait for the loop to exit on Close (default: 500ms)
	MaxVolume      int             // Upper bound for volume levels (default: 15)
	VolumeDebounce time.Duration   // Coalescing window for volume signals (default: 200ms)
	Logger         *slog.Logger    // nil discards logs
	OnSourceReady  func(VideoInfo) // Invoked once after a source opens, outside the session's locks
}

// DefaultSessionConfig returns a config with the standard intervals.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		MaxWidth:       854,
		FrameInterval:  66 * time.Millisecond,
		IdleInterval:   50 * time.Millisecond,
		ErrorBackoff:   100 * time.Millisecond,
		CloseTimeout:   500 * time.Millisecond,
		MaxVolume:      15,
		VolumeDebounce: 200 * time.Millisecond,
	}
}

func (c *SessionConfig) applyDefaults() {
	def := DefaultSessionConfig()
	if c.MaxWidth <= 0 {
		c.MaxWidth = def.MaxWidth
	}
	if c.FrameInterval <= 0 {
		c.FrameInterval = def.FrameInterval
	}
	if c.IdleInterval <= 0 {
		c.IdleInterval = def.IdleInterval
	}
	if c.ErrorBackoff <= 0 {
		c.ErrorBackoff = def.ErrorBackoff
	}
	if c.CloseTimeout <= 0 {
		c.CloseTimeout = def.CloseTimeout
	}
	if c.MaxVolume <= 0 {
		c.MaxVolume = def.MaxVolume
	}
	if c.VolumeDebounce <= 0 {
		c.VolumeDebounce = def.VolumeDebounce
	}
}

// Session owns one loaded video source from open to close: the decoder
// adapter, the audio transport, the shared FrameBuffer, and the extraction
// loop goroutine. Opening a new source tears the previous one down first.
// All methods are safe for concurrent use; transport commands may be issued
// from any goroutine while the renderer polls frames from another.
type Session struct {
	cfg    SessionConfig
	logger *slog.Logger

	// lifecycle serializes Open and Close against each other
	lifecycle sync.Mutex

	mu        sync.Mutex
	id        string
	source    FrameSource
	audio     AudioTransport
	buffer    *FrameBuffer
	extractor *extractor
	volume    *VolumeControl
	info      VideoInfo
	running   bool
}

// NewSession creates an idle session. Call Open to start playback.
func NewSession(cfg SessionConfig) *Session {
	cfg.applyDefaults()
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Session{cfg: cfg, logger: logger}
}

// Open loads a source through the given adapters and starts the extraction
// loop. Any previously open source is torn down first. On failure nothing is
// left running and the error wraps ErrSourceUnavailable; the session takes
// ownership of both adapters only on success (failed adapters are closed
// before returning).
func (s *Session) Open(uri string, source FrameSource, audio AudioTransport) (VideoInfo, error) {
	info, err := s.open(uri, source, audio)
	if err != nil {
		return VideoInfo{}, err
	}
	// Outside the lifecycle lock, so the callback may call back into the
	// session (including Close and Open).
	if cb := s.cfg.OnSourceReady; cb != nil {
		cb(info)
	}
	return info, nil
}

func (s *Session) open(uri string, source FrameSource, audio AudioTransport) (VideoInfo, error) {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	s.closeLocked()

	info, err := source.Open(uri)
	if err != nil {
		source.Close()
		audio.Close()
		return VideoInfo{}, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	if info.Width <= 0 || info.Height <= 0 {
		source.Close()
		audio.Close()
		return VideoInfo{}, fmt.Errorf("%w: source reported %dx%d", ErrSourceUnavailable, info.Width, info.Height)
	}
	if err := audio.Load(uri); err != nil {
		source.Close()
		audio.Close()
		return VideoInfo{}, fmt.Errorf("%w: audio load: %v", ErrSourceUnavailable, err)
	}

	width, height := TargetSize(info.Width, info.Height, s.cfg.MaxWidth)
	id := uuid.NewString()
	logger := s.logger.With("session", id)

	buffer := NewFrameBuffer(width, height)
	ext := newExtractor(source, audio, buffer, extractorConfig{
		frameInterval: s.cfg.FrameInterval,
		idleInterval:  s.cfg.IdleInterval,
		errorBackoff:  s.cfg.ErrorBackoff,
	}, logger)

	s.mu.Lock()
	s.id = id
	s.source = source
	s.audio = audio
	s.buffer = buffer
	s.extractor = ext
	s.volume = NewVolumeControl(s.cfg.MaxVolume, s.cfg.VolumeDebounce)
	s.info = info
	s.running = true
	s.mu.Unlock()

	ext.start()

	if err := audio.Play(); err != nil {
		// Loop idles until a later Resume succeeds; the session stays open.
		logger.Warn("audio start", "error", err)
	}

	logger.Info("session opened",
		"native_width", info.Width, "native_height", info.Height,
		"target_width", width, "target_height", height,
		"duration_ms", info.DurationMs)

	return info, nil
}

// OpenURI resolves the URI through the registered source schemes and opens
// it. See RegisterSourceScheme.
func (s *Session) OpenURI(uri string) (VideoInfo, error) {
	source, audio, err := OpenSource(uri)
	if err != nil {
		return VideoInfo{}, err
	}
	return s.Open(uri, source, audio)
}

// Close stops the extraction loop with a bounded wait and releases the
// decoder and audio transport unconditionally. It never fails: release
// errors are logged and swallowed, and a loop that outlives the wait is
// abandoned rather than blocking the caller. Idempotent.
func (s *Session) Close() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	s.closeLocked()
}

func (s *Session) closeLocked() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	id := s.id
	ext := s.extractor
	source := s.source
	audio := s.audio
	s.running = false
	s.source = nil
	s.audio = nil
	s.buffer = nil
	s.extractor = nil
	s.volume = nil
	s.info = VideoInfo{}
	s.mu.Unlock()

	logger := s.logger.With("session", id)
	if !ext.stopWithin(s.cfg.CloseTimeout) {
		logger.Warn("extraction loop did not stop in time; abandoning",
			"timeout", s.cfg.CloseTimeout)
	}
	if err := source.Close(); err != nil {
		logger.Warn("source release", "error", err)
	}
	if err := audio.Close(); err != nil {
		logger.Warn("audio release", "error", err)
	}
	logger.Info("session closed")
}

// Running reports whether a source is open.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Info returns the opened source's metadata and whether a source is open.
func (s *Session) Info() (VideoInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.info, s.running
}

// Width returns the target frame width, or 0 when no source is open.
func (s *Session) Width() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.buffer == nil {
		return 0
	}
	return s.buffer.Width()
}

// Height returns the target frame height, or 0 when no source is open.
func (s *Session) Height() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.buffer == nil {
		return 0
	}
	return s.buffer.Height()
}

// HasFrame reports whether at least one frame has been published since Open.
func (s *Session) HasFrame() bool {
	s.mu.Lock()
	buffer := s.buffer
	s.mu.Unlock()
	return buffer != nil && buffer.HasFrame()
}

// FrameInto copies the latest frame into dst, which must hold at least
// Width()*Height()*4 bytes. It returns the frame dimensions and false when no
// frame is available yet; the renderer shows its fallback pattern in that
// case. The copy runs under the frame lock, so the result is never torn.
func (s *Session) FrameInto(dst []byte) (width, height int, ok bool) {
	s.mu.Lock()
	buffer := s.buffer
	s.mu.Unlock()
	if buffer == nil {
		return 0, 0, false
	}
	return buffer.Snapshot(dst)
}

// Frame returns a copy of the latest frame, or nil when none is available.
// Renderers polling every tick should prefer FrameInto with a reused buffer.
func (s *Session) Frame() ([]byte, int, int) {
	s.mu.Lock()
	buffer := s.buffer
	s.mu.Unlock()
	if buffer == nil {
		return nil, 0, 0
	}
	dst := make([]byte, buffer.Size())
	w, h, ok := buffer.Snapshot(dst)
	if !ok {
		return nil, 0, 0
	}
	return dst, w, h
}

// Stats returns a snapshot of the extraction loop counters.
func (s *Session) Stats() ExtractorStats {
	s.mu.Lock()
	ext := s.extractor
	s.mu.Unlock()
	if ext == nil {
		return ExtractorStats{}
	}
	return ext.stats()
}

// Pause suspends audio playback; the extraction loop idles on its next poll.
// No-op when already paused.
func (s *Session) Pause() error {
	audio, err := s.transport()
	if err != nil {
		return err
	}
	if !audio.Playing() {
		return nil
	}
	if err := audio.Pause(); err != nil {
		s.logger.Warn("pause", "error", err)
		return fmt.Errorf("pause: %w", err)
	}
	return nil
}

// Resume restarts audio playback. No-op when already playing.
func (s *Session) Resume() error {
	audio, err := s.transport()
	if err != nil {
		return err
	}
	if audio.Playing() {
		return nil
	}
	if err := audio.Play(); err != nil {
		s.logger.Warn("resume", "error", err)
		return fmt.Errorf("resume: %w", err)
	}
	return nil
}

// SeekMs relocates playback to an absolute position. The extraction loop
// picks the new position up on its next poll; no signal into the loop is
// needed since it re-reads the clock every iteration.
func (s *Session) SeekMs(positionMs int64) error {
	audio, err := s.transport()
	if err != nil {
		return err
	}
	if err := audio.Seek(positionMs); err != nil {
		s.logger.Warn("seek", "position_ms", positionMs, "error", err)
		return fmt.Errorf("seek: %w", err)
	}
	return nil
}

// Playing reports whether audio is currently advancing.
func (s *Session) Playing() bool {
	audio, err := s.transport()
	if err != nil {
		return false
	}
	return audio.Playing()
}

// PositionMs returns the transport's current position, or 0 with no session.
func (s *Session) PositionMs() int64 {
	audio, err := s.transport()
	if err != nil {
		return 0
	}
	return audio.PositionMs()
}

// VolumeStep applies a debounced relative volume change and returns the
// resulting level. Signals inside the debounce window coalesce into one.
func (s *Session) VolumeStep(delta int) (int, error) {
	s.mu.Lock()
	audio := s.audio
	volume := s.volume
	running := s.running
	s.mu.Unlock()
	if !running {
		return 0, ErrNoSession
	}

	level, changed := volume.Step(delta)
	if !changed {
		return level, nil
	}
	if err := audio.SetVolume(level); err != nil {
		s.logger.Warn("set volume", "level", level, "error", err)
		return level, fmt.Errorf("set volume: %w", err)
	}
	return level, nil
}

func (s *Session) transport() (AudioTransport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil, ErrNoSession
	}
	return s.audio, nil
}
