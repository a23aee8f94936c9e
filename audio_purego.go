//go:build darwin || linux

// AudioTransport backed by libplayback_audio (miniaudio wrapper) via purego.

package playback

import (
	"fmt"
	"sync"

	"github.com/ebitengine/purego"
)

var (
	playbackAudioOnce    sync.Once
	playbackAudioHandle  uintptr
	playbackAudioInitErr error
	playbackAudioLoaded  bool
)

// libplayback_audio function pointers
var (
	playbackAudioOpen       func(uri string) uint64
	playbackAudioPlay       func(handle uint64) int32
	playbackAudioPause      func(handle uint64) int32
	playbackAudioSeek       func(handle uint64, positionMs int64) int32
	playbackAudioPositionMs func(handle uint64) int64
	playbackAudioPlaying    func(handle uint64) int32
	playbackAudioSetVolume  func(handle uint64, level, max int32) int32
	playbackAudioClose      func(handle uint64)

	playbackAudioGetError  func() uintptr
	playbackAudioAvailable func() int32
)

func loadPlaybackAudio() error {
	playbackAudioOnce.Do(func() {
		playbackAudioInitErr = loadPlaybackAudioLib()
		if playbackAudioInitErr == nil {
			playbackAudioLoaded = true
		}
	})
	return playbackAudioInitErr
}

func loadPlaybackAudioLib() error {
	var lastErr error
	for _, path := range nativeLibPaths("libplayback_audio") {
		handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err == nil {
			playbackAudioHandle = handle
			loadPlaybackAudioSymbols()
			return nil
		}
		lastErr = err
	}
	return fmt.Errorf("%w: libplayback_audio: %v", ErrNotAvailable, lastErr)
}

func loadPlaybackAudioSymbols() {
	purego.RegisterLibFunc(&playbackAudioOpen, playbackAudioHandle, "playback_audio_open")
	purego.RegisterLibFunc(&playbackAudioPlay, playbackAudioHandle, "playback_audio_play")
	purego.RegisterLibFunc(&playbackAudioPause, playbackAudioHandle, "playback_audio_pause")
	purego.RegisterLibFunc(&playbackAudioSeek, playbackAudioHandle, "playback_audio_seek")
	purego.RegisterLibFunc(&playbackAudioPositionMs, playbackAudioHandle, "playback_audio_position_ms")
	purego.RegisterLibFunc(&playbackAudioPlaying, playbackAudioHandle, "playback_audio_playing")
	purego.RegisterLibFunc(&playbackAudioSetVolume, playbackAudioHandle, "playback_audio_set_volume")
	purego.RegisterLibFunc(&playbackAudioClose, playbackAudioHandle, "playback_audio_close")
	purego.RegisterLibFunc(&playbackAudioGetError, playbackAudioHandle, "playback_audio_get_error")
	purego.RegisterLibFunc(&playbackAudioAvailable, playbackAudioHandle, "playback_audio_available")
}

// IsNativeAudioAvailable checks whether libplayback_audio can be loaded.
func IsNativeAudioAvailable() bool {
	if err := loadPlaybackAudio(); err != nil {
		return false
	}
	return playbackAudioLoaded && playbackAudioAvailable() != 0
}

func getPlaybackAudioError() string {
	ptr := playbackAudioGetError()
	if ptr == 0 {
		return "unknown error"
	}
	return goStringFromPtr(ptr)
}

// NativeAudioTransport implements AudioTransport on top of the native audio
// engine. Its reported position is what the extraction loop synchronizes to.
type NativeAudioTransport struct {
	mu     sync.Mutex
	handle uint64
	max    int32
}

// NewNativeAudioTransport creates a transport backed by the native engine.
// It fails with ErrNotAvailable when the library cannot be loaded.
func NewNativeAudioTransport() (*NativeAudioTransport, error) {
	if err := loadPlaybackAudio(); err != nil {
		return nil, err
	}
	if playbackAudioAvailable() == 0 {
		return nil, fmt.Errorf("%w: audio engine not compiled in", ErrNotAvailable)
	}
	return &NativeAudioTransport{max: 15}, nil
}

// Load opens the source's audio track; playback starts paused.
func (t *NativeAudioTransport) Load(uri string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.handle != 0 {
		playbackAudioClose(t.handle)
		t.handle = 0
	}

	handle := playbackAudioOpen(uri)
	if handle == 0 {
		return fmt.Errorf("audio load %q: %s", uri, getPlaybackAudioError())
	}
	t.handle = handle
	return nil
}

// Play starts or resumes playback.
func (t *NativeAudioTransport) Play() error {
	return t.command("play", playbackAudioPlay)
}

// Pause suspends playback.
func (t *NativeAudioTransport) Pause() error {
	return t.command("pause", playbackAudioPause)
}

// Seek relocates playback to an absolute position in milliseconds.
func (t *NativeAudioTransport) Seek(positionMs int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.handle == 0 {
		return ErrSourceClosed
	}
	if rc := playbackAudioSeek(t.handle, positionMs); rc != 0 {
		return fmt.Errorf("audio seek to %dms: %s", positionMs, getPlaybackAudioError())
	}
	return nil
}

// PositionMs returns the engine's playback position.
func (t *NativeAudioTransport) PositionMs() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.handle == 0 {
		return 0
	}
	return playbackAudioPositionMs(t.handle)
}

// Playing reports whether the engine is producing audio.
func (t *NativeAudioTransport) Playing() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.handle == 0 {
		return false
	}
	return playbackAudioPlaying(t.handle) != 0
}

// SetVolume applies an absolute volume level.
func (t *NativeAudioTransport) SetVolume(level int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.handle == 0 {
		return ErrSourceClosed
	}
	if rc := playbackAudioSetVolume(t.handle, int32(level), t.max); rc != 0 {
		return fmt.Errorf("audio set volume %d: %s", level, getPlaybackAudioError())
	}
	return nil
}

// Close releases the engine. Safe to call more than once.
func (t *NativeAudioTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.handle != 0 {
		playbackAudioClose(t.handle)
		t.handle = 0
	}
	return nil
}

func (t *NativeAudioTransport) command(name string, fn func(uint64) int32) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.handle == 0 {
		return ErrSourceClosed
	}
	if rc := fn(t.handle); rc != 0 {
		return fmt.Errorf("audio %s: %s", name, getPlaybackAudioError())
	}
	return nil
}
