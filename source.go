package playback

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrSourceUnavailable reports that a source could not be opened or probed.
// It is the only error surfaced from Session.Open.
var ErrSourceUnavailable = errors.New("source unavailable")

// ErrNoSession reports a transport command issued with no session open.
var ErrNoSession = errors.New("no session open")

// ErrSourceClosed reports use of a source after Close.
var ErrSourceClosed = errors.New("source closed")

// ErrNotAvailable reports that a native backend library is not present.
var ErrNotAvailable = errors.New("native backend not available")

// VideoInfo describes an opened source.
type VideoInfo struct {
	Width      int   // Native frame width in pixels
	Height     int   // Native frame height in pixels
	DurationMs int64 // Media duration, 0 when the source does not report one
}

// FrameSource is the capability boundary over an external frame-accurate
// video decoder.
type FrameSource interface {
	// Open probes the source identified by the opaque uri and prepares it
	// for frame retrieval.
	Open(uri string) (VideoInfo, error)

	// FrameAt returns the closest decodable frame at or before the given
	// timestamp. A (nil, nil) return means no frame could be produced this
	// tick; callers treat it as a transient miss, not an error. FrameAt must
	// not block indefinitely. The returned frame is valid until the next
	// FrameAt call.
	FrameAt(timestampUs int64) (*RawFrame, error)

	// Close releases decoder resources. Safe to call more than once.
	Close() error
}

// AudioTransport is the capability boundary over an external audio engine.
// Its reported position is the pipeline's only timing reference.
type AudioTransport interface {
	// Load prepares the transport for the source. Playback starts paused.
	Load(uri string) error

	Play() error
	Pause() error

	// Seek relocates playback to an absolute position in milliseconds.
	Seek(positionMs int64) error

	// PositionMs returns the current playback position in milliseconds.
	PositionMs() int64

	// Playing reports whether audio is currently advancing.
	Playing() bool

	// SetVolume applies an absolute volume level.
	SetVolume(level int) error

	// Close releases the transport. Safe to call more than once.
	Close() error
}

// SourceFactory creates a FrameSource and its paired AudioTransport for a URI.
type SourceFactory func(uri string) (FrameSource, AudioTransport, error)

type schemeRegistry struct {
	mu        sync.RWMutex
	factories map[string]SourceFactory
}

var globalSchemeRegistry = &schemeRegistry{
	factories: make(map[string]SourceFactory),
}

// RegisterSourceScheme registers a factory for a URI scheme (e.g. "test",
// "file"). Later registrations for the same scheme replace earlier ones.
func RegisterSourceScheme(scheme string, factory SourceFactory) {
	globalSchemeRegistry.mu.Lock()
	defer globalSchemeRegistry.mu.Unlock()
	globalSchemeRegistry.factories[scheme] = factory
}

// SourceSchemeAvailable checks whether a factory is registered for a scheme.
func SourceSchemeAvailable(scheme string) bool {
	globalSchemeRegistry.mu.RLock()
	defer globalSchemeRegistry.mu.RUnlock()
	_, ok := globalSchemeRegistry.factories[scheme]
	return ok
}

// OpenSource resolves a URI to a FrameSource and AudioTransport using the
// registered scheme factories. URIs without a scheme resolve as "file".
func OpenSource(uri string) (FrameSource, AudioTransport, error) {
	scheme := "file"
	if i := strings.Index(uri, "://"); i >= 0 {
		scheme = uri[:i]
	}

	globalSchemeRegistry.mu.RLock()
	factory, ok := globalSchemeRegistry.factories[scheme]
	globalSchemeRegistry.mu.RUnlock()

	if !ok {
		return nil, nil, fmt.Errorf("%w: no source registered for scheme %q", ErrSourceUnavailable, scheme)
	}
	return factory(uri)
}
