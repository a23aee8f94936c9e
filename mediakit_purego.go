//go:build darwin || linux

// FrameSource backed by libplayback_mediakit (FFmpeg wrapper) via purego.

package playback

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
)

var (
	mediaKitOnce    sync.Once
	mediaKitHandle  uintptr
	mediaKitInitErr error
	mediaKitLoaded  bool
)

// libplayback_mediakit function pointers
var (
	mediaKitOpen    func(uri string) uint64
	mediaKitInfo    func(handle uint64, width, height, durationUs uintptr) int32
	mediaKitFrameAt func(handle uint64, ptsUs int64, dst uintptr, dstCap int32, outWidth, outHeight, outStride uintptr) int32
	mediaKitClose   func(handle uint64)

	mediaKitGetError  func() uintptr
	mediaKitAvailable func() int32
)

// Return codes from playback_mediakit.h
const (
	mediaKitOK      = 0
	mediaKitNoFrame = 1
	mediaKitError   = -1
)

// mediaKitProbe is a heap-allocated struct for output parameters. Output
// parameters must live on the heap for purego on arm64; stack variables can
// move during the C call.
type mediaKitProbe struct {
	Width      int32
	Height     int32
	DurationUs int64
}

// mediaKitFrameResult holds FrameAt output parameters, heap-allocated for the
// same reason as mediaKitProbe.
type mediaKitFrameResult struct {
	Width  int32
	Height int32
	Stride int32
}

func loadMediaKit() error {
	mediaKitOnce.Do(func() {
		mediaKitInitErr = loadMediaKitLib()
		if mediaKitInitErr == nil {
			mediaKitLoaded = true
		}
	})
	return mediaKitInitErr
}

func loadMediaKitLib() error {
	var lastErr error
	for _, path := range nativeLibPaths("libplayback_mediakit") {
		handle, err := purego.Dlopen(path, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err == nil {
			mediaKitHandle = handle
			loadMediaKitSymbols()
			return nil
		}
		lastErr = err
	}
	return fmt.Errorf("%w: libplayback_mediakit: %v", ErrNotAvailable, lastErr)
}

func loadMediaKitSymbols() {
	purego.RegisterLibFunc(&mediaKitOpen, mediaKitHandle, "playback_mk_open")
	purego.RegisterLibFunc(&mediaKitInfo, mediaKitHandle, "playback_mk_info")
	purego.RegisterLibFunc(&mediaKitFrameAt, mediaKitHandle, "playback_mk_frame_at")
	purego.RegisterLibFunc(&mediaKitClose, mediaKitHandle, "playback_mk_close")
	purego.RegisterLibFunc(&mediaKitGetError, mediaKitHandle, "playback_mk_get_error")
	purego.RegisterLibFunc(&mediaKitAvailable, mediaKitHandle, "playback_mk_available")
}

// IsMediaKitAvailable checks whether libplayback_mediakit can be loaded.
func IsMediaKitAvailable() bool {
	if err := loadMediaKit(); err != nil {
		return false
	}
	return mediaKitLoaded && mediaKitAvailable() != 0
}

func getMediaKitError() string {
	ptr := mediaKitGetError()
	if ptr == 0 {
		return "unknown error"
	}
	return goStringFromPtr(ptr)
}

// MediaKitSource implements FrameSource on top of the native FFmpeg wrapper.
// FrameAt seeks the demuxer to the requested timestamp and decodes the
// nearest frame at or before it into a reused BGRA buffer; a decode that
// cannot complete promptly reports no frame rather than blocking.
type MediaKitSource struct {
	mu     sync.Mutex
	handle uint64
	info   VideoInfo
	buf    []byte
}

// NewMediaKitSource creates a source backed by the native decoder. It fails
// with ErrNotAvailable when the library cannot be loaded.
func NewMediaKitSource() (*MediaKitSource, error) {
	if err := loadMediaKit(); err != nil {
		return nil, err
	}
	if mediaKitAvailable() == 0 {
		return nil, fmt.Errorf("%w: mediakit decoder not compiled in", ErrNotAvailable)
	}
	return &MediaKitSource{}, nil
}

// Open probes the container and prepares the decoder.
func (s *MediaKitSource) Open(uri string) (VideoInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle != 0 {
		mediaKitClose(s.handle)
		s.handle = 0
	}

	handle := mediaKitOpen(uri)
	if handle == 0 {
		return VideoInfo{}, fmt.Errorf("open %q: %s", uri, getMediaKitError())
	}

	probe := &mediaKitProbe{}
	rc := mediaKitInfo(handle,
		uintptr(unsafe.Pointer(&probe.Width)),
		uintptr(unsafe.Pointer(&probe.Height)),
		uintptr(unsafe.Pointer(&probe.DurationUs)),
	)
	if rc != mediaKitOK || probe.Width <= 0 || probe.Height <= 0 {
		mediaKitClose(handle)
		return VideoInfo{}, fmt.Errorf("probe %q: %s", uri, getMediaKitError())
	}

	s.handle = handle
	s.info = VideoInfo{
		Width:      int(probe.Width),
		Height:     int(probe.Height),
		DurationMs: probe.DurationUs / 1000,
	}
	s.buf = make([]byte, s.info.Width*s.info.Height*4)
	return s.info, nil
}

// FrameAt decodes the closest frame at or before the timestamp. The returned
// frame aliases the source's internal buffer.
func (s *MediaKitSource) FrameAt(timestampUs int64) (*RawFrame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle == 0 {
		return nil, ErrSourceClosed
	}

	result := &mediaKitFrameResult{}
	rc := mediaKitFrameAt(s.handle, timestampUs,
		uintptr(unsafe.Pointer(&s.buf[0])), int32(len(s.buf)),
		uintptr(unsafe.Pointer(&result.Width)),
		uintptr(unsafe.Pointer(&result.Height)),
		uintptr(unsafe.Pointer(&result.Stride)),
	)
	switch {
	case rc == mediaKitNoFrame:
		return nil, nil
	case rc != mediaKitOK:
		return nil, fmt.Errorf("frame at %dus: %s", timestampUs, getMediaKitError())
	}

	if result.Width <= 0 || result.Height <= 0 {
		return nil, nil
	}
	return &RawFrame{
		Data:        s.buf,
		Stride:      int(result.Stride),
		Width:       int(result.Width),
		Height:      int(result.Height),
		Format:      PixelFormatBGRA32,
		TimestampUs: timestampUs,
	}, nil
}

// Close releases the native decoder. Safe to call more than once.
func (s *MediaKitSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handle != 0 {
		mediaKitClose(s.handle)
		s.handle = 0
	}
	s.buf = nil
	return nil
}

// Register the file:// scheme when the native backends can load.
func init() {
	RegisterSourceScheme("file", func(uri string) (FrameSource, AudioTransport, error) {
		source, err := NewMediaKitSource()
		if err != nil {
			return nil, nil, err
		}
		audio, err := NewNativeAudioTransport()
		if err != nil {
			source.Close()
			return nil, nil, err
		}
		return source, audio, nil
	})
}
