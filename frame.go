// Core frame types and the shared pixel buffer exchanged with the renderer.
package playback

import "sync"

// PixelFormat represents video pixel formats.
type PixelFormat int

const (
	PixelFormatRGBA32 PixelFormat = iota // Packed RGBA, 4 bytes per pixel
	PixelFormatBGRA32                    // Packed BGRA, 4 bytes per pixel
	PixelFormatRGB24                     // Packed RGB, 3 bytes per pixel
	PixelFormatNV12                      // YUV 4:2:0 semi-planar (Y + interleaved UV)
)

func (p PixelFormat) String() string {
	switch p {
	case PixelFormatRGBA32:
		return "RGBA32"
	case PixelFormatBGRA32:
		return "BGRA32"
	case PixelFormatRGB24:
		return "RGB24"
	case PixelFormatNV12:
		return "NV12"
	default:
		return "Unknown"
	}
}

// BytesPerPixel returns the per-pixel byte count for packed formats, or 0 for
// planar formats.
func (p PixelFormat) BytesPerPixel() int {
	switch p {
	case PixelFormatRGBA32, PixelFormatBGRA32:
		return 4
	case PixelFormatRGB24:
		return 3
	default:
		return 0
	}
}

// FrameSize returns the buffer size in bytes for a frame of the given
// dimensions in this format.
func (p PixelFormat) FrameSize(width, height int) int {
	switch p {
	case PixelFormatRGBA32, PixelFormatBGRA32:
		return width * height * 4
	case PixelFormatRGB24:
		return width * height * 3
	case PixelFormatNV12:
		// Y plane: width * height, interleaved UV plane: width * height / 2
		return width*height + width*height/2
	default:
		return 0
	}
}

// RawFrame is a decoded video frame as returned by a FrameSource.
// Data may alias memory owned by the source; it is valid until the next
// FrameAt call on that source. Use Clone to keep it longer.
type RawFrame struct {
	Data        []byte      // Pixel data (packed, or Y plane followed by UV for NV12)
	Stride      int         // Row stride in bytes (Y-plane stride for NV12)
	Width       int         // Frame width in pixels
	Height      int         // Frame height in pixels
	Format      PixelFormat // Pixel format
	TimestampUs int64       // Presentation timestamp in microseconds
}

// Clone creates a deep copy of the frame.
func (f *RawFrame) Clone() *RawFrame {
	clone := &RawFrame{
		Stride:      f.Stride,
		Width:       f.Width,
		Height:      f.Height,
		Format:      f.Format,
		TimestampUs: f.TimestampUs,
	}
	if f.Data != nil {
		clone.Data = make([]byte, len(f.Data))
		copy(clone.Data, f.Data)
	}
	return clone
}

// FrameBuffer is the fixed-size RGBA pixel buffer shared between the
// extraction loop and the renderer. The pixel slice is allocated once and
// overwritten in place; the lock is held only for the convert/copy step on
// the producer side and for the read on the consumer side, so a reader
// observes either the prior frame or the current one, never a mix.
type FrameBuffer struct {
	mu       sync.Mutex
	pixels   []byte
	width    int
	height   int
	hasFrame bool
}

// NewFrameBuffer allocates a buffer of width*height*4 bytes.
func NewFrameBuffer(width, height int) *FrameBuffer {
	return &FrameBuffer{
		pixels: make([]byte, width*height*4),
		width:  width,
		height: height,
	}
}

// Width returns the buffer width in pixels.
func (b *FrameBuffer) Width() int { return b.width }

// Height returns the buffer height in pixels.
func (b *FrameBuffer) Height() int { return b.height }

// Size returns the pixel buffer length in bytes.
func (b *FrameBuffer) Size() int { return len(b.pixels) }

// HasFrame reports whether at least one frame has been published.
func (b *FrameBuffer) HasFrame() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hasFrame
}

// Write runs fn on the pixel buffer under the lock and, on success, marks the
// buffer as holding a frame. fn overwrites the buffer in place; it must
// validate its input and fail before writing anything, so an error leaves the
// prior frame intact.
func (b *FrameBuffer) Write(fn func(dst []byte) error) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := fn(b.pixels); err != nil {
		return err
	}
	b.hasFrame = true
	return nil
}

// Read runs fn on the current pixels under the lock. fn must not retain the
// slice. Read returns false without calling fn when no frame has been
// published yet.
func (b *FrameBuffer) Read(fn func(pixels []byte, width, height int)) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.hasFrame {
		return false
	}
	fn(b.pixels, b.width, b.height)
	return true
}

// Snapshot copies the current frame into dst, which must be at least Size()
// bytes. It returns the frame dimensions and false when no frame exists.
func (b *FrameBuffer) Snapshot(dst []byte) (width, height int, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.hasFrame || len(dst) < len(b.pixels) {
		return 0, 0, false
	}
	copy(dst, b.pixels)
	return b.width, b.height, true
}
