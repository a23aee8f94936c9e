package playback

import (
	"fmt"
	"strings"
	"sync"
)

// PatternType defines the synthetic pattern generated by PatternSource.
type PatternType int

const (
	PatternScroll     PatternType = iota // Diagonal gradient scrolling with the timestamp
	PatternColorBars                     // SMPTE-style color bars
	PatternMovingBox                     // White box orbiting the center
	PatternSolidColor                    // Solid color
)

func (p PatternType) String() string {
	switch p {
	case PatternScroll:
		return "Scroll"
	case PatternColorBars:
		return "ColorBars"
	case PatternMovingBox:
		return "MovingBox"
	case PatternSolidColor:
		return "SolidColor"
	default:
		return "Unknown"
	}
}

// PatternConfig configures a pattern source.
type PatternConfig struct {
	Width      int         // Frame width (default: 1280)
	Height     int         // Frame height (default: 720)
	DurationMs int64       // Reported media duration (default: 60000)
	Pattern    PatternType // Pattern type (default: Scroll)
	Format     PixelFormat // Emitted pixel format: RGBA32, BGRA32 or NV12 (default: RGBA32)

	// For SolidColor
	SolidR, SolidG, SolidB uint8
}

// DefaultPatternConfig returns the default pattern configuration.
func DefaultPatternConfig() PatternConfig {
	return PatternConfig{
		Width:      1280,
		Height:     720,
		DurationMs: 60_000,
		Pattern:    PatternScroll,
		Format:     PixelFormatRGBA32,
	}
}

// PatternSource is a FrameSource that synthesizes frames as a pure function
// of the requested timestamp. It needs no media files or native libraries,
// which makes it the standard stand-in for a real decoder in tests and the
// backend for test:// URIs.
type PatternSource struct {
	config PatternConfig

	mu     sync.Mutex
	frame  []byte // reused output buffer
	opened bool
	closed bool
}

// NewPatternSource creates a pattern source. Zero config fields take
// defaults.
func NewPatternSource(config PatternConfig) *PatternSource {
	def := DefaultPatternConfig()
	if config.Width <= 0 {
		config.Width = def.Width
	}
	if config.Height <= 0 {
		config.Height = def.Height
	}
	if config.DurationMs <= 0 {
		config.DurationMs = def.DurationMs
	}
	switch config.Format {
	case PixelFormatRGBA32, PixelFormatBGRA32, PixelFormatNV12:
	default:
		config.Format = def.Format
	}
	// NV12 chroma subsampling needs even dimensions.
	if config.Format == PixelFormatNV12 {
		config.Width &^= 1
		config.Height &^= 1
		if config.Width == 0 {
			config.Width = def.Width
		}
		if config.Height == 0 {
			config.Height = def.Height
		}
	}
	return &PatternSource{config: config}
}

// Open accepts any URI; "test://WxH" overrides the configured dimensions
// (e.g. "test://640x360").
func (s *PatternSource) Open(uri string) (VideoInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return VideoInfo{}, ErrSourceClosed
	}

	if rest, ok := strings.CutPrefix(uri, "test://"); ok && rest != "" {
		var w, h int
		if n, err := fmt.Sscanf(rest, "%dx%d", &w, &h); err == nil && n == 2 {
			if s.config.Format == PixelFormatNV12 {
				w &^= 1
				h &^= 1
			}
			if w > 0 && h > 0 {
				s.config.Width = w
				s.config.Height = h
			}
		}
	}

	s.frame = make([]byte, s.config.Format.FrameSize(s.config.Width, s.config.Height))
	s.opened = true
	return VideoInfo{
		Width:      s.config.Width,
		Height:     s.config.Height,
		DurationMs: s.config.DurationMs,
	}, nil
}

// FrameAt synthesizes the frame for the given timestamp into a reused
// buffer. The same timestamp always yields identical pixels.
func (s *PatternSource) FrameAt(timestampUs int64) (*RawFrame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSourceClosed
	}
	if !s.opened {
		return nil, fmt.Errorf("pattern source not opened")
	}

	s.generate(timestampUs)

	stride := s.config.Width * 4
	if s.config.Format == PixelFormatNV12 {
		stride = s.config.Width
	}
	return &RawFrame{
		Data:        s.frame,
		Stride:      stride,
		Width:       s.config.Width,
		Height:      s.config.Height,
		Format:      s.config.Format,
		TimestampUs: timestampUs,
	}, nil
}

// Close releases the frame buffer. Safe to call more than once.
func (s *PatternSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.frame = nil
	return nil
}

func (s *PatternSource) generate(timestampUs int64) {
	// Advance the pattern in steps of four per ~60Hz tick, wrapping at 256,
	// so motion is visible at any polling rate.
	offset := uint8((timestampUs / 16_667 * 4) % 256)

	switch s.config.Pattern {
	case PatternColorBars:
		s.fill(func(x, y int) (uint8, uint8, uint8) {
			bar := x * 8 / s.config.Width
			if bar > 7 {
				bar = 7
			}
			c := patternBarColors[bar]
			return c[0], c[1], c[2]
		})
	case PatternMovingBox:
		s.generateMovingBox(timestampUs)
	case PatternSolidColor:
		r, g, b := s.config.SolidR, s.config.SolidG, s.config.SolidB
		s.fill(func(x, y int) (uint8, uint8, uint8) { return r, g, b })
	default: // PatternScroll
		s.fill(func(x, y int) (uint8, uint8, uint8) {
			v := uint8(x) + uint8(y) + offset
			return v, v, v
		})
	}
}

func (s *PatternSource) generateMovingBox(timestampUs int64) {
	w, h := s.config.Width, s.config.Height
	boxSize := h / 6
	span := w - boxSize
	if span <= 0 {
		span = 1
	}
	// Bounce horizontally across the frame once per two seconds
	phase := int(timestampUs/1000) % 4000
	if phase >= 2000 {
		phase = 4000 - phase
	}
	boxX := span * phase / 2000
	boxY := (h - boxSize) / 2

	s.fill(func(x, y int) (uint8, uint8, uint8) {
		if x >= boxX && x < boxX+boxSize && y >= boxY && y < boxY+boxSize {
			return 235, 235, 235
		}
		return 16, 16, 16
	})
}

// fill writes the pattern in the configured pixel format.
func (s *PatternSource) fill(rgb func(x, y int) (uint8, uint8, uint8)) {
	w, h := s.config.Width, s.config.Height

	switch s.config.Format {
	case PixelFormatBGRA32:
		for y := 0; y < h; y++ {
			row := s.frame[y*w*4:]
			for x := 0; x < w; x++ {
				r, g, b := rgb(x, y)
				i := x * 4
				row[i] = b
				row[i+1] = g
				row[i+2] = r
				row[i+3] = 255
			}
		}
	case PixelFormatNV12:
		yPlane := s.frame[:w*h]
		uvPlane := s.frame[w*h:]
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				r, g, b := rgb(x, y)
				yPlane[y*w+x] = lumaBT601(r, g, b)
				if x%2 == 0 && y%2 == 0 {
					u, v := chromaBT601(r, g, b)
					uvIdx := (y/2)*w + x
					uvPlane[uvIdx] = u
					uvPlane[uvIdx+1] = v
				}
			}
		}
	default: // PixelFormatRGBA32
		for y := 0; y < h; y++ {
			row := s.frame[y*w*4:]
			for x := 0; x < w; x++ {
				r, g, b := rgb(x, y)
				i := x * 4
				row[i] = r
				row[i+1] = g
				row[i+2] = b
				row[i+3] = 255
			}
		}
	}
}

// patternBarColors are simplified 75% SMPTE bars.
var patternBarColors = [8][3]uint8{
	{192, 192, 192}, // White
	{192, 192, 0},   // Yellow
	{0, 192, 192},   // Cyan
	{0, 192, 0},     // Green
	{192, 0, 192},   // Magenta
	{192, 0, 0},     // Red
	{0, 0, 192},     // Blue
	{16, 16, 16},    // Black
}

// lumaBT601 converts RGB to the BT.601 luma component.
func lumaBT601(r, g, b uint8) uint8 {
	y := 16 + (66*int(r)+129*int(g)+25*int(b)+128)>>8
	return clampByte(y)
}

// chromaBT601 converts RGB to the BT.601 chroma components.
func chromaBT601(r, g, b uint8) (u, v uint8) {
	uc := 128 + (-38*int(r)-74*int(g)+112*int(b)+128)>>8
	vc := 128 + (112*int(r)-94*int(g)-18*int(b)+128)>>8
	return clampByte(uc), clampByte(vc)
}

// Register the test:// scheme so URIs work with no native libraries present.
func init() {
	RegisterSourceScheme("test", func(uri string) (FrameSource, AudioTransport, error) {
		cfg := DefaultPatternConfig()
		return NewPatternSource(cfg), NewClockTransport(cfg.DurationMs), nil
	})
}
