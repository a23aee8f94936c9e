package playback

import (
	"bytes"
	"testing"
	"time"
)

func TestPatternSourceOpenReportsConfig(t *testing.T) {
	s := NewPatternSource(PatternConfig{Width: 320, Height: 240, DurationMs: 5000})
	info, err := s.Open("test://")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if info.Width != 320 || info.Height != 240 || info.DurationMs != 5000 {
		t.Fatalf("info = %+v, want 320x240 5000ms", info)
	}
}

func TestPatternSourceURIDimensionOverride(t *testing.T) {
	s := NewPatternSource(DefaultPatternConfig())
	info, err := s.Open("test://640x360")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if info.Width != 640 || info.Height != 360 {
		t.Fatalf("info = %dx%d, want 640x360 from the URI", info.Width, info.Height)
	}

	frame, err := s.FrameAt(0)
	if err != nil {
		t.Fatalf("FrameAt: %v", err)
	}
	if frame.Width != 640 || frame.Height != 360 {
		t.Fatalf("frame = %dx%d, want 640x360", frame.Width, frame.Height)
	}
	if len(frame.Data) != 640*360*4 {
		t.Fatalf("frame data = %d bytes, want %d", len(frame.Data), 640*360*4)
	}
}

func TestPatternSourceMalformedURIKeepsDefaults(t *testing.T) {
	s := NewPatternSource(DefaultPatternConfig())
	info, err := s.Open("test://garbage")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if info.Width != 1280 || info.Height != 720 {
		t.Fatalf("info = %dx%d, want configured 1280x720", info.Width, info.Height)
	}
}

func TestPatternSourceDeterministic(t *testing.T) {
	s := NewPatternSource(PatternConfig{Width: 64, Height: 36})
	if _, err := s.Open("test://"); err != nil {
		t.Fatalf("Open: %v", err)
	}

	frame, err := s.FrameAt(500_000)
	if err != nil {
		t.Fatalf("FrameAt: %v", err)
	}
	first := append([]byte(nil), frame.Data...)

	// A different timestamp produces different pixels.
	if frame, err = s.FrameAt(1_500_000); err != nil {
		t.Fatalf("FrameAt: %v", err)
	}
	if bytes.Equal(first, frame.Data) {
		t.Fatal("pattern did not advance between timestamps")
	}

	// The same timestamp always reproduces the same pixels.
	if frame, err = s.FrameAt(500_000); err != nil {
		t.Fatalf("FrameAt: %v", err)
	}
	if !bytes.Equal(first, frame.Data) {
		t.Fatal("pattern is not a pure function of the timestamp")
	}
}

func TestPatternSourceNV12FrameLayout(t *testing.T) {
	cfg := PatternConfig{Width: 32, Height: 18, Format: PixelFormatNV12, Pattern: PatternColorBars}
	s := NewPatternSource(cfg)
	if _, err := s.Open("test://"); err != nil {
		t.Fatalf("Open: %v", err)
	}

	frame, err := s.FrameAt(0)
	if err != nil {
		t.Fatalf("FrameAt: %v", err)
	}
	if frame.Format != PixelFormatNV12 {
		t.Fatalf("format = %v, want NV12", frame.Format)
	}
	if want := 32*18 + 32*18/2; len(frame.Data) != want {
		t.Fatalf("frame data = %d bytes, want %d", len(frame.Data), want)
	}
	if frame.Stride != 32 {
		t.Fatalf("stride = %d, want luma width 32", frame.Stride)
	}

	// NV12 output converts cleanly, so the pattern can drive the full
	// pipeline.
	dst := make([]byte, 32*18*4)
	if err := ConvertToRGBA(frame, dst); err != nil {
		t.Fatalf("ConvertToRGBA: %v", err)
	}
}

func TestPatternSourceNV12RoundsOddDimensions(t *testing.T) {
	s := NewPatternSource(PatternConfig{Width: 3, Height: 3, Format: PixelFormatNV12})
	info, err := s.Open("test://")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if info.Width != 2 || info.Height != 2 {
		t.Fatalf("info = %dx%d, want 2x2 (rounded down to even)", info.Width, info.Height)
	}

	frame, err := s.FrameAt(0)
	if err != nil {
		t.Fatalf("FrameAt: %v", err)
	}
	if want := 2*2 + 2*2/2; len(frame.Data) != want {
		t.Fatalf("frame data = %d bytes, want %d", len(frame.Data), want)
	}

	// The URI override rounds the same way.
	s2 := NewPatternSource(PatternConfig{Format: PixelFormatNV12})
	info, err = s2.Open("test://33x19")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if info.Width != 32 || info.Height != 18 {
		t.Fatalf("info = %dx%d, want 32x18 from the URI", info.Width, info.Height)
	}
	if _, err := s2.FrameAt(0); err != nil {
		t.Fatalf("FrameAt: %v", err)
	}
}

func TestPatternSourceSolidColor(t *testing.T) {
	cfg := PatternConfig{
		Width: 8, Height: 8,
		Pattern: PatternSolidColor,
		SolidR:  10, SolidG: 20, SolidB: 30,
	}
	s := NewPatternSource(cfg)
	if _, err := s.Open("test://"); err != nil {
		t.Fatalf("Open: %v", err)
	}
	frame, err := s.FrameAt(0)
	if err != nil {
		t.Fatalf("FrameAt: %v", err)
	}
	for i := 0; i < len(frame.Data); i += 4 {
		if frame.Data[i] != 10 || frame.Data[i+1] != 20 || frame.Data[i+2] != 30 || frame.Data[i+3] != 255 {
			t.Fatalf("pixel %d = %v, want [10 20 30 255]", i/4, frame.Data[i:i+4])
		}
	}
}

func TestPatternSourceClosed(t *testing.T) {
	s := NewPatternSource(DefaultPatternConfig())
	if _, err := s.Open("test://"); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if _, err := s.FrameAt(0); err == nil {
		t.Fatal("FrameAt succeeded after Close")
	}
}

func TestTestSchemeRegistered(t *testing.T) {
	if !SourceSchemeAvailable("test") {
		t.Fatal("test scheme not registered")
	}

	s := NewSession(testSessionConfig())
	defer s.Close()

	info, err := s.OpenURI("test://160x90")
	if err != nil {
		t.Fatalf("OpenURI: %v", err)
	}
	if info.Width != 160 || info.Height != 90 {
		t.Fatalf("info = %dx%d, want 160x90", info.Width, info.Height)
	}

	waitFor(t, 2*time.Second, s.HasFrame)
}
