package playback

import "testing"

func TestTargetSize(t *testing.T) {
	tests := []struct {
		name             string
		nativeW, nativeH int
		wantW, wantH     int
	}{
		{"1080p downscales", 1920, 1080, 854, 480},
		{"4k downscales", 3840, 2160, 854, 480},
		{"portrait downscales", 1080, 1920, 854, 1518},
		{"360p unchanged", 640, 360, 640, 360},
		{"exact limit unchanged", 854, 480, 854, 480},
		{"odd aspect rounds", 1280, 543, 854, 362},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := TargetSize(tt.nativeW, tt.nativeH, 854)
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("TargetSize(%d, %d, 854) = (%d, %d), want (%d, %d)",
					tt.nativeW, tt.nativeH, w, h, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestScalePassthroughAtTargetSize(t *testing.T) {
	s := NewFrameScaler(4, 4)
	frame := &RawFrame{
		Data:   make([]byte, 4*4*4),
		Stride: 16,
		Width:  4,
		Height: 4,
		Format: PixelFormatRGBA32,
	}
	if got := s.Scale(frame); got != frame {
		t.Error("frame at target size should be returned unchanged")
	}
}

func TestScaleDownscalePreservesSolidColor(t *testing.T) {
	const srcW, srcH, dstW, dstH = 16, 16, 4, 4
	src := make([]byte, srcW*srcH*4)
	for i := 0; i < len(src); i += 4 {
		src[i], src[i+1], src[i+2], src[i+3] = 200, 100, 50, 255
	}

	s := NewFrameScaler(dstW, dstH)
	out := s.Scale(&RawFrame{
		Data:        src,
		Stride:      srcW * 4,
		Width:       srcW,
		Height:      srcH,
		Format:      PixelFormatRGBA32,
		TimestampUs: 7,
	})

	if out.Width != dstW || out.Height != dstH {
		t.Fatalf("output %dx%d, want %dx%d", out.Width, out.Height, dstW, dstH)
	}
	if out.TimestampUs != 7 {
		t.Errorf("timestamp = %d, want 7", out.TimestampUs)
	}
	for i := 0; i < len(out.Data); i += 4 {
		if out.Data[i] != 200 || out.Data[i+1] != 100 || out.Data[i+2] != 50 || out.Data[i+3] != 255 {
			t.Fatalf("pixel %d = %v, want [200 100 50 255]", i/4, out.Data[i:i+4])
		}
	}
}

func TestScaleInterpolatesBetweenNeighbors(t *testing.T) {
	// 2x1 source, black then white; a 3x1 output's middle pixel must land
	// strictly between the two.
	src := []byte{0, 0, 0, 255, 255, 255, 255, 255}
	s := NewFrameScaler(3, 1)
	out := s.Scale(&RawFrame{
		Data:   src,
		Stride: 8,
		Width:  2,
		Height: 1,
		Format: PixelFormatRGBA32,
	})

	mid := out.Data[4]
	if mid == 0 || mid == 255 {
		t.Errorf("middle pixel = %d, want an interpolated value", mid)
	}
}

func TestScaleReusesOutputBuffer(t *testing.T) {
	s := NewFrameScaler(2, 2)
	frame := &RawFrame{
		Data:   make([]byte, 8*8*4),
		Stride: 32,
		Width:  8,
		Height: 8,
		Format: PixelFormatRGBA32,
	}

	first := s.Scale(frame)
	second := s.Scale(frame)
	if &first.Data[0] != &second.Data[0] {
		t.Error("scaler should reuse its pre-allocated output buffer")
	}
}
