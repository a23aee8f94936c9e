package playback

import (
	"bytes"
	"sync"
	"testing"
)

func TestPixelFormatFrameSize(t *testing.T) {
	tests := []struct {
		format PixelFormat
		w, h   int
		want   int
	}{
		{PixelFormatRGBA32, 854, 480, 854 * 480 * 4},
		{PixelFormatBGRA32, 640, 360, 640 * 360 * 4},
		{PixelFormatRGB24, 640, 360, 640 * 360 * 3},
		{PixelFormatNV12, 1280, 720, 1280*720 + 1280*720/2},
	}
	for _, tt := range tests {
		if got := tt.format.FrameSize(tt.w, tt.h); got != tt.want {
			t.Errorf("%v.FrameSize(%d, %d) = %d, want %d", tt.format, tt.w, tt.h, got, tt.want)
		}
	}
}

func TestRawFrameClone(t *testing.T) {
	orig := &RawFrame{
		Data:        []byte{1, 2, 3, 4},
		Stride:      4,
		Width:       1,
		Height:      1,
		Format:      PixelFormatRGBA32,
		TimestampUs: 42,
	}
	clone := orig.Clone()

	if !bytes.Equal(clone.Data, orig.Data) {
		t.Fatalf("clone data = %v, want %v", clone.Data, orig.Data)
	}
	if clone.TimestampUs != 42 || clone.Width != 1 || clone.Format != PixelFormatRGBA32 {
		t.Fatalf("clone metadata mismatch: %+v", clone)
	}

	orig.Data[0] = 99
	if clone.Data[0] == 99 {
		t.Error("clone shares backing data with the original")
	}
}

func TestFrameBufferEmpty(t *testing.T) {
	b := NewFrameBuffer(4, 2)

	if b.Size() != 4*2*4 {
		t.Fatalf("Size() = %d, want %d", b.Size(), 4*2*4)
	}
	if b.HasFrame() {
		t.Error("HasFrame() = true before any write")
	}
	if b.Read(func([]byte, int, int) { t.Error("Read callback invoked on empty buffer") }) {
		t.Error("Read returned true on empty buffer")
	}
	if _, _, ok := b.Snapshot(make([]byte, b.Size())); ok {
		t.Error("Snapshot returned ok on empty buffer")
	}
}

func TestFrameBufferWriteRead(t *testing.T) {
	b := NewFrameBuffer(2, 2)

	err := b.Write(func(dst []byte) error {
		for i := range dst {
			dst[i] = byte(i)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !b.HasFrame() {
		t.Fatal("HasFrame() = false after a successful write")
	}

	dst := make([]byte, b.Size())
	w, h, ok := b.Snapshot(dst)
	if !ok || w != 2 || h != 2 {
		t.Fatalf("Snapshot = (%d, %d, %v), want (2, 2, true)", w, h, ok)
	}
	for i, v := range dst {
		if v != byte(i) {
			t.Fatalf("pixel %d = %d, want %d", i, v, i)
		}
	}
}

func TestFrameBufferFailedWriteKeepsPriorFrame(t *testing.T) {
	b := NewFrameBuffer(2, 1)

	if err := b.Write(func(dst []byte) error {
		copy(dst, []byte{1, 2, 3, 255, 4, 5, 6, 255})
		return nil
	}); err != nil {
		t.Fatalf("Write: %v", err)
	}

	// A writer that fails must validate before touching dst, so the frame
	// published above stays visible.
	bad := &RawFrame{Data: nil, Width: 99, Height: 99, Format: PixelFormatRGBA32}
	if err := b.Write(func(dst []byte) error { return ConvertToRGBA(bad, dst) }); err == nil {
		t.Fatal("expected error from mismatched frame")
	}

	dst := make([]byte, b.Size())
	if _, _, ok := b.Snapshot(dst); !ok {
		t.Fatal("prior frame lost after failed write")
	}
	want := []byte{1, 2, 3, 255, 4, 5, 6, 255}
	if !bytes.Equal(dst, want) {
		t.Fatalf("pixels = %v, want %v", dst, want)
	}
}

// A reader must observe a whole frame, never a mix of two writes.
func TestFrameBufferNoTornReads(t *testing.T) {
	const (
		w, h    = 16, 16
		writes  = 500
		readers = 4
	)
	b := NewFrameBuffer(w, h)

	var wg sync.WaitGroup
	stop := make(chan struct{})

	for r := 0; r < readers; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			buf := make([]byte, b.Size())
			for {
				select {
				case <-stop:
					return
				default:
				}
				if _, _, ok := b.Snapshot(buf); !ok {
					continue
				}
				first := buf[0]
				for i, v := range buf {
					if v != first {
						t.Errorf("torn read: pixel %d = %d, frame starts with %d", i, v, first)
						return
					}
				}
			}
		}()
	}

	for i := 0; i < writes; i++ {
		val := byte(i % 256)
		b.Write(func(dst []byte) error {
			for j := range dst {
				dst[j] = val
			}
			return nil
		})
	}
	close(stop)
	wg.Wait()
}
