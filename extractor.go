package playback

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// ExtractorStats provides extraction loop statistics.
type ExtractorStats struct {
	FramesPublished uint64 // Frames converted and published to the FrameBuffer
	Misses          uint64 // Ticks where the source had no frame
	Errors          uint64 // In-loop failures absorbed with a backoff
	DecodeTimeUs    uint64 // Cumulative time spent in FrameAt
	ConvertTimeUs   uint64 // Cumulative time spent scaling and converting
}

type extractorConfig struct {
	frameInterval time.Duration // Pacing between ticks while extracting
	idleInterval  time.Duration // Poll interval while audio is paused
	errorBackoff  time.Duration // Sleep after an absorbed failure
}

// extractor runs the extraction loop: it polls the audio clock, requests the
// nearest frame, rescales and reformats it, and publishes it into the shared
// FrameBuffer. At most one extractor goroutine is alive per session.
type extractor struct {
	source FrameSource
	audio  AudioTransport
	buffer *FrameBuffer
	scaler *FrameScaler
	cfg    extractorConfig
	logger *slog.Logger

	// Scratch buffer for unpacking planar frames before scaling; sized
	// lazily to the source dimensions and released when the loop exits.
	scratch []byte

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}

	framesPublished atomic.Uint64
	misses          atomic.Uint64
	errs            atomic.Uint64
	decodeNanos     atomic.Uint64
	convertNanos    atomic.Uint64
}

func newExtractor(source FrameSource, audio AudioTransport, buffer *FrameBuffer,
	cfg extractorConfig, logger *slog.Logger) *extractor {
	return &extractor{
		source: source,
		audio:  audio,
		buffer: buffer,
		scaler: NewFrameScaler(buffer.Width(), buffer.Height()),
		cfg:    cfg,
		logger: logger,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

func (e *extractor) start() {
	go e.run()
}

// stopWithin signals the loop to terminate and waits at most d for it to
// exit. It returns false when the loop is still running after the wait, in
// which case the goroutine is abandoned and will exit on its next iteration.
func (e *extractor) stopWithin(d time.Duration) bool {
	e.stopOnce.Do(func() { close(e.stop) })

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-e.done:
		return true
	case <-timer.C:
		return false
	}
}

func (e *extractor) stats() ExtractorStats {
	return ExtractorStats{
		FramesPublished: e.framesPublished.Load(),
		Misses:          e.misses.Load(),
		Errors:          e.errs.Load(),
		DecodeTimeUs:    e.decodeNanos.Load() / 1000,
		ConvertTimeUs:   e.convertNanos.Load() / 1000,
	}
}

func (e *extractor) run() {
	defer close(e.done)
	defer func() { e.scratch = nil }()

	for {
		select {
		case <-e.stop:
			return
		default:
		}

		// Idle-wait: no decode work while audio is paused
		if !e.audio.Playing() {
			e.sleep(e.cfg.idleInterval)
			continue
		}

		if err := e.tick(); err != nil {
			e.errs.Add(1)
			e.logger.Error("frame extraction", "error", err)
			e.sleep(e.cfg.errorBackoff)
			continue
		}

		e.sleep(e.cfg.frameInterval)
	}
}

// tick performs one extraction iteration: clock read, frame lookup, scale,
// convert, publish. A nil frame from the source is a transient miss and
// leaves the previously published frame in place.
func (e *extractor) tick() error {
	positionUs := e.audio.PositionMs() * 1000

	start := time.Now()
	frame, err := e.source.FrameAt(positionUs)
	e.decodeNanos.Add(uint64(time.Since(start).Nanoseconds()))
	if err != nil {
		return fmt.Errorf("frame at %dus: %w", positionUs, err)
	}
	if frame == nil {
		e.misses.Add(1)
		return nil
	}

	start = time.Now()
	if format := frame.Format; format.BytesPerPixel() == 0 {
		frame, err = e.unpack(frame)
		if err != nil {
			return fmt.Errorf("unpack %v frame: %w", format, err)
		}
	}
	if frame.Width != e.buffer.Width() || frame.Height != e.buffer.Height() {
		frame = e.scaler.Scale(frame)
	}
	err = e.buffer.Write(func(dst []byte) error {
		return ConvertToRGBA(frame, dst)
	})
	e.convertNanos.Add(uint64(time.Since(start).Nanoseconds()))
	if err != nil {
		return fmt.Errorf("publish frame: %w", err)
	}

	e.framesPublished.Add(1)
	return nil
}

// unpack converts a planar frame to packed RGBA at its native size so the
// scaler can operate on it. The scratch buffer grows to the largest source
// frame seen and is otherwise reused.
func (e *extractor) unpack(f *RawFrame) (*RawFrame, error) {
	need := f.Width * f.Height * 4
	if cap(e.scratch) < need {
		e.scratch = make([]byte, need)
	}
	dst := e.scratch[:need]
	if err := ConvertToRGBA(f, dst); err != nil {
		return nil, err
	}
	return &RawFrame{
		Data:        dst,
		Stride:      f.Width * 4,
		Width:       f.Width,
		Height:      f.Height,
		Format:      PixelFormatRGBA32,
		TimestampUs: f.TimestampUs,
	}, nil
}

// sleep waits for d or until a stop is requested, whichever comes first.
func (e *extractor) sleep(d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-e.stop:
	case <-timer.C:
	}
}
