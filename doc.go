// Package playback provides a video frame streaming and synchronization
// pipeline for media viewers: it decodes frames off a media timeline, scales
// and converts them to renderer-ready RGBA, and keeps presentation locked to
// an independently running audio clock.
//
// # Architecture
//
//	Session.Open -> probe VideoInfo -> size FrameBuffer once -> start extraction loop
//	extraction loop: AudioTransport.PositionMs -> FrameSource.FrameAt -> scale -> RGBA -> FrameBuffer
//	renderer: Session.FrameInto each render tick (empty result = no video yet)
//
// The extraction loop runs on its own goroutine for the lifetime of a
// Session. The audio transport's reported position is the only timing
// reference; the loop never keeps a clock of its own. Decode failures are
// absorbed with a backoff so a bad frame never stops playback, and teardown
// is bounded so a stuck decoder cannot block loading a new source.
//
// # Capability Interfaces
//
// The external decoder and audio engine sit behind two narrow interfaces,
// FrameSource and AudioTransport, so the core runs against fakes in tests and
// against native backends in production:
//
//   - PatternSource + ClockTransport: synthetic frames addressed by
//     timestamp, paired with a wall-clock transport (test:// URIs).
//   - MediaKitSource + NativeAudioTransport: purego bindings to the
//     libplayback_* native wrappers (FFmpeg decode, miniaudio output).
//
// # Native Libraries
//
// Bindings load libplayback_mediakit and libplayback_audio via purego
// (CGO_ENABLED=0). Set PLAYBACK_SDK_LIB_PATH to the directory containing the
// libraries; standard system locations are probed otherwise. When a library
// is missing the corresponding backend reports ErrNotAvailable and the
// synthetic sources remain usable.
package playback
