package playback

import "math"

// FrameScaler resamples packed video frames to a fixed target size using
// fixed-point bilinear interpolation. The output buffer is pre-allocated once
// and reused, so scaling allocates nothing per frame.
type FrameScaler struct {
	dstWidth, dstHeight int

	// Pre-allocated output buffer, sized for the widest supported format
	out []byte
}

// NewFrameScaler creates a scaler producing frames of exactly the given
// dimensions.
func NewFrameScaler(dstWidth, dstHeight int) *FrameScaler {
	return &FrameScaler{
		dstWidth:  dstWidth,
		dstHeight: dstHeight,
		out:       make([]byte, dstWidth*dstHeight*4),
	}
}

// Scale resamples a packed frame to the target dimensions. Frames already at
// the target size are returned unchanged. The returned frame aliases the
// scaler's internal buffer and is valid until the next Scale call. Planar
// formats are not supported; convert to a packed format first.
func (s *FrameScaler) Scale(frame *RawFrame) *RawFrame {
	if frame.Width == s.dstWidth && frame.Height == s.dstHeight {
		return frame
	}

	bpp := frame.Format.BytesPerPixel()
	if bpp == 0 {
		return frame
	}

	srcStride := frame.Stride
	if srcStride <= 0 {
		srcStride = frame.Width * bpp
	}
	dstStride := s.dstWidth * bpp
	out := s.out[:s.dstHeight*dstStride]

	scalePacked(frame.Data, srcStride, frame.Width, frame.Height, bpp,
		out, dstStride, s.dstWidth, s.dstHeight)

	return &RawFrame{
		Data:        out,
		Stride:      dstStride,
		Width:       s.dstWidth,
		Height:      s.dstHeight,
		Format:      frame.Format,
		TimestampUs: frame.TimestampUs,
	}
}

// scalePacked scales an interleaved-channel image using bilinear
// interpolation with 16.16 fixed-point coordinates.
func scalePacked(src []byte, srcStride, srcW, srcH, bpp int,
	dst []byte, dstStride, dstW, dstH int) {

	if srcW <= 0 || srcH <= 0 || dstW <= 0 || dstH <= 0 {
		return
	}

	xRatio := (srcW << 16) / dstW
	yRatio := (srcH << 16) / dstH

	for y := 0; y < dstH; y++ {
		srcYFP := y * yRatio
		y0 := srcYFP >> 16
		yWeight := srcYFP & 0xFFFF

		y1 := y0 + 1
		if y1 >= srcH {
			y1 = y0
		}

		row0 := src[y0*srcStride:]
		row1 := src[y1*srcStride:]
		out := dst[y*dstStride:]

		for x := 0; x < dstW; x++ {
			srcXFP := x * xRatio
			x0 := srcXFP >> 16
			xWeight := srcXFP & 0xFFFF

			x1 := x0 + 1
			if x1 >= srcW {
				x1 = x0
			}

			for c := 0; c < bpp; c++ {
				p00 := int(row0[x0*bpp+c])
				p10 := int(row0[x1*bpp+c])
				p01 := int(row1[x0*bpp+c])
				p11 := int(row1[x1*bpp+c])

				// Interpolate horizontally, then vertically
				top := (p00*(0x10000-xWeight) + p10*xWeight) >> 16
				bottom := (p01*(0x10000-xWeight) + p11*xWeight) >> 16
				out[x*bpp+c] = byte((top*(0x10000-yWeight) + bottom*yWeight) >> 16)
			}
		}
	}
}

// TargetSize applies the fixed downscale policy: sources wider than maxWidth
// shrink to maxWidth with the height rounded to preserve aspect ratio;
// narrower sources keep their native dimensions. The policy is deterministic
// and applied once per session.
func TargetSize(nativeWidth, nativeHeight, maxWidth int) (width, height int) {
	if nativeWidth <= maxWidth {
		return nativeWidth, nativeHeight
	}
	scale := float64(maxWidth) / float64(nativeWidth)
	return maxWidth, int(math.Round(float64(nativeHeight) * scale))
}
