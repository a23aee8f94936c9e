package playback

import "fmt"

// ConvertToRGBA converts a raw frame into interleaved 8-bit RGBA with the
// alpha channel forced to 255. dst must be exactly width*height*4 bytes.
// Input sizes are validated before any byte is written, so a failed call
// leaves dst untouched.
func ConvertToRGBA(f *RawFrame, dst []byte) error {
	need := f.Width * f.Height * 4
	if len(dst) != need {
		return fmt.Errorf("rgba buffer size mismatch: have %d, need %d", len(dst), need)
	}

	stride := f.Stride
	if stride <= 0 {
		if bpp := f.Format.BytesPerPixel(); bpp > 0 {
			stride = f.Width * bpp
		} else {
			stride = f.Width
		}
	}

	switch f.Format {
	case PixelFormatRGBA32:
		return rgbaToRGBA(f.Data, stride, f.Width, f.Height, dst)
	case PixelFormatBGRA32:
		return bgraToRGBA(f.Data, stride, f.Width, f.Height, dst)
	case PixelFormatRGB24:
		return rgb24ToRGBA(f.Data, stride, f.Width, f.Height, dst)
	case PixelFormatNV12:
		return nv12ToRGBA(f.Data, stride, f.Width, f.Height, dst)
	default:
		return fmt.Errorf("unsupported pixel format: %v", f.Format)
	}
}

func rgbaToRGBA(src []byte, stride, w, h int, dst []byte) error {
	if err := checkPacked(src, stride, w, h, 4); err != nil {
		return err
	}
	for y := 0; y < h; y++ {
		row := src[y*stride:]
		out := dst[y*w*4:]
		for x := 0; x < w; x++ {
			si := x * 4
			di := x * 4
			out[di] = row[si]
			out[di+1] = row[si+1]
			out[di+2] = row[si+2]
			out[di+3] = 255
		}
	}
	return nil
}

func bgraToRGBA(src []byte, stride, w, h int, dst []byte) error {
	if err := checkPacked(src, stride, w, h, 4); err != nil {
		return err
	}
	for y := 0; y < h; y++ {
		row := src[y*stride:]
		out := dst[y*w*4:]
		for x := 0; x < w; x++ {
			si := x * 4
			di := x * 4
			out[di] = row[si+2]
			out[di+1] = row[si+1]
			out[di+2] = row[si]
			out[di+3] = 255
		}
	}
	return nil
}

func rgb24ToRGBA(src []byte, stride, w, h int, dst []byte) error {
	if err := checkPacked(src, stride, w, h, 3); err != nil {
		return err
	}
	for y := 0; y < h; y++ {
		row := src[y*stride:]
		out := dst[y*w*4:]
		for x := 0; x < w; x++ {
			si := x * 3
			di := x * 4
			out[di] = row[si]
			out[di+1] = row[si+1]
			out[di+2] = row[si+2]
			out[di+3] = 255
		}
	}
	return nil
}

// nv12ToRGBA converts YUV 4:2:0 semi-planar data using BT.601 integer math.
// Odd dimensions are tolerated: the UV plane holds (h+1)/2 full rows and the
// pair index clamps to the row end, so the trailing column and row reuse the
// last chroma pair.
func nv12ToRGBA(src []byte, stride, w, h int, dst []byte) error {
	if stride < w || stride < 2 {
		return fmt.Errorf("nv12 stride %d too small for width %d", stride, w)
	}
	ySize := stride * h
	uvSize := stride * ((h + 1) / 2)
	if len(src) < ySize+uvSize {
		return fmt.Errorf("nv12 frame too short: have %d, need %d", len(src), ySize+uvSize)
	}
	uv := src[ySize:]

	for y := 0; y < h; y++ {
		yRow := src[y*stride:]
		uvRow := uv[(y/2)*stride:]
		out := dst[y*w*4:]
		for x := 0; x < w; x++ {
			yv := int(yRow[x])
			uvIdx := (x / 2) * 2
			if uvIdx+1 >= stride {
				uvIdx = stride - 2
			}
			u := int(uvRow[uvIdx]) - 128
			v := int(uvRow[uvIdx+1]) - 128

			r := yv + ((351 * v) >> 8)
			g := yv - ((86*u + 179*v) >> 8)
			b := yv + ((443 * u) >> 8)

			di := x * 4
			out[di] = clampByte(r)
			out[di+1] = clampByte(g)
			out[di+2] = clampByte(b)
			out[di+3] = 255
		}
	}
	return nil
}

func checkPacked(src []byte, stride, w, h, bpp int) error {
	if stride < w*bpp {
		return fmt.Errorf("stride %d too small for width %d (%d bytes/px)", stride, w, bpp)
	}
	need := (h-1)*stride + w*bpp
	if len(src) < need {
		return fmt.Errorf("frame data too short: have %d, need %d", len(src), need)
	}
	return nil
}

func clampByte(v int) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}
