package images

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"log/slog"
	"math"

	xdraw "golang.org/x/image/draw"
)

const jpegQuality = 90

// Downscale shrinks a JPEG or PNG so that neither side exceeds maxDim, keeping
// the aspect ratio and the original encoding. Images that already fit, other
// media types, maxDim <= 0 and re-encodings that come out no smaller than the
// upload are returned unchanged with resized=false.
func Downscale(data []byte, mediaType string, maxDim int) (out []byte, resized bool, err error) {
	if maxDim <= 0 {
		return data, false, nil
	}

	var encode func(*bytes.Buffer, image.Image) error
	switch NormalizeMediaType(mediaType) {
	case "image/jpeg", "image/jpg":
		encode = func(buf *bytes.Buffer, img image.Image) error {
			return jpeg.Encode(buf, img, &jpeg.Options{Quality: jpegQuality})
		}
	case "image/png":
		encode = func(buf *bytes.Buffer, img image.Image) error {
			return png.Encode(buf, img)
		}
	default:
		return data, false, nil
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, false, fmt.Errorf("failed to read image header: %w", err)
	}
	if cfg.Width <= maxDim && cfg.Height <= maxDim {
		return data, false, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, false, fmt.Errorf("failed to decode image: %w", err)
	}

	scaled := resizeToFit(img, maxDim, maxDim)
	slog.Debug("Downscaled upload", "from_width", cfg.Width, "from_height", cfg.Height,
		"to_width", scaled.Bounds().Dx(), "to_height", scaled.Bounds().Dy())

	var buf bytes.Buffer
	if err := encode(&buf, scaled); err != nil {
		return nil, false, fmt.Errorf("failed to encode image: %w", err)
	}
	if buf.Len() >= len(data) {
		slog.Debug("Downscaled image is not smaller, keeping original", "original_size", len(data), "downscaled_size", buf.Len())
		return data, false, nil
	}
	return buf.Bytes(), true, nil
}

// resizeToFit scales img to fit within maxW×maxH (keeping aspect ratio)
func resizeToFit(src image.Image, maxW, maxH int) image.Image {
	bw := src.Bounds().Dx()
	bh := src.Bounds().Dy()

	scale := math.Min(float64(maxW)/float64(bw), float64(maxH)/float64(bh))
	if scale >= 1.0 {
		return src
	}
	w := int(math.Max(1, math.Round(float64(bw)*scale)))
	h := int(math.Max(1, math.Round(float64(bh)*scale)))

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	// CatmullRom keeps printed text legible for the OCR service
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Over, nil)
	return dst
}
