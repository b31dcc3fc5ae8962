package attachment

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // register decoders for image.Decode
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	minPreviewSize     = 64
	maxPreviewSize     = 1024
	previewJPEGQuality = 80

	// MaxPreviewPixels caps the decoded size of a preview source.
	MaxPreviewPixels = 40_000_000
)

// ErrImageTooLarge reports a source image whose pixel count exceeds
// MaxPreviewPixels.
var ErrImageTooLarge = errors.New("image dimensions exceed preview limit")

// Preview renders a JPEG thumbnail of f no larger than maxSize on either side.
// Images smaller than maxSize keep their dimensions.
func Preview(ctx context.Context, f *File, maxSize int) ([]byte, error) {
	if maxSize < minPreviewSize {
		maxSize = minPreviewSize
	}
	if maxSize > maxPreviewSize {
		maxSize = maxPreviewSize
	}

	data, err := Bytes(ctx, f, 0)
	if err != nil {
		return nil, err
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, errors.New("invalid image dimensions")
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPreviewPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrImageTooLarge, cfg.Width, cfg.Height)
	}

	srcImg, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	bounds := srcImg.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, errors.New("invalid image dimensions")
	}

	scale := float64(maxSize) / float64(max(width, height))
	if scale > 1 {
		scale = 1
	}
	newW := max(int(float64(width)*scale), 1)
	newH := max(int(float64(height)*scale), 1)

	dst := image.NewRGBA(image.Rect(0, 0, newW, newH))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), srcImg, bounds, draw.Over, nil)

	var out bytes.Buffer
	if err := jpeg.Encode(&out, dst, &jpeg.Options{Quality: previewJPEGQuality}); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
