package ocr

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/lehigh-university-libraries/visionocr/pkg/providers"
)

// DecodeFile decodes a PNG, JPEG, GIF, BMP, TIFF or WebP image from path
func DecodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open image: %w", providers.ErrInvalidArgument, err)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode image %s: %w", providers.ErrInvalidArgument, path, err)
	}

	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, providers.InvalidArgument("image %s has no pixels", path)
	}
	slog.Debug("Decoded image", "path", path, "format", format, "width", b.Dx(), "height", b.Dy())
	return img, nil
}
