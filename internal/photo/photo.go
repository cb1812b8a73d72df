// Package photo normalizes reporter photos before they enter the spool:
// EXIF orientation is baked into the pixels, oversized images are downscaled,
// and everything is re-encoded as JPEG. Photos ride marine data links that
// bill by the byte, so they are shrunk once at acceptance rather than at
// every retry.
package photo

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"strings"

	_ "image/png" // decode registration

	"github.com/rwcarlsen/goexif/exif"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // decode registration
)

const jpegQuality = 85

// Processor shrinks and straightens photos. maxDimension caps the longer
// side in pixels.
type Processor struct {
	maxDimension int
	logger       *slog.Logger
}

// NewProcessor creates a photo processor.
func NewProcessor(maxDimension int, logger *slog.Logger) *Processor {
	return &Processor{maxDimension: maxDimension, logger: logger}
}

// Process normalizes photo bytes and returns the stored bytes plus their
// extension. JPEG input that is already upright and within the size cap
// passes through untouched; everything else is re-encoded as JPEG.
// Accepted input formats: JPEG, PNG, WebP.
func (p *Processor) Process(data []byte) ([]byte, string, error) {
	orientation := orientationOf(data)

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode photo: %w", err)
	}

	bounds := img.Bounds()
	if format == "jpeg" && orientation == 1 &&
		bounds.Dx() <= p.maxDimension && bounds.Dy() <= p.maxDimension {
		return data, "jpg", nil
	}

	if orientation != 1 {
		img = reorient(img, orientation)
	}
	img = p.downscale(img)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, "", fmt.Errorf("encode photo: %w", err)
	}

	p.logger.Debug("photo processed",
		"format", format,
		"orientation", orientation,
		"in_bytes", len(data),
		"out_bytes", buf.Len(),
	)
	return buf.Bytes(), "jpg", nil
}

// ContentType maps a photo extension to its MIME type.
func ContentType(ext string) string {
	switch strings.TrimPrefix(strings.ToLower(ext), ".") {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}

// orientationOf extracts the EXIF orientation tag, defaulting to 1 (upright)
// when the data carries no usable EXIF block.
func orientationOf(data []byte) int {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return 1
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}
	value, err := tag.Int(0)
	if err != nil {
		return 1
	}
	return value
}

// downscale fits the image inside maxDimension, preserving aspect ratio.
func (p *Processor) downscale(img image.Image) image.Image {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= p.maxDimension && height <= p.maxDimension {
		return img
	}

	scale := float64(p.maxDimension) / float64(width)
	if sy := float64(p.maxDimension) / float64(height); sy < scale {
		scale = sy
	}
	newWidth := int(float64(width) * scale)
	newHeight := int(float64(height) * scale)
	if newWidth < 1 {
		newWidth = 1
	}
	if newHeight < 1 {
		newHeight = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

// reorient rewrites pixels so the image displays upright without its EXIF
// tag. EXIF orientations 2-8 cover the mirror and rotation combinations a
// phone camera produces.
func reorient(img image.Image, orientation int) image.Image {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	switch orientation {
	case 2: // mirror horizontal
		out := image.NewRGBA(image.Rect(0, 0, width, height))
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				out.Set(width-1-x, y, img.At(bounds.Min.X+x, bounds.Min.Y+y))
			}
		}
		return out
	case 3: // rotate 180
		out := image.NewRGBA(image.Rect(0, 0, width, height))
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				out.Set(width-1-x, height-1-y, img.At(bounds.Min.X+x, bounds.Min.Y+y))
			}
		}
		return out
	case 4: // mirror vertical
		out := image.NewRGBA(image.Rect(0, 0, width, height))
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				out.Set(x, height-1-y, img.At(bounds.Min.X+x, bounds.Min.Y+y))
			}
		}
		return out
	case 5: // transpose
		out := image.NewRGBA(image.Rect(0, 0, height, width))
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				out.Set(y, x, img.At(bounds.Min.X+x, bounds.Min.Y+y))
			}
		}
		return out
	case 6: // rotate 90 clockwise
		out := image.NewRGBA(image.Rect(0, 0, height, width))
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				out.Set(height-1-y, x, img.At(bounds.Min.X+x, bounds.Min.Y+y))
			}
		}
		return out
	case 7: // transverse
		out := image.NewRGBA(image.Rect(0, 0, height, width))
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				out.Set(height-1-y, width-1-x, img.At(bounds.Min.X+x, bounds.Min.Y+y))
			}
		}
		return out
	case 8: // rotate 90 counter-clockwise
		out := image.NewRGBA(image.Rect(0, 0, height, width))
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				out.Set(y, width-1-x, img.At(bounds.Min.X+x, bounds.Min.Y+y))
			}
		}
		return out
	default:
		return img
	}
}
