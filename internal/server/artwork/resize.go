// Package artwork normalizes uploaded cover images.
package artwork

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"strings"

	"github.com/disintegration/imaging"
)

// Fit returns the cover re-encoded to fit in a maxDim x maxDim box. When
// the image already fits, or maxDim is not positive, resized is false and
// the caller should store the original bytes.
func Fit(r io.Reader, contentType string, maxDim int) (data []byte, resized bool, err error) {
	if maxDim <= 0 {
		return nil, false, nil
	}

	src, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, false, fmt.Errorf("decoding cover: %w", err)
	}
	if !tooLarge(src, maxDim) {
		return nil, false, nil
	}

	dst := imaging.Fit(src, maxDim, maxDim, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, dst, format(contentType), imaging.JPEGQuality(90)); err != nil {
		return nil, false, fmt.Errorf("encoding cover: %w", err)
	}
	return buf.Bytes(), true, nil
}

func tooLarge(img image.Image, maxDim int) bool {
	b := img.Bounds()
	return b.Dx() > maxDim || b.Dy() > maxDim
}

func format(contentType string) imaging.Format {
	switch strings.ToLower(contentType) {
	case "image/png":
		return imaging.PNG
	case "image/gif":
		return imaging.GIF
	case "image/bmp":
		return imaging.BMP
	case "image/tiff":
		return imaging.TIFF
	default:
		return imaging.JPEG
	}
}
