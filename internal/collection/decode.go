package collection

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // register decoders for downscaling
	"image/jpeg"
	_ "image/png"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/nfnt/resize"
)

// ErrNotImage is returned when an uploaded file is not an image.
var ErrNotImage = errors.New("file is not an image")

// FileDecoder reads image files from disk and encodes them as data URIs.
type FileDecoder struct {
	// MaxWidth downscales wider images to this width and re-encodes them as JPEG.
	// Zero keeps the original bytes.
	MaxWidth uint
}

// DecodeFile reads the file at path and returns it as a data URI.
func (d FileDecoder) DecodeFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	mediaType := mimetype.Detect(data).String()
	if !strings.HasPrefix(mediaType, "image/") {
		return "", fmt.Errorf("%s (%s): %w", path, mediaType, ErrNotImage)
	}

	if d.MaxWidth > 0 {
		if scaled, ok := d.downscale(data); ok {
			data, mediaType = scaled, "image/jpeg"
		}
	}

	return EncodeDataURI(mediaType, data), nil
}

// downscale returns a JPEG re-encoding of data when the image is wider than MaxWidth.
// Formats the standard library cannot decode are left untouched.
func (d FileDecoder) downscale(data []byte) ([]byte, bool) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil || uint(img.Bounds().Dx()) <= d.MaxWidth {
		return nil, false
	}
	scaled := resize.Resize(d.MaxWidth, 0, img, resize.Lanczos3)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: 85}); err != nil {
		return nil, false
	}
	return buf.Bytes(), true
}

// EncodeDataURI builds a base64 data URI for the payload.
func EncodeDataURI(mediaType string, data []byte) string {
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
