// Package imaging validates uploaded images and produces thumbnail variants.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png" // register PNG decoder
	"net/http"

	"glimpse/internal/models"

	"github.com/chai2010/webp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register WebP decoder
)

const (
	// ThumbMaxSize is the bounding box for thumbnail variants.
	ThumbMaxSize = 512
	// JPEGQuality is the encoder quality for JPEG variants.
	JPEGQuality = 82
	// WebPQuality is the encoder quality for WebP variants.
	WebPQuality = 70
)

var allowedMIMETypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
}

// Validated is a decoded upload that passed type and size checks.
type Validated struct {
	Data        []byte
	ContentType string
	Format      string // "jpeg", "png" or "webp"
	Image       image.Image
}

// Validate re-checks an uploaded image server-side regardless of any
// client-side compression: size limit, sniffed MIME type, and a full
// decode so truncated or mislabeled files are rejected.
func Validate(data []byte, maxBytes int64) (*Validated, error) {
	if len(data) == 0 {
		return nil, models.NewValidationError("No image uploaded")
	}
	if int64(len(data)) > maxBytes {
		return nil, models.NewValidationError(fmt.Sprintf("Image too large (max %dMB)", maxBytes/(1024*1024)))
	}

	detected := http.DetectContentType(data)
	if _, ok := allowedMIMETypes[detected]; !ok {
		return nil, models.NewValidationError("Invalid image type (jpeg, png or webp required)")
	}

	decoded, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, models.NewValidationError("Invalid image file")
	}

	return &Validated{
		Data:        data,
		ContentType: detected,
		Format:      format,
		Image:       decoded,
	}, nil
}

// Thumbnail holds the encoded thumbnail variants of an image.
type Thumbnail struct {
	JPEG []byte
	WebP []byte
}

// MakeThumbnail downscales img to fit ThumbMaxSize and encodes JPEG and
// WebP variants. The WebP variant feeds clients that prefer it; JPEG is
// the universal fallback.
func MakeThumbnail(img image.Image) (*Thumbnail, error) {
	scaled := resizeToFit(img, ThumbMaxSize, ThumbMaxSize)

	var jpegBuf bytes.Buffer
	if err := jpeg.Encode(&jpegBuf, scaled, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg thumbnail: %w", err)
	}

	var webpBuf bytes.Buffer
	if err := webp.Encode(&webpBuf, scaled, &webp.Options{Quality: WebPQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode webp thumbnail: %w", err)
	}

	return &Thumbnail{JPEG: jpegBuf.Bytes(), WebP: webpBuf.Bytes()}, nil
}

// resizeToFit scales img down to fit within maxW x maxH, preserving the
// aspect ratio. Images already within bounds are returned unchanged.
func resizeToFit(img image.Image, maxW, maxH int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxW && h <= maxH {
		return img
	}

	scale := float64(maxW) / float64(w)
	if s := float64(maxH) / float64(h); s < scale {
		scale = s
	}
	dstW := int(float64(w) * scale)
	dstH := int(float64(h) * scale)
	if dstW < 1 {
		dstW = 1
	}
	if dstH < 1 {
		dstH = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, dstW, dstH))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Over, nil)
	return dst
}
