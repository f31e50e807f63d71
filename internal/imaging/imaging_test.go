package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeTestJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 80, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func TestValidateAcceptsJPEGAndPNG(t *testing.T) {
	jpegData := encodeTestJPEG(t, 32, 32)
	v, err := Validate(jpegData, 5*1024*1024)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", v.ContentType)
	assert.Equal(t, "jpeg", v.Format)

	var pngBuf bytes.Buffer
	require.NoError(t, png.Encode(&pngBuf, image.NewRGBA(image.Rect(0, 0, 8, 8))))
	v, err = Validate(pngBuf.Bytes(), 5*1024*1024)
	require.NoError(t, err)
	assert.Equal(t, "image/png", v.ContentType)
}

func TestValidateRejections(t *testing.T) {
	t.Run("empty upload", func(t *testing.T) {
		_, err := Validate(nil, 5*1024*1024)
		assert.Error(t, err)
	})

	t.Run("oversized upload", func(t *testing.T) {
		data := encodeTestJPEG(t, 64, 64)
		_, err := Validate(data, int64(len(data))-1)
		assert.Error(t, err)
	})

	t.Run("non-image bytes", func(t *testing.T) {
		_, err := Validate([]byte("plain text pretending to be an image"), 5*1024*1024)
		assert.Error(t, err)
	})

	t.Run("truncated image", func(t *testing.T) {
		data := encodeTestJPEG(t, 64, 64)
		_, err := Validate(data[:32], 5*1024*1024)
		assert.Error(t, err)
	})
}

func TestMakeThumbnailDownscales(t *testing.T) {
	big := image.NewRGBA(image.Rect(0, 0, 2048, 1024))
	thumb, err := MakeThumbnail(big)
	require.NoError(t, err)
	require.NotEmpty(t, thumb.JPEG)
	require.NotEmpty(t, thumb.WebP)

	decoded, _, err := image.Decode(bytes.NewReader(thumb.JPEG))
	require.NoError(t, err)
	assert.LessOrEqual(t, decoded.Bounds().Dx(), ThumbMaxSize)
	assert.LessOrEqual(t, decoded.Bounds().Dy(), ThumbMaxSize)
	// Aspect ratio preserved: 2:1 input stays 2:1.
	assert.Equal(t, decoded.Bounds().Dx(), decoded.Bounds().Dy()*2)
}

func TestMakeThumbnailKeepsSmallImages(t *testing.T) {
	small := image.NewRGBA(image.Rect(0, 0, 100, 80))
	thumb, err := MakeThumbnail(small)
	require.NoError(t, err)

	decoded, _, err := image.Decode(bytes.NewReader(thumb.JPEG))
	require.NoError(t, err)
	assert.Equal(t, 100, decoded.Bounds().Dx())
	assert.Equal(t, 80, decoded.Bounds().Dy())
}
