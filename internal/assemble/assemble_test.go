package assemble

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func solid(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 40, B: 40, A: 255})
		}
	}
	return img
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, solid(w, h)))
	return buf.Bytes()
}

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, solid(w, h), nil))
	return buf.Bytes()
}

func TestPageName(t *testing.T) {
	assert.Equal(t, "page-1.png", PageName(0, pngBytes(t, 2, 2)))
	assert.Equal(t, "page-3.jpg", PageName(2, jpegBytes(t, 2, 2)))
}

func TestWriteZip(t *testing.T) {
	pages := [][]byte{jpegBytes(t, 8, 8), jpegBytes(t, 8, 10), pngBytes(t, 4, 4)}

	var buf bytes.Buffer
	require.NoError(t, WriteZip(&buf, pages))

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 3)

	wantNames := []string{"page-1.jpg", "page-2.jpg", "page-3.png"}
	for i, f := range zr.File {
		assert.Equal(t, wantNames[i], f.Name)

		rc, err := f.Open()
		require.NoError(t, err)
		got, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		assert.Equal(t, pages[i], got, "entry %s content", f.Name)
	}
}

func TestWriteZip_NoPages(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, WriteZip(&buf, nil), ErrNoPages)
	assert.Zero(t, buf.Len())
}

func TestBuildPDF(t *testing.T) {
	pages := [][]byte{jpegBytes(t, 60, 80), pngBytes(t, 50, 50), jpegBytes(t, 80, 60)}

	data, err := BuildPDF(pages)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, []byte("%PDF-")), "output should start with PDF header")

	ctx, err := api.ReadContext(bytes.NewReader(data), model.NewDefaultConfiguration())
	require.NoError(t, err)
	assert.Equal(t, 3, ctx.PageCount)
}

func TestBuildPDF_Errors(t *testing.T) {
	t.Run("no pages", func(t *testing.T) {
		_, err := BuildPDF(nil)
		assert.ErrorIs(t, err, ErrNoPages)
	})

	t.Run("not an image", func(t *testing.T) {
		_, err := BuildPDF([][]byte{jpegBytes(t, 4, 4), []byte("not an image")})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "page 2")
	})
}
