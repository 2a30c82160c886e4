package assemble

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	"github.com/go-pdf/fpdf"
	_ "golang.org/x/image/webp"
)

// imageTypes maps image.DecodeConfig format names to fpdf image types.
var imageTypes = map[string]string{
	"jpeg": "JPG",
	"png":  "PNG",
	"gif":  "GIF",
}

// BuildPDF rebuilds a PDF with one page per image. Each page has the
// pixel dimensions of its image, in points, with the image filling it.
func BuildPDF(pages [][]byte) ([]byte, error) {
	if len(pages) == 0 {
		return nil, ErrNoPages
	}

	doc := fpdf.New("P", "pt", "A4", "")
	doc.SetMargins(0, 0, 0)
	doc.SetAutoPageBreak(false, 0)

	for i, p := range pages {
		cfg, format, err := image.DecodeConfig(bytes.NewReader(p))
		if err != nil {
			return nil, fmt.Errorf("assemble: page %d: %w", i+1, err)
		}
		tp, ok := imageTypes[format]
		if !ok {
			// Formats the PDF writer cannot embed are converted to PNG.
			if p, err = toPNG(p); err != nil {
				return nil, fmt.Errorf("assemble: page %d: converting %s: %w", i+1, format, err)
			}
			tp = "PNG"
		}

		name := fmt.Sprintf("page-%d", i+1)
		opt := fpdf.ImageOptions{ImageType: tp}
		doc.RegisterImageOptionsReader(name, opt, bytes.NewReader(p))

		w, h := float64(cfg.Width), float64(cfg.Height)
		doc.AddPageFormat("P", fpdf.SizeType{Wd: w, Ht: h})
		doc.ImageOptions(name, 0, 0, w, h, false, opt, 0, "")

		if err := doc.Error(); err != nil {
			return nil, fmt.Errorf("assemble: page %d: %w", i+1, err)
		}
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("assemble: writing pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func toPNG(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
