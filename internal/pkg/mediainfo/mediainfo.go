// Package mediainfo inspects uploaded files: content-sniffed MIME type,
// image dimensions with a thumbnail, and PDF page counts.
package mediainfo

import (
	"bytes"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// MaxPixels bounds the canvas Inspect will decode. Larger images keep their
// declared dimensions but get no thumbnail.
const MaxPixels = 40_000_000

type Info struct {
	MIME      string
	Extension string
	Width     int
	Height    int
	PageCount int
	// Thumbnail is a PNG no larger than the requested box, set for images only.
	Thumbnail []byte
}

// DetectMIME sniffs the content type, without parameters.
func DetectMIME(data []byte) (mime string, ext string) {
	m := mimetype.Detect(data)
	mime, _, _ = strings.Cut(m.String(), ";")
	return strings.TrimSpace(mime), m.Extension()
}

// Inspect gathers metadata for data. Failure to decode an image or a PDF is
// not an error; those fields stay zero.
func Inspect(data []byte, thumbSize int) Info {
	info := Info{}
	info.MIME, info.Extension = DetectMIME(data)

	switch {
	case strings.HasPrefix(info.MIME, "image/"):
		cfg, err := decodeConfig(data)
		if err != nil {
			return info
		}
		info.Width, info.Height = cfg.Width, cfg.Height
		if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
			return info
		}
		img, err := decodeImage(data)
		if err != nil {
			return info
		}
		if thumbSize > 0 {
			if thumb, err := Thumbnail(img, thumbSize); err == nil {
				info.Thumbnail = thumb
			}
		}
	case info.MIME == "application/pdf":
		if pages, err := PageCount(data); err == nil {
			info.PageCount = pages
		}
	}
	return info
}

func decodeConfig(data []byte) (image.Config, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return jpeg.DecodeConfig(bytes.NewReader(data))
	}
	return cfg, nil
}

func decodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		img, err = jpeg.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
	}
	return img, nil
}

// Thumbnail scales img to fit a size x size box, keeping the aspect ratio.
// Images already inside the box are re-encoded unscaled.
func Thumbnail(img image.Image, size int) ([]byte, error) {
	src := img.Bounds()
	w, h := src.Dx(), src.Dy()
	if w > size || h > size {
		if w >= h {
			h = max(1, h*size/w)
			w = size
		} else {
			w = max(1, w*size/h)
			h = size
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, src, draw.Over, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
