package media

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"

	"github.com/Baaaki/foodgram/internal/apperrors"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Image is a validated, possibly downscaled image ready for storage.
type Image struct {
	Data        []byte
	Ext         string
	ContentType string
	Width       int
	Height      int
}

// MaxPixels caps width*height of an upload. Decoders allocate the whole
// pixel buffer from the header, so larger images are refused unread.
const MaxPixels = 40_000_000

// Processor validates uploads and bounds their dimensions.
type Processor struct {
	maxDimension int
	quality      int
}

func NewProcessor(maxDimension, quality int) *Processor {
	if quality <= 0 || quality > 100 {
		quality = 85
	}
	return &Processor{maxDimension: maxDimension, quality: quality}
}

// Process decodes the upload. Images within maxDimension keep their original
// bytes; larger ones are scaled down and re-encoded (JPEG stays JPEG,
// everything else becomes PNG).
func (p *Processor) Process(u *Upload) (*Image, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(u.Data))
	if err != nil {
		return nil, invalidImage(err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, invalidImage(fmt.Errorf("image is %dx%d, limit is %d pixels", cfg.Width, cfg.Height, MaxPixels))
	}

	img, format, err := image.Decode(bytes.NewReader(u.Data))
	if err != nil {
		return nil, invalidImage(err)
	}

	bounds := img.Bounds()
	if p.maxDimension <= 0 || (bounds.Dx() <= p.maxDimension && bounds.Dy() <= p.maxDimension) {
		ext, contentType := formatInfo(format)
		return &Image{
			Data:        u.Data,
			Ext:         ext,
			ContentType: contentType,
			Width:       bounds.Dx(),
			Height:      bounds.Dy(),
		}, nil
	}

	resized := p.resize(img, p.maxDimension)

	var buf bytes.Buffer
	if format == "jpeg" {
		err = jpeg.Encode(&buf, resized, &jpeg.Options{Quality: p.quality})
	} else {
		format = "png"
		err = png.Encode(&buf, resized)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", format, err)
	}

	ext, contentType := formatInfo(format)
	return &Image{
		Data:        buf.Bytes(),
		Ext:         ext,
		ContentType: contentType,
		Width:       resized.Bounds().Dx(),
		Height:      resized.Bounds().Dy(),
	}, nil
}

func invalidImage(err error) error {
	return apperrors.Wrap(err, apperrors.ErrInvalidImage.Code, apperrors.ErrInvalidImage.Message, apperrors.ErrInvalidImage.HTTPCode)
}

// resize fits img into a box x box square keeping the aspect ratio.
func (p *Processor) resize(img image.Image, box int) image.Image {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	newWidth, newHeight := box, box
	if width >= height {
		newHeight = height * box / width
	} else {
		newWidth = width * box / height
	}
	if newWidth < 1 {
		newWidth = 1
	}
	if newHeight < 1 {
		newHeight = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	return dst
}

func formatInfo(format string) (ext, contentType string) {
	switch format {
	case "jpeg":
		return "jpg", "image/jpeg"
	case "gif":
		return "gif", "image/gif"
	case "webp":
		return "webp", "image/webp"
	default:
		return "png", "image/png"
	}
}
