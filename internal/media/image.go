package media

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"
	"github.com/jon4hz/foodgram/internal/config"
)

var (
	// ErrInvalidImage indicates that a payload is not a decodable image.
	ErrInvalidImage = errors.New("invalid image")
	// ErrTooLarge indicates that a payload exceeds the configured upload limit.
	ErrTooLarge = errors.New("image too large")
)

// DefaultMaxPixels is the pixel limit used when none is configured.
const DefaultMaxPixels = 40_000_000

// Image is a normalized image ready to be stored.
type Image struct {
	Data        []byte
	Ext         string
	ContentType string
	Width       int
	Height      int
}

// Processor decodes client uploads, scales them down and re-encodes them.
type Processor struct {
	maxWidth  int
	maxHeight int
	quality   int
	maxBytes  int64
	maxPixels int64
}

// NewProcessor creates a processor from the media configuration.
func NewProcessor(cfg *config.MediaConfig) *Processor {
	p := &Processor{
		maxWidth:  cfg.MaxWidth,
		maxHeight: cfg.MaxHeight,
		quality:   cfg.Quality,
		maxBytes:  cfg.MaxUploadBytes,
		maxPixels: cfg.MaxPixels,
	}
	if p.maxPixels <= 0 {
		p.maxPixels = DefaultMaxPixels
	}
	return p
}

// ParseDataURI extracts the payload of a data:image/<ext>;base64,<payload> string.
func ParseDataURI(s string) ([]byte, error) {
	header, payload, ok := strings.Cut(strings.TrimSpace(s), ",")
	if !ok {
		return nil, fmt.Errorf("%w: not a data uri", ErrInvalidImage)
	}
	if !strings.HasPrefix(header, "data:image/") || !strings.HasSuffix(header, ";base64") {
		return nil, fmt.Errorf("%w: expected a base64 encoded image data uri", ErrInvalidImage)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}
	return data, nil
}

// ReadLimited reads an upload body, failing with ErrTooLarge once the limit is exceeded.
func (p *Processor) ReadLimited(r io.Reader) ([]byte, error) {
	if p.maxBytes <= 0 {
		return io.ReadAll(r)
	}
	data, err := io.ReadAll(io.LimitReader(r, p.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > p.maxBytes {
		return nil, ErrTooLarge
	}
	return data, nil
}

// Process decodes raw image bytes, fits them into the configured bounds and re-encodes them.
// PNG and GIF input is stored as PNG to keep transparency, everything else as JPEG.
func (p *Processor) Process(raw []byte) (*Image, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty payload", ErrInvalidImage)
	}
	if p.maxBytes > 0 && int64(len(raw)) > p.maxBytes {
		return nil, ErrTooLarge
	}

	header, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}
	// decoding allocates the full declared size before any resizing
	if pixels := int64(header.Width) * int64(header.Height); pixels > p.maxPixels {
		return nil, fmt.Errorf("%w: %dx%d exceeds the limit of %d pixels", ErrInvalidImage, header.Width, header.Height, p.maxPixels)
	}

	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}

	bounds := img.Bounds()
	if bounds.Dx() > p.maxWidth || bounds.Dy() > p.maxHeight {
		img = imaging.Fit(img, p.maxWidth, p.maxHeight, imaging.Lanczos)
		log.Debug("Resized image", "from", fmt.Sprintf("%dx%d", bounds.Dx(), bounds.Dy()),
			"to", fmt.Sprintf("%dx%d", img.Bounds().Dx(), img.Bounds().Dy()))
	}

	out := &Image{
		Width:  img.Bounds().Dx(),
		Height: img.Bounds().Dy(),
	}

	var buf bytes.Buffer
	switch format {
	case "png", "gif":
		err = imaging.Encode(&buf, img, imaging.PNG, imaging.PNGCompressionLevel(6))
		out.Ext, out.ContentType = ".png", "image/png"
	default:
		err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(p.quality))
		out.Ext, out.ContentType = ".jpg", "image/jpeg"
	}
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	out.Data = buf.Bytes()
	return out, nil
}
