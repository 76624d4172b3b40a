package processing

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/menta2k/image-squarer/pkg/analyzer"
	"github.com/menta2k/image-squarer/pkg/types"
)

// EncodeFunc writes img as JPEG at the given quality (1-100).
type EncodeFunc func(w io.Writer, img image.Image, quality int) error

// Processor decodes source images and encodes normalized output
type Processor struct {
	client   *http.Client
	analyzer *analyzer.ImageAnalyzer
	encode   EncodeFunc
	quality  int
}

// NewProcessor creates a new image processor
func NewProcessor() *Processor {
	return &Processor{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		analyzer: analyzer.New(),
		encode:   encodeImaging,
		quality:  types.DefaultQuality,
	}
}

// WithQuality returns a copy of p encoding at the given JPEG quality.
func (p *Processor) WithQuality(quality int) *Processor {
	cp := *p
	cp.quality = quality
	return &cp
}

// Quality returns the JPEG quality used by EncodeJPEG.
func (p *Processor) Quality() int {
	return p.quality
}

// LoadImageFromURL downloads an image and returns its name and raw bytes
func (p *Processor) LoadImageFromURL(imageURL string) (types.Input, error) {
	// Validate URL
	parsedURL, err := url.Parse(imageURL)
	if err != nil {
		return types.Input{}, fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return types.Input{}, fmt.Errorf("unsupported URL scheme: %s (only http and https are supported)", parsedURL.Scheme)
	}

	req, err := http.NewRequest(http.MethodGet, imageURL, nil)
	if err != nil {
		return types.Input{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "Image-Squarer/1.0")

	resp, err := p.client.Do(req)
	if err != nil {
		return types.Input{}, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return types.Input{}, fmt.Errorf("failed to download image: HTTP %d %s", resp.StatusCode, resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return types.Input{}, fmt.Errorf("URL does not point to an image (Content-Type: %s)", contentType)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return types.Input{}, fmt.Errorf("failed to read image data: %w", err)
	}

	name := filepath.Base(parsedURL.Path)
	if name == "." || name == "/" {
		name = parsedURL.Host
	}
	return types.Input{Name: name, Data: data}, nil
}

// LoadImage reads a local image file without decoding it
func (p *Processor) LoadImage(path string) (types.Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Input{}, fmt.Errorf("failed to read image file: %w", err)
	}
	return types.Input{Name: filepath.Base(path), Data: data}, nil
}

// LoadImageSmart loads an image from either a file path or URL
func (p *Processor) LoadImageSmart(source string) (types.Input, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return p.LoadImageFromURL(source)
	}
	return p.LoadImage(source)
}

// Decode turns raw bytes into an image. EXIF orientation is applied so the
// result matches what a browser would render. Headers are inspected first so
// unsupported or oversized inputs are rejected before any pixel is decoded.
func (p *Processor) Decode(data []byte) (image.Image, error) {
	if _, err := p.analyzer.Inspect(data); err != nil && !errors.Is(err, analyzer.ErrHeader) {
		return nil, decodeError(err)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err == nil {
		return p.validDimensions(img)
	}

	// Fallback: explicit WebP decode for variants the registered decoder rejects
	if wimg, werr := webp.Decode(bytes.NewReader(data)); werr == nil {
		return p.validDimensions(wimg)
	}

	return nil, decodeError(err)
}

func (p *Processor) validDimensions(img image.Image) (image.Image, error) {
	if err := p.analyzer.ValidateInfo(analyzer.GetImageInfo(img.Bounds())); err != nil {
		return nil, decodeError(err)
	}
	return img, nil
}

func decodeError(err error) error {
	return &types.OpError{
		Op:   "processing.decode",
		Kind: types.KindDecode,
		Err:  fmt.Errorf("%w: %v", types.ErrDecode, err),
	}
}

// EncodeJPEG encodes img as JPEG. When the primary encoder fails, the image is
// flattened onto white and encoded with image/jpeg at the same quality.
func (p *Processor) EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := p.encode(&buf, img, p.quality); err == nil {
		return buf.Bytes(), nil
	}

	buf.Reset()
	if err := encodeFallback(&buf, img, p.quality); err != nil {
		return nil, &types.OpError{
			Op:   "processing.encode",
			Kind: types.KindEncode,
			Err:  fmt.Errorf("%w: %v", types.ErrEncode, err),
		}
	}
	return buf.Bytes(), nil
}

func encodeImaging(w io.Writer, img image.Image, quality int) error {
	return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality))
}

func encodeFallback(w io.Writer, img image.Image, quality int) error {
	b := img.Bounds()
	flat := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(flat, flat.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(flat, flat.Bounds(), img, b.Min, draw.Over)
	return jpeg.Encode(w, flat, &jpeg.Options{Quality: quality})
}

// SaveBytes writes encoded output to path, creating parent directories.
func (p *Processor) SaveBytes(data []byte, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
