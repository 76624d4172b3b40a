package analyzer

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"strings"
)

// ErrHeader is returned by Inspect when no registered format recognizes the header.
var ErrHeader = errors.New("unreadable image header")

// DefaultMaxPixels bounds the decoded size of a single source image.
const DefaultMaxPixels = 100_000_000

// ImageAnalyzer inspects encoded image headers before a full decode
type ImageAnalyzer struct {
	config Config
}

// Config holds configuration for the image analyzer
type Config struct {
	SupportedFormats []string
	// MaxPixels rejects images whose width*height exceeds it. Zero disables the check.
	MaxPixels int
}

// ImageInfo contains basic image metadata
type ImageInfo struct {
	Format      string
	Width       int
	Height      int
	AspectRatio float64
	Area        int
}

// New creates a new ImageAnalyzer with default configuration
func New() *ImageAnalyzer {
	return &ImageAnalyzer{
		config: Config{
			SupportedFormats: []string{"jpeg", "png", "gif", "webp", "bmp", "tiff"},
			MaxPixels:        DefaultMaxPixels,
		},
	}
}

// NewWithConfig creates a new ImageAnalyzer with custom configuration
func NewWithConfig(config Config) *ImageAnalyzer {
	return &ImageAnalyzer{config: config}
}

// Inspect reads only the header of data and reports its format and size.
// It fails for unknown or unsupported formats and for oversized images.
func (a *ImageAnalyzer) Inspect(data []byte) (ImageInfo, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ImageInfo{}, fmt.Errorf("%w: %v", ErrHeader, err)
	}

	if !a.isFormatSupported(format) {
		return ImageInfo{}, fmt.Errorf("unsupported image format: %s", format)
	}

	info := GetImageInfo(image.Rect(0, 0, cfg.Width, cfg.Height))
	info.Format = format
	if err := a.ValidateInfo(info); err != nil {
		return ImageInfo{}, err
	}
	return info, nil
}

// ValidateInfo checks if image dimensions are usable
func (a *ImageAnalyzer) ValidateInfo(info ImageInfo) error {
	if info.Width <= 0 || info.Height <= 0 {
		return fmt.Errorf("empty image: %dx%d", info.Width, info.Height)
	}
	if a.config.MaxPixels > 0 && info.Area > a.config.MaxPixels {
		return fmt.Errorf("image too large: %dx%d (maximum: %d pixels)",
			info.Width, info.Height, a.config.MaxPixels)
	}
	return nil
}

// GetImageInfo returns basic information about an image rectangle
func GetImageInfo(bounds image.Rectangle) ImageInfo {
	width := bounds.Dx()
	height := bounds.Dy()

	info := ImageInfo{
		Width:  width,
		Height: height,
		Area:   width * height,
	}
	if height > 0 {
		info.AspectRatio = float64(width) / float64(height)
	}
	return info
}

func (a *ImageAnalyzer) isFormatSupported(format string) bool {
	for _, supported := range a.config.SupportedFormats {
		if strings.EqualFold(format, supported) {
			return true
		}
	}
	return false
}
