package cropper

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/menta2k/image-squarer/pkg/types"
)

// PaddingColor fills the square canvas around the content.
var PaddingColor = color.NRGBA{R: 255, G: 255, B: 255, A: 255}

// SquareCropper composes detected content onto a square canvas and scales it
type SquareCropper struct {
	config CropConfig
}

// CropConfig holds configuration for square normalization
type CropConfig struct {
	// Filter is the resampling kernel for the final scale step.
	Filter imaging.ResampleFilter
}

// Filters that meet the output quality bar, keyed by config name.
var filters = map[string]imaging.ResampleFilter{
	"lanczos":    imaging.Lanczos,
	"catmullrom": imaging.CatmullRom,
}

// FilterByName resolves a resampling filter name ("lanczos", "catmullrom").
func FilterByName(name string) (imaging.ResampleFilter, error) {
	if name == "" {
		return imaging.Lanczos, nil
	}
	f, ok := filters[strings.ToLower(name)]
	if !ok {
		return imaging.ResampleFilter{}, fmt.Errorf("unsupported resize filter: %s", name)
	}
	return f, nil
}

// New creates a new SquareCropper with default configuration
func New() *SquareCropper {
	return &SquareCropper{
		config: CropConfig{
			Filter: imaging.Lanczos,
		},
	}
}

// NewWithConfig creates a new SquareCropper with custom configuration
func NewWithConfig(config CropConfig) *SquareCropper {
	if config.Filter.Kernel == nil {
		config.Filter = imaging.Lanczos
	}
	return &SquareCropper{config: config}
}

// CenterOffsets returns where a cropW x cropH region lands on its square canvas.
// Odd padding is floored, leaving the extra pixel on the right or bottom.
func CenterOffsets(cropW, cropH int) (squareSize, offsetX, offsetY int) {
	squareSize = cropW
	if cropH > squareSize {
		squareSize = cropH
	}
	return squareSize, (squareSize - cropW) / 2, (squareSize - cropH) / 2
}

// Composite copies the box region of img, unscaled, onto the center of a white
// square whose side is the longer box dimension.
func (c *SquareCropper) Composite(img image.Image, box types.BoundingBox) *image.NRGBA {
	bounds := img.Bounds()
	if !box.Valid(bounds.Dx(), bounds.Dy()) {
		panic(fmt.Sprintf("cropper: bounding box %v outside %dx%d image", box, bounds.Dx(), bounds.Dy()))
	}

	squareSize, offsetX, offsetY := CenterOffsets(box.Width(), box.Height())

	square := imaging.New(squareSize, squareSize, PaddingColor)
	region := imaging.Crop(img, box.Rect().Add(bounds.Min))

	return imaging.Overlay(square, region, image.Pt(offsetX, offsetY), 1.0)
}

// Normalize produces the outputSize x outputSize thumbnail for img.
// outputSize must already be validated by the caller.
func (c *SquareCropper) Normalize(img image.Image, box types.BoundingBox, outputSize int) *image.NRGBA {
	square := c.Composite(img, box)
	if square.Rect.Dx() == outputSize {
		return square
	}
	return imaging.Resize(square, outputSize, outputSize, c.config.Filter)
}
