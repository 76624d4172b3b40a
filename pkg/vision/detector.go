package vision

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"github.com/menta2k/image-squarer/pkg/background"
	"github.com/menta2k/image-squarer/pkg/types"
)

// ContentDetector finds the region of an image that is not background
type ContentDetector struct {
	config DetectionConfig
}

// DetectionConfig holds configuration for content detection
type DetectionConfig struct {
	// Classifier decides whether a pixel is background. Nil means background.IsBackground.
	Classifier background.Func
}

// New creates a new ContentDetector with default configuration
func New() *ContentDetector {
	return &ContentDetector{
		config: DetectionConfig{
			Classifier: background.IsBackground,
		},
	}
}

// NewWithConfig creates a new ContentDetector with custom configuration
func NewWithConfig(config DetectionConfig) *ContentDetector {
	if config.Classifier == nil {
		config.Classifier = background.IsBackground
	}
	return &ContentDetector{config: config}
}

// DetectBoundingBox returns the tightest box enclosing every non-background pixel.
// An all-background image yields the single pixel box {0,0,0,0}.
func (d *ContentDetector) DetectBoundingBox(img image.Image) types.BoundingBox {
	box, _ := d.Classify(img)
	return box
}

// Classify is DetectBoundingBox that also reports whether any content pixel exists.
func (d *ContentDetector) Classify(img image.Image) (types.BoundingBox, bool) {
	buf := toNRGBA(img)
	w, h := buf.Rect.Dx(), buf.Rect.Dy()
	if w == 0 || h == 0 {
		return types.BoundingBox{}, false
	}

	top, bottom, left, right := 0, h-1, 0, w-1

	for top < bottom && !d.rowHasContent(buf, top) {
		top++
	}
	for bottom > top && !d.rowHasContent(buf, bottom) {
		bottom--
	}
	for left < right && !d.colHasContent(buf, left) {
		left++
	}
	for right > left && !d.colHasContent(buf, right) {
		right--
	}

	box := types.BoundingBox{Top: top, Bottom: bottom, Left: left, Right: right}

	// The scans stop on the opposite edge, so a blank image collapses onto
	// the last row/column it reached. Pin it to the origin.
	if !d.rowHasContent(buf, top) {
		return types.BoundingBox{}, false
	}
	return box, true
}

func (d *ContentDetector) rowHasContent(buf *image.NRGBA, y int) bool {
	w := buf.Rect.Dx()
	i := y * buf.Stride
	for x := 0; x < w; x++ {
		if !d.config.Classifier(pixelAt(buf, i)) {
			return true
		}
		i += 4
	}
	return false
}

func (d *ContentDetector) colHasContent(buf *image.NRGBA, x int) bool {
	h := buf.Rect.Dy()
	i := x * 4
	for y := 0; y < h; y++ {
		if !d.config.Classifier(pixelAt(buf, i)) {
			return true
		}
		i += buf.Stride
	}
	return false
}

func pixelAt(buf *image.NRGBA, i int) color.NRGBA {
	p := buf.Pix[i : i+4 : i+4]
	return color.NRGBA{R: p[0], G: p[1], B: p[2], A: p[3]}
}

// toNRGBA returns a zero-origin NRGBA view of img, copying only when needed.
func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	return imaging.Clone(img)
}
