package types

import (
	"fmt"
	"image"
)

// Output size bounds, inclusive.
const (
	MinOutputSize = 50
	MaxOutputSize = 5000
)

// DefaultQuality is the JPEG quality used for normalized images (0.95).
const DefaultQuality = 95

// BoundingBox is an inclusive pixel rectangle relative to the image origin.
type BoundingBox struct {
	Top    int `json:"top"`
	Bottom int `json:"bottom"`
	Left   int `json:"left"`
	Right  int `json:"right"`
}

// Width returns the number of columns covered by the box
func (b BoundingBox) Width() int {
	return b.Right - b.Left + 1
}

// Height returns the number of rows covered by the box
func (b BoundingBox) Height() int {
	return b.Bottom - b.Top + 1
}

// Rect converts the box to a half-open image.Rectangle.
func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(b.Left, b.Top, b.Right+1, b.Bottom+1)
}

// Valid reports whether the box lies inside a w x h buffer.
func (b BoundingBox) Valid(w, h int) bool {
	return b.Top >= 0 && b.Top <= b.Bottom && b.Bottom < h &&
		b.Left >= 0 && b.Left <= b.Right && b.Right < w
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("{top:%d bottom:%d left:%d right:%d}", b.Top, b.Bottom, b.Left, b.Right)
}

// Input is a named raw image supplied by an acquisition shell.
type Input struct {
	Name string
	Data []byte
}

// Result is one normalized, encoded image kept by a session.
type Result struct {
	Name string `json:"name"`
	Data []byte `json:"-"`
}

// Outcome reports what happened to a single input of a batch.
type Outcome struct {
	Name  string
	Index int // position in the session results, -1 when not stored
	Box   BoundingBox
	Err   error
}

// OK reports whether the input was normalized and stored.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// ValidateOutputSize checks the requested square side against the allowed range.
func ValidateOutputSize(size int) error {
	if size < MinOutputSize || size > MaxOutputSize {
		return &OpError{
			Op:   "validate_output_size",
			Kind: KindValidation,
			Err:  fmt.Errorf("%w: %d not in [%d, %d]", ErrInvalidOutputSize, size, MinOutputSize, MaxOutputSize),
		}
	}
	return nil
}
