// Package background decides which pixels count as empty backdrop.
package background

import "image/color"

const (
	// AlphaThreshold marks pixels below this alpha as transparent.
	AlphaThreshold = 10
	// WhiteTolerance is the fraction of 255 a channel may fall below pure white.
	WhiteTolerance = 0.05
)

// whiteCutoff is 255 - 255*WhiteTolerance (242.25). Channels must be strictly above it.
const whiteCutoff = 255 - 255*WhiteTolerance

// Func classifies a single pixel.
type Func func(c color.NRGBA) bool

// IsBackground reports whether a pixel is transparent or near-white.
func IsBackground(c color.NRGBA) bool {
	if c.A < AlphaThreshold {
		return true
	}
	return float64(c.R) > whiteCutoff && float64(c.G) > whiteCutoff && float64(c.B) > whiteCutoff
}
