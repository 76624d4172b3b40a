// Package imagesquarer turns arbitrarily framed product photos into square,
// uniformly sized thumbnails.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"log"
//		"os"
//
//		imagesquarer "github.com/menta2k/image-squarer"
//		"github.com/menta2k/image-squarer/pkg/types"
//	)
//
//	func main() {
//		sq := imagesquarer.New()
//
//		session, err := sq.NewSession(800, nil)
//		if err != nil {
//			log.Fatal(err) // output size outside [50, 5000]
//		}
//
//		data, _ := os.ReadFile("shoe.jpg")
//		outcomes, _ := session.Process(context.Background(), []types.Input{{Name: "shoe.jpg", Data: data}})
//		for _, o := range outcomes {
//			if o.Err != nil {
//				log.Printf("%s: %v", o.Name, o.Err)
//			}
//		}
//
//		for _, r := range session.Results() {
//			_ = os.WriteFile("square_"+r.Name, r.Data, 0o644)
//		}
//	}
//
// Each image flows through three stages:
//
// 1. Background (pkg/background): near-white or transparent pixels are background
// 2. Vision (pkg/vision): the tightest box around non-background pixels
// 3. Cropper (pkg/cropper): the box is centered on a white square and resampled
//
// Decoding and JPEG encoding live in pkg/processing. A Session batches inputs,
// keeps results in input order and locks the output size while results exist.
package imagesquarer

import (
	"fmt"
	"image"

	"github.com/menta2k/image-squarer/pkg/cropper"
	"github.com/menta2k/image-squarer/pkg/processing"
	"github.com/menta2k/image-squarer/pkg/types"
	"github.com/menta2k/image-squarer/pkg/vision"
)

// Version of the image squarer library
const Version = "1.0.0"

// Squarer wires detection, compositing and encoding into one pipeline
type Squarer struct {
	detector  *vision.ContentDetector
	cropper   *cropper.SquareCropper
	processor *processing.Processor
}

// New creates a new Squarer with default configuration
func New() *Squarer {
	return &Squarer{
		detector:  vision.New(),
		cropper:   cropper.New(),
		processor: processing.NewProcessor(),
	}
}

// NewWithConfig creates a new Squarer with custom configuration
func NewWithConfig(visionConfig vision.DetectionConfig, cropConfig cropper.CropConfig, quality int) *Squarer {
	return &Squarer{
		detector:  vision.NewWithConfig(visionConfig),
		cropper:   cropper.NewWithConfig(cropConfig),
		processor: processing.NewProcessor().WithQuality(quality),
	}
}

// Processor exposes the codec used by the pipeline
func (s *Squarer) Processor() *processing.Processor {
	return s.processor
}

// DetectBoundingBox finds the content box of a decoded image
func (s *Squarer) DetectBoundingBox(img image.Image) types.BoundingBox {
	return s.detector.DetectBoundingBox(img)
}

// NormalizeImage produces the square thumbnail for a decoded image.
// outputSize must already be validated.
func (s *Squarer) NormalizeImage(img image.Image, outputSize int) (*image.NRGBA, types.BoundingBox) {
	box := s.detector.DetectBoundingBox(img)
	return s.cropper.Normalize(img, box, outputSize), box
}

// ProcessBytes runs decode, detect, normalize and encode for one input.
func (s *Squarer) ProcessBytes(name string, data []byte, outputSize int) ([]byte, types.BoundingBox, error) {
	img, err := s.processor.Decode(data)
	if err != nil {
		return nil, types.BoundingBox{}, withName(err, name)
	}

	out, box := s.NormalizeImage(img, outputSize)

	encoded, err := s.processor.EncodeJPEG(out)
	if err != nil {
		return nil, box, withName(err, name)
	}
	return encoded, box, nil
}

// withName attaches the source name to pipeline errors
func withName(err error, name string) error {
	if oe, ok := err.(*types.OpError); ok {
		cp := *oe
		cp.Name = name
		return &cp
	}
	return fmt.Errorf("%s: %w", name, err)
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
