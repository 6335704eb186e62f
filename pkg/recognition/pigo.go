package recognition

import (
	"fmt"
	"image"
	"os"

	pigo "github.com/esimov/pigo/core"

	"github.com/attendly/classtrack/pkg/logging"
)

const (
	pigoMinSize      = 20
	pigoMaxSize      = 1000
	pigoShiftFactor  = 0.1
	pigoScaleFactor  = 1.1
	pigoIOUThreshold = 0.2
	pigoMinQuality   = 5.0
)

// PigoLocator implements Locator with the pure-Go pigo cascade classifier.
// It has no landmark or embedding capability, but it is fast enough to run
// on live video without cgo, which is exactly what the tracking detector
// needs.
type PigoLocator struct {
	classifier *pigo.Pigo
}

// NewPigoLocator loads the pigo facefinder cascade from disk.
func NewPigoLocator(cascadePath string) (*PigoLocator, error) {
	cascade, err := os.ReadFile(cascadePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read cascade file: %w", err)
	}

	classifier, err := pigo.NewPigo().Unpack(cascade)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack cascade: %w", err)
	}

	logging.Component("recognition").Debugf("pigo cascade loaded from %s", cascadePath)
	return &PigoLocator{classifier: classifier}, nil
}

// Locate runs the cascade over the frame and returns clustered face boxes.
func (l *PigoLocator) Locate(img image.Image) ([]Rectangle, error) {
	if l.classifier == nil {
		return nil, ErrModelNotLoaded
	}

	bounds := img.Bounds()
	params := pigo.CascadeParams{
		MinSize:     pigoMinSize,
		MaxSize:     pigoMaxSize,
		ShiftFactor: pigoShiftFactor,
		ScaleFactor: pigoScaleFactor,
		ImageParams: pigo.ImageParams{
			Pixels: grayPixels(img),
			Rows:   bounds.Dy(),
			Cols:   bounds.Dx(),
			Dim:    bounds.Dx(),
		},
	}

	dets := l.classifier.RunCascade(params, 0.0)
	dets = l.classifier.ClusterDetections(dets, pigoIOUThreshold)

	var boxes []Rectangle
	for _, det := range dets {
		if det.Q < pigoMinQuality {
			continue
		}
		boxes = append(boxes, Rectangle{
			X:      det.Col - det.Scale/2,
			Y:      det.Row - det.Scale/2,
			Width:  det.Scale,
			Height: det.Scale,
		})
	}
	return boxes, nil
}

// grayPixels converts an image to the flat grayscale slice pigo expects.
func grayPixels(img image.Image) []uint8 {
	bounds := img.Bounds()
	gray := make([]uint8, bounds.Dx()*bounds.Dy())

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			gray[(y-bounds.Min.Y)*bounds.Dx()+(x-bounds.Min.X)] = uint8((r*299 + g*587 + b*114) / 1000 >> 8)
		}
	}

	return gray
}
