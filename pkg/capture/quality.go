// Package capture implements guided multi-pose face enrollment: frame quality
// gates, landmark-based pose validation and the stage-driven state machine
// that aggregates accepted samples into one robust face encoding.
package capture

import (
	"image"
	"image/draw"

	"github.com/attendly/classtrack/pkg/recognition"
)

// Default quality thresholds, tuned for consumer webcams.
const (
	// DefaultMinBrightness is the minimum mean grayscale intensity.
	DefaultMinBrightness = 40
	// DefaultMaxBrightness is the maximum mean grayscale intensity.
	DefaultMaxBrightness = 220
	// DefaultMinFaceRatio requires the face to span at least this fraction
	// of the frame width.
	DefaultMinFaceRatio = 0.15
	// DefaultBlurThreshold is the minimum Laplacian variance. Very lenient;
	// webcam streams rarely produce tack-sharp frames.
	DefaultBlurThreshold = 5.0
)

// The face center must stay within the central 60% of the frame.
const positionMargin = 0.2

// Verdict is the outcome of a single quality gate.
type Verdict struct {
	OK      bool
	Message string
	Value   float64 // measured brightness or Laplacian variance, where relevant
}

// QualityGates bundles the per-frame quality predicates with their
// thresholds.
type QualityGates struct {
	MinBrightness float64
	MaxBrightness float64
	MinFaceRatio  float64
	BlurThreshold float64
}

// DefaultQualityGates returns gates with the default thresholds.
func DefaultQualityGates() QualityGates {
	return QualityGates{
		MinBrightness: DefaultMinBrightness,
		MaxBrightness: DefaultMaxBrightness,
		MinFaceRatio:  DefaultMinFaceRatio,
		BlurThreshold: DefaultBlurThreshold,
	}
}

// CheckLighting verifies the mean grayscale intensity of the whole frame
// falls inside the acceptable band.
func (q QualityGates) CheckLighting(frame image.Image) Verdict {
	gray := toGray(frame)
	brightness := meanIntensity(gray)

	if brightness < q.MinBrightness {
		return Verdict{
			Message: "Too dark - please improve lighting",
			Value:   brightness,
		}
	}
	if brightness > q.MaxBrightness {
		return Verdict{
			Message: "Too bright - reduce lighting or move away from window",
			Value:   brightness,
		}
	}

	return Verdict{OK: true, Message: "Lighting is good", Value: brightness}
}

// CheckPosition validates the face size and its placement within the frame.
// The message names the correction the user should make, not the direction
// of drift.
func (q QualityGates) CheckPosition(box recognition.Rectangle, frameWidth, frameHeight int) Verdict {
	faceRatio := float64(box.Width) / float64(frameWidth)
	if faceRatio < q.MinFaceRatio {
		return Verdict{Message: "Move closer to the camera"}
	}

	center := box.Center()

	leftBound := float64(frameWidth) * positionMargin
	rightBound := float64(frameWidth) * (1 - positionMargin)
	if center.X < leftBound {
		return Verdict{Message: "Move to the right"}
	}
	if center.X > rightBound {
		return Verdict{Message: "Move to the left"}
	}

	topBound := float64(frameHeight) * positionMargin
	bottomBound := float64(frameHeight) * (1 - positionMargin)
	if center.Y < topBound {
		return Verdict{Message: "Move down"}
	}
	if center.Y > bottomBound {
		return Verdict{Message: "Move up"}
	}

	return Verdict{OK: true, Message: "Position is good"}
}

// CheckBlur rejects frames whose Laplacian variance falls below the
// sharpness threshold.
func (q QualityGates) CheckBlur(frame image.Image) Verdict {
	gray := toGray(frame)
	variance := laplacianVariance(gray)

	if variance < q.BlurThreshold {
		return Verdict{
			Message: "Image is blurry - hold still",
			Value:   variance,
		}
	}

	return Verdict{OK: true, Message: "Image is sharp", Value: variance}
}

// toGray converts any image to grayscale. Already-gray images pass through.
func toGray(img image.Image) *image.Gray {
	if gray, ok := img.(*image.Gray); ok {
		return gray
	}

	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	draw.Draw(gray, bounds, img, bounds.Min, draw.Src)
	return gray
}

// meanIntensity returns the mean pixel value of a grayscale image.
func meanIntensity(gray *image.Gray) float64 {
	bounds := gray.Bounds()
	total := bounds.Dx() * bounds.Dy()
	if total == 0 {
		return 0
	}

	var sum uint64
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		row := gray.Pix[(y-bounds.Min.Y)*gray.Stride:]
		for x := 0; x < bounds.Dx(); x++ {
			sum += uint64(row[x])
		}
	}
	return float64(sum) / float64(total)
}

// laplacianVariance measures edge response with a 4-neighbor Laplacian
// kernel and returns the variance of the response over interior pixels.
// Low variance means few edges, i.e. a blurry or featureless frame.
func laplacianVariance(gray *image.Gray) float64 {
	bounds := gray.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w < 3 || h < 3 {
		return 0
	}

	at := func(x, y int) float64 {
		return float64(gray.Pix[y*gray.Stride+x])
	}

	n := float64((w - 2) * (h - 2))
	var sum, sumSq float64
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			v := at(x-1, y) + at(x+1, y) + at(x, y-1) + at(x, y+1) - 4*at(x, y)
			sum += v
			sumSq += v * v
		}
	}

	mean := sum / n
	return sumSq/n - mean*mean
}
