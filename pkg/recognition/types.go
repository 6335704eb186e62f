// Package recognition provides face localization, landmark extraction and
// embedding generation for classtrack. The dlib backend (go-face) supplies all
// three capabilities; the pigo backend supplies fast localization only, for the
// live tracking path where no embeddings are needed on every frame.
package recognition

import (
	"errors"
	"image"

	"github.com/Kagami/go-face"
)

// Descriptor is a 128-dimensional face descriptor from dlib.
type Descriptor = face.Descriptor

// Rectangle is a face bounding box in pixel coordinates of the source frame.
type Rectangle struct {
	X, Y          int
	Width, Height int
}

// Point is a 2D landmark coordinate.
type Point struct {
	X, Y float64
}

// Landmarks holds the named landmark groups for one face, following the
// 68-point dlib annotation scheme.
type Landmarks struct {
	Chin       []Point // jawline, 17 points
	NoseBridge []Point
	NoseTip    []Point
	LeftEye    []Point // subject's left eye (image right)
	RightEye   []Point // subject's right eye (image left)
	TopLip     []Point // corners at index 0 and 6
	BottomLip  []Point
}

// Engine is the full face analysis capability consumed by the enrollment
// pipeline: localization, landmark extraction and embedding generation.
type Engine interface {
	Locate(img image.Image) ([]Rectangle, error)
	Landmarks(img image.Image, boxes []Rectangle) ([]Landmarks, error)
	Descriptors(img image.Image, boxes []Rectangle) ([]Descriptor, error)
}

// Locator is the localization-only subset of Engine. The live tracking
// detector needs nothing more.
type Locator interface {
	Locate(img image.Image) ([]Rectangle, error)
}

// ErrNoFaceDetected is returned when no face is found in the image.
var ErrNoFaceDetected = errors.New("no face detected")

// ErrMultipleFaces is returned when multiple faces are detected.
var ErrMultipleFaces = errors.New("multiple faces detected")

// ErrModelNotLoaded is returned when models are not loaded.
var ErrModelNotLoaded = errors.New("recognition models not loaded")

// ErrNoLandmarks is returned when the landmark model yields no usable points.
var ErrNoLandmarks = errors.New("no landmarks extracted")

// Center returns the center point of the rectangle.
func (r Rectangle) Center() Point {
	return Point{
		X: float64(r.X) + float64(r.Width)/2,
		Y: float64(r.Y) + float64(r.Height)/2,
	}
}

// ImageRect converts to a stdlib image.Rectangle.
func (r Rectangle) ImageRect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// FromImageRect converts a stdlib image.Rectangle to a Rectangle.
func FromImageRect(r image.Rectangle) Rectangle {
	return Rectangle{
		X:      r.Min.X,
		Y:      r.Min.Y,
		Width:  r.Dx(),
		Height: r.Dy(),
	}
}
