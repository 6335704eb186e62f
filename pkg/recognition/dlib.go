package recognition

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"sync"

	"github.com/Kagami/go-face"

	"github.com/attendly/classtrack/pkg/logging"
)

// faceEngine abstracts the go-face recognizer so tests can run without the
// dlib models on disk.
type faceEngine interface {
	Recognize(imgData []byte) ([]face.Face, error)
	Close()
}

type engineFactory func(modelDir string) (faceEngine, error)

func dlibFactory(modelDir string) (faceEngine, error) {
	return face.NewRecognizer(modelDir)
}

// DlibEngine implements Engine using dlib via go-face. The model directory
// must contain the dlib resnet recognition model and the 68-point shape
// predictor; without the 68-point predictor landmark extraction fails and
// pose validation cannot run.
type DlibEngine struct {
	mu        sync.RWMutex
	engine    faceEngine
	modelPath string
	loaded    bool
	factory   engineFactory
}

// NewDlibEngine creates an unloaded DlibEngine. Call LoadModels before use.
func NewDlibEngine() *DlibEngine {
	return &DlibEngine{factory: dlibFactory}
}

// LoadModels loads the dlib models from the specified directory.
func (e *DlibEngine) LoadModels(modelPath string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.loaded {
		return nil
	}

	logging.Component("recognition").Infof("loading dlib models from %s", modelPath)

	engine, err := e.factory(modelPath)
	if err != nil {
		return fmt.Errorf("failed to load models: %w", err)
	}

	e.engine = engine
	e.modelPath = modelPath
	e.loaded = true
	return nil
}

// IsLoaded returns true if models are loaded.
func (e *DlibEngine) IsLoaded() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.loaded
}

// Close releases the underlying dlib resources.
func (e *DlibEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.engine != nil {
		e.engine.Close()
		e.engine = nil
	}
	e.loaded = false
	return nil
}

// Locate returns the bounding boxes of all faces in the frame.
func (e *DlibEngine) Locate(img image.Image) ([]Rectangle, error) {
	faces, err := e.recognize(img)
	if err != nil {
		return nil, err
	}

	boxes := make([]Rectangle, len(faces))
	for i, f := range faces {
		boxes[i] = FromImageRect(f.Rectangle)
	}
	return boxes, nil
}

// Landmarks extracts named landmark groups for each requested box.
func (e *DlibEngine) Landmarks(img image.Image, boxes []Rectangle) ([]Landmarks, error) {
	faces, err := e.recognize(img)
	if err != nil {
		return nil, err
	}

	result := make([]Landmarks, 0, len(boxes))
	for _, box := range boxes {
		f := closestFace(faces, box)
		if f == nil {
			return nil, ErrNoLandmarks
		}
		lm, ok := mapShapes(f.Shapes)
		if !ok {
			return nil, ErrNoLandmarks
		}
		result = append(result, lm)
	}
	return result, nil
}

// Descriptors returns the 128-d embedding for each requested box.
func (e *DlibEngine) Descriptors(img image.Image, boxes []Rectangle) ([]Descriptor, error) {
	faces, err := e.recognize(img)
	if err != nil {
		return nil, err
	}

	result := make([]Descriptor, 0, len(boxes))
	for _, box := range boxes {
		f := closestFace(faces, box)
		if f == nil {
			return nil, ErrNoFaceDetected
		}
		result = append(result, f.Descriptor)
	}
	return result, nil
}

func (e *DlibEngine) recognize(img image.Image) ([]face.Face, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if !e.loaded {
		return nil, ErrModelNotLoaded
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}

	faces, err := e.engine.Recognize(buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("face detection failed: %w", err)
	}
	return faces, nil
}

// closestFace picks the detected face whose box overlaps the requested box
// most. Returns nil when nothing overlaps.
func closestFace(faces []face.Face, box Rectangle) *face.Face {
	var best *face.Face
	bestArea := 0
	want := box.ImageRect()

	for i := range faces {
		overlap := faces[i].Rectangle.Intersect(want)
		area := overlap.Dx() * overlap.Dy()
		if area > bestArea {
			bestArea = area
			best = &faces[i]
		}
	}
	return best
}

// dlib 68-point annotation indices.
const (
	chinStart       = 0
	chinEnd         = 17
	noseBridgeStart = 27
	noseBridgeEnd   = 31
	noseTipStart    = 31
	noseTipEnd      = 36
	rightEyeStart   = 36
	rightEyeEnd     = 42
	leftEyeStart    = 42
	leftEyeEnd      = 48
	shapePoints     = 68
)

// mapShapes converts a 68-point dlib shape into named landmark groups. The
// lip groups follow the usual ordering where the mouth corners sit at
// indices 0 and 6 of the top lip.
func mapShapes(shapes []image.Point) (Landmarks, bool) {
	if len(shapes) < shapePoints {
		return Landmarks{}, false
	}

	pts := make([]Point, len(shapes))
	for i, p := range shapes {
		pts[i] = Point{X: float64(p.X), Y: float64(p.Y)}
	}

	topLip := append([]Point{}, pts[48:55]...)
	topLip = append(topLip, pts[64], pts[63], pts[62], pts[61], pts[60])

	bottomLip := append([]Point{}, pts[54:60]...)
	bottomLip = append(bottomLip, pts[48], pts[60], pts[67], pts[66], pts[65], pts[64])

	return Landmarks{
		Chin:       pts[chinStart:chinEnd],
		NoseBridge: pts[noseBridgeStart:noseBridgeEnd],
		NoseTip:    pts[noseTipStart:noseTipEnd],
		RightEye:   pts[rightEyeStart:rightEyeEnd],
		LeftEye:    pts[leftEyeStart:leftEyeEnd],
		TopLip:     topLip,
		BottomLip:  bottomLip,
	}, true
}
