package detector

import (
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/attendly/classtrack/pkg/recognition"
)

type stubLocator struct {
	LocateFunc func(img image.Image) ([]recognition.Rectangle, error)
	calls      int
}

func (s *stubLocator) Locate(img image.Image) ([]recognition.Rectangle, error) {
	s.calls++
	return s.LocateFunc(img)
}

func testFrame() image.Image {
	return image.NewRGBA(image.Rect(0, 0, 640, 480))
}

func fixedLocator(boxes ...recognition.Rectangle) *stubLocator {
	return &stubLocator{
		LocateFunc: func(image.Image) ([]recognition.Rectangle, error) {
			return boxes, nil
		},
	}
}

func TestIoU(t *testing.T) {
	a := recognition.Rectangle{X: 0, Y: 0, Width: 100, Height: 100}
	b := recognition.Rectangle{X: 50, Y: 50, Width: 100, Height: 100}
	c := recognition.Rectangle{X: 200, Y: 200, Width: 100, Height: 100}

	assert.Equal(t, 1.0, IoU(a, a), "identical boxes")
	assert.Equal(t, 0.0, IoU(a, c), "disjoint boxes")
	assert.Equal(t, IoU(a, b), IoU(b, a), "symmetric")
	assert.InDelta(t, 1.0/7.0, IoU(a, b), 1e-9, "half-overlapping boxes")
}

func TestIoU_TouchingEdges(t *testing.T) {
	a := recognition.Rectangle{X: 0, Y: 0, Width: 100, Height: 100}
	b := recognition.Rectangle{X: 100, Y: 0, Width: 100, Height: 100}

	assert.Equal(t, 0.0, IoU(a, b), "boxes sharing only an edge do not overlap")
}

func TestDetect_SkipFramesReturnsCache(t *testing.T) {
	loc := fixedLocator(recognition.Rectangle{X: 100, Y: 100, Width: 80, Height: 80})
	d := New(loc, Options{Scale: 1.0, SkipFrames: 2, SmoothingWindow: 5, IOUThreshold: 0.3})

	first := d.Detect(testFrame())
	second := d.Detect(testFrame())

	assert.Equal(t, 1, loc.calls, "second frame must not hit the backend")
	assert.Equal(t, first, second)

	d.Detect(testFrame())
	assert.Equal(t, 2, loc.calls, "third frame processes again")
}

func TestDetect_RescalesBoxesToFrameCoordinates(t *testing.T) {
	loc := fixedLocator(recognition.Rectangle{X: 50, Y: 60, Width: 40, Height: 40})
	d := New(loc, Options{Scale: 0.5, SkipFrames: 1, SmoothingWindow: 5, IOUThreshold: 0.3})

	boxes := d.Detect(testFrame())

	assert.Len(t, boxes, 1)
	assert.Equal(t, recognition.Rectangle{X: 100, Y: 120, Width: 80, Height: 80}, boxes[0])
}

func TestDetect_DownscalesFrameBeforeLocalization(t *testing.T) {
	var seen image.Rectangle
	loc := &stubLocator{
		LocateFunc: func(img image.Image) ([]recognition.Rectangle, error) {
			seen = img.Bounds()
			return nil, nil
		},
	}
	d := New(loc, Options{Scale: 0.5, SkipFrames: 1, SmoothingWindow: 5, IOUThreshold: 0.3})

	d.Detect(testFrame())

	assert.Equal(t, 320, seen.Dx())
	assert.Equal(t, 240, seen.Dy())
}

func TestDetect_SmoothsJitterAcrossFrames(t *testing.T) {
	positions := []int{100, 102, 99}
	i := 0
	loc := &stubLocator{
		LocateFunc: func(image.Image) ([]recognition.Rectangle, error) {
			box := recognition.Rectangle{X: positions[i], Y: 100, Width: 80, Height: 80}
			i++
			return []recognition.Rectangle{box}, nil
		},
	}
	d := New(loc, Options{Scale: 1.0, SkipFrames: 1, SmoothingWindow: 5, IOUThreshold: 0.3})

	d.Detect(testFrame())
	d.Detect(testFrame())
	boxes := d.Detect(testFrame())

	assert.Len(t, boxes, 1)
	assert.GreaterOrEqual(t, boxes[0].X, 99)
	assert.LessOrEqual(t, boxes[0].X, 101)
	assert.Equal(t, 100, boxes[0].Y)
	assert.Equal(t, 80, boxes[0].Width)
}

func TestDetect_FirstFrameIsRaw(t *testing.T) {
	loc := fixedLocator(recognition.Rectangle{X: 100, Y: 100, Width: 80, Height: 80})
	d := New(loc, Options{Scale: 1.0, SkipFrames: 1, SmoothingWindow: 5, IOUThreshold: 0.3})

	boxes := d.Detect(testFrame())

	assert.Equal(t, []recognition.Rectangle{{X: 100, Y: 100, Width: 80, Height: 80}}, boxes)
}

func TestDetect_NewFaceWithoutHistoryMatchPassesThrough(t *testing.T) {
	i := 0
	frames := [][]recognition.Rectangle{
		{{X: 100, Y: 100, Width: 80, Height: 80}},
		{{X: 100, Y: 100, Width: 80, Height: 80}, {X: 400, Y: 100, Width: 80, Height: 80}},
	}
	loc := &stubLocator{
		LocateFunc: func(image.Image) ([]recognition.Rectangle, error) {
			boxes := frames[i]
			i++
			return boxes, nil
		},
	}
	d := New(loc, Options{Scale: 1.0, SkipFrames: 1, SmoothingWindow: 5, IOUThreshold: 0.3})

	d.Detect(testFrame())
	boxes := d.Detect(testFrame())

	assert.Len(t, boxes, 2)
	assert.Equal(t, recognition.Rectangle{X: 400, Y: 100, Width: 80, Height: 80}, boxes[1],
		"a face with no prior match keeps its raw box")
}

func TestDetect_BackendErrorKeepsCachedResult(t *testing.T) {
	fail := false
	loc := &stubLocator{
		LocateFunc: func(image.Image) ([]recognition.Rectangle, error) {
			if fail {
				return nil, errors.New("backend down")
			}
			return []recognition.Rectangle{{X: 100, Y: 100, Width: 80, Height: 80}}, nil
		},
	}
	d := New(loc, Options{Scale: 1.0, SkipFrames: 1, SmoothingWindow: 5, IOUThreshold: 0.3})

	first := d.Detect(testFrame())
	fail = true
	second := d.Detect(testFrame())

	assert.Equal(t, first, second)
}

func TestDetect_HistoryEviction(t *testing.T) {
	i := 0
	loc := &stubLocator{
		LocateFunc: func(image.Image) ([]recognition.Rectangle, error) {
			// A far-away first detection that must age out of the window.
			xs := []int{500, 100, 100, 100}
			box := recognition.Rectangle{X: xs[i], Y: 100, Width: 80, Height: 80}
			i++
			return []recognition.Rectangle{box}, nil
		},
	}
	d := New(loc, Options{Scale: 1.0, SkipFrames: 1, SmoothingWindow: 2, IOUThreshold: 0.3})

	d.Detect(testFrame())
	d.Detect(testFrame())
	d.Detect(testFrame())
	boxes := d.Detect(testFrame())

	assert.Len(t, d.history, 2, "window holds at most SmoothingWindow frames")
	assert.Equal(t, 100, boxes[0].X, "evicted outlier no longer influences the average")
}

func TestReset(t *testing.T) {
	loc := fixedLocator(recognition.Rectangle{X: 100, Y: 100, Width: 80, Height: 80})
	d := New(loc, Options{Scale: 1.0, SkipFrames: 2, SmoothingWindow: 5, IOUThreshold: 0.3})

	d.Detect(testFrame())
	d.Detect(testFrame())
	d.Reset()

	assert.Nil(t, d.cached)
	assert.Empty(t, d.history)

	d.Detect(testFrame())
	assert.Equal(t, 2, loc.calls, "first frame after reset processes again")
}

func TestNew_SanitizesOptions(t *testing.T) {
	d := New(fixedLocator(), Options{})

	assert.Equal(t, DefaultScale, d.opts.Scale)
	assert.Equal(t, DefaultSkipFrames, d.opts.SkipFrames)
	assert.Equal(t, DefaultSmoothingWindow, d.opts.SmoothingWindow)
	assert.Equal(t, DefaultIOUThreshold, d.opts.IOUThreshold)
}
