package capture

import (
	"image"
	"image/color"

	"github.com/attendly/classtrack/pkg/recognition"
)

type mockEngine struct {
	LocateFunc      func(img image.Image) ([]recognition.Rectangle, error)
	LandmarksFunc   func(img image.Image, boxes []recognition.Rectangle) ([]recognition.Landmarks, error)
	DescriptorsFunc func(img image.Image, boxes []recognition.Rectangle) ([]recognition.Descriptor, error)

	locateCalls int
}

func (m *mockEngine) Locate(img image.Image) ([]recognition.Rectangle, error) {
	m.locateCalls++
	if m.LocateFunc != nil {
		return m.LocateFunc(img)
	}
	return nil, nil
}

func (m *mockEngine) Landmarks(img image.Image, boxes []recognition.Rectangle) ([]recognition.Landmarks, error) {
	if m.LandmarksFunc != nil {
		return m.LandmarksFunc(img, boxes)
	}
	return nil, recognition.ErrNoLandmarks
}

func (m *mockEngine) Descriptors(img image.Image, boxes []recognition.Rectangle) ([]recognition.Descriptor, error) {
	if m.DescriptorsFunc != nil {
		return m.DescriptorsFunc(img, boxes)
	}
	return nil, recognition.ErrNoFaceDetected
}

// sharpFrame is a well-lit 640x480 frame with a grid pattern, so it passes
// both the lighting and the blur gates.
func sharpFrame() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 640, 480))
	for y := 0; y < 480; y++ {
		for x := 0; x < 640; x++ {
			v := uint8(128)
			if x%20 == 0 || y%20 == 0 {
				v = 255
			}
			img.SetRGBA(x, y, color.RGBA{v, v, v, 255})
		}
	}
	return img
}

// uniformFrame is a flat frame at the given intensity: fine lighting at mid
// levels, but zero edge response.
func uniformFrame(v uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 640, 480))
	for y := 0; y < 480; y++ {
		for x := 0; x < 640; x++ {
			img.SetRGBA(x, y, color.RGBA{v, v, v, 255})
		}
	}
	return img
}

// centeredBox is a face box that passes the position gate on a 640x480 frame.
func centeredBox() recognition.Rectangle {
	return recognition.Rectangle{X: 220, Y: 140, Width: 200, Height: 200}
}

// poseLandmarks builds a landmark set with the eyes and chin fixed and the
// nose tip at the given point. Eye centers sit at (270,220) and (370,220),
// the chin line at y=380, so eye distance is 100 and face height is 160.
func poseLandmarks(noseX, noseY float64) recognition.Landmarks {
	chin := make([]recognition.Point, 17)
	for i := range chin {
		chin[i] = recognition.Point{X: 220 + float64(i)*12.5, Y: 380}
	}

	topLip := make([]recognition.Point, 12)
	for i := range topLip {
		topLip[i] = recognition.Point{X: 320, Y: 300}
	}
	topLip[0] = recognition.Point{X: 270, Y: 300}
	topLip[6] = recognition.Point{X: 370, Y: 300}

	return recognition.Landmarks{
		Chin:       chin,
		NoseBridge: []recognition.Point{{X: noseX, Y: noseY - 30}},
		NoseTip:    []recognition.Point{{X: noseX, Y: noseY}},
		RightEye:   []recognition.Point{{X: 270, Y: 220}},
		LeftEye:    []recognition.Point{{X: 370, Y: 220}},
		TopLip:     topLip,
		BottomLip:  []recognition.Point{{X: 320, Y: 310}},
	}
}

// centerLandmarks is a frontal pose: nose on the eye midline.
func centerLandmarks() recognition.Landmarks {
	return poseLandmarks(320, 290)
}
