package recognition

import (
	"image"

	"github.com/Kagami/go-face"
)

type mockFaceEngine struct {
	RecognizeFunc func(data []byte) ([]face.Face, error)
	CloseFunc     func()
}

func (m *mockFaceEngine) Recognize(data []byte) ([]face.Face, error) {
	if m.RecognizeFunc != nil {
		return m.RecognizeFunc(data)
	}
	return nil, nil
}

func (m *mockFaceEngine) Close() {
	if m.CloseFunc != nil {
		m.CloseFunc()
	}
}

// syntheticShapes returns 68 points roughly laid out as a frontal face within
// the given box, good enough to exercise the landmark group mapping.
func syntheticShapes(box image.Rectangle) []image.Point {
	pts := make([]image.Point, 68)
	cx := (box.Min.X + box.Max.X) / 2
	cy := (box.Min.Y + box.Max.Y) / 2

	for i := range pts {
		pts[i] = image.Point{X: cx, Y: cy}
	}

	// Chin sweeps the lower half of the box.
	for i := 0; i < 17; i++ {
		pts[i] = image.Point{
			X: box.Min.X + i*box.Dx()/16,
			Y: box.Max.Y - box.Dy()/8,
		}
	}
	// Eyes sit above center, nose between them.
	for i := 36; i < 42; i++ {
		pts[i] = image.Point{X: cx - box.Dx()/4, Y: cy - box.Dy()/6}
	}
	for i := 42; i < 48; i++ {
		pts[i] = image.Point{X: cx + box.Dx()/4, Y: cy - box.Dy()/6}
	}
	for i := 27; i < 36; i++ {
		pts[i] = image.Point{X: cx, Y: cy}
	}
	// Mouth below the nose.
	for i := 48; i < 68; i++ {
		pts[i] = image.Point{X: cx, Y: cy + box.Dy()/5}
	}
	pts[48] = image.Point{X: cx - box.Dx()/5, Y: cy + box.Dy()/5}
	pts[54] = image.Point{X: cx + box.Dx()/5, Y: cy + box.Dy()/5}

	return pts
}
