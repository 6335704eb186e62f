package detector

import "github.com/attendly/classtrack/pkg/recognition"

// IoU computes the Intersection-over-Union of two axis-aligned boxes:
// intersection area over (area1 + area2 - intersection). Returns 0 when the
// boxes do not overlap.
func IoU(a, b recognition.Rectangle) float64 {
	x1 := max(a.X, b.X)
	y1 := max(a.Y, b.Y)
	x2 := min(a.X+a.Width, b.X+b.Width)
	y2 := min(a.Y+a.Height, b.Y+b.Height)

	iw := x2 - x1
	ih := y2 - y1
	if iw <= 0 || ih <= 0 {
		return 0
	}

	intersection := iw * ih
	union := a.Width*a.Height + b.Width*b.Height - intersection
	if union <= 0 {
		return 0
	}

	return float64(intersection) / float64(union)
}
