package capture

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/attendly/classtrack/pkg/recognition"
)

// Box colors mirror the UI legend: yellow for ambiguous (multiple faces),
// orange for a quality or pose rejection, green for an accepted sample.
var (
	colorYellow = color.RGBA{255, 255, 0, 255}
	colorOrange = color.RGBA{255, 165, 0, 255}
	colorGreen  = color.RGBA{0, 255, 0, 255}
)

const boxThickness = 2

// cloneFrame copies the frame into a drawable RGBA image.
func cloneFrame(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, img, bounds.Min, draw.Src)
	return rgba
}

// drawBox draws a rectangle outline, clipped to the image bounds.
func drawBox(rgba *image.RGBA, box recognition.Rectangle, c color.RGBA) {
	x1, y1 := box.X, box.Y
	x2, y2 := box.X+box.Width, box.Y+box.Height

	for t := 0; t < boxThickness; t++ {
		for x := x1; x <= x2; x++ {
			setPixel(rgba, x, y1+t, c)
			setPixel(rgba, x, y2-t, c)
		}
		for y := y1; y <= y2; y++ {
			setPixel(rgba, x1+t, y, c)
			setPixel(rgba, x2-t, y, c)
		}
	}
}

func setPixel(rgba *image.RGBA, x, y int, c color.RGBA) {
	if image.Pt(x, y).In(rgba.Bounds()) {
		rgba.SetRGBA(x, y, c)
	}
}
