// Package detector stabilizes face detection over a live video stream. It
// amortizes the cost of localization by only processing every Kth frame and
// smooths bounding boxes across a trailing window with IoU-based
// correspondence, so the boxes the UI draws do not jitter.
package detector

import (
	"image"

	xdraw "golang.org/x/image/draw"

	"github.com/attendly/classtrack/pkg/logging"
	"github.com/attendly/classtrack/pkg/recognition"
)

// Defaults trade detection latency against CPU cost on typical webcams.
const (
	DefaultScale           = 0.5
	DefaultSkipFrames      = 2
	DefaultSmoothingWindow = 5
	DefaultIOUThreshold    = 0.3
)

// Options configures a Detector.
type Options struct {
	// Scale downsizes frames before localization; boxes are mapped back to
	// original coordinates.
	Scale float64
	// SkipFrames runs localization only on every Kth frame; skipped frames
	// reuse the cached result.
	SkipFrames int
	// SmoothingWindow is how many frames of detections to retain for
	// smoothing.
	SmoothingWindow int
	// IOUThreshold is the minimum overlap for two boxes in different
	// frames to count as the same face.
	IOUThreshold float64
}

// DefaultOptions returns the default detector tuning.
func DefaultOptions() Options {
	return Options{
		Scale:           DefaultScale,
		SkipFrames:      DefaultSkipFrames,
		SmoothingWindow: DefaultSmoothingWindow,
		IOUThreshold:    DefaultIOUThreshold,
	}
}

// Detector tracks faces across one video stream. Each stream owns its own
// instance; the frame counter, cache and history window must never be shared
// between concurrent streams.
type Detector struct {
	locator recognition.Locator
	opts    Options

	frameCount int
	cached     []recognition.Rectangle
	history    [][]recognition.Rectangle
}

// New creates a Detector around the given localization backend.
func New(locator recognition.Locator, opts Options) *Detector {
	if opts.Scale <= 0 || opts.Scale > 1 {
		opts.Scale = DefaultScale
	}
	if opts.SkipFrames <= 0 {
		opts.SkipFrames = DefaultSkipFrames
	}
	if opts.SmoothingWindow <= 0 {
		opts.SmoothingWindow = DefaultSmoothingWindow
	}
	if opts.IOUThreshold <= 0 {
		opts.IOUThreshold = DefaultIOUThreshold
	}

	return &Detector{locator: locator, opts: opts}
}

// Detect returns the smoothed face boxes for this frame. On skipped frames
// it returns the previous result without running localization at all; on
// backend failure it keeps the cached result, since detection is best-effort
// for a continuous stream.
func (d *Detector) Detect(frame image.Image) []recognition.Rectangle {
	process := d.frameCount%d.opts.SkipFrames == 0
	d.frameCount++

	if !process {
		return d.cached
	}

	boxes, err := d.locator.Locate(downscale(frame, d.opts.Scale))
	if err != nil {
		logging.Component("detector").WithError(err).Debug("localization failed")
		return d.cached
	}

	boxes = rescaleBoxes(boxes, d.opts.Scale)

	d.history = append(d.history, boxes)
	if len(d.history) > d.opts.SmoothingWindow {
		d.history = d.history[1:]
	}

	d.cached = d.smooth()
	return d.cached
}

// Reset drops the frame counter, cache and history. A stream that restarts
// must not see detections from its previous run.
func (d *Detector) Reset() {
	d.frameCount = 0
	d.cached = nil
	d.history = nil
}

// smooth averages each current box with its best IoU match from every
// earlier frame in the window. With fewer than two frames of history the
// current raw detections pass through unchanged.
func (d *Detector) smooth() []recognition.Rectangle {
	current := d.history[len(d.history)-1]
	if len(d.history) < 2 {
		return current
	}

	smoothed := make([]recognition.Rectangle, 0, len(current))
	for _, box := range current {
		sumX, sumY := box.X, box.Y
		sumW, sumH := box.Width, box.Height
		count := 1

		for _, earlier := range d.history[:len(d.history)-1] {
			match, ok := bestMatch(box, earlier, d.opts.IOUThreshold)
			if !ok {
				continue
			}
			sumX += match.X
			sumY += match.Y
			sumW += match.Width
			sumH += match.Height
			count++
		}

		smoothed = append(smoothed, recognition.Rectangle{
			X:      sumX / count,
			Y:      sumY / count,
			Width:  sumW / count,
			Height: sumH / count,
		})
	}

	return smoothed
}

// bestMatch finds the box in candidates with the highest IoU against box,
// requiring at least the given threshold.
func bestMatch(box recognition.Rectangle, candidates []recognition.Rectangle, threshold float64) (recognition.Rectangle, bool) {
	var best recognition.Rectangle
	bestIoU := threshold
	found := false

	for _, candidate := range candidates {
		if overlap := IoU(box, candidate); overlap > bestIoU {
			best = candidate
			bestIoU = overlap
			found = true
		}
	}

	return best, found
}

// downscale resizes the frame by the given factor for faster localization.
func downscale(img image.Image, scale float64) image.Image {
	if scale >= 1.0 {
		return img
	}

	bounds := img.Bounds()
	w := int(float64(bounds.Dx()) * scale)
	h := int(float64(bounds.Dy()) * scale)
	if w < 1 || h < 1 {
		return img
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, bounds, xdraw.Src, nil)
	return dst
}

// rescaleBoxes maps boxes detected on a downscaled frame back to original
// frame coordinates.
func rescaleBoxes(boxes []recognition.Rectangle, scale float64) []recognition.Rectangle {
	if scale >= 1.0 {
		return boxes
	}

	scaled := make([]recognition.Rectangle, len(boxes))
	for i, b := range boxes {
		scaled[i] = recognition.Rectangle{
			X:      int(float64(b.X) / scale),
			Y:      int(float64(b.Y) / scale),
			Width:  int(float64(b.Width) / scale),
			Height: int(float64(b.Height) / scale),
		}
	}
	return scaled
}
