package capture

import (
	"errors"
	"fmt"
	"image"

	"github.com/attendly/classtrack/pkg/logging"
	"github.com/attendly/classtrack/pkg/recognition"
)

// Stage names, in enrollment order.
const (
	StageCenter  = "center"
	StageLeft    = "left"
	StageRight   = "right"
	StageUp      = "up"
	StageDown    = "down"
	StageSmile   = "smile"
	StageNeutral = "neutral"
)

// DefaultFramesPerPose is how many accepted samples each stage needs.
const DefaultFramesPerPose = 3

// ErrCaptureIncomplete is returned when the aggregated encoding is requested
// before every stage has captured its samples. Callers must check
// IsComplete first; hitting this is a caller bug, not a user condition.
var ErrCaptureIncomplete = errors.New("capture not yet complete")

// Stage is one step of the guided enrollment sequence.
type Stage struct {
	Name           string
	Instruction    string
	FramesCaptured int
}

var stageTemplate = []Stage{
	{Name: StageCenter, Instruction: "Look straight at the camera"},
	{Name: StageLeft, Instruction: "Turn your head slightly to the left"},
	{Name: StageRight, Instruction: "Turn your head slightly to the right"},
	{Name: StageUp, Instruction: "Tilt your chin up slightly"},
	{Name: StageDown, Instruction: "Look slightly downward"},
	{Name: StageSmile, Instruction: "Give a natural smile"},
	{Name: StageNeutral, Instruction: "Relax your face"},
}

// Status reports the capture state after one processed frame.
type Status struct {
	Stage           string `json:"stage"`
	StageIndex      int    `json:"stage_index"`
	Instruction     string `json:"instruction"`
	Progress        string `json:"progress"`
	ProgressPercent int    `json:"progress_percent"`
	IsComplete      bool   `json:"is_complete"`
	FaceDetected    bool   `json:"face_detected"`
	Feedback        string `json:"feedback"`
	QualityOK       bool   `json:"quality_ok"`
}

// Options configures a GuidedCapture.
type Options struct {
	FramesPerPose int
	Gates         QualityGates
}

// DefaultOptions returns options with the default sample count and gates.
func DefaultOptions() Options {
	return Options{
		FramesPerPose: DefaultFramesPerPose,
		Gates:         DefaultQualityGates(),
	}
}

// GuidedCapture walks a subject through the pose stages and collects one
// face descriptor per accepted sample. It owns all of its state and must
// not be shared between concurrent enrollment streams.
type GuidedCapture struct {
	engine        recognition.Engine
	gates         QualityGates
	framesPerPose int

	stages    []Stage
	stageIdx  int
	encodings []recognition.Descriptor
	completed bool
}

// New creates a GuidedCapture using the given face analysis engine.
func New(engine recognition.Engine, opts Options) *GuidedCapture {
	if opts.FramesPerPose <= 0 {
		opts.FramesPerPose = DefaultFramesPerPose
	}
	if opts.Gates == (QualityGates{}) {
		opts.Gates = DefaultQualityGates()
	}

	stages := make([]Stage, len(stageTemplate))
	copy(stages, stageTemplate)

	return &GuidedCapture{
		engine:        engine,
		gates:         opts.Gates,
		framesPerPose: opts.FramesPerPose,
		stages:        stages,
	}
}

// Stages returns a copy of the stage sequence with capture counts.
func (c *GuidedCapture) Stages() []Stage {
	out := make([]Stage, len(c.stages))
	copy(out, c.stages)
	return out
}

// CurrentStage returns the stage the capture is waiting on.
func (c *GuidedCapture) CurrentStage() Stage {
	if c.stageIdx < len(c.stages) {
		return c.stages[c.stageIdx]
	}
	return c.stages[len(c.stages)-1]
}

// StageIndex returns the current 0-based stage index.
func (c *GuidedCapture) StageIndex() int {
	return c.stageIdx
}

// Instruction returns the display text for the current stage.
func (c *GuidedCapture) Instruction() string {
	return c.CurrentStage().Instruction
}

// FramesPerPose returns the per-stage sample target.
func (c *GuidedCapture) FramesPerPose() int {
	return c.framesPerPose
}

// ProcessFrame runs one frame through the gate pipeline: lighting, face
// count, position, blur, pose. A frame that passes them all contributes one
// descriptor. The returned image is an annotated copy of the input; the
// original frame is never modified.
func (c *GuidedCapture) ProcessFrame(frame image.Image) (image.Image, Status) {
	annotated := cloneFrame(frame)
	bounds := frame.Bounds()

	status := Status{
		Stage:           c.CurrentStage().Name,
		StageIndex:      c.stageIdx,
		Instruction:     c.Instruction(),
		Progress:        c.progressString(),
		ProgressPercent: c.ProgressPercent(),
		IsComplete:      c.IsComplete(),
	}

	if c.completed {
		status.IsComplete = true
		status.Feedback = "Face capture complete!"
		return annotated, status
	}

	if lighting := c.gates.CheckLighting(frame); !lighting.OK {
		status.Feedback = lighting.Message
		return annotated, status
	}

	boxes, err := c.engine.Locate(frame)
	if err != nil {
		// Backend hiccups read as "no face" on this frame; the caller's
		// next frame is the retry.
		logging.Component("capture").WithError(err).Debug("localization failed")
		status.Feedback = "No face detected - please face the camera"
		return annotated, status
	}

	if len(boxes) == 0 {
		status.Feedback = "No face detected - please face the camera"
		return annotated, status
	}

	if len(boxes) > 1 {
		status.FaceDetected = true
		status.Feedback = "Multiple faces detected - only one person please"
		for _, box := range boxes {
			drawBox(annotated, box, colorYellow)
		}
		return annotated, status
	}

	status.FaceDetected = true
	box := boxes[0]

	if position := c.gates.CheckPosition(box, bounds.Dx(), bounds.Dy()); !position.OK {
		status.Feedback = position.Message
		drawBox(annotated, box, colorOrange)
		return annotated, status
	}

	if blur := c.gates.CheckBlur(frame); !blur.OK {
		status.Feedback = blur.Message
		drawBox(annotated, box, colorOrange)
		return annotated, status
	}

	if landmarks, err := c.engine.Landmarks(frame, boxes); err == nil && len(landmarks) > 0 {
		if pose := ValidatePose(landmarks[0], status.Stage); !pose.OK {
			status.Feedback = pose.Message
			drawBox(annotated, box, colorOrange)
			return annotated, status
		}
	}

	status.QualityOK = true
	status.Feedback = fmt.Sprintf("Hold still... %s", c.Instruction())
	drawBox(annotated, box, colorGreen)

	descriptors, err := c.engine.Descriptors(frame, boxes)
	if err == nil && len(descriptors) > 0 {
		c.AddEncoding(descriptors[0])
		c.stages[c.stageIdx].FramesCaptured++

		if c.stages[c.stageIdx].FramesCaptured >= c.framesPerPose {
			c.AdvanceStage()
		}
	}

	status.Progress = c.progressString()
	status.ProgressPercent = c.ProgressPercent()
	status.IsComplete = c.IsComplete()
	if status.IsComplete {
		status.Feedback = "Face capture complete!"
	}

	return annotated, status
}

// AdvanceStage moves to the next stage, or marks the capture complete when
// already on the last one. The stage index never passes the last stage.
func (c *GuidedCapture) AdvanceStage() {
	if c.stageIdx < len(c.stages)-1 {
		c.stageIdx++
	} else {
		c.completed = true
	}
}

// IsComplete reports whether every stage has captured its samples.
func (c *GuidedCapture) IsComplete() bool {
	if c.completed {
		return true
	}

	for _, stage := range c.stages {
		if stage.FramesCaptured < c.framesPerPose {
			return false
		}
	}

	c.completed = true
	return true
}

// AddEncoding stores one accepted face descriptor.
func (c *GuidedCapture) AddEncoding(d recognition.Descriptor) {
	c.encodings = append(c.encodings, d)
}

// EncodingCount returns how many samples have been accepted so far.
func (c *GuidedCapture) EncodingCount() int {
	return len(c.encodings)
}

// AggregatedEncoding returns the component-wise mean of every accepted
// sample. It must only be called after IsComplete returns true.
func (c *GuidedCapture) AggregatedEncoding() (recognition.Descriptor, error) {
	if !c.IsComplete() {
		return recognition.Descriptor{}, ErrCaptureIncomplete
	}
	return recognition.AverageDescriptors(c.encodings), nil
}

// Reset clears all captured state and returns to the first stage.
func (c *GuidedCapture) Reset() {
	c.stageIdx = 0
	c.encodings = nil
	c.completed = false
	for i := range c.stages {
		c.stages[i].FramesCaptured = 0
	}
}

// ProgressPercent returns overall capture progress in the range 0-100.
func (c *GuidedCapture) ProgressPercent() int {
	needed := len(c.stages) * c.framesPerPose
	if needed == 0 {
		return 0
	}
	return c.totalCaptured() * 100 / needed
}

func (c *GuidedCapture) progressString() string {
	return fmt.Sprintf("%d/%d", c.totalCaptured(), len(c.stages)*c.framesPerPose)
}

func (c *GuidedCapture) totalCaptured() int {
	total := 0
	for _, stage := range c.stages {
		total += stage.FramesCaptured
	}
	return total
}
