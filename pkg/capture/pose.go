package capture

import (
	"fmt"
	"math"

	"github.com/attendly/classtrack/pkg/recognition"
)

// Pose thresholds. Empirically tuned against typical webcam footage; the
// left/right thresholds deliberately straddle zero with a small dead zone,
// and the pitch thresholds are asymmetric around the neutral baseline.
// Changing any of these changes which enrollment samples get accepted, so
// they stay exactly as tuned.
const (
	yawCenterTolerance = 0.20
	yawLeftThreshold   = -0.03
	yawRightThreshold  = 0.03
	pitchUpThreshold   = 0.45
	pitchDownThreshold = 0.50
	smileMinRatio      = 0.38
)

// ValidatePose decides whether the face geometry matches the requested
// stage. Yaw is the nose-tip horizontal offset from the eye midpoint,
// normalized by inter-eye distance; pitch is the nose-tip vertical position
// between the eye line and the chin line.
func ValidatePose(lm recognition.Landmarks, stageName string) Verdict {
	if len(lm.LeftEye) == 0 || len(lm.RightEye) == 0 || len(lm.NoseTip) == 0 || len(lm.Chin) == 0 {
		return Verdict{Message: "Face landmarks unclear - adjust position"}
	}

	leftEye := meanPoint(lm.LeftEye)
	rightEye := meanPoint(lm.RightEye)
	nose := meanPoint(lm.NoseTip)
	chinY := meanPoint(lm.Chin).Y

	faceCenterX := (leftEye.X + rightEye.X) / 2
	eyeY := (leftEye.Y + rightEye.Y) / 2

	eyeDist := pointDistance(leftEye, rightEye)
	faceHeight := chinY - eyeY
	if eyeDist == 0 || faceHeight == 0 {
		return Verdict{Message: "Face landmarks unclear - adjust position"}
	}

	yawRatio := (nose.X - faceCenterX) / eyeDist
	pitchRatio := (nose.Y - eyeY) / faceHeight

	switch stageName {
	case StageCenter, StageNeutral:
		if math.Abs(yawRatio) > yawCenterTolerance {
			direction := "right"
			if yawRatio > 0 {
				direction = "left"
			}
			return Verdict{Message: fmt.Sprintf("Face straight ahead (looking %s)", direction)}
		}
		return Verdict{OK: true, Message: "Good center pose"}

	case StageLeft:
		// Turning left moves the nose toward smaller image X.
		if yawRatio > yawLeftThreshold {
			return Verdict{Message: "Turn head slightly left"}
		}
		return Verdict{OK: true, Message: "Good left pose"}

	case StageRight:
		if yawRatio < yawRightThreshold {
			return Verdict{Message: "Turn head slightly right"}
		}
		return Verdict{OK: true, Message: "Good right pose"}

	case StageUp:
		// Chin up pulls the nose toward the eye line, shrinking the ratio.
		if pitchRatio > pitchUpThreshold {
			return Verdict{Message: "Tilt chin up slightly"}
		}
		return Verdict{OK: true, Message: "Good up pose"}

	case StageDown:
		if pitchRatio < pitchDownThreshold {
			return Verdict{Message: "Look down slightly"}
		}
		return Verdict{OK: true, Message: "Good down pose"}

	case StageSmile:
		return validateSmile(lm)
	}

	return Verdict{OK: true, Message: "Pose valid"}
}

// validateSmile compares mouth-corner width against jaw width. A neutral
// mouth sits around 0.30-0.35 of jaw width.
func validateSmile(lm recognition.Landmarks) Verdict {
	if len(lm.TopLip) < 7 || len(lm.Chin) < 17 {
		return Verdict{Message: "Face landmarks unclear - adjust position"}
	}

	mouthWidth := pointDistance(lm.TopLip[0], lm.TopLip[6])
	jawWidth := pointDistance(lm.Chin[0], lm.Chin[16])
	if jawWidth == 0 {
		return Verdict{Message: "Face landmarks unclear - adjust position"}
	}

	if mouthWidth/jawWidth < smileMinRatio {
		return Verdict{Message: "Please smile!"}
	}
	return Verdict{OK: true, Message: "Nice smile!"}
}

func meanPoint(pts []recognition.Point) recognition.Point {
	var sumX, sumY float64
	for _, p := range pts {
		sumX += p.X
		sumY += p.Y
	}
	n := float64(len(pts))
	return recognition.Point{X: sumX / n, Y: sumY / n}
}

func pointDistance(a, b recognition.Point) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}
