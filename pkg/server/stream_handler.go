package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/attendly/classtrack/pkg/detector"
	"github.com/attendly/classtrack/pkg/recognition"
)

// streamFace is one tracked face in a stream frame response.
type streamFace struct {
	Box        recognition.Rectangle `json:"box"`
	StudentID  string                `json:"student_id,omitempty"`
	Name       string                `json:"name,omitempty"`
	Distance   float64               `json:"distance,omitempty"`
	Recognized bool                  `json:"recognized"`
	Marked     bool                  `json:"marked"`
}

func (s *Server) detectorOptions() detector.Options {
	return detector.Options{
		Scale:           s.cfg.Detector.Scale,
		SkipFrames:      s.cfg.Detector.SkipFrames,
		SmoothingWindow: s.cfg.Detector.SmoothingWindow,
		IOUThreshold:    s.cfg.Detector.IOUThreshold,
	}
}

// handleStreamCreate registers a new tracking stream. Each stream gets
// its own detector so frame counters and smoothing never mix.
func (s *Server) handleStreamCreate(c *gin.Context) {
	id := uuid.NewString()

	s.mu.Lock()
	s.streams[id] = &stream{detector: detector.New(s.locator, s.detectorOptions())}
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"stream_id": id})
}

func (s *Server) handleStreamDestroy(c *gin.Context) {
	id := c.Param("id")

	s.mu.Lock()
	_, ok := s.streams[id]
	delete(s.streams, id)
	s.mu.Unlock()

	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "stream not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"stream_id": id, "message": "stream closed"})
}

// handleStreamFrame runs one frame through tracking and recognition.
// Recognized students are marked present when a session is active.
func (s *Server) handleStreamFrame(c *gin.Context) {
	id := c.Param("id")

	s.mu.Lock()
	st, ok := s.streams[id]
	sessionID := s.activeSession
	s.mu.Unlock()

	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "stream not found"})
		return
	}

	frame, err := decodeFrame(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	st.mu.Lock()
	boxes := st.detector.Detect(frame)
	st.mu.Unlock()

	faces := make([]streamFace, len(boxes))
	for i, box := range boxes {
		faces[i] = streamFace{Box: box}
	}

	if len(boxes) > 0 && s.matcher.GallerySize() > 0 {
		descriptors, err := s.engine.Descriptors(frame, boxes)
		if err != nil {
			s.log.WithError(err).Debug("Descriptor extraction failed for stream frame")
		} else {
			for i, d := range descriptors {
				result := s.matcher.Match(d)
				if !result.Matched {
					continue
				}

				faces[i].StudentID = result.StudentID
				faces[i].Name = result.Name
				faces[i].Distance = result.Distance
				faces[i].Recognized = true

				if sessionID != "" && s.repo != nil {
					marked, err := s.repo.MarkAttendance(sessionID, result.StudentID, result.Distance)
					if err != nil {
						s.log.WithError(err).Warn("Failed to mark attendance")
						continue
					}
					faces[i].Marked = marked
				}
			}
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"stream_id": id,
		"faces":     faces,
	})
}
