package server

import (
	"bytes"
	"errors"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/attendly/classtrack/pkg/capture"
	"github.com/attendly/classtrack/pkg/storage"
)

// decodeFrame reads the uploaded "frame" form file into an image.
func decodeFrame(c *gin.Context) (image.Image, error) {
	file, _, err := c.Request.FormFile("frame")
	if err != nil {
		return nil, errors.New("failed to get uploaded frame")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, errors.New("failed to read uploaded frame")
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.New("uploaded frame is not a valid image")
	}

	return img, nil
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"gallery":  s.matcher.GallerySize(),
		"captures": s.captures.Len(),
	})
}

func (s *Server) handleCaptureStart(c *gin.Context) {
	studentID := c.Param("studentId")

	session := s.captures.Create(studentID)

	c.JSON(http.StatusOK, gin.H{
		"student_id":  studentID,
		"instruction": session.Instruction(),
		"stages":      len(session.Stages()),
	})
}

func (s *Server) handleCaptureFrame(c *gin.Context) {
	studentID := c.Param("studentId")

	session, ok := s.captures.Get(studentID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no capture session for student"})
		return
	}

	frame, err := decodeFrame(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	annotated, status := session.ProcessFrame(frame)

	if c.Query("annotated") == "true" {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, annotated, &jpeg.Options{Quality: 85}); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to encode annotated frame"})
			return
		}
		c.Data(http.StatusOK, "image/jpeg", buf.Bytes())
		return
	}

	c.JSON(http.StatusOK, status)
}

func (s *Server) handleCaptureStatus(c *gin.Context) {
	studentID := c.Param("studentId")

	session, ok := s.captures.Get(studentID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no capture session for student"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"student_id":       studentID,
		"stage_index":      session.StageIndex(),
		"instruction":      session.Instruction(),
		"is_complete":      session.IsComplete(),
		"progress_percent": session.ProgressPercent(),
		"encodings":        session.EncodingCount(),
	})
}

func (s *Server) handleCaptureReset(c *gin.Context) {
	studentID := c.Param("studentId")

	s.captures.Reset(studentID)

	c.JSON(http.StatusOK, gin.H{"student_id": studentID, "message": "capture session reset"})
}

// handleCaptureComplete aggregates a finished capture into one embedding,
// persists it and refreshes the recognition gallery. The capture session
// is destroyed on success.
func (s *Server) handleCaptureComplete(c *gin.Context) {
	studentID := c.Param("studentId")
	name := c.PostForm("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "student name cannot be empty"})
		return
	}

	session, ok := s.captures.Get(studentID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no capture session for student"})
		return
	}

	embedding, err := session.AggregatedEncoding()
	if err != nil {
		if errors.Is(err, capture.ErrCaptureIncomplete) {
			c.JSON(http.StatusConflict, gin.H{"error": "capture is not complete yet"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	samples := session.EncodingCount()

	err = s.store.CreateStudent(studentID, name, embedding, samples)
	if errors.Is(err, storage.ErrStudentExists) {
		err = s.store.UpdateEmbedding(studentID, embedding, samples)
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if s.repo != nil {
		if err := s.repo.UpsertStudent(studentID, name); err != nil {
			s.log.WithError(err).Warn("Failed to sync student to roster")
		}
	}

	if err := s.reloadGallery(); err != nil {
		s.log.WithError(err).Error("Failed to reload gallery after enrollment")
	}

	s.captures.Destroy(studentID)

	s.log.WithField("student", studentID).Info("Enrollment complete")

	c.JSON(http.StatusOK, gin.H{
		"student_id": studentID,
		"name":       name,
		"samples":    samples,
		"message":    "enrollment saved",
	})
}
