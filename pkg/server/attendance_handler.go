package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/attendly/classtrack/pkg/attendance"
	"github.com/attendly/classtrack/pkg/storage"
)

// requireRepo answers 503 when the server runs without a database.
func (s *Server) requireRepo(c *gin.Context) bool {
	if s.repo == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "attendance database not configured"})
		return false
	}
	return true
}

func (s *Server) handleSessionCreate(c *gin.Context) {
	if !s.requireRepo(c) {
		return
	}

	courseName := c.PostForm("course")
	if courseName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "course name cannot be empty"})
		return
	}

	session, err := s.repo.CreateSession(courseName)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	s.mu.Lock()
	s.activeSession = session.ID
	s.mu.Unlock()

	c.JSON(http.StatusOK, session)
}

func (s *Server) handleSessionClose(c *gin.Context) {
	if !s.requireRepo(c) {
		return
	}

	id := c.Param("id")

	if err := s.repo.CloseSession(id); err != nil {
		switch {
		case errors.Is(err, attendance.ErrSessionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		case errors.Is(err, attendance.ErrSessionClosed):
			c.JSON(http.StatusConflict, gin.H{"error": "session already closed"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	s.mu.Lock()
	if s.activeSession == id {
		s.activeSession = ""
	}
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"session_id": id, "message": "session closed"})
}

func (s *Server) handleSessionAttendance(c *gin.Context) {
	if !s.requireRepo(c) {
		return
	}

	id := c.Param("id")

	records, err := s.repo.ListBySession(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"session_id": id, "records": records})
}

func (s *Server) handleSessionSummary(c *gin.Context) {
	if !s.requireRepo(c) {
		return
	}

	id := c.Param("id")

	summary, err := s.repo.GetSummary(id)
	if err != nil {
		if errors.Is(err, attendance.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (s *Server) handleStudentList(c *gin.Context) {
	students, err := s.store.LoadAll()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	type studentInfo struct {
		StudentID  string `json:"student_id"`
		Name       string `json:"name"`
		Samples    int    `json:"samples"`
		EnrolledAt string `json:"enrolled_at"`
	}

	list := make([]studentInfo, len(students))
	for i, record := range students {
		list[i] = studentInfo{
			StudentID:  record.StudentID,
			Name:       record.Name,
			Samples:    record.Samples,
			EnrolledAt: record.EnrolledAt.Format("2006-01-02 15:04:05"),
		}
	}

	c.JSON(http.StatusOK, gin.H{"students": list})
}

func (s *Server) handleStudentDelete(c *gin.Context) {
	id := c.Param("id")

	if err := s.store.DeleteStudent(id); err != nil {
		if errors.Is(err, storage.ErrStudentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "student not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if s.repo != nil {
		if err := s.repo.DeleteStudent(id); err != nil {
			s.log.WithError(err).Warn("Failed to remove student from roster")
		}
	}

	if err := s.reloadGallery(); err != nil {
		s.log.WithError(err).Error("Failed to reload gallery after removal")
	}

	c.JSON(http.StatusOK, gin.H{"student_id": id, "message": "student removed"})
}
