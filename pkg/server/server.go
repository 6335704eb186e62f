// Package server exposes the enrollment and tracking pipeline over HTTP.
// Clients post camera frames as JPEG uploads; the server answers with
// capture guidance or recognition results.
package server

import (
	"context"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/attendly/classtrack/pkg/attendance"
	"github.com/attendly/classtrack/pkg/capture"
	"github.com/attendly/classtrack/pkg/config"
	"github.com/attendly/classtrack/pkg/detector"
	"github.com/attendly/classtrack/pkg/logging"
	"github.com/attendly/classtrack/pkg/recognition"
	"github.com/attendly/classtrack/pkg/storage"
)

type stream struct {
	detector *detector.Detector
	mu       sync.Mutex
}

// Server wires the capture registry, the tracking streams and the
// attendance repo behind a gin router.
type Server struct {
	cfg      *config.Config
	engine   recognition.Engine
	locator  recognition.Locator
	captures *capture.Registry
	matcher  *recognition.Matcher
	store    *storage.FileStorage
	repo     *attendance.Repo

	mu            sync.Mutex
	streams       map[string]*stream
	activeSession string

	log *logrus.Entry
}

// Options carries the server's collaborators. Repo may be nil when no
// database is configured; attendance endpoints then answer 503.
type Options struct {
	Config  *config.Config
	Engine  recognition.Engine
	Locator recognition.Locator
	Matcher *recognition.Matcher
	Store   *storage.FileStorage
	Repo    *attendance.Repo
}

// New assembles a Server from its collaborators.
func New(opts Options) *Server {
	captureOpts := capture.Options{
		FramesPerPose: opts.Config.Capture.FramesPerPose,
		Gates: capture.QualityGates{
			MinBrightness: opts.Config.Capture.MinBrightness,
			MaxBrightness: opts.Config.Capture.MaxBrightness,
			BlurThreshold: opts.Config.Capture.BlurThreshold,
			MinFaceRatio:  opts.Config.Capture.MinFaceRatio,
		},
	}

	locator := opts.Locator
	if locator == nil {
		locator = opts.Engine
	}

	return &Server{
		cfg:      opts.Config,
		engine:   opts.Engine,
		locator:  locator,
		captures: capture.NewRegistry(opts.Engine, captureOpts),
		matcher:  opts.Matcher,
		store:    opts.Store,
		repo:     opts.Repo,
		streams:  make(map[string]*stream),
		log:      logging.Component("server"),
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	router := gin.Default()
	s.setupRoutes(router)
	return router
}

// Run serves until SIGINT or SIGTERM, then shuts down gracefully.
func (s *Server) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := &http.Server{
		Addr:    s.cfg.Server.Address,
		Handler: s.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	s.log.Infof("Listening on %s", s.cfg.Server.Address)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	stop()
	s.log.Info("Shutting down gracefully, press Ctrl+C again to force")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	s.log.Info("Server exiting")
	return nil
}

// reloadGallery rebuilds the matcher's gallery from storage. Called after
// every enrollment change so recognition sees new students immediately.
func (s *Server) reloadGallery() error {
	gallery, err := s.store.Gallery()
	if err != nil {
		return err
	}
	s.matcher.SetGallery(gallery)
	return nil
}
