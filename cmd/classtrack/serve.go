package main

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/attendly/classtrack/pkg/attendance"
	"github.com/attendly/classtrack/pkg/logging"
	"github.com/attendly/classtrack/pkg/recognition"
	"github.com/attendly/classtrack/pkg/server"
	"github.com/attendly/classtrack/pkg/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the enrollment and attendance HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe() error {
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	gin.SetMode(cfg.Server.Mode)

	engine := recognition.NewDlibEngine()
	if err := engine.LoadModels(cfg.Recognition.ModelPath); err != nil {
		return fmt.Errorf("failed to load recognition models: %w", err)
	}
	defer engine.Close()

	// Tracking streams use the lighter pigo detector when a cascade is
	// configured; the dlib engine remains the fallback.
	var locator recognition.Locator = engine
	if cfg.Detector.CascadePath != "" {
		pigoLoc, err := recognition.NewPigoLocator(cfg.Detector.CascadePath)
		if err != nil {
			logging.WithError(err).Warn("Failed to load pigo cascade, tracking falls back to dlib")
		} else {
			locator = pigoLoc
		}
	}

	store, err := storage.NewFileStorage(cfg.Storage.DataDir, cfg.Storage.EncryptionEnabled)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}

	matcher := recognition.NewMatcher(cfg.Recognition.Tolerance)
	gallery, err := store.Gallery()
	if err != nil {
		return fmt.Errorf("failed to load enrollment gallery: %w", err)
	}
	matcher.SetGallery(gallery)
	logging.Infof("Loaded %d enrolled students", len(gallery))

	var repo *attendance.Repo
	if cfg.Database.URL != "" {
		repo, err = attendance.Open(cfg.Database.URL)
		if err != nil {
			logging.WithError(err).Warn("Attendance database unavailable, sessions disabled")
			repo = nil
		} else {
			defer repo.Close()
			if err := repo.EnsureSchema(); err != nil {
				return fmt.Errorf("failed to prepare database schema: %w", err)
			}
		}
	}

	srv := server.New(server.Options{
		Config:  cfg,
		Engine:  engine,
		Locator: locator,
		Matcher: matcher,
		Store:   store,
		Repo:    repo,
	})

	return srv.Run()
}
