// Package config provides configuration management for classtrack.
// It loads configuration from YAML files with sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all classtrack configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Capture     CaptureConfig     `yaml:"capture"`
	Detector    DetectorConfig    `yaml:"detector"`
	Recognition RecognitionConfig `yaml:"recognition"`
	Storage     StorageConfig     `yaml:"storage"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Address string `yaml:"address"`
	Mode    string `yaml:"mode"` // gin mode: "debug" or "release"
}

// DatabaseConfig holds Postgres connection settings.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// CaptureConfig holds guided enrollment capture settings.
type CaptureConfig struct {
	FramesPerPose int     `yaml:"frames_per_pose"`
	MinBrightness float64 `yaml:"min_brightness"`
	MaxBrightness float64 `yaml:"max_brightness"`
	BlurThreshold float64 `yaml:"blur_threshold"`
	MinFaceRatio  float64 `yaml:"min_face_ratio"`
}

// DetectorConfig holds live tracking detector settings.
type DetectorConfig struct {
	Scale           float64 `yaml:"scale"`
	SkipFrames      int     `yaml:"skip_frames"`
	SmoothingWindow int     `yaml:"smoothing_window"`
	IOUThreshold    float64 `yaml:"iou_threshold"`
	CascadePath     string  `yaml:"cascade_path"`
}

// RecognitionConfig holds face recognition settings.
type RecognitionConfig struct {
	Tolerance float64 `yaml:"tolerance"`
	ModelPath string  `yaml:"model_path"`
}

// StorageConfig holds embedding storage settings.
type StorageConfig struct {
	DataDir           string `yaml:"data_dir"`
	EncryptionEnabled bool   `yaml:"encryption_enabled"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Server: ServerConfig{
			Address: ":8080",
			Mode:    "release",
		},
		Database: DatabaseConfig{
			URL: "postgres://localhost:5432/classtrack?sslmode=disable",
		},
		Capture: CaptureConfig{
			FramesPerPose: 3,
			MinBrightness: 40,
			MaxBrightness: 220,
			BlurThreshold: 5.0,
			MinFaceRatio:  0.15,
		},
		Detector: DetectorConfig{
			Scale:           0.5,
			SkipFrames:      2,
			SmoothingWindow: 5,
			IOUThreshold:    0.3,
			CascadePath:     filepath.Join(homeDir, ".local/share/classtrack/cascade/facefinder"),
		},
		Recognition: RecognitionConfig{
			Tolerance: 0.4,
			ModelPath: filepath.Join(homeDir, ".local/share/classtrack/models"),
		},
		Storage: StorageConfig{
			DataDir:           filepath.Join(homeDir, ".local/share/classtrack"),
			EncryptionEnabled: true,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  filepath.Join(homeDir, ".local/share/classtrack/classtrack.log"),
		},
	}
}

// Load loads configuration from the specified file.
func Load(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return config, err
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return config, err
	}

	return config, nil
}

// LoadDefault tries to load configuration from default locations.
func LoadDefault() (*Config, error) {
	if _, err := os.Stat("/etc/classtrack/classtrack.yaml"); err == nil {
		return Load("/etc/classtrack/classtrack.yaml")
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return DefaultConfig(), nil
	}

	userConfig := filepath.Join(homeDir, ".config/classtrack/classtrack.yaml")
	if _, err := os.Stat(userConfig); err == nil {
		return Load(userConfig)
	}

	return DefaultConfig(), nil
}

// ExpandPath expands ~ and environment variables in a path.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(homeDir, path[2:])
		}
	}
	return os.ExpandEnv(path)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("server address must not be empty")
	}

	if c.Capture.FramesPerPose <= 0 {
		return fmt.Errorf("frames_per_pose must be positive, got %d", c.Capture.FramesPerPose)
	}
	if c.Capture.MinBrightness < 0 || c.Capture.MaxBrightness > 255 {
		return fmt.Errorf("brightness bounds must lie within 0-255, got %f-%f",
			c.Capture.MinBrightness, c.Capture.MaxBrightness)
	}
	if c.Capture.MinBrightness >= c.Capture.MaxBrightness {
		return fmt.Errorf("min_brightness %f must be below max_brightness %f",
			c.Capture.MinBrightness, c.Capture.MaxBrightness)
	}
	if c.Capture.MinFaceRatio <= 0 || c.Capture.MinFaceRatio >= 1 {
		return fmt.Errorf("min_face_ratio must be between 0 and 1, got %f", c.Capture.MinFaceRatio)
	}
	if c.Capture.BlurThreshold < 0 {
		return fmt.Errorf("blur_threshold must not be negative, got %f", c.Capture.BlurThreshold)
	}

	if c.Detector.Scale <= 0 || c.Detector.Scale > 1 {
		return fmt.Errorf("detector scale must be in (0, 1], got %f", c.Detector.Scale)
	}
	if c.Detector.SkipFrames <= 0 {
		return fmt.Errorf("skip_frames must be positive, got %d", c.Detector.SkipFrames)
	}
	if c.Detector.SmoothingWindow <= 0 {
		return fmt.Errorf("smoothing_window must be positive, got %d", c.Detector.SmoothingWindow)
	}
	if c.Detector.IOUThreshold < 0 || c.Detector.IOUThreshold > 1 {
		return fmt.Errorf("iou_threshold must be between 0 and 1, got %f", c.Detector.IOUThreshold)
	}

	if c.Recognition.Tolerance < 0 || c.Recognition.Tolerance > 1 {
		return fmt.Errorf("tolerance must be between 0 and 1, got %f", c.Recognition.Tolerance)
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	return nil
}

// ExpandPaths expands all paths in the configuration.
func (c *Config) ExpandPaths() {
	c.Detector.CascadePath = ExpandPath(c.Detector.CascadePath)
	c.Recognition.ModelPath = ExpandPath(c.Recognition.ModelPath)
	c.Storage.DataDir = ExpandPath(c.Storage.DataDir)
	c.Logging.File = ExpandPath(c.Logging.File)
}

// EnsureDirectories creates the directories storage and logging need.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.Storage.DataDir, 0700); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	studentsDir := filepath.Join(c.Storage.DataDir, "students")
	if err := os.MkdirAll(studentsDir, 0700); err != nil {
		return fmt.Errorf("failed to create students directory: %w", err)
	}

	if err := os.MkdirAll(c.Recognition.ModelPath, 0755); err != nil {
		return fmt.Errorf("failed to create models directory: %w", err)
	}

	logDir := filepath.Dir(c.Logging.File)
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	return nil
}
