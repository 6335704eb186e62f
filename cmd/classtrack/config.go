package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	Run: func(cmd *cobra.Command, args []string) {
		showConfig()
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func showConfig() {
	fmt.Println("Current Configuration:")
	fmt.Println("======================")
	fmt.Println()
	fmt.Println("[Server]")
	fmt.Printf("  Address:         %s\n", cfg.Server.Address)
	fmt.Printf("  Mode:            %s\n", cfg.Server.Mode)
	fmt.Println()
	fmt.Println("[Database]")
	fmt.Printf("  URL:             %s\n", cfg.Database.URL)
	fmt.Println()
	fmt.Println("[Capture]")
	fmt.Printf("  Frames/Pose:     %d\n", cfg.Capture.FramesPerPose)
	fmt.Printf("  Brightness:      %.0f - %.0f\n", cfg.Capture.MinBrightness, cfg.Capture.MaxBrightness)
	fmt.Printf("  Blur Threshold:  %.1f\n", cfg.Capture.BlurThreshold)
	fmt.Printf("  Min Face Ratio:  %.2f\n", cfg.Capture.MinFaceRatio)
	fmt.Println()
	fmt.Println("[Detector]")
	fmt.Printf("  Scale:           %.2f\n", cfg.Detector.Scale)
	fmt.Printf("  Skip Frames:     %d\n", cfg.Detector.SkipFrames)
	fmt.Printf("  Smoothing:       %d frames\n", cfg.Detector.SmoothingWindow)
	fmt.Printf("  IoU Threshold:   %.2f\n", cfg.Detector.IOUThreshold)
	fmt.Printf("  Cascade Path:    %s\n", cfg.Detector.CascadePath)
	fmt.Println()
	fmt.Println("[Recognition]")
	fmt.Printf("  Tolerance:       %.2f\n", cfg.Recognition.Tolerance)
	fmt.Printf("  Model Path:      %s\n", cfg.Recognition.ModelPath)
	fmt.Println()
	fmt.Println("[Storage]")
	fmt.Printf("  Data Dir:        %s\n", cfg.Storage.DataDir)
	fmt.Printf("  Encryption:      %t\n", cfg.Storage.EncryptionEnabled)
	fmt.Println()
	fmt.Println("[Logging]")
	fmt.Printf("  Level:           %s\n", cfg.Logging.Level)
	fmt.Printf("  File:            %s\n", cfg.Logging.File)
}
