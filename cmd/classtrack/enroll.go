package main

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/attendly/classtrack/pkg/capture"
	"github.com/attendly/classtrack/pkg/logging"
	"github.com/attendly/classtrack/pkg/recognition"
	"github.com/attendly/classtrack/pkg/storage"
)

var (
	enrollName  string
	enrollForce bool
)

var enrollCmd = &cobra.Command{
	Use:   "enroll <student-id> <frame>...",
	Short: "Enroll a student from a sequence of captured frames",
	Long: `Enroll runs guided multi-pose capture over a sequence of image files.
Frames are consumed in order; each must pass the lighting, position, blur
and pose checks for its stage before it counts. Record frames while the
student follows the pose instructions, then pass them here in order.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEnroll(args[0], args[1:])
	},
}

func init() {
	enrollCmd.Flags().StringVarP(&enrollName, "name", "n", "", "Student's display name")
	enrollCmd.Flags().BoolVarP(&enrollForce, "force", "f", false, "Replace an existing enrollment")
	enrollCmd.MarkFlagRequired("name")
	rootCmd.AddCommand(enrollCmd)
}

func runEnroll(studentID string, framePaths []string) error {
	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	store, err := storage.NewFileStorage(cfg.Storage.DataDir, cfg.Storage.EncryptionEnabled)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}

	if store.StudentExists(studentID) && !enrollForce {
		return fmt.Errorf("student '%s' is already enrolled, use --force to replace", studentID)
	}

	engine := recognition.NewDlibEngine()
	if err := engine.LoadModels(cfg.Recognition.ModelPath); err != nil {
		return fmt.Errorf("failed to load recognition models: %w", err)
	}
	defer engine.Close()

	session := capture.New(engine, capture.Options{
		FramesPerPose: cfg.Capture.FramesPerPose,
		Gates: capture.QualityGates{
			MinBrightness: cfg.Capture.MinBrightness,
			MaxBrightness: cfg.Capture.MaxBrightness,
			BlurThreshold: cfg.Capture.BlurThreshold,
			MinFaceRatio:  cfg.Capture.MinFaceRatio,
		},
	})

	totalNeeded := len(session.Stages()) * session.FramesPerPose()
	bar := progressbar.NewOptions(totalNeeded,
		progressbar.OptionSetDescription("Capturing"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
	)

	fmt.Printf("Enrolling '%s' from %d frames\n", studentID, len(framePaths))
	lastInstruction := ""

	for _, path := range framePaths {
		frame, err := loadImage(path)
		if err != nil {
			logging.WithError(err).Warnf("Skipping unreadable frame: %s", path)
			continue
		}

		_, status := session.ProcessFrame(frame)

		if status.Instruction != lastInstruction {
			fmt.Fprintf(os.Stderr, "\n[%d/%d] %s\n", status.StageIndex+1, len(session.Stages()), status.Instruction)
			lastInstruction = status.Instruction
		}
		if !status.QualityOK {
			logging.Debugf("Frame %s rejected: %s", path, status.Feedback)
		}

		bar.Set(session.EncodingCount())

		if status.IsComplete {
			break
		}
	}
	fmt.Fprintln(os.Stderr)

	if !session.IsComplete() {
		return fmt.Errorf("capture incomplete: %d of %d samples accepted, stuck on stage '%s'",
			session.EncodingCount(), totalNeeded, session.CurrentStage().Name)
	}

	embedding, err := session.AggregatedEncoding()
	if err != nil {
		return err
	}

	samples := session.EncodingCount()
	err = store.CreateStudent(studentID, enrollName, embedding, samples)
	if err == storage.ErrStudentExists {
		err = store.UpdateEmbedding(studentID, embedding, samples)
	}
	if err != nil {
		return fmt.Errorf("failed to save enrollment: %w", err)
	}

	logging.Infof("Enrolled student %s with %d samples", studentID, samples)
	fmt.Printf("Enrollment complete for '%s' (%d samples averaged).\n", enrollName, samples)
	return nil
}

func loadImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	return img, err
}
