package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/attendly/classtrack/pkg/logging"
	"github.com/attendly/classtrack/pkg/storage"
)

var studentsCmd = &cobra.Command{
	Use:   "students",
	Short: "List all enrolled students",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStudents()
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove <student-id>",
	Short: "Remove a student's enrollment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRemove(args[0])
	},
}

func init() {
	rootCmd.AddCommand(studentsCmd)
	rootCmd.AddCommand(removeCmd)
}

func runStudents() error {
	store, err := storage.NewFileStorage(cfg.Storage.DataDir, cfg.Storage.EncryptionEnabled)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}

	students, err := store.LoadAll()
	if err != nil {
		return fmt.Errorf("failed to load students: %w", err)
	}

	if len(students) == 0 {
		fmt.Println("No students enrolled.")
		return nil
	}

	fmt.Println("Enrolled students:")
	for _, s := range students {
		fmt.Printf("  %-12s %-24s %d samples, enrolled %s\n",
			s.StudentID, s.Name, s.Samples, s.EnrolledAt.Format("2006-01-02"))
	}
	fmt.Printf("\nTotal: %d student(s)\n", len(students))

	return nil
}

func runRemove(studentID string) error {
	store, err := storage.NewFileStorage(cfg.Storage.DataDir, cfg.Storage.EncryptionEnabled)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}

	if err := store.DeleteStudent(studentID); err != nil {
		if err == storage.ErrStudentNotFound {
			return fmt.Errorf("student '%s' is not enrolled", studentID)
		}
		return fmt.Errorf("failed to remove student: %w", err)
	}

	logging.Infof("Removed enrollment for student: %s", studentID)
	fmt.Printf("Face data for '%s' has been removed.\n", studentID)
	return nil
}
