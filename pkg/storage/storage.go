// Package storage persists enrolled face embeddings on disk.
// Embeddings are encrypted at rest using NaCl secretbox with a key
// derived from machine identity, so a copied data directory is useless
// on another host.
package storage

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/nacl/secretbox"

	"github.com/attendly/classtrack/pkg/logging"
	"github.com/attendly/classtrack/pkg/recognition"
)

const (
	// NonceSize is the size of the nonce used for encryption
	NonceSize = 24
	// KeySize is the size of the encryption key
	KeySize = 32
)

// StudentFaceData contains the enrollment record for one student.
type StudentFaceData struct {
	StudentID  string                 `json:"student_id"`
	Name       string                 `json:"name"`
	Embedding  recognition.Descriptor `json:"embedding"`
	Samples    int                    `json:"samples"`
	EnrolledAt time.Time              `json:"enrolled_at"`
	UpdatedAt  time.Time              `json:"updated_at"`
}

// ErrStudentNotFound is returned when the student is not enrolled.
var ErrStudentNotFound = errors.New("student not found")

// ErrStudentExists is returned when trying to enroll an existing student.
var ErrStudentExists = errors.New("student already enrolled")

// ErrEncryption is returned when encryption/decryption fails.
var ErrEncryption = errors.New("encryption error")

// FileStorage stores one file per student under <dataDir>/students.
type FileStorage struct {
	dataDir           string
	encryptionEnabled bool
	encryptionKey     [KeySize]byte
}

// NewFileStorage creates a new FileStorage instance.
func NewFileStorage(dataDir string, encryptionEnabled bool) (*FileStorage, error) {
	fs := &FileStorage{
		dataDir:           dataDir,
		encryptionEnabled: encryptionEnabled,
	}

	if encryptionEnabled {
		key, err := deriveKey()
		if err != nil {
			return nil, fmt.Errorf("failed to derive encryption key: %w", err)
		}
		fs.encryptionKey = key
	}

	studentsDir := filepath.Join(dataDir, "students")
	if err := os.MkdirAll(studentsDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create students directory: %w", err)
	}

	return fs, nil
}

// deriveKey derives an encryption key from machine-specific information.
// This ties the encrypted data to this specific machine.
func deriveKey() ([KeySize]byte, error) {
	var key [KeySize]byte

	var identity strings.Builder

	// Machine ID (Linux specific)
	if machineID, err := os.ReadFile("/etc/machine-id"); err == nil {
		identity.Write(machineID)
	}

	if hostname, err := os.Hostname(); err == nil {
		identity.WriteString(hostname)
	}

	identity.WriteString(fmt.Sprintf("%d", os.Getuid()))

	identity.WriteString("classtrack-v1-salt")

	hash := sha256.Sum256([]byte(identity.String()))
	copy(key[:], hash[:])

	return key, nil
}

// studentPath returns the file path for a student's record.
func (fs *FileStorage) studentPath(studentID string) string {
	filename := studentID + ".json"
	if fs.encryptionEnabled {
		filename = studentID + ".enc"
	}
	return filepath.Join(fs.dataDir, "students", filename)
}

// SaveStudent writes a student's enrollment record to storage.
func (fs *FileStorage) SaveStudent(student StudentFaceData) error {
	path := fs.studentPath(student.StudentID)

	data, err := json.MarshalIndent(student, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal student data: %w", err)
	}

	if fs.encryptionEnabled {
		data, err = fs.encrypt(data)
		if err != nil {
			return fmt.Errorf("failed to encrypt student data: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write student data: %w", err)
	}

	logging.Debugf("Saved face data for student: %s", student.StudentID)
	return nil
}

// LoadStudent reads a student's enrollment record from storage.
func (fs *FileStorage) LoadStudent(studentID string) (*StudentFaceData, error) {
	path := fs.studentPath(studentID)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrStudentNotFound
		}
		return nil, fmt.Errorf("failed to read student data: %w", err)
	}

	if fs.encryptionEnabled {
		data, err = fs.decrypt(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt student data: %w", err)
		}
	}

	var student StudentFaceData
	if err := json.Unmarshal(data, &student); err != nil {
		return nil, fmt.Errorf("failed to unmarshal student data: %w", err)
	}

	return &student, nil
}

// DeleteStudent removes a student's enrollment record.
func (fs *FileStorage) DeleteStudent(studentID string) error {
	path := fs.studentPath(studentID)

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return ErrStudentNotFound
		}
		return fmt.Errorf("failed to delete student data: %w", err)
	}

	logging.Infof("Deleted face data for student: %s", studentID)
	return nil
}

// ListStudents returns the IDs of all enrolled students.
func (fs *FileStorage) ListStudents() ([]string, error) {
	studentsDir := filepath.Join(fs.dataDir, "students")

	entries, err := os.ReadDir(studentsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list students: %w", err)
	}

	var students []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()

		// Handle both encrypted and unencrypted files
		if strings.HasSuffix(name, ".json") {
			students = append(students, strings.TrimSuffix(name, ".json"))
		} else if strings.HasSuffix(name, ".enc") {
			students = append(students, strings.TrimSuffix(name, ".enc"))
		}
	}

	return students, nil
}

// StudentExists checks if a student is enrolled.
func (fs *FileStorage) StudentExists(studentID string) bool {
	path := fs.studentPath(studentID)
	_, err := os.Stat(path)
	return err == nil
}

// CreateStudent creates a new enrollment record. The embedding is the
// averaged descriptor produced by a completed guided capture.
func (fs *FileStorage) CreateStudent(studentID, name string, embedding recognition.Descriptor, samples int) error {
	if fs.StudentExists(studentID) {
		return ErrStudentExists
	}

	now := time.Now()
	student := StudentFaceData{
		StudentID:  studentID,
		Name:       name,
		Embedding:  embedding,
		Samples:    samples,
		EnrolledAt: now,
		UpdatedAt:  now,
	}

	return fs.SaveStudent(student)
}

// UpdateEmbedding replaces a student's embedding after re-enrollment.
func (fs *FileStorage) UpdateEmbedding(studentID string, embedding recognition.Descriptor, samples int) error {
	student, err := fs.LoadStudent(studentID)
	if err != nil {
		return err
	}

	student.Embedding = embedding
	student.Samples = samples
	student.UpdatedAt = time.Now()

	return fs.SaveStudent(*student)
}

// LoadAll reads every enrollment record, typically to build the
// recognition gallery at startup.
func (fs *FileStorage) LoadAll() ([]StudentFaceData, error) {
	ids, err := fs.ListStudents()
	if err != nil {
		return nil, err
	}

	students := make([]StudentFaceData, 0, len(ids))
	for _, id := range ids {
		student, err := fs.LoadStudent(id)
		if err != nil {
			logging.WithError(err).Warnf("Skipping unreadable record for student: %s", id)
			continue
		}
		students = append(students, *student)
	}

	return students, nil
}

// Gallery converts the stored records into matcher entries.
func (fs *FileStorage) Gallery() ([]recognition.GalleryEntry, error) {
	students, err := fs.LoadAll()
	if err != nil {
		return nil, err
	}

	gallery := make([]recognition.GalleryEntry, len(students))
	for i, s := range students {
		gallery[i] = recognition.GalleryEntry{
			StudentID: s.StudentID,
			Name:      s.Name,
			Vector:    s.Embedding,
		}
	}

	return gallery, nil
}

// encrypt encrypts data using NaCl secretbox.
func (fs *FileStorage) encrypt(plaintext []byte) ([]byte, error) {
	var nonce [NonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, err
	}

	encrypted := secretbox.Seal(nonce[:], plaintext, &nonce, &fs.encryptionKey)
	return encrypted, nil
}

// decrypt decrypts data using NaCl secretbox.
func (fs *FileStorage) decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < NonceSize {
		return nil, ErrEncryption
	}

	var nonce [NonceSize]byte
	copy(nonce[:], ciphertext[:NonceSize])

	plaintext, ok := secretbox.Open(nil, ciphertext[NonceSize:], &nonce, &fs.encryptionKey)
	if !ok {
		return nil, ErrEncryption
	}

	return plaintext, nil
}
