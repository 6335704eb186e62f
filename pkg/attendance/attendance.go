// Package attendance records which students were seen in which class
// session. Recognition results feed into it: when a tracked face matches
// an enrolled student within tolerance, the student is marked present for
// the active session. Marking is idempotent per session.
package attendance

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/attendly/classtrack/pkg/logging"
)

// ErrSessionNotFound is returned when the session does not exist.
var ErrSessionNotFound = errors.New("session not found")

// ErrSessionClosed is returned when marking attendance on an ended session.
var ErrSessionClosed = errors.New("session already closed")

// Session is one class meeting during which attendance is taken.
type Session struct {
	ID         string       `db:"id" json:"id"`
	CourseName string       `db:"course_name" json:"course_name"`
	StartedAt  time.Time    `db:"started_at" json:"started_at"`
	EndedAt    sql.NullTime `db:"ended_at" json:"ended_at,omitempty"`
}

// Record is one student marked present in one session.
type Record struct {
	SessionID string    `db:"session_id" json:"session_id"`
	StudentID string    `db:"student_id" json:"student_id"`
	Name      string    `db:"name" json:"name"`
	MarkedAt  time.Time `db:"marked_at" json:"marked_at"`
	Distance  float64   `db:"distance" json:"distance"`
}

// Summary aggregates one session's attendance.
type Summary struct {
	SessionID  string `db:"session_id" json:"session_id"`
	CourseName string `db:"course_name" json:"course_name"`
	Present    int    `db:"present" json:"present"`
}

// Repo persists sessions and attendance records.
type Repo struct {
	db *sqlx.DB
}

// New creates a Repo around the provided database connection.
func New(db *sqlx.DB) *Repo {
	return &Repo{db: db}
}

// Open connects to PostgreSQL and verifies the connection.
func Open(dsn string) (*Repo, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return New(db), nil
}

// Close releases the underlying connection pool.
func (r *Repo) Close() error {
	return r.db.Close()
}

// schema is applied at startup. Attendance is unique per student per
// session, which makes repeated sightings of the same face harmless.
const schema = `
CREATE TABLE IF NOT EXISTS students (
	id   TEXT PRIMARY KEY,
	name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS class_sessions (
	id          TEXT PRIMARY KEY,
	course_name TEXT NOT NULL,
	started_at  TIMESTAMPTZ NOT NULL,
	ended_at    TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS attendance (
	session_id TEXT NOT NULL REFERENCES class_sessions(id),
	student_id TEXT NOT NULL REFERENCES students(id),
	marked_at  TIMESTAMPTZ NOT NULL,
	distance   DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (session_id, student_id)
);`

// EnsureSchema creates the tables if they do not exist.
func (r *Repo) EnsureSchema() error {
	if _, err := r.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// UpsertStudent registers or renames a student on the roster.
func (r *Repo) UpsertStudent(studentID, name string) (err error) {

	query := `INSERT INTO students
				(
				id,
				name
				)
			VALUES ($1, $2)
			ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name`

	_, err = r.db.Exec(query, studentID, name)
	if err != nil {
		return err
	}

	return err
}

// DeleteStudent removes a student from the roster.
func (r *Repo) DeleteStudent(studentID string) (err error) {
	var result sql.Result
	var rowsDeleted int64

	query := `DELETE FROM students WHERE id=($1)`

	result, err = r.db.Exec(query, studentID)
	if err != nil {
		return err
	}

	rowsDeleted, err = result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsDeleted == 0 {
		return errors.New("operation unsuccessful: row not found")
	}

	return err
}

// CreateSession opens a new class session and returns it.
func (r *Repo) CreateSession(courseName string) (session *Session, err error) {
	session = &Session{
		ID:         uuid.NewString(),
		CourseName: courseName,
		StartedAt:  time.Now(),
	}

	query := `INSERT INTO class_sessions
				(
				id,
				course_name,
				started_at
				)
			VALUES ($1, $2, $3)`

	_, err = r.db.Exec(query, session.ID, session.CourseName, session.StartedAt)
	if err != nil {
		return nil, err
	}

	logging.Component("attendance").Infof("Opened session %s for course: %s", session.ID, courseName)
	return session, err
}

// GetSession retrieves a session by its ID.
func (r *Repo) GetSession(sessionID string) (session *Session, err error) {
	session = &Session{}

	query := `SELECT
				id,
				course_name,
				started_at,
				ended_at
			FROM class_sessions
			WHERE id=$1`

	if err = r.db.Get(session, query, sessionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	return session, err
}

// CloseSession marks a session as ended. Closing an already closed
// session fails with ErrSessionClosed.
func (r *Repo) CloseSession(sessionID string) (err error) {
	var result sql.Result
	var rowsAffected int64

	query := `UPDATE class_sessions
				SET ended_at=$1
				WHERE id=$2 AND ended_at IS NULL`

	result, err = r.db.Exec(query, time.Now(), sessionID)
	if err != nil {
		return err
	}

	rowsAffected, err = result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		if _, err := r.GetSession(sessionID); err != nil {
			return err
		}
		return ErrSessionClosed
	}

	return err
}

// MarkAttendance records a student as present in a session. Repeated
// markings for the same student in the same session are no-ops, so the
// stream can report every recognized frame without bookkeeping.
func (r *Repo) MarkAttendance(sessionID, studentID string, distance float64) (marked bool, err error) {
	session, err := r.GetSession(sessionID)
	if err != nil {
		return false, err
	}
	if session.EndedAt.Valid {
		return false, ErrSessionClosed
	}

	query := `INSERT INTO attendance
				(
				session_id,
				student_id,
				marked_at,
				distance
				)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (session_id, student_id) DO NOTHING`

	result, err := r.db.Exec(query, sessionID, studentID, time.Now(), distance)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	if rowsAffected > 0 {
		logging.Component("attendance").WithFields(logging.Fields{
			"session": sessionID,
			"student": studentID,
		}).Info("Marked student present")
	}

	return rowsAffected > 0, err
}

// ListBySession retrieves all attendance records for a session with
// student names joined in.
func (r *Repo) ListBySession(sessionID string) (records []*Record, err error) {

	query := `SELECT
				a.session_id,
				a.student_id,
				s.name,
				a.marked_at,
				a.distance
			FROM attendance a
			JOIN students s ON s.id = a.student_id
			WHERE a.session_id=$1
			ORDER BY a.marked_at`

	if err = r.db.Select(&records, query, sessionID); err != nil {
		return nil, err
	}

	return records, err
}

// GetSummary returns the present count for one session.
func (r *Repo) GetSummary(sessionID string) (summary *Summary, err error) {
	summary = &Summary{}

	query := `SELECT
				c.id AS session_id,
				c.course_name,
				COUNT(a.student_id) AS present
			FROM class_sessions c
			LEFT JOIN attendance a ON a.session_id = c.id
			WHERE c.id=$1
			GROUP BY c.id, c.course_name`

	if err = r.db.Get(summary, query, sessionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	return summary, err
}
