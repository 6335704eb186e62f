package attendance_test

import (
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"

	"github.com/attendly/classtrack/pkg/attendance"
)

func newMockRepo(t *testing.T) (*attendance.Repo, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mockSQL, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { mockDB.Close() })

	return attendance.New(sqlx.NewDb(mockDB, "sqlmock")), mockSQL
}

func Test_Repo_CreateSession(t *testing.T) {

	tests := []struct {
		name       string
		beforeTest func(sqlmock.Sqlmock)
		wantErr    bool
	}{
		{
			name: "fail create session",
			beforeTest: func(mockSQL sqlmock.Sqlmock) {
				mockSQL.
					ExpectExec(regexp.QuoteMeta(`
						INSERT INTO class_sessions
							(
							id,
							course_name,
							started_at
							)
						VALUES ($1, $2, $3)`,
					)).WithArgs(sqlmock.AnyArg(), "CS101", sqlmock.AnyArg()).
					WillReturnError(errors.New("whoops, error"))
			},
			wantErr: true,
		},
		{
			name: "success create session",
			beforeTest: func(mockSQL sqlmock.Sqlmock) {
				mockSQL.
					ExpectExec(regexp.QuoteMeta(`
						INSERT INTO class_sessions
							(
							id,
							course_name,
							started_at
							)
						VALUES ($1, $2, $3)`,
					)).WithArgs(sqlmock.AnyArg(), "CS101", sqlmock.AnyArg()).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, mockSQL := newMockRepo(t)

			if tt.beforeTest != nil {
				tt.beforeTest(mockSQL)
			}

			got, err := r.CreateSession("CS101")

			if (err != nil) != tt.wantErr {
				t.Errorf("Repo.CreateSession() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if !tt.wantErr {
				if got == nil || got.ID == "" {
					t.Error("expected session with generated ID")
				}
				if got != nil && got.CourseName != "CS101" {
					t.Errorf("expected course CS101, got %s", got.CourseName)
				}
			}
		})
	}
}

func Test_Repo_GetSession(t *testing.T) {

	type args struct {
		sessionID string
	}

	tests := []struct {
		name          string
		args          args
		beforeTest    func(sqlmock.Sqlmock)
		wantErr       bool
		wantErrorType error
	}{
		{
			name: "fail retrieve session: not found",
			args: args{sessionID: "abc"},
			beforeTest: func(mockSQL sqlmock.Sqlmock) {
				mockSQL.
					ExpectQuery(regexp.QuoteMeta(
						`SELECT
							id,
							course_name,
							started_at,
							ended_at
						FROM class_sessions
						WHERE id=$1`,
					)).WithArgs("abc").
					WillReturnError(sql.ErrNoRows)
			},
			wantErr:       true,
			wantErrorType: attendance.ErrSessionNotFound,
		},
		{
			name: "fail retrieve session",
			args: args{sessionID: "abc"},
			beforeTest: func(mockSQL sqlmock.Sqlmock) {
				mockSQL.
					ExpectQuery(regexp.QuoteMeta(
						`SELECT
							id,
							course_name,
							started_at,
							ended_at
						FROM class_sessions
						WHERE id=$1`,
					)).WithArgs("abc").
					WillReturnError(errors.New("db error"))
			},
			wantErr: true,
		},
		{
			name: "success retrieve session",
			args: args{sessionID: "abc"},
			beforeTest: func(mockSQL sqlmock.Sqlmock) {
				mockSQL.
					ExpectQuery(regexp.QuoteMeta(
						`SELECT
							id,
							course_name,
							started_at,
							ended_at
						FROM class_sessions
						WHERE id=$1`,
					)).WithArgs("abc").
					WillReturnRows(sqlmock.NewRows([]string{"id", "course_name", "started_at", "ended_at"}).
						AddRow("abc", "CS101", time.Now(), nil))
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, mockSQL := newMockRepo(t)

			if tt.beforeTest != nil {
				tt.beforeTest(mockSQL)
			}

			got, err := r.GetSession(tt.args.sessionID)

			if (err != nil) != tt.wantErr {
				t.Errorf("Repo.GetSession() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if tt.wantErrorType != nil && !errors.Is(err, tt.wantErrorType) {
				t.Errorf("expected error type %v, got %v", tt.wantErrorType, err)
			}

			if !tt.wantErr && got.ID != "abc" {
				t.Errorf("expected session abc, got %s", got.ID)
			}
		})
	}
}

func Test_Repo_CloseSession(t *testing.T) {

	closeQuery := regexp.QuoteMeta(
		`UPDATE class_sessions
			SET ended_at=$1
			WHERE id=$2 AND ended_at IS NULL`)

	getQuery := regexp.QuoteMeta(
		`SELECT
			id,
			course_name,
			started_at,
			ended_at
		FROM class_sessions
		WHERE id=$1`)

	tests := []struct {
		name          string
		beforeTest    func(sqlmock.Sqlmock)
		wantErrorType error
	}{
		{
			name: "success close session",
			beforeTest: func(mockSQL sqlmock.Sqlmock) {
				mockSQL.ExpectExec(closeQuery).
					WithArgs(sqlmock.AnyArg(), "abc").
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "fail close session: already closed",
			beforeTest: func(mockSQL sqlmock.Sqlmock) {
				mockSQL.ExpectExec(closeQuery).
					WithArgs(sqlmock.AnyArg(), "abc").
					WillReturnResult(sqlmock.NewResult(0, 0))
				mockSQL.ExpectQuery(getQuery).
					WithArgs("abc").
					WillReturnRows(sqlmock.NewRows([]string{"id", "course_name", "started_at", "ended_at"}).
						AddRow("abc", "CS101", time.Now(), time.Now()))
			},
			wantErrorType: attendance.ErrSessionClosed,
		},
		{
			name: "fail close session: not found",
			beforeTest: func(mockSQL sqlmock.Sqlmock) {
				mockSQL.ExpectExec(closeQuery).
					WithArgs(sqlmock.AnyArg(), "missing").
					WillReturnResult(sqlmock.NewResult(0, 0))
				mockSQL.ExpectQuery(getQuery).
					WithArgs("missing").
					WillReturnError(sql.ErrNoRows)
			},
			wantErrorType: attendance.ErrSessionNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, mockSQL := newMockRepo(t)

			if tt.beforeTest != nil {
				tt.beforeTest(mockSQL)
			}

			sessionID := "abc"
			if tt.name == "fail close session: not found" {
				sessionID = "missing"
			}

			err := r.CloseSession(sessionID)

			if tt.wantErrorType != nil {
				if !errors.Is(err, tt.wantErrorType) {
					t.Errorf("expected error type %v, got %v", tt.wantErrorType, err)
				}
				return
			}
			if err != nil {
				t.Errorf("Repo.CloseSession() unexpected error: %v", err)
			}
		})
	}
}

func Test_Repo_MarkAttendance(t *testing.T) {

	getQuery := regexp.QuoteMeta(
		`SELECT
			id,
			course_name,
			started_at,
			ended_at
		FROM class_sessions
		WHERE id=$1`)

	insertQuery := regexp.QuoteMeta(
		`INSERT INTO attendance
			(
			session_id,
			student_id,
			marked_at,
			distance
			)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (session_id, student_id) DO NOTHING`)

	openSessionRows := func() *sqlmock.Rows {
		return sqlmock.NewRows([]string{"id", "course_name", "started_at", "ended_at"}).
			AddRow("abc", "CS101", time.Now(), nil)
	}

	tests := []struct {
		name          string
		beforeTest    func(sqlmock.Sqlmock)
		wantMarked    bool
		wantErrorType error
	}{
		{
			name: "success first marking",
			beforeTest: func(mockSQL sqlmock.Sqlmock) {
				mockSQL.ExpectQuery(getQuery).WithArgs("abc").WillReturnRows(openSessionRows())
				mockSQL.ExpectExec(insertQuery).
					WithArgs("abc", "s1", sqlmock.AnyArg(), 0.31).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
			wantMarked: true,
		},
		{
			name: "repeated marking is a no-op",
			beforeTest: func(mockSQL sqlmock.Sqlmock) {
				mockSQL.ExpectQuery(getQuery).WithArgs("abc").WillReturnRows(openSessionRows())
				mockSQL.ExpectExec(insertQuery).
					WithArgs("abc", "s1", sqlmock.AnyArg(), 0.31).
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
			wantMarked: false,
		},
		{
			name: "fail marking on closed session",
			beforeTest: func(mockSQL sqlmock.Sqlmock) {
				mockSQL.ExpectQuery(getQuery).WithArgs("abc").
					WillReturnRows(sqlmock.NewRows([]string{"id", "course_name", "started_at", "ended_at"}).
						AddRow("abc", "CS101", time.Now(), time.Now()))
			},
			wantErrorType: attendance.ErrSessionClosed,
		},
		{
			name: "fail marking on unknown session",
			beforeTest: func(mockSQL sqlmock.Sqlmock) {
				mockSQL.ExpectQuery(getQuery).WithArgs("abc").WillReturnError(sql.ErrNoRows)
			},
			wantErrorType: attendance.ErrSessionNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, mockSQL := newMockRepo(t)

			if tt.beforeTest != nil {
				tt.beforeTest(mockSQL)
			}

			marked, err := r.MarkAttendance("abc", "s1", 0.31)

			if tt.wantErrorType != nil {
				if !errors.Is(err, tt.wantErrorType) {
					t.Errorf("expected error type %v, got %v", tt.wantErrorType, err)
				}
				return
			}
			if err != nil {
				t.Errorf("Repo.MarkAttendance() unexpected error: %v", err)
				return
			}
			if marked != tt.wantMarked {
				t.Errorf("Repo.MarkAttendance() marked = %v, want %v", marked, tt.wantMarked)
			}
		})
	}
}

func Test_Repo_ListBySession(t *testing.T) {

	query := regexp.QuoteMeta(
		`SELECT
			a.session_id,
			a.student_id,
			s.name,
			a.marked_at,
			a.distance
		FROM attendance a
		JOIN students s ON s.id = a.student_id
		WHERE a.session_id=$1
		ORDER BY a.marked_at`)

	tests := []struct {
		name       string
		beforeTest func(sqlmock.Sqlmock)
		wantCount  int
		wantErr    bool
	}{
		{
			name: "fail retrieve records",
			beforeTest: func(mockSQL sqlmock.Sqlmock) {
				mockSQL.ExpectQuery(query).WithArgs("abc").
					WillReturnError(errors.New("db error"))
			},
			wantErr: true,
		},
		{
			name: "success retrieve records",
			beforeTest: func(mockSQL sqlmock.Sqlmock) {
				mockSQL.ExpectQuery(query).WithArgs("abc").
					WillReturnRows(sqlmock.NewRows([]string{"session_id", "student_id", "name", "marked_at", "distance"}).
						AddRow("abc", "s1", "Alice", time.Now(), 0.31).
						AddRow("abc", "s2", "Bob", time.Now(), 0.28))
			},
			wantCount: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, mockSQL := newMockRepo(t)

			if tt.beforeTest != nil {
				tt.beforeTest(mockSQL)
			}

			got, err := r.ListBySession("abc")

			if (err != nil) != tt.wantErr {
				t.Errorf("Repo.ListBySession() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if len(got) != tt.wantCount {
				t.Errorf("Repo.ListBySession() returned %d records, want %d", len(got), tt.wantCount)
			}
		})
	}
}

func Test_Repo_GetSummary(t *testing.T) {
	r, mockSQL := newMockRepo(t)

	mockSQL.ExpectQuery(regexp.QuoteMeta(
		`SELECT
			c.id AS session_id,
			c.course_name,
			COUNT(a.student_id) AS present
		FROM class_sessions c
		LEFT JOIN attendance a ON a.session_id = c.id
		WHERE c.id=$1
		GROUP BY c.id, c.course_name`,
	)).WithArgs("abc").
		WillReturnRows(sqlmock.NewRows([]string{"session_id", "course_name", "present"}).
			AddRow("abc", "CS101", 17))

	summary, err := r.GetSummary("abc")
	if err != nil {
		t.Fatalf("Repo.GetSummary() unexpected error: %v", err)
	}
	if summary.Present != 17 {
		t.Errorf("expected 17 present, got %d", summary.Present)
	}
}

func Test_Repo_UpsertStudent(t *testing.T) {
	r, mockSQL := newMockRepo(t)

	mockSQL.ExpectExec(regexp.QuoteMeta(
		`INSERT INTO students
			(
			id,
			name
			)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name`,
	)).WithArgs("s1", "Alice").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := r.UpsertStudent("s1", "Alice"); err != nil {
		t.Errorf("Repo.UpsertStudent() unexpected error: %v", err)
	}
}

func Test_Repo_DeleteStudent_NotFound(t *testing.T) {
	r, mockSQL := newMockRepo(t)

	mockSQL.ExpectExec(regexp.QuoteMeta(`DELETE FROM students WHERE id=($1)`)).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := r.DeleteStudent("missing"); err == nil {
		t.Error("expected error for missing student")
	}
}
