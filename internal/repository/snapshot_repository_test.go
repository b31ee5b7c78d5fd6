package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exam-timetable-api/internal/models"
)

func TestExamRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, title, duration, students, departments, created_at, updated_at FROM exams ORDER BY id ASC")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "duration", "students", "departments", "created_at", "updated_at"}).
			AddRow("E1", "Algèbre", 2, 45, []byte("{GL-L1,IM-L2}"), now, now))

	exams, err := NewExamRepository(db).List(context.Background())
	require.NoError(t, err)
	require.Len(t, exams, 1)
	assert.Equal(t, pq.StringArray{"GL-L1", "IM-L2"}, exams[0].Departments)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExamRepositoryListError(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("FROM exams")).WillReturnError(errors.New("connection reset"))

	_, err := NewExamRepository(db).List(context.Background())
	assert.ErrorContains(t, err, "list exams")
}

func TestRoomRepositoryList(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, capacity, availability, daytime_restriction, specific_days, created_at, updated_at FROM rooms ORDER BY name ASC")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "capacity", "availability", "daytime_restriction", "specific_days", "created_at", "updated_at"}).
			AddRow("R1", "IRAN1", 120, 100, "MORNING_ONLY", []byte("{\"Jour 1\",\"Jour 3\"}"), now, now).
			AddRow("R2", "IRAN2", 80, 0, "", []byte("{}"), now, now))

	rooms, err := NewRoomRepository(db).List(context.Background())
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, models.RoomDaytimeMorning, rooms[0].Daytime)
	assert.Equal(t, pq.StringArray{"Jour 1", "Jour 3"}, rooms[0].SpecificDays)
	assert.Empty(t, rooms[1].SpecificDays)
	assert.NoError(t, mock.ExpectationsWereMet())
}
