package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/exam-timetable-api/internal/models"
)

func TestTimetableEntryRepositoryInsertBatch(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableEntryRepository(db)

	for _, examID := range []string{"E1", "E2"} {
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO timetable_entries")).
			WithArgs(sqlmock.AnyArg(), "tt-1", examID, "R1", "IRAN1", sqlmock.AnyArg(), 1, "Jour 1", sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(1, 1))
	}

	entries := []models.TimetableEntry{
		{TimetableID: "tt-1", ExamID: "E1", RoomID: "R1", RoomName: "IRAN1", Ordinal: 0, DayLabel: "Jour 1", SlotLabel: "8h-10h"},
		{TimetableID: "tt-1", ExamID: "E2", RoomID: "R1", RoomName: "IRAN1", Ordinal: 1, Span: 1, DayLabel: "Jour 1", SlotLabel: "10h-12h"},
	}
	require.NoError(t, repo.InsertBatch(context.Background(), nil, entries))
	assert.NotEmpty(t, entries[0].ID)
	assert.Equal(t, 1, entries[0].Span)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableEntryRepositoryInsertBatchError(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO timetable_entries")).WillReturnError(errors.New("unique violation"))

	err := NewTimetableEntryRepository(db).InsertBatch(context.Background(), nil, []models.TimetableEntry{{TimetableID: "tt-1", ExamID: "E1"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "E1")
}

func TestTimetableEntryRepositoryListByTimetable(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTimetableEntryRepository(db)

	rows := sqlmock.NewRows([]string{"id", "timetable_id", "exam_id", "room_id", "room_name", "ordinal", "span", "day_label", "slot_label", "created_at"}).
		AddRow("en-1", "tt-1", "E3", "R1", "IRAN1", 0, 1, "Jour 1", "8h-10h", time.Now()).
		AddRow("en-2", "tt-1", "E1", "R2", "IRAN2", 0, 1, "Jour 1", "8h-10h", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, timetable_id, exam_id, room_id, room_name, ordinal, span, day_label, slot_label, created_at FROM timetable_entries WHERE timetable_id = $1 ORDER BY ordinal ASC, room_name ASC, exam_id ASC")).
		WithArgs("tt-1").
		WillReturnRows(rows)

	entries, err := repo.ListByTimetable(context.Background(), "tt-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "E3", entries[0].ExamID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
