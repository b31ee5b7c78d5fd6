package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-timetable-api/internal/models"
	appErrors "github.com/noah-isme/exam-timetable-api/pkg/errors"
	"github.com/noah-isme/exam-timetable-api/pkg/export"
	"github.com/noah-isme/exam-timetable-api/pkg/storage"
)

type timetableSourceStub struct {
	records map[string]*models.Timetable
	entries map[string][]models.TimetableEntry
}

func (s timetableSourceStub) Get(_ context.Context, id string) (*models.Timetable, error) {
	record, ok := s.records[id]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
	}
	return record, nil
}

func (s timetableSourceStub) Entries(ctx context.Context, id string) ([]models.TimetableEntry, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.entries[id], nil
}

func newTimetableSourceStub(t *testing.T) timetableSourceStub {
	return timetableSourceStub{
		records: map[string]*models.Timetable{
			"tt-1": {ID: "tt-1", Label: "juin 2024", Version: 2, Status: models.TimetableStatusDraft, Meta: twoSlotMeta(t)},
		},
		entries: map[string][]models.TimetableEntry{
			"tt-1": {
				{ExamID: "E3", RoomID: "R1", RoomName: "IRAN1", Ordinal: 0, Span: 1, DayLabel: "Jour 1", SlotLabel: "8h-10h"},
				{ExamID: "E1", RoomID: "R2", RoomName: "IRAN2", Ordinal: 0, Span: 1, DayLabel: "Jour 1", SlotLabel: "8h-10h"},
				{ExamID: "E2", RoomID: "R2", RoomName: "IRAN2", Ordinal: 1, Span: 1, DayLabel: "Jour 1", SlotLabel: "13h-15h"},
			},
		},
	}
}

func newExportServiceForTest(t *testing.T) (*ExportService, *storage.LocalStorage) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("secret", time.Hour)
	cfg := ExportConfig{APIPrefix: "/api/v1", ResultTTL: time.Hour}
	svc := NewExportService(newTimetableSourceStub(t), examReaderStub{items: storedExams()}, store, signer, cfg, zap.NewNop(), export.NewCSVExporter(), export.NewPDFExporter())
	return svc, store
}

func TestExportServiceRenderCSV(t *testing.T) {
	svc, _ := newExportServiceForTest(t)

	rendered, err := svc.Render(context.Background(), "tt-1", models.ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "timetable_juin_2024_v2.csv", rendered.Filename)
	assert.Equal(t, "text/csv", rendered.ContentType)

	lines := strings.Split(strings.TrimSpace(string(rendered.Data)), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "exam_id,title,room,timeslot,day,slot,span,students", lines[0])
	assert.Equal(t, "E3,Bases de donnees,IRAN1,0,Jour 1,8h-10h,1,60", lines[1])
}

func TestExportServiceRenderPDF(t *testing.T) {
	svc, _ := newExportServiceForTest(t)

	rendered, err := svc.Render(context.Background(), "tt-1", models.ExportFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", rendered.ContentType)
	assert.True(t, strings.HasPrefix(string(rendered.Data), "%PDF"))
}

func TestExportServiceRenderErrors(t *testing.T) {
	svc, _ := newExportServiceForTest(t)

	_, err := svc.Render(context.Background(), "missing", models.ExportFormatCSV)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	_, err = svc.Render(context.Background(), "tt-1", models.ExportFormat("xlsx"))
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestExportServiceGenerateStoresAndSigns(t *testing.T) {
	svc, store := newExportServiceForTest(t)

	result, err := svc.Generate(context.Background(), &models.ExportJob{ID: "job-1", TimetableID: "tt-1", Format: models.ExportFormatCSV})
	require.NoError(t, err)
	assert.Equal(t, "job-1/timetable_juin_2024_v2.csv", result.RelativePath)
	assert.True(t, strings.HasPrefix(result.URL, "/api/v1/exports/download?token="))

	data, err := store.Read(result.RelativePath)
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	claims, err := svc.ParseToken(result.Token, false)
	require.NoError(t, err)
	assert.Equal(t, "job-1", claims.JobID)
	assert.Equal(t, result.RelativePath, claims.Path)
}

func TestLabelsFromEntries(t *testing.T) {
	days, slots := labelsFromEntries([]models.TimetableEntry{
		{DayLabel: "Jour 2", SlotLabel: "13h-15h"},
		{DayLabel: "Jour 1", SlotLabel: "8h-10h"},
		{DayLabel: "Jour 2", SlotLabel: "8h-10h"},
	})
	assert.Equal(t, []string{"Jour 2", "Jour 1"}, days)
	assert.Equal(t, []string{"13h-15h", "8h-10h"}, slots)
}
