package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/exam-timetable-api/internal/models"
	appErrors "github.com/noah-isme/exam-timetable-api/pkg/errors"
	"github.com/noah-isme/exam-timetable-api/pkg/export"
	"github.com/noah-isme/exam-timetable-api/pkg/storage"
)

type timetableSource interface {
	Get(ctx context.Context, id string) (*models.Timetable, error)
	Entries(ctx context.Context, id string) ([]models.TimetableEntry, error)
}

type fileStorage interface {
	Save(name string, data []byte) (string, error)
	Read(name string) ([]byte, error)
	Delete(name string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type documentRenderer interface {
	Render(doc export.Document) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportResult captures successful generation metadata.
type ExportResult struct {
	RelativePath string
	Token        string
	URL          string
	Format       models.ExportFormat
	ExpiresAt    time.Time
}

// RenderedExport is an export rendered in memory for direct download.
type RenderedExport struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders stored timetables and persists the files.
type ExportService struct {
	timetables timetableSource
	exams      examReader
	storage    fileStorage
	csv        documentRenderer
	pdf        documentRenderer
	signer     *storage.SignedURLSigner
	logger     *zap.Logger
	cfg        ExportConfig
}

// NewExportService constructs an ExportService. exams is optional and only
// enriches rows with titles and head counts.
func NewExportService(timetables timetableSource, exams examReader, store fileStorage, signer *storage.SignedURLSigner, cfg ExportConfig, logger *zap.Logger, csv, pdf documentRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		timetables: timetables,
		exams:      exams,
		storage:    store,
		csv:        csv,
		pdf:        pdf,
		signer:     signer,
		logger:     logger,
		cfg:        cfg,
	}
}

// Render builds the export of a timetable without touching storage.
func (s *ExportService) Render(ctx context.Context, timetableID string, format models.ExportFormat) (*RenderedExport, error) {
	record, err := s.timetables.Get(ctx, timetableID)
	if err != nil {
		return nil, err
	}
	entries, err := s.timetables.Entries(ctx, timetableID)
	if err != nil {
		return nil, err
	}
	doc := s.buildDocument(ctx, record, entries)

	var payload []byte
	switch format {
	case models.ExportFormatCSV:
		payload, err = s.csv.Render(doc)
	case models.ExportFormatPDF:
		payload, err = s.pdf.Render(doc)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render timetable export")
	}
	return &RenderedExport{
		Filename:    buildFilename(record, format),
		ContentType: format.ContentType(),
		Data:        payload,
	}, nil
}

// Generate renders the export of a job, stores it and signs a download URL.
func (s *ExportService) Generate(ctx context.Context, job *models.ExportJob) (*ExportResult, error) {
	if job == nil {
		return nil, fmt.Errorf("job nil")
	}
	rendered, err := s.Render(ctx, job.TimetableID, job.Format)
	if err != nil {
		return nil, err
	}
	relPath, err := s.storage.Save(job.ID+"/"+rendered.Filename, rendered.Data)
	if err != nil {
		return nil, err
	}
	token, expiresAt, err := s.signer.Generate(job.ID, relPath)
	if err != nil {
		return nil, err
	}
	prefix := strings.TrimRight(s.cfg.APIPrefix, "/")
	if prefix == "" {
		prefix = "/api/v1"
	}
	s.logger.Debug("timetable export stored", zap.String("job_id", job.ID), zap.String("path", relPath), zap.Int("bytes", len(rendered.Data)))
	return &ExportResult{
		RelativePath: relPath,
		Token:        token,
		URL:          fmt.Sprintf("%s/exports/download?token=%s", prefix, url.QueryEscape(token)),
		Format:       job.Format,
		ExpiresAt:    expiresAt,
	}, nil
}

// ParseToken validates download token metadata.
func (s *ExportService) ParseToken(token string, allowExpired bool) (storage.Claims, error) {
	return s.signer.Parse(token, allowExpired)
}

// Read returns the stored file content.
func (s *ExportService) Read(relPath string) ([]byte, error) {
	return s.storage.Read(relPath)
}

// Delete removes a stored export file.
func (s *ExportService) Delete(relPath string) error {
	return s.storage.Delete(relPath)
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	return s.storage.CleanupOlderThan(ttl)
}

func (s *ExportService) buildDocument(ctx context.Context, record *models.Timetable, entries []models.TimetableEntry) export.Document {
	doc := export.Document{Title: fmt.Sprintf("Planning des examens %s v%d", record.Label, record.Version)}

	var meta timetableMeta
	if len(record.Meta) > 0 && json.Unmarshal(record.Meta, &meta) == nil {
		doc.Days = meta.Days
		for _, slot := range meta.Slots {
			doc.Slots = append(doc.Slots, slot.Label)
		}
	}
	if len(doc.Days) == 0 || len(doc.Slots) == 0 {
		doc.Days, doc.Slots = labelsFromEntries(entries)
	}

	exams := make(map[string]models.Exam)
	if s.exams != nil {
		rows, err := s.exams.List(ctx)
		if err != nil {
			s.logger.Warn("export continues without exam details", zap.Error(err))
		}
		for _, row := range rows {
			exams[row.ID] = row
		}
	}

	doc.Rows = make([]export.TimetableRow, 0, len(entries))
	for _, e := range entries {
		exam := exams[e.ExamID]
		doc.Rows = append(doc.Rows, export.TimetableRow{
			ExamID:   e.ExamID,
			Title:    exam.Title,
			RoomName: e.RoomName,
			Timeslot: e.Ordinal,
			Day:      e.DayLabel,
			Slot:     e.SlotLabel,
			Span:     atLeastOne(e.Span),
			Students: exam.Students,
		})
	}
	return doc
}

// labelsFromEntries recovers day and slot labels in first-seen order.
func labelsFromEntries(entries []models.TimetableEntry) ([]string, []string) {
	var days, slots []string
	seenDay := map[string]bool{}
	seenSlot := map[string]bool{}
	for _, e := range entries {
		if e.DayLabel != "" && !seenDay[e.DayLabel] {
			seenDay[e.DayLabel] = true
			days = append(days, e.DayLabel)
		}
		if e.SlotLabel != "" && !seenSlot[e.SlotLabel] {
			seenSlot[e.SlotLabel] = true
			slots = append(slots, e.SlotLabel)
		}
	}
	return days, slots
}

func buildFilename(record *models.Timetable, format models.ExportFormat) string {
	label := sanitizeFilename(record.Label)
	return fmt.Sprintf("timetable_%s_v%d.%s", label, record.Version, format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
