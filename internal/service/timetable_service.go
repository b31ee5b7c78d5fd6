package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/noah-isme/exam-timetable-api/internal/dto"
	"github.com/noah-isme/exam-timetable-api/internal/engine"
	"github.com/noah-isme/exam-timetable-api/internal/models"
	appErrors "github.com/noah-isme/exam-timetable-api/pkg/errors"
)

const defaultTimetableLabel = "session"

type examReader interface {
	List(ctx context.Context) ([]models.Exam, error)
}

type roomReader interface {
	List(ctx context.Context) ([]models.Room, error)
}

type timetableRepository interface {
	CreateVersioned(ctx context.Context, exec sqlx.ExtContext, timetable *models.Timetable) error
	List(ctx context.Context, filter models.TimetableFilter) ([]models.Timetable, int, error)
	FindByID(ctx context.Context, id string) (*models.Timetable, error)
	Delete(ctx context.Context, id string) error
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.TimetableStatus, meta types.JSONText) error
	ArchivePublished(ctx context.Context, exec sqlx.ExtContext, keepID string) (int64, error)
}

type timetableEntryRepository interface {
	InsertBatch(ctx context.Context, exec sqlx.ExtContext, entries []models.TimetableEntry) error
	ListByTimetable(ctx context.Context, timetableID string) ([]models.TimetableEntry, error)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type resultCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// TimetableConfig governs generation behaviour.
type TimetableConfig struct {
	Grid         engine.Grid
	NodeBudget   int
	Timeout      time.Duration
	ProposalTTL  time.Duration
	SpanDuration bool
	CacheTTL     time.Duration
}

// TimetableService runs the engine over stored or inline snapshots and
// manages the proposal → draft → published lifecycle.
type TimetableService struct {
	exams      examReader
	rooms      roomReader
	timetables timetableRepository
	entries    timetableEntryRepository
	tx         txProvider
	cache      resultCache
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	cfg        TimetableConfig
	store      *proposalStore
}

// NewTimetableService wires timetable dependencies.
func NewTimetableService(
	exams examReader,
	rooms roomReader,
	timetables timetableRepository,
	entries timetableEntryRepository,
	tx txProvider,
	cache resultCache,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg TimetableConfig,
) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Grid.Len() == 0 {
		cfg.Grid = engine.DefaultGrid()
	}
	if cfg.NodeBudget <= 0 {
		cfg.NodeBudget = engine.DefaultNodeBudget
	}
	if cfg.ProposalTTL <= 0 {
		cfg.ProposalTTL = 30 * time.Minute
	}
	return &TimetableService{
		exams:      exams,
		rooms:      rooms,
		timetables: timetables,
		entries:    entries,
		tx:         tx,
		cache:      cache,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		cfg:        cfg,
		store:      newProposalStore(cfg.ProposalTTL),
	}
}

// Grid returns the configured session grid.
func (s *TimetableService) Grid() engine.Grid {
	return s.cfg.Grid
}

// cachedResult is the cached form of a successful solve.
type cachedResult struct {
	Assignments []engine.Assignment `json:"assignments"`
	Stats       engine.Stats        `json:"stats"`
}

// Generate builds a timetable proposal. Exams or rooms missing from the
// request are loaded from the store.
func (s *TimetableService) Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable generation payload")
	}
	snap, err := s.snapshot(ctx, req.Exams, req.Rooms, req.Grid)
	if err != nil {
		return nil, err
	}
	return s.generate(ctx, snap, s.options(req), true)
}

// Regenerate solves the stored snapshot again without consulting the cache.
func (s *TimetableService) Regenerate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error) {
	req.Exams, req.Rooms = nil, nil
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable generation payload")
	}
	snap, err := s.snapshot(ctx, nil, nil, req.Grid)
	if err != nil {
		return nil, err
	}
	return s.generate(ctx, snap, s.options(req), false)
}

func (s *TimetableService) options(req dto.GenerateTimetableRequest) engine.Options {
	opts := engine.Options{NodeBudget: s.cfg.NodeBudget, SpanDuration: s.cfg.SpanDuration}
	if req.NodeBudget > 0 {
		opts.NodeBudget = req.NodeBudget
	}
	if req.SpanDuration != nil {
		opts.SpanDuration = *req.SpanDuration
	}
	return opts
}

func (s *TimetableService) generate(ctx context.Context, snap engine.Snapshot, opts engine.Options, useCache bool) (*dto.GenerateTimetableResponse, error) {
	digest, err := snapshotDigest(snap, opts)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fingerprint snapshot")
	}
	cacheKey := "generate:" + digest
	start := time.Now()

	var cached cachedResult
	hit := false
	if useCache && s.cache != nil {
		if hit, err = s.cache.Get(ctx, cacheKey, &cached); err != nil {
			hit = false
		}
	}

	var result engine.Result
	if hit {
		result = engine.Result{Schedule: engine.Schedule{Assignments: cached.Assignments}, Stats: cached.Stats}
		s.metrics.RecordGeneration(OutcomeCached)
	} else {
		solved, solveErr := s.solve(ctx, snap, opts)
		if solveErr != nil {
			return nil, solveErr
		}
		result = *solved
		if s.cache != nil {
			_ = s.cache.Set(ctx, cacheKey, cachedResult{Assignments: result.Schedule.Assignments, Stats: result.Stats}, s.cfg.CacheTTL)
		}
		s.metrics.RecordGeneration(OutcomeSolved)
	}
	elapsed := time.Since(start)

	proposal := timetableProposal{
		ID:          uuid.NewString(),
		Digest:      digest,
		Snapshot:    snap,
		Options:     opts,
		Result:      result,
		GeneratedAt: time.Now().UTC(),
	}
	s.store.Save(proposal)

	s.logger.Info("timetable generated",
		zap.String("proposal_id", proposal.ID),
		zap.String("digest", digest),
		zap.Int("exams", len(snap.Exams)),
		zap.Int("rooms", len(snap.Rooms)),
		zap.Int("nodes", result.Stats.Nodes),
		zap.Bool("cached", hit),
		zap.Duration("elapsed", elapsed),
	)

	assignments := result.Schedule.Assignments
	return &dto.GenerateTimetableResponse{
		ProposalID:  proposal.ID,
		Digest:      digest,
		Schedule:    scheduleRecords(assignments),
		Assignments: assignmentViews(assignments, snap),
		Stats:       buildStats(snap, assignments, result.Stats, elapsed, hit),
	}, nil
}

func (s *TimetableService) solve(ctx context.Context, snap engine.Snapshot, opts engine.Options) (*engine.Result, error) {
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := engine.Solve(ctx, snap, opts)
	elapsed := time.Since(start)
	if err != nil {
		nodes := 0
		outcome := OutcomeError
		if infeasible, ok := engine.AsInfeasibility(err); ok {
			nodes = infeasible.Nodes
			outcome = string(infeasible.Kind)
		}
		s.metrics.ObserveSolve(elapsed, nodes)
		s.metrics.RecordGeneration(outcome)
		s.logger.Warn("timetable generation failed",
			zap.String("outcome", outcome),
			zap.Int("exams", len(snap.Exams)),
			zap.Int("nodes", nodes),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return nil, solveError(err)
	}
	s.metrics.ObserveSolve(elapsed, result.Stats.Nodes)
	return result, nil
}

func buildStats(snap engine.Snapshot, assignments []engine.Assignment, stats engine.Stats, elapsed time.Duration, cached bool) dto.TimetableStats {
	rooms := make(map[string]struct{}, len(snap.Rooms))
	for _, a := range assignments {
		rooms[a.RoomID] = struct{}{}
	}
	return dto.TimetableStats{
		ExamsScheduled:    len(assignments),
		ExamsTotal:        len(snap.Exams),
		ConflictsDetected: len(engine.CheckConflicts(assignments, snap.Exams)),
		RoomsUsed:         len(rooms),
		RoomsTotal:        len(snap.Rooms),
		Nodes:             stats.Nodes,
		Backtracks:        stats.Backtracks,
		MaxDepth:          stats.MaxDepth,
		DurationMs:        elapsed.Milliseconds(),
		Cached:            cached,
	}
}

// CheckConflicts lists cohort clashes in a candidate set of assignments.
func (s *TimetableService) CheckConflicts(ctx context.Context, req dto.ConflictCheckRequest) ([]dto.ConflictView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid conflict check payload")
	}
	exams := examsFromInput(req.Exams)
	if len(req.Exams) == 0 {
		var err error
		if exams, err = s.loadExams(ctx); err != nil {
			return nil, err
		}
	}
	return conflictViews(engine.CheckConflicts(assignmentsFromInput(req.Assignments), exams)), nil
}

// Verify checks a candidate schedule against every invariant.
func (s *TimetableService) Verify(ctx context.Context, req dto.VerifyRequest) (*dto.VerifyResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid verification payload")
	}
	snap, err := s.snapshot(ctx, req.Exams, req.Rooms, req.Grid)
	if err != nil {
		return nil, err
	}
	if err := snap.Grid.Validate(); err != nil {
		return nil, solveError(err)
	}
	violations := engine.Verify(assignmentsFromInput(req.Assignments), snap)
	return &dto.VerifyResponse{Valid: len(violations) == 0, Violations: violationViews(violations)}, nil
}

// timetableMeta is stored with every saved timetable.
type timetableMeta struct {
	ProposalID   string       `json:"proposalId"`
	Digest       string       `json:"digest"`
	Days         []string     `json:"days"`
	Slots        []slotMeta   `json:"slots"`
	NodeBudget   int          `json:"nodeBudget"`
	SpanDuration bool         `json:"spanDuration"`
	ExamsTotal   int          `json:"examsTotal"`
	RoomsTotal   int          `json:"roomsTotal"`
	Stats        engine.Stats `json:"stats"`
	GeneratedAt  time.Time    `json:"generatedAt"`
}

type slotMeta struct {
	Label   string `json:"label"`
	Daytime string `json:"daytime"`
}

func (m timetableMeta) grid() engine.Grid {
	grid := engine.Grid{Days: m.Days}
	for _, slot := range m.Slots {
		grid.Slots = append(grid.Slots, engine.SlotDef{Label: slot.Label, Daytime: engine.Daytime(slot.Daytime)})
	}
	return grid
}

// Save persists a proposal as a new DRAFT timetable version.
func (s *TimetableService) Save(ctx context.Context, req dto.SaveTimetableRequest) (*models.Timetable, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid save timetable payload")
	}
	proposal, ok := s.store.Get(req.ProposalID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "proposal not found or expired")
	}
	if s.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}

	meta := timetableMeta{
		ProposalID:   proposal.ID,
		Digest:       proposal.Digest,
		Days:         proposal.Snapshot.Grid.Days,
		NodeBudget:   proposal.Options.NodeBudget,
		SpanDuration: proposal.Options.SpanDuration,
		ExamsTotal:   len(proposal.Snapshot.Exams),
		RoomsTotal:   len(proposal.Snapshot.Rooms),
		Stats:        proposal.Result.Stats,
		GeneratedAt:  proposal.GeneratedAt,
	}
	for _, slot := range proposal.Snapshot.Grid.Slots {
		meta.Slots = append(meta.Slots, slotMeta{Label: slot.Label, Daytime: string(slot.Daytime)})
	}
	metaBytes, err := json.Marshal(meta)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode timetable metadata")
	}

	label := req.Label
	if label == "" {
		label = defaultTimetableLabel
	}
	record := &models.Timetable{
		Label:  label,
		Status: models.TimetableStatusDraft,
		Meta:   types.JSONText(metaBytes),
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.timetables.CreateVersioned(ctx, tx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create timetable")
	}

	grid := proposal.Snapshot.Grid
	entries := make([]models.TimetableEntry, 0, len(proposal.Result.Schedule.Assignments))
	for _, a := range proposal.Result.Schedule.Assignments {
		ts, _ := grid.Timeslot(a.Ordinal)
		entries = append(entries, models.TimetableEntry{
			TimetableID: record.ID,
			ExamID:      a.ExamID,
			RoomID:      a.RoomID,
			RoomName:    a.RoomName,
			Ordinal:     a.Ordinal,
			Span:        atLeastOne(a.Span),
			DayLabel:    ts.DayLabel,
			SlotLabel:   ts.Label,
		})
	}
	if err = s.entries.InsertBatch(ctx, tx, entries); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist timetable entries")
	}
	if err = tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit timetable transaction")
	}

	s.store.Delete(req.ProposalID)
	s.logger.Info("timetable saved", zap.String("timetable_id", record.ID), zap.String("label", record.Label), zap.Int("version", record.Version))
	return record, nil
}

// List returns stored timetable versions.
func (s *TimetableService) List(ctx context.Context, query dto.TimetableQuery) ([]models.Timetable, *models.Pagination, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable query")
	}
	filter := models.TimetableFilter{
		Label:    query.Label,
		Status:   models.TimetableStatus(query.Status),
		Page:     query.Page,
		PageSize: query.PageSize,
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	list, total, err := s.timetables.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetables")
	}
	return list, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}, nil
}

// Get loads one stored timetable.
func (s *TimetableService) Get(ctx context.Context, id string) (*models.Timetable, error) {
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "timetable id is required")
	}
	record, err := s.timetables.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	return record, nil
}

// Entries returns the stored assignments of a timetable.
func (s *TimetableService) Entries(ctx context.Context, id string) ([]models.TimetableEntry, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	entries, err := s.entries.ListByTimetable(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetable entries")
	}
	return entries, nil
}

// Publish re-verifies a draft against the current exams and rooms, archives
// the previously published version and publishes this one.
func (s *TimetableService) Publish(ctx context.Context, id string) (*models.Timetable, error) {
	record, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.Status != models.TimetableStatusDraft {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("only draft timetables can be published, this one is %s", record.Status))
	}

	entries, err := s.entries.ListByTimetable(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetable entries")
	}
	grid := s.cfg.Grid
	var meta timetableMeta
	if len(record.Meta) > 0 && json.Unmarshal(record.Meta, &meta) == nil && len(meta.Days) > 0 && len(meta.Slots) > 0 {
		grid = meta.grid()
	}
	snap, err := s.snapshot(ctx, nil, nil, nil)
	if err != nil {
		return nil, err
	}
	snap.Grid = grid
	if violations := engine.Verify(assignmentsFromEntries(entries), snap); len(violations) > 0 {
		s.logger.Warn("timetable failed re-verification", zap.String("timetable_id", id), zap.Int("violations", len(violations)))
		return nil, appErrors.Clone(appErrors.ErrConflict, "timetable no longer satisfies the current exams and rooms").WithDetails(violationViews(violations))
	}

	if s.tx == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var archived int64
	if archived, err = s.timetables.ArchivePublished(ctx, tx, id); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to archive published timetable")
	}
	if err = s.timetables.UpdateStatus(ctx, tx, id, models.TimetableStatusPublished, nil); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to publish timetable")
	}
	if err = tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit timetable transaction")
	}

	record.Status = models.TimetableStatusPublished
	record.UpdatedAt = time.Now().UTC()
	s.logger.Info("timetable published", zap.String("timetable_id", id), zap.Int64("archived", archived))
	return record, nil
}

// Delete removes a draft timetable version.
func (s *TimetableService) Delete(ctx context.Context, id string) error {
	record, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if record.Status != models.TimetableStatusDraft {
		return appErrors.Clone(appErrors.ErrConflict, "only draft timetables can be deleted")
	}
	if err := s.timetables.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete timetable")
	}
	return nil
}

// snapshot assembles a snapshot from inline entities, falling back to the
// store for whichever of exams or rooms is absent.
func (s *TimetableService) snapshot(ctx context.Context, exams []dto.ExamInput, rooms []dto.RoomInput, grid *dto.GridInput) (engine.Snapshot, error) {
	snap := engine.Snapshot{Grid: gridFromInput(grid, s.cfg.Grid)}

	if len(exams) > 0 {
		snap.Exams = examsFromInput(exams)
	} else {
		loaded, err := s.loadExams(ctx)
		if err != nil {
			return engine.Snapshot{}, err
		}
		snap.Exams = loaded
	}

	if len(rooms) > 0 {
		mapped, err := roomsFromInput(rooms)
		if err != nil {
			return engine.Snapshot{}, err
		}
		snap.Rooms = mapped
	} else {
		if s.rooms == nil {
			return engine.Snapshot{}, appErrors.Clone(appErrors.ErrPreconditionFailed, "no room store configured; supply rooms inline")
		}
		rows, err := s.rooms.List(ctx)
		if err != nil {
			return engine.Snapshot{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rooms")
		}
		snap.Rooms = roomsFromModels(rows)
	}
	return snap, nil
}

func (s *TimetableService) loadExams(ctx context.Context) ([]engine.Exam, error) {
	if s.exams == nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "no exam store configured; supply exams inline")
	}
	rows, err := s.exams.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exams")
	}
	return examsFromModels(rows), nil
}
