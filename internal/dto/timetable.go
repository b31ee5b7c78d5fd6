package dto

import "time"

// RestrictionsInput is the room usage form: morningOnly and afternoonOnly
// are mutually exclusive.
type RestrictionsInput struct {
	MorningOnly   bool     `json:"morningOnly"`
	AfternoonOnly bool     `json:"afternoonOnly" validate:"excluded_if=MorningOnly true"`
	SpecificDays  []string `json:"specificDays" validate:"omitempty,dive,required"`
}

// ExamInput is an exam supplied inline with a request.
type ExamInput struct {
	ID          string   `json:"id" validate:"required"`
	Title       string   `json:"title"`
	Duration    int      `json:"duration" validate:"omitempty,min=1"`
	Students    int      `json:"students" validate:"min=0"`
	Departments []string `json:"departments" validate:"required,min=1,dive,required"`
}

// RoomInput is a room supplied inline with a request.
type RoomInput struct {
	ID           string            `json:"id"`
	Name         string            `json:"name" validate:"required"`
	Capacity     int               `json:"capacity" validate:"required,min=1"`
	Availability *int              `json:"availability" validate:"omitempty,min=0,max=100"`
	Restrictions RestrictionsInput `json:"restrictions"`
}

// SlotInput is one slot of a custom session grid.
type SlotInput struct {
	Label   string `json:"label" validate:"required"`
	Daytime string `json:"daytime" validate:"required,oneof=MORNING AFTERNOON"`
}

// GridInput overrides the configured session grid.
type GridInput struct {
	Days  []string    `json:"days" validate:"required,min=1,dive,required"`
	Slots []SlotInput `json:"slots" validate:"required,min=1,dive"`
}

// GenerateTimetableRequest asks for a timetable. Without exams and rooms the
// snapshot is loaded from the store.
type GenerateTimetableRequest struct {
	Exams        []ExamInput `json:"exams" validate:"omitempty,dive"`
	Rooms        []RoomInput `json:"rooms" validate:"omitempty,dive"`
	Grid         *GridInput  `json:"grid" validate:"omitempty"`
	NodeBudget   int         `json:"nodeBudget" validate:"omitempty,min=1"`
	SpanDuration *bool       `json:"spanDuration"`
}

// Inline reports whether the request carries its own snapshot.
func (r GenerateTimetableRequest) Inline() bool {
	return len(r.Exams) > 0 || len(r.Rooms) > 0
}

// AssignmentInput is a candidate placement checked by the conflict and
// verification endpoints. The room may be given by id or by name.
type AssignmentInput struct {
	ExamID   string `json:"examId" validate:"required"`
	RoomID   string `json:"roomId"`
	RoomName string `json:"roomName"`
	Timeslot int    `json:"timeslot" validate:"min=0"`
	Span     int    `json:"span" validate:"omitempty,min=1"`
}

// ConflictCheckRequest runs the cohort clash query over assignments.
type ConflictCheckRequest struct {
	Assignments []AssignmentInput `json:"assignments" validate:"required,dive"`
	Exams       []ExamInput       `json:"exams" validate:"omitempty,dive"`
}

// VerifyRequest checks a candidate schedule against every invariant.
type VerifyRequest struct {
	Assignments []AssignmentInput `json:"assignments" validate:"required,dive"`
	Exams       []ExamInput       `json:"exams" validate:"omitempty,dive"`
	Rooms       []RoomInput       `json:"rooms" validate:"omitempty,dive"`
	Grid        *GridInput        `json:"grid" validate:"omitempty"`
}

// SaveTimetableRequest persists a proposal as a DRAFT timetable.
type SaveTimetableRequest struct {
	ProposalID string `json:"proposalId" validate:"required"`
	Label      string `json:"label" validate:"omitempty,max=120"`
}

// TimetableQuery filters the timetable listing.
type TimetableQuery struct {
	Label    string `form:"label"`
	Status   string `form:"status" validate:"omitempty,oneof=DRAFT PUBLISHED ARCHIVED"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"page_size" validate:"omitempty,min=1,max=100"`
}

// ExportRequest selects the export format.
type ExportRequest struct {
	Format string `json:"format" form:"format" validate:"required,oneof=csv pdf"`
}

// ScheduleRecord is the flat wire record (examen, salle, creneau).
type ScheduleRecord struct {
	ExamID   string `json:"examId"`
	RoomName string `json:"roomName"`
	Timeslot int    `json:"timeslot"`
}

// AssignmentView is a placement with its grid labels resolved.
type AssignmentView struct {
	ExamID   string `json:"examId"`
	Title    string `json:"title,omitempty"`
	RoomID   string `json:"roomId"`
	RoomName string `json:"roomName"`
	Timeslot int    `json:"timeslot"`
	Span     int    `json:"span"`
	Day      string `json:"day"`
	Slot     string `json:"slot"`
}

// TimetableStats feeds the planning status card.
type TimetableStats struct {
	ExamsScheduled    int   `json:"examsScheduled"`
	ExamsTotal        int   `json:"examsTotal"`
	ConflictsDetected int   `json:"conflictsDetected"`
	RoomsUsed         int   `json:"roomsUsed"`
	RoomsTotal        int   `json:"roomsTotal"`
	Nodes             int   `json:"nodes"`
	Backtracks        int   `json:"backtracks"`
	MaxDepth          int   `json:"maxDepth"`
	DurationMs        int64 `json:"durationMs"`
	Cached            bool  `json:"cached"`
}

// GenerateTimetableResponse returns a generated proposal.
type GenerateTimetableResponse struct {
	ProposalID  string           `json:"proposalId"`
	Digest      string           `json:"digest"`
	Schedule    []ScheduleRecord `json:"schedule"`
	Assignments []AssignmentView `json:"assignments"`
	Stats       TimetableStats   `json:"stats"`
}

// InfeasibilityReport is the structured failure placed in error.details.
type InfeasibilityReport struct {
	Kind    string           `json:"kind"`
	Exams   []string         `json:"exams,omitempty"`
	Cohort  string           `json:"cohort,omitempty"`
	Partial []ScheduleRecord `json:"partial,omitempty"`
	Nodes   int              `json:"nodes"`
	Proven  bool             `json:"proven"`
}

// ConflictView is one cohort clash.
type ConflictView struct {
	ExamA          string `json:"examA"`
	ExamB          string `json:"examB"`
	DepartmentCode string `json:"departmentCode"`
}

// ViolationView is one broken invariant.
type ViolationView struct {
	Kind     string   `json:"kind"`
	ExamIDs  []string `json:"examIds,omitempty"`
	RoomID   string   `json:"roomId,omitempty"`
	Timeslot int      `json:"timeslot"`
	Detail   string   `json:"detail,omitempty"`
}

// VerifyResponse reports whether a schedule satisfies every invariant.
type VerifyResponse struct {
	Valid      bool            `json:"valid"`
	Violations []ViolationView `json:"violations"`
}

// ExportJobResponse describes an asynchronous export.
type ExportJobResponse struct {
	ID          string     `json:"id"`
	TimetableID string     `json:"timetableId"`
	Format      string     `json:"format"`
	Status      string     `json:"status"`
	Progress    int        `json:"progress"`
	DownloadURL *string    `json:"downloadUrl,omitempty"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	Error       *string    `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	FinishedAt  *time.Time `json:"finishedAt,omitempty"`
}

// TimeslotView is one ordinal of the session grid.
type TimeslotView struct {
	Ordinal int    `json:"ordinal"`
	Day     string `json:"day"`
	Slot    string `json:"slot"`
	Daytime string `json:"daytime"`
}

// GridView describes the configured session grid.
type GridView struct {
	Days      []string       `json:"days"`
	Slots     []SlotInput    `json:"slots"`
	Timeslots []TimeslotView `json:"timeslots"`
}
