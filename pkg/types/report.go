package types

import (
	"time"
)

type ReportStatus string

const (
	ReportStatusSubmitted   ReportStatus = "submitted"
	ReportStatusUnderReview ReportStatus = "under_review"
	ReportStatusAssigned    ReportStatus = "assigned"
	ReportStatusInProgress  ReportStatus = "in_progress"
	ReportStatusResolved    ReportStatus = "resolved"
	ReportStatusClosed      ReportStatus = "closed"
)

var AllReportStatuses = []ReportStatus{
	ReportStatusSubmitted,
	ReportStatusUnderReview,
	ReportStatusAssigned,
	ReportStatusInProgress,
	ReportStatusResolved,
	ReportStatusClosed,
}

func (s ReportStatus) String() string {
	return string(s)
}

func (s ReportStatus) IsValid() bool {
	switch s {
	case ReportStatusSubmitted, ReportStatusUnderReview, ReportStatusAssigned,
		ReportStatusInProgress, ReportStatusResolved, ReportStatusClosed:
		return true
	}
	return false
}

// IsTerminal reports whether the status ends the SLA clock.
func (s ReportStatus) IsTerminal() bool {
	return s == ReportStatusResolved || s == ReportStatusClosed
}

// HasAssignment reports whether a report in this status carries a worker.
func (s ReportStatus) HasAssignment() bool {
	switch s {
	case ReportStatusAssigned, ReportStatusInProgress, ReportStatusResolved, ReportStatusClosed:
		return true
	}
	return false
}

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

func (s Severity) IsValid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

type WasteCategory string

const (
	WasteCategoryPlastic            WasteCategory = "plastic"
	WasteCategoryOrganic            WasteCategory = "organic"
	WasteCategoryPaper              WasteCategory = "paper"
	WasteCategoryGlass              WasteCategory = "glass"
	WasteCategoryMetal              WasteCategory = "metal"
	WasteCategoryEWaste             WasteCategory = "e_waste"
	WasteCategoryHazardous          WasteCategory = "hazardous"
	WasteCategoryConstructionDebris WasteCategory = "construction_debris"
	WasteCategoryMixed              WasteCategory = "mixed"
	WasteCategorySewage             WasteCategory = "sewage"
	WasteCategoryDeadAnimal         WasteCategory = "dead_animal"
	WasteCategoryOther              WasteCategory = "other"
)

var AllWasteCategories = []WasteCategory{
	WasteCategoryPlastic,
	WasteCategoryOrganic,
	WasteCategoryPaper,
	WasteCategoryGlass,
	WasteCategoryMetal,
	WasteCategoryEWaste,
	WasteCategoryHazardous,
	WasteCategoryConstructionDebris,
	WasteCategoryMixed,
	WasteCategorySewage,
	WasteCategoryDeadAnimal,
	WasteCategoryOther,
}

// IsValid matches exactly; categories are never case-folded so an AI suggested
// value reads back unchanged.
func (c WasteCategory) IsValid() bool {
	for _, known := range AllWasteCategories {
		if c == known {
			return true
		}
	}
	return false
}

// Report is a citizen-submitted record of a waste issue at a location.
type Report struct {
	ID   string `db:"id" json:"id"`
	Code string `db:"code" json:"code"`

	ReportLocation

	Category    WasteCategory `db:"category" json:"category"`
	Severity    Severity      `db:"severity" json:"severity"`
	Description *string       `db:"description" json:"description,omitempty"`
	Status      ReportStatus  `db:"status" json:"status"`

	SLAHours int       `db:"sla_hours" json:"slaHours"`
	DueAt    time.Time `db:"due_at" json:"dueAt"`

	DepartmentID       *string    `db:"department_id" json:"departmentId,omitempty"`
	DepartmentName     *string    `db:"department_name" json:"departmentName,omitempty"`
	AssignedWorkerID   *string    `db:"assigned_worker_id" json:"assignedWorkerId,omitempty"`
	AssignedWorkerName *string    `db:"assigned_worker_name" json:"assignedWorkerName,omitempty"`
	AssignedAt         *time.Time `db:"assigned_at" json:"assignedAt,omitempty"`
	VerifiedAt         *time.Time `db:"verified_at" json:"verifiedAt,omitempty"`
	ResolvedAt         *time.Time `db:"resolved_at" json:"resolvedAt,omitempty"`

	ReporterID  *string `db:"reporter_id" json:"reporterId,omitempty"`
	IsAnonymous bool    `db:"is_anonymous" json:"isAnonymous"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

type ReportLocation struct {
	Latitude  float64 `db:"latitude" json:"latitude" form:"latitude"`
	Longitude float64 `db:"longitude" json:"longitude" form:"longitude"`
	Address   string  `db:"address" json:"address" form:"address"`
	Locality  string  `db:"locality" json:"locality" form:"locality"`
	City      string  `db:"city" json:"city" form:"city"`
}

// Assignment is written together with the assigned status in one statement.
type Assignment struct {
	WorkerID       string
	WorkerName     string
	DepartmentID   *string
	DepartmentName *string
	AssignedAt     time.Time
}

// ReportTransition is a conditional status change: it applies only while the
// report is still in one of From and, when ExpectWorkerID is set, still
// assigned to that worker.
type ReportTransition struct {
	From           []ReportStatus
	To             ReportStatus
	ExpectWorkerID string

	Assign          *Assignment
	ClearAssignment bool
	VerifiedAt      *time.Time
	ResolvedAt      *time.Time
}

type ReportFilter struct {
	Statuses   []ReportStatus `form:"status"`
	Category   WasteCategory  `form:"category"`
	Severity   Severity       `form:"severity"`
	WorkerID   string         `form:"worker_id"`
	ReporterID string         `form:"-"`
	Limit      uint64         `form:"limit"`
}

type ImageKind string

const (
	ImageKindOriginal ImageKind = "original"
	ImageKindProof    ImageKind = "proof"
)

// ReportImage is owned by exactly one report and never updated in place.
type ReportImage struct {
	ID          string    `db:"id" json:"id"`
	ReportID    string    `db:"report_id" json:"reportId"`
	Kind        ImageKind `db:"kind" json:"kind"`
	StorageKey  string    `db:"storage_key" json:"-"`
	PublicURL   string    `db:"public_url" json:"url"`
	Position    int       `db:"position" json:"position"`
	ContentType string    `db:"content_type" json:"contentType"`
	SizeBytes   int64     `db:"size_bytes" json:"sizeBytes"`
	UploadedAt  time.Time `db:"uploaded_at" json:"uploadedAt"`
}

// ReportView is what every read path returns.
type ReportView struct {
	*Report

	IsSLABreach       bool           `json:"isSlaBreach"`
	SLARemainingHours int            `json:"slaRemainingHours"`
	SLALabel          string         `json:"slaLabel"`
	Images            []*ReportImage `json:"images"`
}
