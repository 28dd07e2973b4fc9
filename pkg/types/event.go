package types

import "time"

type ReportEventKind string

const (
	EventReportCreated       ReportEventKind = "report_created"
	EventImagesUploaded      ReportEventKind = "images_uploaded"
	EventProfileCredited     ReportEventKind = "profile_credited"
	EventProfileCreditFailed ReportEventKind = "profile_credit_failed"
	EventSubmissionReverted  ReportEventKind = "submission_reverted"
	EventStatusChanged       ReportEventKind = "status_changed"
	EventVerificationFailed  ReportEventKind = "verification_failed"
	EventVerificationPassed  ReportEventKind = "verification_passed"
	EventRewardCredited      ReportEventKind = "reward_credited"
)

// ReportEvent records one saga step or lifecycle transition of a report.
type ReportEvent struct {
	ID         string          `db:"id" json:"id"`
	ReportID   string          `db:"report_id" json:"reportId"`
	Kind       ReportEventKind `db:"kind" json:"kind"`
	ActorID    *string         `db:"actor_id" json:"actorId,omitempty"`
	ActorRole  *string         `db:"actor_role" json:"actorRole,omitempty"`
	FromStatus *ReportStatus   `db:"from_status" json:"fromStatus,omitempty"`
	ToStatus   *ReportStatus   `db:"to_status" json:"toStatus,omitempty"`
	Message    *string         `db:"message" json:"message,omitempty"`
	CreatedAt  time.Time       `db:"created_at" json:"createdAt"`
}
