package types

import "time"

type WorkerStatus string

const (
	WorkerStatusPendingApproval WorkerStatus = "pending_approval"
	WorkerStatusActive          WorkerStatus = "active"
	WorkerStatusInactive        WorkerStatus = "inactive"
	WorkerStatusRejected        WorkerStatus = "rejected"
)

func (s WorkerStatus) IsValid() bool {
	switch s {
	case WorkerStatusPendingApproval, WorkerStatusActive, WorkerStatusInactive, WorkerStatusRejected:
		return true
	}
	return false
}

// Worker is a field operative. ID is the subject of the worker's auth account.
type Worker struct {
	ID              string       `db:"id" json:"id"`
	Name            string       `db:"name" json:"name"`
	Phone           *string      `db:"phone" json:"phone,omitempty"`
	Email           *string      `db:"email" json:"email,omitempty"`
	Zone            *string      `db:"zone" json:"zone,omitempty"`
	Status          WorkerStatus `db:"status" json:"status"`
	StripeAccountID *string      `db:"stripe_account_id" json:"-"`
	CreatedAt       time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time    `db:"updated_at" json:"updatedAt"`
}

type WorkerApplication struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
	Zone  string `json:"zone"`
}

type WorkerFilter struct {
	Statuses []WorkerStatus `form:"status"`
	Zone     string         `form:"zone"`
}

// WorkerReward is the ledger row written when a verified completion resolves
// a report.
type WorkerReward struct {
	ID               string     `db:"id" json:"id"`
	WorkerID         string     `db:"worker_id" json:"workerId"`
	ReportID         string     `db:"report_id" json:"reportId"`
	Points           int        `db:"points" json:"points"`
	AmountCents      int64      `db:"amount_cents" json:"amountCents"`
	Currency         string     `db:"currency" json:"currency"`
	PayoutTransferID *string    `db:"payout_transfer_id" json:"payoutTransferId,omitempty"`
	PaidAt           *time.Time `db:"paid_at" json:"paidAt,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"createdAt"`
}
