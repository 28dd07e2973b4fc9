package types

import "time"

type Profile struct {
	ID               string    `db:"id" json:"id"`
	DisplayName      *string   `db:"display_name" json:"displayName,omitempty"`
	Email            *string   `db:"email" json:"email,omitempty"`
	Points           int       `db:"points" json:"points"`
	ReportsSubmitted int       `db:"reports_submitted" json:"reportsSubmitted"`
	ReportsResolved  int       `db:"reports_resolved" json:"reportsResolved"`
	CreatedAt        time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time `db:"updated_at" json:"updatedAt"`
}
