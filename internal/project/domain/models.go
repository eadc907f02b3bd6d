package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusOfferedByClient    Status = "Offered by Client"
	StatusOfferAccepted      Status = "Offer Accepted"
	StatusOfferRejected      Status = "Offer Rejected"
	StatusDraft              Status = "Draft"
	StatusInProgress         Status = "In Progress"
	StatusHold               Status = "Hold"
	StatusSubmitted          Status = "Submitted"
	StatusSubmissionAccepted Status = "Submission Accepted"
	StatusSubmissionRejected Status = "Submission Rejected"
	StatusCancelled          Status = "Cancelled"
)

// Statuses is the full state set. Any status may follow any other.
var Statuses = []Status{
	StatusOfferedByClient,
	StatusOfferAccepted,
	StatusOfferRejected,
	StatusDraft,
	StatusInProgress,
	StatusHold,
	StatusSubmitted,
	StatusSubmissionAccepted,
	StatusSubmissionRejected,
	StatusCancelled,
}

func (s Status) Valid() bool {
	for _, candidate := range Statuses {
		if s == candidate {
			return true
		}
	}
	return false
}

func (s Status) String() string { return string(s) }

type Project struct {
	ID               snowflake.ID      `gorm:"primaryKey"`
	OrgID            snowflake.ID      `gorm:"column:org_id"`
	ClientID         snowflake.ID      `gorm:"column:client_id"`
	ProjectManagerID snowflake.ID      `gorm:"column:project_manager_id"`
	AccountManagerID *snowflake.ID     `gorm:"column:account_manager_id"`
	ServiceID        snowflake.ID      `gorm:"column:service_id"`
	SpecializationID snowflake.ID      `gorm:"column:specialization_id"`
	Name             string            `gorm:"column:name"`
	Code             string            `gorm:"column:code"`
	Status           Status            `gorm:"column:status"`
	StartDate        *time.Time        `gorm:"column:start_date"`
	Deadline         *time.Time        `gorm:"column:deadline"`
	Metadata         datatypes.JSONMap `gorm:"column:metadata"`
	CreatedAt        time.Time         `gorm:"column:created_at"`
	UpdatedAt        time.Time         `gorm:"column:updated_at"`
}

// StatusHistory is one append-only transition record. OldStatus is nil for
// the row written at creation.
type StatusHistory struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	ProjectID snowflake.ID `gorm:"column:project_id"`
	OrgID     snowflake.ID `gorm:"column:org_id"`
	OldStatus *string      `gorm:"column:old_status"`
	NewStatus string       `gorm:"column:new_status"`
	Comment   *string      `gorm:"column:comment"`
	ChangedAt time.Time    `gorm:"column:changed_at"`
}

type Filter struct {
	ClientID snowflake.ID
	Status   Status
}

type LanguagePairLink struct {
	ProjectID      snowflake.ID `gorm:"column:project_id"`
	LanguagePairID snowflake.ID `gorm:"column:language_pair_id"`
}
