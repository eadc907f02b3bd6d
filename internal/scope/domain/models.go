package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/smallbiznis/lingoflow/internal/catalog/domain"
	partydomain "github.com/smallbiznis/lingoflow/internal/party/domain"
)

// Entry is one scope registry row. ValueID is read from the dimension's
// value column.
type Entry struct {
	PartyID    snowflake.ID `gorm:"column:party_id"`
	ValueID    snowflake.ID `gorm:"column:value_id"`
	OrgID      snowflake.ID `gorm:"column:org_id"`
	UsageCount int64        `gorm:"column:usage_count"`
	CreatedAt  time.Time    `gorm:"column:created_at"`
}

// EntryView is an Entry joined with its reference row for display.
type EntryView struct {
	Entry
	Name           string `gorm:"column:name"`
	SourceLanguage string `gorm:"column:source_language"`
	TargetLanguage string `gorm:"column:target_language"`
}

func (v EntryView) Label() string {
	if v.Name != "" {
		return v.Name
	}
	return catalogdomain.PairLabel(v.SourceLanguage, v.TargetLanguage)
}

// Usage is the live price list count of one (party, value) pair.
type Usage struct {
	PartyID snowflake.ID `gorm:"column:party_id"`
	ValueID snowflake.ID `gorm:"column:value_id"`
	Count   int64        `gorm:"column:live_count"`
}

// Drift is a registry counter that disagrees with the price lists.
type Drift struct {
	Kind      partydomain.Kind      `json:"kind"`
	PartyID   snowflake.ID          `json:"party_id"`
	Dimension partydomain.Dimension `json:"dimension"`
	ValueID   snowflake.ID          `json:"value_id"`
	Stored    int64                 `json:"stored"`
	Actual    int64                 `json:"actual"`
	// Missing is set when price lists reference a value with no registry row.
	Missing bool `json:"missing,omitempty"`
}

// ReconcileOptions selects what a reconciliation may write.
type ReconcileOptions struct {
	// Apply recounts drifted counters from the live price lists.
	Apply bool
	// AddMissing also creates registry rows for values that price lists use
	// but the party's allow-list lacks. Only honored together with Apply.
	AddMissing bool
}
