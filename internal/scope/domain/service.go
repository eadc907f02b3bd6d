package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/lingoflow/internal/apperr"
	partydomain "github.com/smallbiznis/lingoflow/internal/party/domain"
	settingsdomain "github.com/smallbiznis/lingoflow/internal/settings/domain"
	"gorm.io/gorm"
)

// Checker validates and accounts for one dimension of a price list row. The
// implementation is chosen from the party's settings: restricted dimensions
// need registry membership and keep counters, unrestricted ones only need the
// value to exist.
type Checker interface {
	Dimension() partydomain.Dimension
	Restricted() bool
	Check(ctx context.Context, db *gorm.DB, kind partydomain.Kind, orgID, partyID, valueID snowflake.ID) error
	Acquire(ctx context.Context, db *gorm.DB, kind partydomain.Kind, orgID, partyID, valueID snowflake.ID) error
	Release(ctx context.Context, db *gorm.DB, kind partydomain.Kind, orgID, partyID, valueID snowflake.ID) error
}

// Registry is the write-path API used by price list mutations. Every method
// runs on the caller's transaction.
type Registry interface {
	IsInScope(ctx context.Context, db *gorm.DB, kind partydomain.Kind, partyID snowflake.ID, dim partydomain.Dimension, valueID snowflake.ID) (bool, error)
	IncrementUsage(ctx context.Context, db *gorm.DB, kind partydomain.Kind, orgID, partyID snowflake.ID, dim partydomain.Dimension, valueID snowflake.ID) error
	DecrementUsage(ctx context.Context, db *gorm.DB, kind partydomain.Kind, orgID, partyID snowflake.ID, dim partydomain.Dimension, valueID snowflake.ID) error
	// Checkers returns one checker per dimension, in partydomain.Dimensions order.
	Checkers(flags settingsdomain.Flags) []Checker
	Reconcile(ctx context.Context, db *gorm.DB, kind partydomain.Kind, orgID snowflake.ID, opts ReconcileOptions) ([]Drift, error)
}

type Service interface {
	Add(ctx context.Context, kind partydomain.Kind, partyID string, dim partydomain.Dimension, req AddRequest) (*EntryResponse, error)
	List(ctx context.Context, kind partydomain.Kind, partyID string, dim partydomain.Dimension) ([]EntryResponse, error)
	Remove(ctx context.Context, kind partydomain.Kind, partyID string, dim partydomain.Dimension, valueID string) error
	Reconcile(ctx context.Context, kind partydomain.Kind, orgID snowflake.ID, opts ReconcileOptions) ([]Drift, error)
}

type AddRequest struct {
	ValueID string `json:"value_id" binding:"required"`
}

type EntryResponse struct {
	PartyID    snowflake.ID          `json:"party_id"`
	Dimension  partydomain.Dimension `json:"dimension"`
	ValueID    snowflake.ID          `json:"value_id"`
	Label      string                `json:"label"`
	UsageCount int64                 `json:"usage_count"`
	CreatedAt  time.Time             `json:"created_at"`
}

var (
	ErrInvalidOrganization = apperr.New("invalid_organization", apperr.ErrUnauthorized)
	ErrInvalidParty        = apperr.Invalid("party_id", "invalid_party_id")
	ErrInvalidValue        = apperr.Invalid("value_id", "invalid_value_id")
	ErrForbidden           = apperr.New("party_forbidden", apperr.ErrForbidden)
	ErrEntryExists         = apperr.New("scope_entry_exists", apperr.ErrDuplicateEntry)
	ErrEntryNotFound       = apperr.NotFound("scope_entry")
	ErrScopeInUse          = apperr.New("scope_in_use", apperr.ErrConflict)
)

// Violation builds the error returned when a restricted value is not registered.
func Violation(dim partydomain.Dimension, valueID snowflake.ID) error {
	return &apperr.ScopeViolationError{Dimension: dim.String(), ValueID: valueID.String()}
}
