package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/lingoflow/internal/apperr"
	partydomain "github.com/smallbiznis/lingoflow/internal/party/domain"
	"gorm.io/gorm"
)

// Resolver reads the scope policy of a party. It runs on the caller's
// connection so price list writes see the same snapshot.
type Resolver interface {
	Resolve(ctx context.Context, db *gorm.DB, orgID snowflake.ID, kind partydomain.Kind, partyID snowflake.ID) (Flags, error)
}

type Service interface {
	Resolver
	Get(ctx context.Context, vendorID string) (*Response, error)
	Upsert(ctx context.Context, vendorID string, req UpsertRequest) (*Response, error)
}

// UpsertRequest changes only the flags that are present.
type UpsertRequest struct {
	WorksWithAllServices        *bool `json:"works_with_all_services"`
	WorksWithAllLanguagePairs   *bool `json:"works_with_all_language_pairs"`
	WorksWithAllSpecializations *bool `json:"works_with_all_specializations"`
}

type Response struct {
	VendorID snowflake.ID `json:"vendor_id"`
	Flags
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

var (
	ErrInvalidOrganization = apperr.New("invalid_organization", apperr.ErrUnauthorized)
	ErrInvalidVendor       = apperr.Invalid("vendor_id", "invalid_vendor_id")
	ErrForbidden           = apperr.New("vendor_forbidden", apperr.ErrForbidden)
	ErrEmptyUpdate         = apperr.Invalid("body", "no_settings_supplied")
)
