package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	partydomain "github.com/smallbiznis/lingoflow/internal/party/domain"
)

// VendorSettings widens a vendor's pricing scope per dimension.
type VendorSettings struct {
	VendorID                    snowflake.ID `gorm:"column:vendor_id;primaryKey"`
	OrgID                       snowflake.ID `gorm:"column:org_id"`
	WorksWithAllServices        bool         `gorm:"column:works_with_all_services"`
	WorksWithAllLanguagePairs   bool         `gorm:"column:works_with_all_language_pairs"`
	WorksWithAllSpecializations bool         `gorm:"column:works_with_all_specializations"`
	UpdatedAt                   time.Time    `gorm:"column:updated_at"`
}

func (s VendorSettings) Flags() Flags {
	return Flags{
		WorksWithAllServices:        s.WorksWithAllServices,
		WorksWithAllLanguagePairs:   s.WorksWithAllLanguagePairs,
		WorksWithAllSpecializations: s.WorksWithAllSpecializations,
	}
}

// Flags is the resolved scope policy of a party. The zero value restricts
// every dimension.
type Flags struct {
	WorksWithAllServices        bool `json:"works_with_all_services"`
	WorksWithAllLanguagePairs   bool `json:"works_with_all_language_pairs"`
	WorksWithAllSpecializations bool `json:"works_with_all_specializations"`
}

// Restricted reports whether values of dim need a scope registry entry.
func (f Flags) Restricted(dim partydomain.Dimension) bool {
	switch dim {
	case partydomain.DimensionService:
		return !f.WorksWithAllServices
	case partydomain.DimensionLanguagePair:
		return !f.WorksWithAllLanguagePairs
	case partydomain.DimensionSpecialization:
		return !f.WorksWithAllSpecializations
	default:
		return true
	}
}
