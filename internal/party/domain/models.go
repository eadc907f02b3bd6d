package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Kind selects which side of the agency a party sits on. Every table that
// stores per-party data exists once per kind.
type Kind string

const (
	KindVendor Kind = "vendor"
	KindClient Kind = "client"
)

func ParseKind(value string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(value))) {
	case KindVendor:
		return KindVendor, nil
	case KindClient:
		return KindClient, nil
	default:
		return "", ErrInvalidKind
	}
}

func (k Kind) Valid() bool {
	return k == KindVendor || k == KindClient
}

func (k Kind) String() string { return string(k) }

// Table is the party table itself.
func (k Kind) Table() string { return string(k) + "s" }

func (k Kind) PriceListTable() string { return string(k) + "_price_lists" }

type Party struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	OrgID     snowflake.ID `gorm:"column:org_id"`
	Name      string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}
