package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	partydomain "github.com/smallbiznis/lingoflow/internal/party/domain"
)

type Job struct {
	ID               snowflake.ID  `gorm:"primaryKey"`
	OrgID            snowflake.ID  `gorm:"column:org_id"`
	ProjectID        snowflake.ID  `gorm:"column:project_id"`
	VendorID         *snowflake.ID `gorm:"column:vendor_id"`
	ServiceID        snowflake.ID  `gorm:"column:service_id"`
	LanguagePairID   snowflake.ID  `gorm:"column:language_pair_id"`
	SpecializationID snowflake.ID  `gorm:"column:specialization_id"`
	Name             string        `gorm:"column:name"`
	CreatedAt        time.Time     `gorm:"column:created_at"`
	UpdatedAt        time.Time     `gorm:"column:updated_at"`
}

// Direction says whether money flows in from the client or out to the vendor.
type Direction string

const (
	DirectionReceivable Direction = "receivable"
	DirectionPayable    Direction = "payable"
)

func ParseDirection(value string) (Direction, error) {
	switch Direction(value) {
	case DirectionReceivable:
		return DirectionReceivable, nil
	case DirectionPayable:
		return DirectionPayable, nil
	default:
		return "", ErrInvalidDirection
	}
}

func (d Direction) Valid() bool {
	return d == DirectionReceivable || d == DirectionPayable
}

func (d Direction) String() string { return string(d) }

// PartyKind is the side whose price list backs lines of this direction.
func (d Direction) PartyKind() partydomain.Kind {
	if d == DirectionPayable {
		return partydomain.KindVendor
	}
	return partydomain.KindClient
}

type LineKind string

const (
	LineKindFlatRate  LineKind = "flat_rate"
	LineKindUnitBased LineKind = "unit_based"
)

func (k LineKind) Valid() bool {
	return k == LineKindFlatRate || k == LineKindUnitBased
}

func (k LineKind) String() string { return string(k) }

// FinancialLine is one receivable or payable amount on a job. Unit fields are
// set only for unit based lines.
type FinancialLine struct {
	ID           snowflake.ID        `gorm:"primaryKey"`
	OrgID        snowflake.ID        `gorm:"column:org_id"`
	JobID        snowflake.ID        `gorm:"column:job_id"`
	Direction    Direction           `gorm:"column:direction"`
	Kind         LineKind            `gorm:"column:kind"`
	UnitID       *snowflake.ID       `gorm:"column:unit_id"`
	UnitAmount   decimal.NullDecimal `gorm:"column:unit_amount"`
	PricePerUnit decimal.NullDecimal `gorm:"column:price_per_unit"`
	Subtotal     decimal.Decimal     `gorm:"column:subtotal"`
	CurrencyID   snowflake.ID        `gorm:"column:currency_id"`
	FileID       *string             `gorm:"column:file_id"`
	PriceListID  *snowflake.ID       `gorm:"column:price_list_id"`
	Note         string              `gorm:"column:note"`
	CreatedAt    time.Time           `gorm:"column:created_at"`
	UpdatedAt    time.Time           `gorm:"column:updated_at"`
}

type LineView struct {
	FinancialLine
	UnitName     string `gorm:"column:unit_name"`
	CurrencyCode string `gorm:"column:currency_code"`
}

// LineFilter narrows ListLines. Empty fields match everything.
type LineFilter struct {
	Direction Direction
	Kind      LineKind
}
