package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	catalogdomain "github.com/smallbiznis/lingoflow/internal/catalog/domain"
	partydomain "github.com/smallbiznis/lingoflow/internal/party/domain"
)

// PriceList is one rate of a party for a (service, language pair,
// specialization, unit, currency) combination.
type PriceList struct {
	ID               snowflake.ID    `gorm:"primaryKey"`
	OrgID            snowflake.ID    `gorm:"column:org_id"`
	PartyID          snowflake.ID    `gorm:"column:party_id"`
	ServiceID        snowflake.ID    `gorm:"column:service_id"`
	LanguagePairID   snowflake.ID    `gorm:"column:language_pair_id"`
	SpecializationID snowflake.ID    `gorm:"column:specialization_id"`
	UnitID           snowflake.ID    `gorm:"column:unit_id"`
	CurrencyID       snowflake.ID    `gorm:"column:currency_id"`
	PricePerUnit     decimal.Decimal `gorm:"column:price_per_unit"`
	Note             string          `gorm:"column:note"`
	CreatedAt        time.Time       `gorm:"column:created_at"`
	UpdatedAt        time.Time       `gorm:"column:updated_at"`
}

// Value returns the row's value for a scope dimension.
func (p PriceList) Value(dim partydomain.Dimension) snowflake.ID {
	switch dim {
	case partydomain.DimensionService:
		return p.ServiceID
	case partydomain.DimensionLanguagePair:
		return p.LanguagePairID
	case partydomain.DimensionSpecialization:
		return p.SpecializationID
	default:
		return 0
	}
}

func (p *PriceList) SetValue(dim partydomain.Dimension, id snowflake.ID) {
	switch dim {
	case partydomain.DimensionService:
		p.ServiceID = id
	case partydomain.DimensionLanguagePair:
		p.LanguagePairID = id
	case partydomain.DimensionSpecialization:
		p.SpecializationID = id
	}
}

func (p PriceList) Key() Key {
	return Key{
		PartyID:          p.PartyID,
		ServiceID:        p.ServiceID,
		LanguagePairID:   p.LanguagePairID,
		SpecializationID: p.SpecializationID,
		UnitID:           p.UnitID,
		CurrencyID:       p.CurrencyID,
	}
}

// Key is the composite natural key; at most one row exists per key.
type Key struct {
	PartyID          snowflake.ID
	ServiceID        snowflake.ID
	LanguagePairID   snowflake.ID
	SpecializationID snowflake.ID
	UnitID           snowflake.ID
	CurrencyID       snowflake.ID
}

// View is a row joined with the labels of everything it references.
type View struct {
	PriceList
	ServiceName        string `gorm:"column:service_name"`
	SourceLanguage     string `gorm:"column:source_language"`
	TargetLanguage     string `gorm:"column:target_language"`
	SpecializationName string `gorm:"column:specialization_name"`
	UnitName           string `gorm:"column:unit_name"`
	CurrencyCode       string `gorm:"column:currency_code"`
}

func (v View) LanguagePairLabel() string {
	return catalogdomain.PairLabel(v.SourceLanguage, v.TargetLanguage)
}

// Filter narrows List. Zero fields match everything.
type Filter struct {
	PartyID          snowflake.ID
	ServiceID        snowflake.ID
	LanguagePairID   snowflake.ID
	SpecializationID snowflake.ID
	UnitID           snowflake.ID
	CurrencyID       snowflake.ID
}
