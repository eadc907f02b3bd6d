package seed

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/smallbiznis/lingoflow/internal/catalog/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Global reference rows. IDs are fixed so every environment shares them.
// Callers get copies; gorm writes back into whatever it is handed.
func currencies() []catalogdomain.Currency {
	return []catalogdomain.Currency{
		{ID: 1001, Code: "USD", Name: "US Dollar", Symbol: "$"},
		{ID: 1002, Code: "EUR", Name: "Euro", Symbol: "€"},
		{ID: 1003, Code: "GBP", Name: "British Pound", Symbol: "£"},
		{ID: 1004, Code: "IDR", Name: "Indonesian Rupiah", Symbol: "Rp"},
		{ID: 1005, Code: "JPY", Name: "Japanese Yen", Symbol: "¥"},
	}
}

func units() []catalogdomain.Unit {
	return []catalogdomain.Unit{
		{ID: 2001, Name: "Word"},
		{ID: 2002, Name: "Page"},
		{ID: 2003, Name: "Hour"},
		{ID: 2004, Name: "Minute"},
		{ID: 2005, Name: "Character"},
	}
}

// CurrencyID returns the seeded id for an ISO code, or zero.
func CurrencyID(code string) snowflake.ID {
	for _, row := range currencies() {
		if row.Code == code {
			return row.ID
		}
	}
	return 0
}

// UnitID returns the seeded id for a unit name, or zero.
func UnitID(name string) snowflake.ID {
	for _, row := range units() {
		if row.Name == name {
			return row.ID
		}
	}
	return 0
}

// EnsureReferenceData inserts the global currencies and units, skipping rows
// that already exist.
func EnsureReferenceData(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	rowsCurrencies := currencies()
	rowsUnits := units()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Table("currencies").
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&rowsCurrencies).Error; err != nil {
			return err
		}
		return tx.Table("units").
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&rowsUnits).Error
	})
}
