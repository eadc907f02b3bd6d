package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository answers referential checks against reference data. Tenant-owned
// lookups only match rows of orgID.
type Repository interface {
	ServiceExists(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (bool, error)
	LanguagePairExists(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (bool, error)
	SpecializationExists(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (bool, error)
	ManagerExists(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (bool, error)
	CountLanguagePairs(ctx context.Context, db *gorm.DB, orgID snowflake.ID, ids []snowflake.ID) (int64, error)

	CurrencyExists(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
	UnitExists(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
	FindCurrency(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Currency, error)
}
