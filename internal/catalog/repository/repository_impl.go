package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/smallbiznis/lingoflow/internal/catalog/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() catalogdomain.Repository {
	return &repo{}
}

func (r *repo) ServiceExists(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (bool, error) {
	return tenantRowExists(ctx, db, "services", orgID, id)
}

func (r *repo) LanguagePairExists(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (bool, error) {
	return tenantRowExists(ctx, db, "language_pairs", orgID, id)
}

func (r *repo) SpecializationExists(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (bool, error) {
	return tenantRowExists(ctx, db, "specializations", orgID, id)
}

func (r *repo) ManagerExists(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (bool, error) {
	return tenantRowExists(ctx, db, "managers", orgID, id)
}

func (r *repo) CountLanguagePairs(ctx context.Context, db *gorm.DB, orgID snowflake.ID, ids []snowflake.ID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM language_pairs WHERE org_id = ? AND id IN ?`,
		orgID,
		ids,
	).Scan(&count).Error
	return count, err
}

func (r *repo) CurrencyExists(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(`SELECT COUNT(1) FROM currencies WHERE id = ?`, id).Scan(&count).Error
	return count > 0, err
}

func (r *repo) UnitExists(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(`SELECT COUNT(1) FROM units WHERE id = ?`, id).Scan(&count).Error
	return count > 0, err
}

func (r *repo) FindCurrency(ctx context.Context, db *gorm.DB, id snowflake.ID) (*catalogdomain.Currency, error) {
	var c catalogdomain.Currency
	err := db.WithContext(ctx).Raw(
		`SELECT id, code, name, symbol FROM currencies WHERE id = ?`,
		id,
	).Scan(&c).Error
	if err != nil {
		return nil, err
	}
	if c.ID == 0 {
		return nil, nil
	}
	return &c, nil
}

// table is always one of the fixed names above, never caller input.
func tenantRowExists(ctx context.Context, db *gorm.DB, table string, orgID, id snowflake.ID) (bool, error) {
	if id == 0 {
		return false, nil
	}
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM `+table+` WHERE org_id = ? AND id = ?`,
		orgID,
		id,
	).Scan(&count).Error
	return count > 0, err
}
