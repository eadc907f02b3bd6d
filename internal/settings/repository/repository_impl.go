package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	settingsdomain "github.com/smallbiznis/lingoflow/internal/settings/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() settingsdomain.Repository {
	return &repo{}
}

func (r *repo) FindByVendorID(ctx context.Context, db *gorm.DB, vendorID snowflake.ID) (*settingsdomain.VendorSettings, error) {
	var s settingsdomain.VendorSettings
	err := db.WithContext(ctx).Raw(
		`SELECT vendor_id, org_id, works_with_all_services, works_with_all_language_pairs,
		 works_with_all_specializations, updated_at
		 FROM vendor_settings WHERE vendor_id = ?`,
		vendorID,
	).Scan(&s).Error
	if err != nil {
		return nil, err
	}
	if s.VendorID == 0 {
		return nil, nil
	}
	return &s, nil
}

func (r *repo) Upsert(ctx context.Context, db *gorm.DB, s *settingsdomain.VendorSettings) error {
	return db.WithContext(ctx).
		Table("vendor_settings").
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "vendor_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"works_with_all_services",
				"works_with_all_language_pairs",
				"works_with_all_specializations",
				"updated_at",
			}),
		}).
		Create(map[string]any{
			"vendor_id":                      s.VendorID,
			"org_id":                         s.OrgID,
			"works_with_all_services":        s.WorksWithAllServices,
			"works_with_all_language_pairs":  s.WorksWithAllLanguagePairs,
			"works_with_all_specializations": s.WorksWithAllSpecializations,
			"updated_at":                     s.UpdatedAt,
		}).Error
}
