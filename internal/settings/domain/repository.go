package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindByVendorID(ctx context.Context, db *gorm.DB, vendorID snowflake.ID) (*VendorSettings, error)
	Upsert(ctx context.Context, db *gorm.DB, settings *VendorSettings) error
}
