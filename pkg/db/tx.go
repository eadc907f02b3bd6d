package db

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/lingoflow/pkg/rls"
	"gorm.io/gorm"
)

// WithTenantTx runs fn inside a single transaction bound to orgID. Any error
// returned by fn, or a panic, rolls the whole transaction back.
func WithTenantTx(ctx context.Context, conn *gorm.DB, orgID snowflake.ID, fn func(tx *gorm.DB) error) error {
	return conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if tx.Dialector.Name() == "postgres" {
			if err := rls.WithTenant(tx, orgID); err != nil {
				return err
			}
		}
		return fn(tx)
	})
}
