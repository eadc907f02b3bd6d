package rls

import (
	"fmt"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// WithTenant scopes postgres row level security policies to orgID for the
// remainder of the current transaction.
func WithTenant(tx *gorm.DB, orgID snowflake.ID) error {
	return tx.Exec(
		"SELECT set_config('app.current_org_id', ?, true)",
		fmt.Sprintf("%d", orgID.Int64()),
	).Error
}
