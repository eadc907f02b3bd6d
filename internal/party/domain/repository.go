package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, kind Kind, party *Party) error
	// FindByID ignores the tenant so callers can tell a foreign row from a missing one.
	FindByID(ctx context.Context, db *gorm.DB, kind Kind, id snowflake.ID) (*Party, error)
	Exists(ctx context.Context, db *gorm.DB, kind Kind, orgID, id snowflake.ID) (bool, error)
	List(ctx context.Context, db *gorm.DB, kind Kind, orgID, afterID snowflake.ID, limit int) ([]Party, error)
	CountReferences(ctx context.Context, db *gorm.DB, kind Kind, id snowflake.ID) (int64, error)
	Delete(ctx context.Context, db *gorm.DB, kind Kind, id snowflake.ID) error
}
