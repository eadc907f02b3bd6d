package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	partydomain "github.com/smallbiznis/lingoflow/internal/party/domain"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, kind partydomain.Kind, row *PriceList) error
	Update(ctx context.Context, db *gorm.DB, kind partydomain.Kind, row *PriceList) error
	Delete(ctx context.Context, db *gorm.DB, kind partydomain.Kind, id snowflake.ID) error

	// FindByID ignores the tenant so callers can tell a foreign row from a missing one.
	FindByID(ctx context.Context, db *gorm.DB, kind partydomain.Kind, id snowflake.ID) (*PriceList, error)
	FindView(ctx context.Context, db *gorm.DB, kind partydomain.Kind, id snowflake.ID) (*View, error)
	// FindByKey returns the row holding key, or nil.
	FindByKey(ctx context.Context, db *gorm.DB, kind partydomain.Kind, key Key) (*PriceList, error)
	Exists(ctx context.Context, db *gorm.DB, kind partydomain.Kind, orgID, id snowflake.ID) (bool, error)

	List(ctx context.Context, db *gorm.DB, kind partydomain.Kind, orgID snowflake.ID, filter Filter, afterID snowflake.ID, limit int) ([]View, error)
}
