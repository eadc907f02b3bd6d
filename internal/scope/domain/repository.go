package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	partydomain "github.com/smallbiznis/lingoflow/internal/party/domain"
	"gorm.io/gorm"
)

type Repository interface {
	Exists(ctx context.Context, db *gorm.DB, kind partydomain.Kind, dim partydomain.Dimension, partyID, valueID snowflake.ID) (bool, error)
	Get(ctx context.Context, db *gorm.DB, kind partydomain.Kind, dim partydomain.Dimension, partyID, valueID snowflake.ID) (*Entry, error)
	Insert(ctx context.Context, db *gorm.DB, kind partydomain.Kind, dim partydomain.Dimension, entry *Entry) error
	List(ctx context.Context, db *gorm.DB, kind partydomain.Kind, dim partydomain.Dimension, partyID snowflake.ID) ([]EntryView, error)
	Delete(ctx context.Context, db *gorm.DB, kind partydomain.Kind, dim partydomain.Dimension, partyID, valueID snowflake.ID) error

	// Increment adds one to the counter in a single statement, creating the
	// row with a count of one when it is absent.
	Increment(ctx context.Context, db *gorm.DB, kind partydomain.Kind, dim partydomain.Dimension, orgID, partyID, valueID snowflake.ID, now time.Time) error
	// Decrement subtracts one without going below zero and reports how many
	// rows changed.
	Decrement(ctx context.Context, db *gorm.DB, kind partydomain.Kind, dim partydomain.Dimension, partyID, valueID snowflake.ID) (int64, error)

	ListForOrg(ctx context.Context, db *gorm.DB, kind partydomain.Kind, dim partydomain.Dimension, orgID snowflake.ID) ([]Entry, error)
	CountPriceLists(ctx context.Context, db *gorm.DB, kind partydomain.Kind, dim partydomain.Dimension, orgID snowflake.ID) ([]Usage, error)
	CountPriceListsFor(ctx context.Context, db *gorm.DB, kind partydomain.Kind, dim partydomain.Dimension, partyID, valueID snowflake.ID) (int64, error)
	// Recount sets a counter to the live price list count in one statement
	// and reports how many rows changed.
	Recount(ctx context.Context, db *gorm.DB, kind partydomain.Kind, dim partydomain.Dimension, partyID, valueID snowflake.ID) (int64, error)
	// EnsureEntry creates an empty registry row unless one exists.
	EnsureEntry(ctx context.Context, db *gorm.DB, kind partydomain.Kind, dim partydomain.Dimension, orgID, partyID, valueID snowflake.ID, now time.Time) error
}
