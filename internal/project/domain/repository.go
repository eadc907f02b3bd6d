package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, project *Project) error
	Update(ctx context.Context, db *gorm.DB, project *Project) error
	// FindByID ignores the tenant so callers can tell a foreign row from a missing one.
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Project, error)
	List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter Filter, afterID snowflake.ID, limit int) ([]Project, error)
	// Delete removes the project with its jobs, their financial lines, its
	// language pair links and its status history.
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error

	// ReplaceLanguagePairs drops every link of the project and writes ids.
	ReplaceLanguagePairs(ctx context.Context, db *gorm.DB, projectID snowflake.ID, ids []snowflake.ID) error
	ListLanguagePairs(ctx context.Context, db *gorm.DB, projectIDs []snowflake.ID) (map[snowflake.ID][]snowflake.ID, error)

	InsertHistory(ctx context.Context, db *gorm.DB, entry *StatusHistory) error
	ListHistory(ctx context.Context, db *gorm.DB, projectID snowflake.ID) ([]StatusHistory, error)
}
