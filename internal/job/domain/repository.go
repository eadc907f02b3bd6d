package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	InsertJob(ctx context.Context, db *gorm.DB, job *Job) error
	// FindJob ignores the tenant so callers can tell a foreign row from a missing one.
	FindJob(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Job, error)
	ListJobs(ctx context.Context, db *gorm.DB, projectID snowflake.ID) ([]Job, error)
	// DeleteJob removes the job together with its financial lines.
	DeleteJob(ctx context.Context, db *gorm.DB, id snowflake.ID) error

	InsertLine(ctx context.Context, db *gorm.DB, line *FinancialLine) error
	UpdateLine(ctx context.Context, db *gorm.DB, line *FinancialLine) error
	FindLine(ctx context.Context, db *gorm.DB, id snowflake.ID) (*FinancialLine, error)
	FindLineView(ctx context.Context, db *gorm.DB, id snowflake.ID) (*LineView, error)
	ListLines(ctx context.Context, db *gorm.DB, jobID snowflake.ID, filter LineFilter) ([]LineView, error)
	DeleteLine(ctx context.Context, db *gorm.DB, id snowflake.ID) error
}
