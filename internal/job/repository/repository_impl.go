package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	jobdomain "github.com/smallbiznis/lingoflow/internal/job/domain"
	"gorm.io/gorm"
)

const jobColumns = `id, org_id, project_id, vendor_id, service_id, language_pair_id, specialization_id,
	name, created_at, updated_at`

const lineColumns = `l.id, l.org_id, l.job_id, l.direction, l.kind, l.unit_id, l.unit_amount,
	l.price_per_unit, l.subtotal, l.currency_id, l.file_id, l.price_list_id, l.note, l.created_at, l.updated_at`

const lineLabels = `u.name AS unit_name, c.code AS currency_code`

const lineJoins = `
	LEFT JOIN units u ON u.id = l.unit_id
	LEFT JOIN currencies c ON c.id = l.currency_id`

type repo struct{}

func Provide() jobdomain.Repository {
	return &repo{}
}

func (r *repo) InsertJob(ctx context.Context, db *gorm.DB, j *jobdomain.Job) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO jobs (`+jobColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.ID,
		j.OrgID,
		j.ProjectID,
		j.VendorID,
		j.ServiceID,
		j.LanguagePairID,
		j.SpecializationID,
		j.Name,
		j.CreatedAt,
		j.UpdatedAt,
	).Error
}

func (r *repo) FindJob(ctx context.Context, db *gorm.DB, id snowflake.ID) (*jobdomain.Job, error) {
	var j jobdomain.Job
	err := db.WithContext(ctx).Raw(`SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id).Scan(&j).Error
	if err != nil {
		return nil, err
	}
	if j.ID == 0 {
		return nil, nil
	}
	return &j, nil
}

func (r *repo) ListJobs(ctx context.Context, db *gorm.DB, projectID snowflake.ID) ([]jobdomain.Job, error) {
	var items []jobdomain.Job
	err := db.WithContext(ctx).Raw(
		`SELECT `+jobColumns+` FROM jobs WHERE project_id = ? ORDER BY id ASC`,
		projectID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) DeleteJob(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	tx := db.WithContext(ctx)
	if err := tx.Exec(`DELETE FROM job_financial_lines WHERE job_id = ?`, id).Error; err != nil {
		return err
	}
	return tx.Exec(`DELETE FROM jobs WHERE id = ?`, id).Error
}

func (r *repo) InsertLine(ctx context.Context, db *gorm.DB, l *jobdomain.FinancialLine) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO job_financial_lines (
			id, org_id, job_id, direction, kind, unit_id, unit_amount, price_per_unit,
			subtotal, currency_id, file_id, price_list_id, note, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID,
		l.OrgID,
		l.JobID,
		l.Direction,
		l.Kind,
		l.UnitID,
		l.UnitAmount,
		l.PricePerUnit,
		l.Subtotal,
		l.CurrencyID,
		l.FileID,
		l.PriceListID,
		l.Note,
		l.CreatedAt,
		l.UpdatedAt,
	).Error
}

func (r *repo) UpdateLine(ctx context.Context, db *gorm.DB, l *jobdomain.FinancialLine) error {
	return db.WithContext(ctx).Exec(
		`UPDATE job_financial_lines
		 SET unit_id = ?, unit_amount = ?, price_per_unit = ?, subtotal = ?, currency_id = ?,
		     file_id = ?, price_list_id = ?, note = ?, updated_at = ?
		 WHERE id = ?`,
		l.UnitID,
		l.UnitAmount,
		l.PricePerUnit,
		l.Subtotal,
		l.CurrencyID,
		l.FileID,
		l.PriceListID,
		l.Note,
		l.UpdatedAt,
		l.ID,
	).Error
}

func (r *repo) FindLine(ctx context.Context, db *gorm.DB, id snowflake.ID) (*jobdomain.FinancialLine, error) {
	var l jobdomain.FinancialLine
	err := db.WithContext(ctx).Raw(
		`SELECT `+lineColumns+` FROM job_financial_lines l WHERE l.id = ?`,
		id,
	).Scan(&l).Error
	if err != nil {
		return nil, err
	}
	if l.ID == 0 {
		return nil, nil
	}
	return &l, nil
}

func (r *repo) FindLineView(ctx context.Context, db *gorm.DB, id snowflake.ID) (*jobdomain.LineView, error) {
	var v jobdomain.LineView
	err := db.WithContext(ctx).Raw(
		`SELECT `+lineColumns+`, `+lineLabels+`
		 FROM job_financial_lines l`+lineJoins+`
		 WHERE l.id = ?`,
		id,
	).Scan(&v).Error
	if err != nil {
		return nil, err
	}
	if v.ID == 0 {
		return nil, nil
	}
	return &v, nil
}

func (r *repo) ListLines(ctx context.Context, db *gorm.DB, jobID snowflake.ID, filter jobdomain.LineFilter) ([]jobdomain.LineView, error) {
	conditions := []string{"l.job_id = ?"}
	args := []any{jobID}
	if filter.Direction != "" {
		conditions = append(conditions, "l.direction = ?")
		args = append(args, filter.Direction)
	}
	if filter.Kind != "" {
		conditions = append(conditions, "l.kind = ?")
		args = append(args, filter.Kind)
	}

	var items []jobdomain.LineView
	err := db.WithContext(ctx).Raw(
		`SELECT `+lineColumns+`, `+lineLabels+`
		 FROM job_financial_lines l`+lineJoins+`
		 WHERE `+strings.Join(conditions, " AND ")+`
		 ORDER BY l.id ASC`,
		args...,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) DeleteLine(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(`DELETE FROM job_financial_lines WHERE id = ?`, id).Error
}
