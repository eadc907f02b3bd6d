package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	projectdomain "github.com/smallbiznis/lingoflow/internal/project/domain"
	"gorm.io/gorm"
)

const projectColumns = `id, org_id, client_id, project_manager_id, account_manager_id, service_id,
	specialization_id, name, code, status, start_date, deadline, metadata, created_at, updated_at`

type repo struct{}

func Provide() projectdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, p *projectdomain.Project) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO projects (`+projectColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		p.OrgID,
		p.ClientID,
		p.ProjectManagerID,
		p.AccountManagerID,
		p.ServiceID,
		p.SpecializationID,
		p.Name,
		p.Code,
		p.Status,
		p.StartDate,
		p.Deadline,
		p.Metadata,
		p.CreatedAt,
		p.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, p *projectdomain.Project) error {
	return db.WithContext(ctx).Exec(
		`UPDATE projects
		 SET client_id = ?, project_manager_id = ?, account_manager_id = ?, service_id = ?,
		     specialization_id = ?, name = ?, code = ?, status = ?, start_date = ?, deadline = ?,
		     metadata = ?, updated_at = ?
		 WHERE id = ?`,
		p.ClientID,
		p.ProjectManagerID,
		p.AccountManagerID,
		p.ServiceID,
		p.SpecializationID,
		p.Name,
		p.Code,
		p.Status,
		p.StartDate,
		p.Deadline,
		p.Metadata,
		p.UpdatedAt,
		p.ID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*projectdomain.Project, error) {
	var p projectdomain.Project
	err := db.WithContext(ctx).Raw(
		`SELECT `+projectColumns+` FROM projects WHERE id = ?`,
		id,
	).Scan(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == 0 {
		return nil, nil
	}
	return &p, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter projectdomain.Filter, afterID snowflake.ID, limit int) ([]projectdomain.Project, error) {
	conditions := []string{"org_id = ?", "id > ?"}
	args := []any{orgID, afterID}
	if filter.ClientID != 0 {
		conditions = append(conditions, "client_id = ?")
		args = append(args, filter.ClientID)
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}
	args = append(args, limit)

	var items []projectdomain.Project
	err := db.WithContext(ctx).Raw(
		`SELECT `+projectColumns+` FROM projects
		 WHERE `+strings.Join(conditions, " AND ")+`
		 ORDER BY id ASC
		 LIMIT ?`,
		args...,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// Delete walks children before parents so it works without ON DELETE CASCADE.
func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	tx := db.WithContext(ctx)
	for _, stmt := range []string{
		`DELETE FROM job_financial_lines WHERE job_id IN (SELECT id FROM jobs WHERE project_id = ?)`,
		`DELETE FROM jobs WHERE project_id = ?`,
		`DELETE FROM project_language_pairs WHERE project_id = ?`,
		`DELETE FROM project_status_history WHERE project_id = ?`,
		`DELETE FROM projects WHERE id = ?`,
	} {
		if err := tx.Exec(stmt, id).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *repo) ReplaceLanguagePairs(ctx context.Context, db *gorm.DB, projectID snowflake.ID, ids []snowflake.ID) error {
	tx := db.WithContext(ctx)
	if err := tx.Exec(`DELETE FROM project_language_pairs WHERE project_id = ?`, projectID).Error; err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	links := make([]projectdomain.LanguagePairLink, 0, len(ids))
	for _, id := range ids {
		links = append(links, projectdomain.LanguagePairLink{ProjectID: projectID, LanguagePairID: id})
	}
	return tx.Table("project_language_pairs").Create(&links).Error
}

func (r *repo) ListLanguagePairs(ctx context.Context, db *gorm.DB, projectIDs []snowflake.ID) (map[snowflake.ID][]snowflake.ID, error) {
	out := make(map[snowflake.ID][]snowflake.ID, len(projectIDs))
	if len(projectIDs) == 0 {
		return out, nil
	}
	var links []projectdomain.LanguagePairLink
	err := db.WithContext(ctx).Raw(
		`SELECT project_id, language_pair_id FROM project_language_pairs
		 WHERE project_id IN ?
		 ORDER BY project_id ASC, language_pair_id ASC`,
		projectIDs,
	).Scan(&links).Error
	if err != nil {
		return nil, err
	}
	for _, link := range links {
		out[link.ProjectID] = append(out[link.ProjectID], link.LanguagePairID)
	}
	return out, nil
}

func (r *repo) InsertHistory(ctx context.Context, db *gorm.DB, h *projectdomain.StatusHistory) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO project_status_history (id, project_id, org_id, old_status, new_status, comment, changed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		h.ID,
		h.ProjectID,
		h.OrgID,
		h.OldStatus,
		h.NewStatus,
		h.Comment,
		h.ChangedAt,
	).Error
}

func (r *repo) ListHistory(ctx context.Context, db *gorm.DB, projectID snowflake.ID) ([]projectdomain.StatusHistory, error) {
	var items []projectdomain.StatusHistory
	err := db.WithContext(ctx).Raw(
		`SELECT id, project_id, org_id, old_status, new_status, comment, changed_at
		 FROM project_status_history
		 WHERE project_id = ?
		 ORDER BY changed_at ASC, id ASC`,
		projectID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
