package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	partydomain "github.com/smallbiznis/lingoflow/internal/party/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() partydomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, kind partydomain.Kind, p *partydomain.Party) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO `+kind.Table()+` (id, org_id, name, email, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID,
		p.OrgID,
		p.Name,
		p.Email,
		p.CreatedAt,
		p.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, kind partydomain.Kind, id snowflake.ID) (*partydomain.Party, error) {
	var p partydomain.Party
	err := db.WithContext(ctx).Raw(
		`SELECT id, org_id, name, email, created_at, updated_at
		 FROM `+kind.Table()+` WHERE id = ?`,
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

func (r *repo) Exists(ctx context.Context, db *gorm.DB, kind partydomain.Kind, orgID, id snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM `+kind.Table()+` WHERE org_id = ? AND id = ?`,
		orgID,
		id,
	).Scan(&count).Error
	return count > 0, err
}

func (r *repo) List(ctx context.Context, db *gorm.DB, kind partydomain.Kind, orgID, afterID snowflake.ID, limit int) ([]partydomain.Party, error) {
	var items []partydomain.Party
	err := db.WithContext(ctx).Raw(
		`SELECT id, org_id, name, email, created_at, updated_at
		 FROM `+kind.Table()+`
		 WHERE org_id = ? AND id > ?
		 ORDER BY id ASC
		 LIMIT ?`,
		orgID,
		afterID,
		limit,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// CountReferences counts rows outside the pricing tables that still point at
// the party: projects for a client, jobs for a vendor.
func (r *repo) CountReferences(ctx context.Context, db *gorm.DB, kind partydomain.Kind, id snowflake.ID) (int64, error) {
	query := `SELECT COUNT(1) FROM projects WHERE client_id = ?`
	if kind == partydomain.KindVendor {
		query = `SELECT COUNT(1) FROM jobs WHERE vendor_id = ?`
	}
	var count int64
	err := db.WithContext(ctx).Raw(query, id).Scan(&count).Error
	return count, err
}

// Delete removes the party with its price lists, scope registry rows and
// settings. Counters disappear with their rows so nothing is decremented.
func (r *repo) Delete(ctx context.Context, db *gorm.DB, kind partydomain.Kind, id snowflake.ID) error {
	tx := db.WithContext(ctx)
	if err := tx.Exec(`DELETE FROM `+kind.PriceListTable()+` WHERE party_id = ?`, id).Error; err != nil {
		return err
	}
	for _, dim := range partydomain.Dimensions {
		if err := tx.Exec(`DELETE FROM `+dim.Table(kind)+` WHERE party_id = ?`, id).Error; err != nil {
			return err
		}
	}
	if kind == partydomain.KindVendor {
		if err := tx.Exec(`DELETE FROM vendor_settings WHERE vendor_id = ?`, id).Error; err != nil {
			return err
		}
	}
	return tx.Exec(`DELETE FROM `+kind.Table()+` WHERE id = ?`, id).Error
}
