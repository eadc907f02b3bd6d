package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	partydomain "github.com/smallbiznis/lingoflow/internal/party/domain"
	pricelistdomain "github.com/smallbiznis/lingoflow/internal/pricelist/domain"
	"gorm.io/gorm"
)

const rowColumns = `p.id, p.org_id, p.party_id, p.service_id, p.language_pair_id, p.specialization_id,
	p.unit_id, p.currency_id, p.price_per_unit, p.note, p.created_at, p.updated_at`

const labelColumns = `s.name AS service_name, lp.source_language, lp.target_language,
	sp.name AS specialization_name, u.name AS unit_name, c.code AS currency_code`

const labelJoins = `
	LEFT JOIN services s ON s.id = p.service_id
	LEFT JOIN language_pairs lp ON lp.id = p.language_pair_id
	LEFT JOIN specializations sp ON sp.id = p.specialization_id
	LEFT JOIN units u ON u.id = p.unit_id
	LEFT JOIN currencies c ON c.id = p.currency_id`

type repo struct{}

func Provide() pricelistdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, kind partydomain.Kind, row *pricelistdomain.PriceList) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO `+kind.PriceListTable()+` (
			id, org_id, party_id, service_id, language_pair_id, specialization_id,
			unit_id, currency_id, price_per_unit, note, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		row.ID,
		row.OrgID,
		row.PartyID,
		row.ServiceID,
		row.LanguagePairID,
		row.SpecializationID,
		row.UnitID,
		row.CurrencyID,
		row.PricePerUnit,
		row.Note,
		row.CreatedAt,
		row.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, kind partydomain.Kind, row *pricelistdomain.PriceList) error {
	return db.WithContext(ctx).Exec(
		`UPDATE `+kind.PriceListTable()+`
		 SET service_id = ?, language_pair_id = ?, specialization_id = ?, unit_id = ?,
		     currency_id = ?, price_per_unit = ?, note = ?, updated_at = ?
		 WHERE id = ?`,
		row.ServiceID,
		row.LanguagePairID,
		row.SpecializationID,
		row.UnitID,
		row.CurrencyID,
		row.PricePerUnit,
		row.Note,
		row.UpdatedAt,
		row.ID,
	).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, kind partydomain.Kind, id snowflake.ID) error {
	return db.WithContext(ctx).Exec(`DELETE FROM `+kind.PriceListTable()+` WHERE id = ?`, id).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, kind partydomain.Kind, id snowflake.ID) (*pricelistdomain.PriceList, error) {
	var row pricelistdomain.PriceList
	err := db.WithContext(ctx).Raw(
		`SELECT `+rowColumns+` FROM `+kind.PriceListTable()+` p WHERE p.id = ?`,
		id,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, nil
	}
	return &row, nil
}

func (r *repo) FindView(ctx context.Context, db *gorm.DB, kind partydomain.Kind, id snowflake.ID) (*pricelistdomain.View, error) {
	var view pricelistdomain.View
	err := db.WithContext(ctx).Raw(
		`SELECT `+rowColumns+`, `+labelColumns+`
		 FROM `+kind.PriceListTable()+` p`+labelJoins+`
		 WHERE p.id = ?`,
		id,
	).Scan(&view).Error
	if err != nil {
		return nil, err
	}
	if view.ID == 0 {
		return nil, nil
	}
	return &view, nil
}

func (r *repo) FindByKey(ctx context.Context, db *gorm.DB, kind partydomain.Kind, key pricelistdomain.Key) (*pricelistdomain.PriceList, error) {
	var row pricelistdomain.PriceList
	err := db.WithContext(ctx).Raw(
		`SELECT `+rowColumns+` FROM `+kind.PriceListTable()+` p
		 WHERE p.party_id = ? AND p.service_id = ? AND p.language_pair_id = ?
		   AND p.specialization_id = ? AND p.unit_id = ? AND p.currency_id = ?`,
		key.PartyID,
		key.ServiceID,
		key.LanguagePairID,
		key.SpecializationID,
		key.UnitID,
		key.CurrencyID,
	).Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, nil
	}
	return &row, nil
}

func (r *repo) Exists(ctx context.Context, db *gorm.DB, kind partydomain.Kind, orgID, id snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM `+kind.PriceListTable()+` WHERE org_id = ? AND id = ?`,
		orgID,
		id,
	).Scan(&count).Error
	return count > 0, err
}

func (r *repo) List(ctx context.Context, db *gorm.DB, kind partydomain.Kind, orgID snowflake.ID, filter pricelistdomain.Filter, afterID snowflake.ID, limit int) ([]pricelistdomain.View, error) {
	conditions := []string{"p.org_id = ?", "p.id > ?"}
	args := []any{orgID, afterID}
	for _, f := range []struct {
		column string
		value  snowflake.ID
	}{
		{"p.party_id", filter.PartyID},
		{"p.service_id", filter.ServiceID},
		{"p.language_pair_id", filter.LanguagePairID},
		{"p.specialization_id", filter.SpecializationID},
		{"p.unit_id", filter.UnitID},
		{"p.currency_id", filter.CurrencyID},
	} {
		if f.value == 0 {
			continue
		}
		conditions = append(conditions, f.column+" = ?")
		args = append(args, f.value)
	}

	query := `SELECT ` + rowColumns + `, ` + labelColumns + `
		FROM ` + kind.PriceListTable() + ` p` + labelJoins + `
		WHERE ` + strings.Join(conditions, " AND ")
	if limit > 0 {
		query += ` ORDER BY p.id ASC LIMIT ?`
		args = append(args, limit)
	} else {
		query += ` ORDER BY p.id ASC`
	}

	var items []pricelistdomain.View
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
