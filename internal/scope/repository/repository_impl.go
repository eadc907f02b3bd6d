package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	partydomain "github.com/smallbiznis/lingoflow/internal/party/domain"
	scopedomain "github.com/smallbiznis/lingoflow/internal/scope/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Table and column names below come from Kind and Dimension methods, never
// from request input.

type repo struct{}

func Provide() scopedomain.Repository {
	return &repo{}
}

func (r *repo) Exists(ctx context.Context, db *gorm.DB, kind partydomain.Kind, dim partydomain.Dimension, partyID, valueID snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM `+dim.Table(kind)+` WHERE party_id = ? AND `+dim.Column()+` = ?`,
		partyID,
		valueID,
	).Scan(&count).Error
	return count > 0, err
}

func (r *repo) Get(ctx context.Context, db *gorm.DB, kind partydomain.Kind, dim partydomain.Dimension, partyID, valueID snowflake.ID) (*scopedomain.Entry, error) {
	var e scopedomain.Entry
	err := db.WithContext(ctx).Raw(
		`SELECT party_id, `+dim.Column()+` AS value_id, org_id, usage_count, created_at
		 FROM `+dim.Table(kind)+` WHERE party_id = ? AND `+dim.Column()+` = ?`,
		partyID,
		valueID,
	).Scan(&e).Error
	if err != nil {
		return nil, err
	}
	if e.PartyID == 0 {
		return nil, nil
	}
	return &e, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, kind partydomain.Kind, dim partydomain.Dimension, e *scopedomain.Entry) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO `+dim.Table(kind)+` (party_id, `+dim.Column()+`, org_id, usage_count, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		e.PartyID,
		e.ValueID,
		e.OrgID,
		e.UsageCount,
		e.CreatedAt,
	).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, kind partydomain.Kind, dim partydomain.Dimension, partyID snowflake.ID) ([]scopedomain.EntryView, error) {
	labels := `c.name AS name, '' AS source_language, '' AS target_language`
	if dim == partydomain.DimensionLanguagePair {
		labels = `'' AS name, c.source_language, c.target_language`
	}

	var items []scopedomain.EntryView
	err := db.WithContext(ctx).Raw(
		`SELECT r.party_id, r.`+dim.Column()+` AS value_id, r.org_id, r.usage_count, r.created_at, `+labels+`
		 FROM `+dim.Table(kind)+` r
		 LEFT JOIN `+dim.CatalogTable()+` c ON c.id = r.`+dim.Column()+`
		 WHERE r.party_id = ?
		 ORDER BY r.`+dim.Column()+` ASC`,
		partyID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, kind partydomain.Kind, dim partydomain.Dimension, partyID, valueID snowflake.ID) error {
	return db.WithContext(ctx).Exec(
		`DELETE FROM `+dim.Table(kind)+` WHERE party_id = ? AND `+dim.Column()+` = ?`,
		partyID,
		valueID,
	).Error
}

func (r *repo) Increment(ctx context.Context, db *gorm.DB, kind partydomain.Kind, dim partydomain.Dimension, orgID, partyID, valueID snowflake.ID, now time.Time) error {
	table := dim.Table(kind)
	return db.WithContext(ctx).
		Table(table).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "party_id"}, {Name: dim.Column()}},
			DoUpdates: clause.Assignments(map[string]any{
				"usage_count": gorm.Expr(table + ".usage_count + 1"),
			}),
		}).
		Create(map[string]any{
			"party_id":    partyID,
			dim.Column():  valueID,
			"org_id":      orgID,
			"usage_count": 1,
			"created_at":  now,
		}).Error
}

func (r *repo) Decrement(ctx context.Context, db *gorm.DB, kind partydomain.Kind, dim partydomain.Dimension, partyID, valueID snowflake.ID) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE `+dim.Table(kind)+`
		 SET usage_count = CASE WHEN usage_count > 0 THEN usage_count - 1 ELSE 0 END
		 WHERE party_id = ? AND `+dim.Column()+` = ? AND usage_count > 0`,
		partyID,
		valueID,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) ListForOrg(ctx context.Context, db *gorm.DB, kind partydomain.Kind, dim partydomain.Dimension, orgID snowflake.ID) ([]scopedomain.Entry, error) {
	var items []scopedomain.Entry
	err := db.WithContext(ctx).Raw(
		`SELECT party_id, `+dim.Column()+` AS value_id, org_id, usage_count, created_at
		 FROM `+dim.Table(kind)+` WHERE org_id = ?
		 ORDER BY party_id ASC, value_id ASC`,
		orgID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) CountPriceLists(ctx context.Context, db *gorm.DB, kind partydomain.Kind, dim partydomain.Dimension, orgID snowflake.ID) ([]scopedomain.Usage, error) {
	var items []scopedomain.Usage
	err := db.WithContext(ctx).Raw(
		`SELECT party_id, `+dim.Column()+` AS value_id, COUNT(1) AS live_count
		 FROM `+kind.PriceListTable()+` WHERE org_id = ?
		 GROUP BY party_id, `+dim.Column()+`
		 ORDER BY party_id ASC, value_id ASC`,
		orgID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) CountPriceListsFor(ctx context.Context, db *gorm.DB, kind partydomain.Kind, dim partydomain.Dimension, partyID, valueID snowflake.ID) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM `+kind.PriceListTable()+` WHERE party_id = ? AND `+dim.Column()+` = ?`,
		partyID,
		valueID,
	).Scan(&count).Error
	return count, err
}

// Recount rewrites one counter from the live price list rows. On servers
// with row locks the registry row is locked first, so a concurrent increment
// or decrement either lands before the count or waits for it to commit.
func (r *repo) Recount(ctx context.Context, db *gorm.DB, kind partydomain.Kind, dim partydomain.Dimension, partyID, valueID snowflake.ID) (int64, error) {
	table := dim.Table(kind)
	col := dim.Column()
	tx := db.WithContext(ctx)

	if supportsRowLocks(tx) {
		var locked []int64
		err := tx.Table(table).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("party_id = ? AND "+col+" = ?", partyID, valueID).
			Pluck("usage_count", &locked).Error
		if err != nil {
			return 0, err
		}
	}

	res := tx.Exec(
		`UPDATE `+table+`
		 SET usage_count = (
			SELECT COUNT(1) FROM `+kind.PriceListTable()+` p
			 WHERE p.party_id = `+table+`.party_id AND p.`+col+` = `+table+`.`+col+`
		 )
		 WHERE party_id = ? AND `+col+` = ?`,
		partyID,
		valueID,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) EnsureEntry(ctx context.Context, db *gorm.DB, kind partydomain.Kind, dim partydomain.Dimension, orgID, partyID, valueID snowflake.ID, now time.Time) error {
	return db.WithContext(ctx).
		Table(dim.Table(kind)).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "party_id"}, {Name: dim.Column()}},
			DoNothing: true,
		}).
		Create(map[string]any{
			"party_id":    partyID,
			dim.Column():  valueID,
			"org_id":      orgID,
			"usage_count": 0,
			"created_at":  now,
		}).Error
}

// SQLite serializes writers per database and has no FOR UPDATE.
func supportsRowLocks(db *gorm.DB) bool {
	switch db.Dialector.Name() {
	case "postgres", "mysql":
		return true
	}
	return false
}
