package service

import (
	"context"
	"sort"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/lingoflow/internal/apperr"
	catalogdomain "github.com/smallbiznis/lingoflow/internal/catalog/domain"
	"github.com/smallbiznis/lingoflow/internal/clock"
	"github.com/smallbiznis/lingoflow/internal/config"
	jobdomain "github.com/smallbiznis/lingoflow/internal/job/domain"
	obslogger "github.com/smallbiznis/lingoflow/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/lingoflow/internal/observability/metrics"
	pricelistdomain "github.com/smallbiznis/lingoflow/internal/pricelist/domain"
	projectdomain "github.com/smallbiznis/lingoflow/internal/project/domain"
	dbpkg "github.com/smallbiznis/lingoflow/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type LedgerParams struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Clock         clock.Clock
	PricingCfg    *config.PricingConfigHolder `optional:"true"`
	Metrics       *obsmetrics.Metrics         `optional:"true"`
	Repo          jobdomain.Repository
	ProjectRepo   projectdomain.Repository
	CatalogRepo   catalogdomain.Repository
	PriceListRepo pricelistdomain.Repository
	PriceLists    pricelistdomain.Service
}

type Ledger struct {
	db            *gorm.DB
	log           *zap.Logger
	genID         *snowflake.Node
	clock         clock.Clock
	pricingCfg    *config.PricingConfigHolder
	metrics       *obsmetrics.Metrics
	repo          jobdomain.Repository
	projectRepo   projectdomain.Repository
	catalogRepo   catalogdomain.Repository
	priceListRepo pricelistdomain.Repository
	priceLists    pricelistdomain.Service
}

func NewLedger(p LedgerParams) jobdomain.LedgerService {
	clk := p.Clock
	if clk == nil {
		clk = clock.NewSystemClock()
	}
	return &Ledger{
		db:            p.DB,
		log:           p.Log.Named("job.ledger"),
		genID:         p.GenID,
		clock:         clk,
		pricingCfg:    p.PricingCfg,
		metrics:       p.Metrics,
		repo:          p.Repo,
		projectRepo:   p.ProjectRepo,
		catalogRepo:   p.CatalogRepo,
		priceListRepo: p.PriceListRepo,
		priceLists:    p.PriceLists,
	}
}

func (l *Ledger) CreateLine(ctx context.Context, direction jobdomain.Direction, kind jobdomain.LineKind, req jobdomain.LineRequest) (*jobdomain.LineResponse, error) {
	if err := checkVariant(direction, kind); err != nil {
		return nil, err
	}
	orgID, err := tenant(ctx)
	if err != nil {
		return nil, err
	}
	if req.CurrencyID == nil || strings.TrimSpace(*req.CurrencyID) == "" {
		return nil, jobdomain.ErrCurrencyRequired
	}

	line := jobdomain.FinancialLine{OrgID: orgID, Direction: direction, Kind: kind}
	if err := l.apply(&line, req); err != nil {
		return nil, err
	}

	var resp *jobdomain.LineResponse
	err = dbpkg.WithTenantTx(ctx, l.db, orgID, func(tx *gorm.DB) error {
		job, err := loadJob(ctx, tx, l.repo, orgID, req.JobID)
		if err != nil {
			return err
		}
		if err := l.checkReferences(ctx, tx, orgID, &line); err != nil {
			return err
		}

		now := l.clock.Now()
		line.ID = l.genID.Generate()
		line.JobID = job.ID
		line.CreatedAt = now
		line.UpdatedAt = now
		if err := l.repo.InsertLine(ctx, tx, &line); err != nil {
			return err
		}
		resp, err = l.view(ctx, tx, line.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	l.metrics.RecordFinancialLine(ctx, direction.String(), kind.String(), obsmetrics.OpCreate)
	return resp, nil
}

func (l *Ledger) GetLine(ctx context.Context, direction jobdomain.Direction, kind jobdomain.LineKind, id string) (*jobdomain.LineResponse, error) {
	line, err := l.load(ctx, l.db, direction, kind, id)
	if err != nil {
		return nil, err
	}
	return l.view(ctx, l.db, line.ID)
}

func (l *Ledger) ListLines(ctx context.Context, direction jobdomain.Direction, kind jobdomain.LineKind, jobID string) ([]jobdomain.LineResponse, error) {
	if err := checkVariant(direction, kind); err != nil {
		return nil, err
	}
	orgID, err := tenant(ctx)
	if err != nil {
		return nil, err
	}
	job, err := loadJob(ctx, l.db, l.repo, orgID, jobID)
	if err != nil {
		return nil, err
	}

	items, err := l.repo.ListLines(ctx, l.db, job.ID, jobdomain.LineFilter{Direction: direction, Kind: kind})
	if err != nil {
		return nil, err
	}
	resp := make([]jobdomain.LineResponse, 0, len(items))
	for i := range items {
		resp = append(resp, l.toLineResponse(&items[i]))
	}
	return resp, nil
}

// UpdateLine re-validates the merged line as a whole, so a unit based
// subtotal is always recomputed from the stored and submitted fields.
func (l *Ledger) UpdateLine(ctx context.Context, direction jobdomain.Direction, kind jobdomain.LineKind, id string, req jobdomain.LineRequest) (*jobdomain.LineResponse, error) {
	if isEmptyLineUpdate(req) {
		return nil, jobdomain.ErrEmptyUpdate
	}
	orgID, err := tenant(ctx)
	if err != nil {
		return nil, err
	}

	var resp *jobdomain.LineResponse
	err = dbpkg.WithTenantTx(ctx, l.db, orgID, func(tx *gorm.DB) error {
		current, err := l.load(ctx, tx, direction, kind, id)
		if err != nil {
			return err
		}
		next := *current
		if err := l.apply(&next, req); err != nil {
			return err
		}
		if err := l.checkReferences(ctx, tx, orgID, &next); err != nil {
			return err
		}

		next.UpdatedAt = l.clock.Now()
		if err := l.repo.UpdateLine(ctx, tx, &next); err != nil {
			return err
		}
		resp, err = l.view(ctx, tx, next.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	l.metrics.RecordFinancialLine(ctx, direction.String(), kind.String(), obsmetrics.OpUpdate)
	return resp, nil
}

func (l *Ledger) DeleteLine(ctx context.Context, direction jobdomain.Direction, kind jobdomain.LineKind, id string) error {
	orgID, err := tenant(ctx)
	if err != nil {
		return err
	}
	err = dbpkg.WithTenantTx(ctx, l.db, orgID, func(tx *gorm.DB) error {
		line, err := l.load(ctx, tx, direction, kind, id)
		if err != nil {
			return err
		}
		return l.repo.DeleteLine(ctx, tx, line.ID)
	})
	if err != nil {
		return err
	}

	l.metrics.RecordFinancialLine(ctx, direction.String(), kind.String(), obsmetrics.OpDelete)
	return nil
}

// Suggest looks up the client's rates for receivables and the vendor's rates
// for payables. A job without a vendor has no payable suggestions.
func (l *Ledger) Suggest(ctx context.Context, direction jobdomain.Direction, jobID string) ([]pricelistdomain.Response, error) {
	if !direction.Valid() {
		return nil, jobdomain.ErrInvalidDirection
	}
	orgID, err := tenant(ctx)
	if err != nil {
		return nil, err
	}
	job, err := loadJob(ctx, l.db, l.repo, orgID, jobID)
	if err != nil {
		return nil, err
	}

	var partyID snowflake.ID
	switch direction {
	case jobdomain.DirectionReceivable:
		project, err := loadProject(ctx, l.db, l.projectRepo, orgID, job.ProjectID)
		if err != nil {
			return nil, err
		}
		partyID = project.ClientID
	case jobdomain.DirectionPayable:
		if job.VendorID != nil {
			partyID = *job.VendorID
		}
	}

	matches := []pricelistdomain.Response{}
	if partyID != 0 {
		matches, err = l.priceLists.Match(ctx, direction.PartyKind(), pricelistdomain.MatchRequest{
			PartyID:          partyID,
			ServiceID:        job.ServiceID,
			LanguagePairID:   job.LanguagePairID,
			SpecializationID: job.SpecializationID,
		})
		if err != nil {
			return nil, err
		}
	}

	l.metrics.RecordPriceSuggestion(ctx, direction.String(), len(matches))
	obslogger.WithContext(ctx, l.log).Debug("price suggestions resolved",
		zap.String("job_id", job.ID.String()),
		zap.String("direction", direction.String()),
		zap.Int("matches", len(matches)),
	)
	return matches, nil
}

// Summary totals receivables and payables per currency. Amounts in different
// currencies are never added together.
func (l *Ledger) Summary(ctx context.Context, jobID string) (*jobdomain.SummaryResponse, error) {
	orgID, err := tenant(ctx)
	if err != nil {
		return nil, err
	}
	job, err := loadJob(ctx, l.db, l.repo, orgID, jobID)
	if err != nil {
		return nil, err
	}
	items, err := l.repo.ListLines(ctx, l.db, job.ID, jobdomain.LineFilter{})
	if err != nil {
		return nil, err
	}

	type bucket struct {
		code       string
		receivable decimal.Decimal
		payable    decimal.Decimal
	}
	buckets := map[snowflake.ID]*bucket{}
	for _, item := range items {
		b, ok := buckets[item.CurrencyID]
		if !ok {
			b = &bucket{code: item.CurrencyCode}
			buckets[item.CurrencyID] = b
		}
		switch item.Direction {
		case jobdomain.DirectionReceivable:
			b.receivable = b.receivable.Add(item.Subtotal)
		case jobdomain.DirectionPayable:
			b.payable = b.payable.Add(item.Subtotal)
		}
	}

	scale := l.scale()
	totals := make([]jobdomain.CurrencyTotal, 0, len(buckets))
	for currencyID, b := range buckets {
		totals = append(totals, jobdomain.CurrencyTotal{
			CurrencyID:   currencyID,
			CurrencyCode: b.code,
			Receivable:   b.receivable.StringFixed(scale),
			Payable:      b.payable.StringFixed(scale),
			Margin:       b.receivable.Sub(b.payable).StringFixed(scale),
		})
	}
	sort.Slice(totals, func(i, j int) bool {
		if totals[i].CurrencyCode != totals[j].CurrencyCode {
			return totals[i].CurrencyCode < totals[j].CurrencyCode
		}
		return totals[i].CurrencyID < totals[j].CurrencyID
	})

	return &jobdomain.SummaryResponse{JobID: job.ID, Totals: totals}, nil
}

// apply merges req into line and enforces the rules of the line's kind.
func (l *Ledger) apply(line *jobdomain.FinancialLine, req jobdomain.LineRequest) error {
	if req.CurrencyID != nil {
		id, err := parseID(*req.CurrencyID, "currency_id")
		if err != nil {
			return err
		}
		line.CurrencyID = id
	}
	if req.FileID != nil {
		if fileID := strings.TrimSpace(*req.FileID); fileID != "" {
			line.FileID = &fileID
		} else {
			line.FileID = nil
		}
	}
	if req.PriceListID != nil {
		if strings.TrimSpace(*req.PriceListID) == "" {
			line.PriceListID = nil
		} else {
			id, err := parseID(*req.PriceListID, "price_list_id")
			if err != nil {
				return err
			}
			line.PriceListID = &id
		}
	}
	if req.Note != nil {
		line.Note = strings.TrimSpace(*req.Note)
	}

	switch line.Kind {
	case jobdomain.LineKindFlatRate:
		if req.UnitID != nil || req.UnitAmount != nil || req.PricePerUnit != nil {
			return jobdomain.ErrUnitFieldsNotFlat
		}
		if req.Subtotal != nil {
			line.Subtotal = *req.Subtotal
		} else if line.ID == 0 {
			return jobdomain.ErrInvalidSubtotal
		}
		if line.Subtotal.IsNegative() {
			return jobdomain.ErrInvalidSubtotal
		}
		line.Subtotal = line.Subtotal.Round(l.scale())

	case jobdomain.LineKindUnitBased:
		if req.UnitID != nil {
			id, err := parseID(*req.UnitID, "unit_id")
			if err != nil {
				return err
			}
			line.UnitID = &id
		}
		if req.UnitAmount != nil {
			line.UnitAmount = decimal.NewNullDecimal(*req.UnitAmount)
		}
		if req.PricePerUnit != nil {
			line.PricePerUnit = decimal.NewNullDecimal(*req.PricePerUnit)
		}
		if line.UnitID == nil {
			return jobdomain.ErrUnitRequired
		}
		if !line.UnitAmount.Valid || !line.UnitAmount.Decimal.IsPositive() {
			return jobdomain.ErrInvalidUnitAmount
		}
		if !line.PricePerUnit.Valid || line.PricePerUnit.Decimal.IsNegative() {
			return jobdomain.ErrInvalidPrice
		}
		line.Subtotal = Subtotal(line.UnitAmount.Decimal, line.PricePerUnit.Decimal, l.scale())
	}
	return nil
}

func (l *Ledger) checkReferences(ctx context.Context, db *gorm.DB, orgID snowflake.ID, line *jobdomain.FinancialLine) error {
	ok, err := l.catalogRepo.CurrencyExists(ctx, db, line.CurrencyID)
	if err := missing(ok, err, "currency"); err != nil {
		return err
	}
	if line.UnitID != nil {
		ok, err := l.catalogRepo.UnitExists(ctx, db, *line.UnitID)
		if err := missing(ok, err, "unit"); err != nil {
			return err
		}
	}
	if line.PriceListID != nil {
		ok, err := l.priceListRepo.Exists(ctx, db, line.Direction.PartyKind(), orgID, *line.PriceListID)
		if err := missing(ok, err, "price_list"); err != nil {
			return err
		}
	}
	return nil
}

// load fetches a line of the given variant owned by the tenant. A line of
// another variant is reported as missing.
func (l *Ledger) load(ctx context.Context, db *gorm.DB, direction jobdomain.Direction, kind jobdomain.LineKind, id string) (*jobdomain.FinancialLine, error) {
	if err := checkVariant(direction, kind); err != nil {
		return nil, err
	}
	orgID, err := tenant(ctx)
	if err != nil {
		return nil, err
	}
	lineID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || lineID == 0 {
		return nil, jobdomain.ErrInvalidID
	}

	line, err := l.repo.FindLine(ctx, db, lineID)
	if err != nil {
		return nil, err
	}
	if line == nil || line.Direction != direction || line.Kind != kind {
		return nil, jobdomain.ErrLineNotFound
	}
	if line.OrgID != orgID {
		return nil, jobdomain.ErrForbidden
	}
	return line, nil
}

func (l *Ledger) view(ctx context.Context, db *gorm.DB, id snowflake.ID) (*jobdomain.LineResponse, error) {
	v, err := l.repo.FindLineView(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, jobdomain.ErrLineNotFound
	}
	resp := l.toLineResponse(v)
	return &resp, nil
}

func (l *Ledger) scale() int32 {
	return l.pricingCfg.Get().SubtotalScale
}

func (l *Ledger) toLineResponse(v *jobdomain.LineView) jobdomain.LineResponse {
	resp := jobdomain.LineResponse{
		ID:           v.ID,
		JobID:        v.JobID,
		Direction:    v.Direction,
		Kind:         v.Kind,
		UnitID:       v.UnitID,
		UnitName:     v.UnitName,
		Subtotal:     v.Subtotal.StringFixed(l.scale()),
		CurrencyID:   v.CurrencyID,
		CurrencyCode: v.CurrencyCode,
		FileID:       v.FileID,
		PriceListID:  v.PriceListID,
		Note:         v.Note,
		CreatedAt:    v.CreatedAt.UTC(),
		UpdatedAt:    v.UpdatedAt.UTC(),
	}
	if v.UnitAmount.Valid {
		amount := v.UnitAmount.Decimal
		resp.UnitAmount = &amount
	}
	if v.PricePerUnit.Valid {
		price := v.PricePerUnit.Decimal
		resp.PricePerUnit = &price
	}
	return resp
}

// Subtotal is amount × price rounded half away from zero to scale places.
func Subtotal(amount, price decimal.Decimal, scale int32) decimal.Decimal {
	return amount.Mul(price).Round(scale)
}

func checkVariant(direction jobdomain.Direction, kind jobdomain.LineKind) error {
	if !direction.Valid() {
		return jobdomain.ErrInvalidDirection
	}
	if !kind.Valid() {
		return apperr.Invalid("kind", "invalid_line_kind")
	}
	return nil
}

func isEmptyLineUpdate(req jobdomain.LineRequest) bool {
	return req.UnitID == nil &&
		req.UnitAmount == nil &&
		req.PricePerUnit == nil &&
		req.Subtotal == nil &&
		req.CurrencyID == nil &&
		req.FileID == nil &&
		req.PriceListID == nil &&
		req.Note == nil
}
