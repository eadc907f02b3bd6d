package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/lingoflow/internal/apperr"
	catalogdomain "github.com/smallbiznis/lingoflow/internal/catalog/domain"
	"github.com/smallbiznis/lingoflow/internal/clock"
	"github.com/smallbiznis/lingoflow/internal/config"
	obsmetrics "github.com/smallbiznis/lingoflow/internal/observability/metrics"
	"github.com/smallbiznis/lingoflow/internal/orgcontext"
	partydomain "github.com/smallbiznis/lingoflow/internal/party/domain"
	pricelistdomain "github.com/smallbiznis/lingoflow/internal/pricelist/domain"
	scopedomain "github.com/smallbiznis/lingoflow/internal/scope/domain"
	settingsdomain "github.com/smallbiznis/lingoflow/internal/settings/domain"
	dbpkg "github.com/smallbiznis/lingoflow/pkg/db"
	"github.com/smallbiznis/lingoflow/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	Clock       clock.Clock
	PricingCfg  *config.PricingConfigHolder `optional:"true"`
	Metrics     *obsmetrics.PricingMetrics  `optional:"true"`
	Repo        pricelistdomain.Repository
	PartyRepo   partydomain.Repository
	CatalogRepo catalogdomain.Repository
	Settings    settingsdomain.Resolver
	Registry    scopedomain.Registry
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	pricingCfg  *config.PricingConfigHolder
	metrics     *obsmetrics.PricingMetrics
	repo        pricelistdomain.Repository
	partyRepo   partydomain.Repository
	catalogRepo catalogdomain.Repository
	settings    settingsdomain.Resolver
	registry    scopedomain.Registry
}

func New(p Params) pricelistdomain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.NewSystemClock()
	}
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("pricelist.service"),
		genID:       p.GenID,
		clock:       clk,
		pricingCfg:  p.PricingCfg,
		metrics:     p.Metrics,
		repo:        p.Repo,
		partyRepo:   p.PartyRepo,
		catalogRepo: p.CatalogRepo,
		settings:    p.Settings,
		registry:    p.Registry,
	}
}

// Create validates every dimension against the party's scope, inserts the row
// and takes one count on each restricted dimension, all in one transaction.
func (s *Service) Create(ctx context.Context, kind partydomain.Kind, req pricelistdomain.CreateRequest) (resp *pricelistdomain.Response, err error) {
	defer s.observe(kind, obsmetrics.OpCreate, time.Now(), &err)

	if !kind.Valid() {
		return nil, partydomain.ErrInvalidKind
	}
	orgID, err := s.orgID(ctx)
	if err != nil {
		return nil, err
	}

	row := pricelistdomain.PriceList{OrgID: orgID, Note: strings.TrimSpace(req.Note)}
	for _, f := range []struct {
		field string
		value string
		dst   *snowflake.ID
	}{
		{"party_id", req.PartyID, &row.PartyID},
		{"service_id", req.ServiceID, &row.ServiceID},
		{"language_pair_id", req.LanguagePairID, &row.LanguagePairID},
		{"specialization_id", req.SpecializationID, &row.SpecializationID},
		{"unit_id", req.UnitID, &row.UnitID},
		{"currency_id", req.CurrencyID, &row.CurrencyID},
	} {
		id, err := parseID(f.value, f.field)
		if err != nil {
			return nil, err
		}
		*f.dst = id
	}
	if req.PricePerUnit == nil || req.PricePerUnit.IsNegative() {
		return nil, pricelistdomain.ErrInvalidPrice
	}
	row.PricePerUnit = *req.PricePerUnit

	err = dbpkg.WithTenantTx(ctx, s.db, orgID, func(tx *gorm.DB) error {
		ok, err := s.partyRepo.Exists(ctx, tx, kind, orgID, row.PartyID)
		if err != nil {
			return err
		}
		if !ok {
			return partydomain.NotFound(kind)
		}

		flags, err := s.settings.Resolve(ctx, tx, orgID, kind, row.PartyID)
		if err != nil {
			return err
		}
		checkers := s.registry.Checkers(flags)
		for _, c := range checkers {
			if err := c.Check(ctx, tx, kind, orgID, row.PartyID, row.Value(c.Dimension())); err != nil {
				return err
			}
		}
		if err := s.checkUnitAndCurrency(ctx, tx, row.UnitID, row.CurrencyID); err != nil {
			return err
		}
		if err := s.ensureUniqueKey(ctx, tx, kind, row.Key(), 0); err != nil {
			return err
		}

		now := s.clock.Now()
		row.ID = s.genID.Generate()
		row.CreatedAt = now
		row.UpdatedAt = now
		if err := s.repo.Insert(ctx, tx, kind, &row); err != nil {
			if dbpkg.IsDuplicateKeyErr(err) {
				return pricelistdomain.ErrDuplicate
			}
			return err
		}

		for _, c := range checkers {
			if err := c.Acquire(ctx, tx, kind, orgID, row.PartyID, row.Value(c.Dimension())); err != nil {
				return err
			}
		}

		resp, err = s.view(ctx, tx, kind, row.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *Service) Get(ctx context.Context, kind partydomain.Kind, id string) (*pricelistdomain.Response, error) {
	row, err := s.load(ctx, s.db, kind, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, s.db, kind, row.ID)
}

func (s *Service) List(ctx context.Context, kind partydomain.Kind, req pricelistdomain.ListRequest) (*pricelistdomain.ListResponse, error) {
	if !kind.Valid() {
		return nil, partydomain.ErrInvalidKind
	}
	orgID, err := s.orgID(ctx)
	if err != nil {
		return nil, err
	}

	var filter pricelistdomain.Filter
	for _, f := range []struct {
		field string
		value string
		dst   *snowflake.ID
	}{
		{"party_id", req.PartyID, &filter.PartyID},
		{"service_id", req.ServiceID, &filter.ServiceID},
		{"language_pair_id", req.LanguagePairID, &filter.LanguagePairID},
		{"specialization_id", req.SpecializationID, &filter.SpecializationID},
	} {
		if strings.TrimSpace(f.value) == "" {
			continue
		}
		id, err := parseID(f.value, f.field)
		if err != nil {
			return nil, err
		}
		*f.dst = id
	}

	afterID, err := pagination.AfterID(req.PageToken)
	if err != nil {
		return nil, err
	}
	limit := pagination.ClampSize(req.PageSize, 25, s.pricingCfg.Get().MaxPageSize)

	items, err := s.repo.List(ctx, s.db, kind, orgID, filter, afterID, limit+1)
	if err != nil {
		return nil, err
	}
	items, pageInfo := pagination.Trim(items, limit, func(v pricelistdomain.View) snowflake.ID { return v.ID })

	return &pricelistdomain.ListResponse{Items: toResponses(kind, items), PageInfo: pageInfo}, nil
}

// Update moves counts only for dimensions whose value changes. Price, note,
// unit and currency edits never touch the registry.
func (s *Service) Update(ctx context.Context, kind partydomain.Kind, id string, req pricelistdomain.UpdateRequest) (resp *pricelistdomain.Response, err error) {
	defer s.observe(kind, obsmetrics.OpUpdate, time.Now(), &err)

	if isEmptyUpdate(req) {
		return nil, pricelistdomain.ErrEmptyUpdate
	}
	if req.PricePerUnit != nil && req.PricePerUnit.IsNegative() {
		return nil, pricelistdomain.ErrInvalidPrice
	}
	orgID, err := s.orgID(ctx)
	if err != nil {
		return nil, err
	}

	err = dbpkg.WithTenantTx(ctx, s.db, orgID, func(tx *gorm.DB) error {
		current, err := s.load(ctx, tx, kind, id)
		if err != nil {
			return err
		}
		next := *current

		requested := map[partydomain.Dimension]*string{
			partydomain.DimensionService:        req.ServiceID,
			partydomain.DimensionLanguagePair:   req.LanguagePairID,
			partydomain.DimensionSpecialization: req.SpecializationID,
		}
		for _, dim := range partydomain.Dimensions {
			raw := requested[dim]
			if raw == nil {
				continue
			}
			value, err := parseID(*raw, dim.Column())
			if err != nil {
				return err
			}
			next.SetValue(dim, value)
		}
		if req.UnitID != nil {
			if next.UnitID, err = parseID(*req.UnitID, "unit_id"); err != nil {
				return err
			}
		}
		if req.CurrencyID != nil {
			if next.CurrencyID, err = parseID(*req.CurrencyID, "currency_id"); err != nil {
				return err
			}
		}
		if req.PricePerUnit != nil {
			next.PricePerUnit = *req.PricePerUnit
		}
		if req.Note != nil {
			next.Note = strings.TrimSpace(*req.Note)
		}

		flags, err := s.settings.Resolve(ctx, tx, orgID, kind, current.PartyID)
		if err != nil {
			return err
		}
		checkers := s.registry.Checkers(flags)
		var changed []scopedomain.Checker
		for _, c := range checkers {
			dim := c.Dimension()
			if next.Value(dim) == current.Value(dim) {
				continue
			}
			if err := c.Check(ctx, tx, kind, orgID, current.PartyID, next.Value(dim)); err != nil {
				return err
			}
			changed = append(changed, c)
		}

		if next.UnitID != current.UnitID || next.CurrencyID != current.CurrencyID {
			if err := s.checkUnitAndCurrency(ctx, tx, next.UnitID, next.CurrencyID); err != nil {
				return err
			}
		}
		if next.Key() != current.Key() {
			if err := s.ensureUniqueKey(ctx, tx, kind, next.Key(), current.ID); err != nil {
				return err
			}
		}

		next.UpdatedAt = s.clock.Now()
		if err := s.repo.Update(ctx, tx, kind, &next); err != nil {
			if dbpkg.IsDuplicateKeyErr(err) {
				return pricelistdomain.ErrDuplicate
			}
			return err
		}

		for _, c := range changed {
			dim := c.Dimension()
			if err := c.Release(ctx, tx, kind, orgID, current.PartyID, current.Value(dim)); err != nil {
				return err
			}
			if err := c.Acquire(ctx, tx, kind, orgID, current.PartyID, next.Value(dim)); err != nil {
				return err
			}
		}

		resp, err = s.view(ctx, tx, kind, next.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *Service) Delete(ctx context.Context, kind partydomain.Kind, id string) (err error) {
	defer s.observe(kind, obsmetrics.OpDelete, time.Now(), &err)

	orgID, err := s.orgID(ctx)
	if err != nil {
		return err
	}

	return dbpkg.WithTenantTx(ctx, s.db, orgID, func(tx *gorm.DB) error {
		row, err := s.load(ctx, tx, kind, id)
		if err != nil {
			return err
		}

		flags, err := s.settings.Resolve(ctx, tx, orgID, kind, row.PartyID)
		if err != nil {
			return err
		}
		if err := s.repo.Delete(ctx, tx, kind, row.ID); err != nil {
			return err
		}
		for _, c := range s.registry.Checkers(flags) {
			if err := c.Release(ctx, tx, kind, orgID, row.PartyID, row.Value(c.Dimension())); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Service) Match(ctx context.Context, kind partydomain.Kind, req pricelistdomain.MatchRequest) ([]pricelistdomain.Response, error) {
	if !kind.Valid() {
		return nil, partydomain.ErrInvalidKind
	}
	orgID, err := s.orgID(ctx)
	if err != nil {
		return nil, err
	}
	if req.PartyID == 0 {
		return []pricelistdomain.Response{}, nil
	}

	items, err := s.repo.List(ctx, s.db, kind, orgID, pricelistdomain.Filter{
		PartyID:          req.PartyID,
		ServiceID:        req.ServiceID,
		LanguagePairID:   req.LanguagePairID,
		SpecializationID: req.SpecializationID,
		UnitID:           req.UnitID,
		CurrencyID:       req.CurrencyID,
	}, 0, 0)
	if err != nil {
		return nil, err
	}
	return toResponses(kind, items), nil
}

func (s *Service) checkUnitAndCurrency(ctx context.Context, db *gorm.DB, unitID, currencyID snowflake.ID) error {
	ok, err := s.catalogRepo.UnitExists(ctx, db, unitID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("unit")
	}
	ok, err = s.catalogRepo.CurrencyExists(ctx, db, currencyID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound("currency")
	}
	return nil
}

// ensureUniqueKey rejects a key held by any row other than self.
func (s *Service) ensureUniqueKey(ctx context.Context, db *gorm.DB, kind partydomain.Kind, key pricelistdomain.Key, self snowflake.ID) error {
	existing, err := s.repo.FindByKey(ctx, db, kind, key)
	if err != nil {
		return err
	}
	if existing != nil && existing.ID != self {
		return pricelistdomain.ErrDuplicate
	}
	return nil
}

func (s *Service) load(ctx context.Context, db *gorm.DB, kind partydomain.Kind, id string) (*pricelistdomain.PriceList, error) {
	if !kind.Valid() {
		return nil, partydomain.ErrInvalidKind
	}
	orgID, err := s.orgID(ctx)
	if err != nil {
		return nil, err
	}
	rowID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || rowID == 0 {
		return nil, pricelistdomain.ErrInvalidID
	}

	row, err := s.repo.FindByID(ctx, db, kind, rowID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, pricelistdomain.ErrNotFound
	}
	if row.OrgID != orgID {
		return nil, pricelistdomain.ErrForbidden
	}
	return row, nil
}

func (s *Service) view(ctx context.Context, db *gorm.DB, kind partydomain.Kind, id snowflake.ID) (*pricelistdomain.Response, error) {
	v, err := s.repo.FindView(ctx, db, kind, id)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, pricelistdomain.ErrNotFound
	}
	resp := toResponse(kind, *v)
	return &resp, nil
}

func (s *Service) observe(kind partydomain.Kind, op string, start time.Time, err *error) {
	s.metrics.ObserveMutation(kind.String(), op, *err, time.Since(start))
	if *err != nil && apperr.Kind(*err) == nil {
		s.log.Error("price list mutation failed",
			zap.String("kind", kind.String()),
			zap.String("op", op),
			zap.Error(*err),
		)
	}
}

func (s *Service) orgID(ctx context.Context) (snowflake.ID, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return 0, pricelistdomain.ErrInvalidOrganization
	}
	return orgID, nil
}

func isEmptyUpdate(req pricelistdomain.UpdateRequest) bool {
	return req.ServiceID == nil &&
		req.LanguagePairID == nil &&
		req.SpecializationID == nil &&
		req.UnitID == nil &&
		req.CurrencyID == nil &&
		req.PricePerUnit == nil &&
		req.Note == nil
}

func parseID(value, field string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, pricelistdomain.InvalidField(field)
	}
	return id, nil
}

func toResponses(kind partydomain.Kind, items []pricelistdomain.View) []pricelistdomain.Response {
	resp := make([]pricelistdomain.Response, 0, len(items))
	for _, v := range items {
		resp = append(resp, toResponse(kind, v))
	}
	return resp
}

func toResponse(kind partydomain.Kind, v pricelistdomain.View) pricelistdomain.Response {
	return pricelistdomain.Response{
		ID:                 v.ID,
		Kind:               kind,
		PartyID:            v.PartyID,
		ServiceID:          v.ServiceID,
		ServiceName:        v.ServiceName,
		LanguagePairID:     v.LanguagePairID,
		LanguagePair:       v.LanguagePairLabel(),
		SpecializationID:   v.SpecializationID,
		SpecializationName: v.SpecializationName,
		UnitID:             v.UnitID,
		UnitName:           v.UnitName,
		CurrencyID:         v.CurrencyID,
		CurrencyCode:       v.CurrencyCode,
		PricePerUnit:       v.PricePerUnit,
		Note:               v.Note,
		CreatedAt:          v.CreatedAt.UTC(),
		UpdatedAt:          v.UpdatedAt.UTC(),
	}
}
