package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/lingoflow/internal/clock"
	"github.com/smallbiznis/lingoflow/internal/orgcontext"
	partydomain "github.com/smallbiznis/lingoflow/internal/party/domain"
	scopedomain "github.com/smallbiznis/lingoflow/internal/scope/domain"
	settingsdomain "github.com/smallbiznis/lingoflow/internal/settings/domain"
	dbpkg "github.com/smallbiznis/lingoflow/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Clock     clock.Clock
	Repo      scopedomain.Repository
	Registry  scopedomain.Registry
	PartyRepo partydomain.Repository
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	clock     clock.Clock
	repo      scopedomain.Repository
	registry  scopedomain.Registry
	partyRepo partydomain.Repository
}

func New(p Params) scopedomain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.NewSystemClock()
	}
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("scope.service"),
		clock:     clk,
		repo:      p.Repo,
		registry:  p.Registry,
		partyRepo: p.PartyRepo,
	}
}

func (s *Service) Add(ctx context.Context, kind partydomain.Kind, partyID string, dim partydomain.Dimension, req scopedomain.AddRequest) (*scopedomain.EntryResponse, error) {
	orgID, err := s.orgID(ctx)
	if err != nil {
		return nil, err
	}
	valueID, err := parseID(req.ValueID, scopedomain.ErrInvalidValue)
	if err != nil {
		return nil, err
	}

	var resp *scopedomain.EntryResponse
	err = dbpkg.WithTenantTx(ctx, s.db, orgID, func(tx *gorm.DB) error {
		party, err := s.loadParty(ctx, tx, kind, orgID, partyID)
		if err != nil {
			return err
		}

		// Existence of the value itself does not depend on the party's settings.
		if err := s.checkValue(ctx, tx, dim, orgID, party.ID, valueID); err != nil {
			return err
		}

		exists, err := s.repo.Exists(ctx, tx, kind, dim, party.ID, valueID)
		if err != nil {
			return err
		}
		if exists {
			return scopedomain.ErrEntryExists
		}

		entry := &scopedomain.Entry{
			PartyID:   party.ID,
			ValueID:   valueID,
			OrgID:     orgID,
			CreatedAt: s.clock.Now(),
		}
		if err := s.repo.Insert(ctx, tx, kind, dim, entry); err != nil {
			if dbpkg.IsDuplicateKeyErr(err) {
				return scopedomain.ErrEntryExists
			}
			return err
		}

		resp = &scopedomain.EntryResponse{
			PartyID:   entry.PartyID,
			Dimension: dim,
			ValueID:   entry.ValueID,
			CreatedAt: entry.CreatedAt.UTC(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *Service) List(ctx context.Context, kind partydomain.Kind, partyID string, dim partydomain.Dimension) ([]scopedomain.EntryResponse, error) {
	orgID, err := s.orgID(ctx)
	if err != nil {
		return nil, err
	}
	party, err := s.loadParty(ctx, s.db, kind, orgID, partyID)
	if err != nil {
		return nil, err
	}

	items, err := s.repo.List(ctx, s.db, kind, dim, party.ID)
	if err != nil {
		return nil, err
	}

	resp := make([]scopedomain.EntryResponse, 0, len(items))
	for _, item := range items {
		resp = append(resp, scopedomain.EntryResponse{
			PartyID:    item.PartyID,
			Dimension:  dim,
			ValueID:    item.ValueID,
			Label:      item.Label(),
			UsageCount: item.UsageCount,
			CreatedAt:  item.CreatedAt.UTC(),
		})
	}
	return resp, nil
}

// Remove refuses to drop an entry that live price list rows still depend on.
func (s *Service) Remove(ctx context.Context, kind partydomain.Kind, partyID string, dim partydomain.Dimension, valueID string) error {
	orgID, err := s.orgID(ctx)
	if err != nil {
		return err
	}
	value, err := parseID(valueID, scopedomain.ErrInvalidValue)
	if err != nil {
		return err
	}

	return dbpkg.WithTenantTx(ctx, s.db, orgID, func(tx *gorm.DB) error {
		party, err := s.loadParty(ctx, tx, kind, orgID, partyID)
		if err != nil {
			return err
		}

		entry, err := s.repo.Get(ctx, tx, kind, dim, party.ID, value)
		if err != nil {
			return err
		}
		if entry == nil {
			return scopedomain.ErrEntryNotFound
		}

		live, err := s.repo.CountPriceListsFor(ctx, tx, kind, dim, party.ID, value)
		if err != nil {
			return err
		}
		if entry.UsageCount > 0 || live > 0 {
			return scopedomain.ErrScopeInUse
		}

		return s.repo.Delete(ctx, tx, kind, dim, party.ID, value)
	})
}

// Reconcile takes the tenant explicitly so operators can run it outside a
// request.
func (s *Service) Reconcile(ctx context.Context, kind partydomain.Kind, orgID snowflake.ID, opts scopedomain.ReconcileOptions) ([]scopedomain.Drift, error) {
	if !kind.Valid() {
		return nil, partydomain.ErrInvalidKind
	}
	if orgID == 0 {
		return nil, scopedomain.ErrInvalidOrganization
	}

	var drifts []scopedomain.Drift
	err := dbpkg.WithTenantTx(ctx, s.db, orgID, func(tx *gorm.DB) error {
		var err error
		drifts, err = s.registry.Reconcile(ctx, tx, kind, orgID, opts)
		return err
	})
	if err != nil {
		return nil, err
	}
	return drifts, nil
}

// allowAll selects the existence-only checker for every dimension.
var allowAll = settingsdomain.Flags{
	WorksWithAllServices:        true,
	WorksWithAllLanguagePairs:   true,
	WorksWithAllSpecializations: true,
}

func (s *Service) checkValue(ctx context.Context, db *gorm.DB, dim partydomain.Dimension, orgID, partyID, valueID snowflake.ID) error {
	for _, checker := range s.registry.Checkers(allowAll) {
		if checker.Dimension() == dim {
			return checker.Check(ctx, db, "", orgID, partyID, valueID)
		}
	}
	return partydomain.ErrInvalidDimension
}

func (s *Service) loadParty(ctx context.Context, db *gorm.DB, kind partydomain.Kind, orgID snowflake.ID, partyID string) (*partydomain.Party, error) {
	if !kind.Valid() {
		return nil, partydomain.ErrInvalidKind
	}
	id, err := parseID(partyID, scopedomain.ErrInvalidParty)
	if err != nil {
		return nil, err
	}

	party, err := s.partyRepo.FindByID(ctx, db, kind, id)
	if err != nil {
		return nil, err
	}
	if party == nil {
		return nil, partydomain.NotFound(kind)
	}
	if party.OrgID != orgID {
		return nil, scopedomain.ErrForbidden
	}
	return party, nil
}

func (s *Service) orgID(ctx context.Context) (snowflake.ID, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return 0, scopedomain.ErrInvalidOrganization
	}
	return orgID, nil
}

func parseID(value string, invalid error) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, invalid
	}
	return id, nil
}
