package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/lingoflow/internal/clock"
	"github.com/smallbiznis/lingoflow/internal/config"
	"github.com/smallbiznis/lingoflow/internal/orgcontext"
	partydomain "github.com/smallbiznis/lingoflow/internal/party/domain"
	dbpkg "github.com/smallbiznis/lingoflow/pkg/db"
	"github.com/smallbiznis/lingoflow/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	PricingCfg *config.PricingConfigHolder `optional:"true"`
	Repo       partydomain.Repository
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	pricingCfg *config.PricingConfigHolder
	repo       partydomain.Repository
}

func New(p Params) partydomain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.NewSystemClock()
	}
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("party.service"),
		genID:      p.GenID,
		clock:      clk,
		pricingCfg: p.PricingCfg,
		repo:       p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, kind partydomain.Kind, req partydomain.CreateRequest) (*partydomain.Response, error) {
	if !kind.Valid() {
		return nil, partydomain.ErrInvalidKind
	}
	orgID, err := s.orgID(ctx)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, partydomain.ErrInvalidName
	}

	now := s.clock.Now()
	entity := &partydomain.Party{
		ID:        s.genID.Generate(),
		OrgID:     orgID,
		Name:      name,
		Email:     strings.TrimSpace(req.Email),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, s.db, kind, entity); err != nil {
		return nil, err
	}

	return toResponse(kind, entity), nil
}

func (s *Service) Get(ctx context.Context, kind partydomain.Kind, id string) (*partydomain.Response, error) {
	entity, err := s.load(ctx, s.db, kind, id)
	if err != nil {
		return nil, err
	}
	return toResponse(kind, entity), nil
}

func (s *Service) List(ctx context.Context, kind partydomain.Kind, req partydomain.ListRequest) (*partydomain.ListResponse, error) {
	if !kind.Valid() {
		return nil, partydomain.ErrInvalidKind
	}
	orgID, err := s.orgID(ctx)
	if err != nil {
		return nil, err
	}

	afterID, err := pagination.AfterID(req.PageToken)
	if err != nil {
		return nil, err
	}
	limit := pagination.ClampSize(req.PageSize, 25, s.pricingCfg.Get().MaxPageSize)

	items, err := s.repo.List(ctx, s.db, kind, orgID, afterID, limit+1)
	if err != nil {
		return nil, err
	}
	items, pageInfo := pagination.Trim(items, limit, func(p partydomain.Party) snowflake.ID { return p.ID })

	resp := make([]partydomain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, *toResponse(kind, &items[i]))
	}
	return &partydomain.ListResponse{Items: resp, PageInfo: pageInfo}, nil
}

func (s *Service) Delete(ctx context.Context, kind partydomain.Kind, id string) error {
	orgID, err := s.orgID(ctx)
	if err != nil {
		return err
	}

	return dbpkg.WithTenantTx(ctx, s.db, orgID, func(tx *gorm.DB) error {
		entity, err := s.load(ctx, tx, kind, id)
		if err != nil {
			return err
		}

		refs, err := s.repo.CountReferences(ctx, tx, kind, entity.ID)
		if err != nil {
			return err
		}
		if refs > 0 {
			return partydomain.ErrInUse
		}

		if err := s.repo.Delete(ctx, tx, kind, entity.ID); err != nil {
			return err
		}
		s.log.Info("party deleted",
			zap.String("kind", kind.String()),
			zap.String("party_id", entity.ID.String()),
		)
		return nil
	})
}

// load fetches a party owned by the tenant on ctx.
func (s *Service) load(ctx context.Context, db *gorm.DB, kind partydomain.Kind, id string) (*partydomain.Party, error) {
	if !kind.Valid() {
		return nil, partydomain.ErrInvalidKind
	}
	orgID, err := s.orgID(ctx)
	if err != nil {
		return nil, err
	}
	partyID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || partyID == 0 {
		return nil, partydomain.ErrInvalidID
	}

	entity, err := s.repo.FindByID(ctx, db, kind, partyID)
	if err != nil {
		return nil, err
	}
	if entity == nil {
		return nil, partydomain.NotFound(kind)
	}
	if entity.OrgID != orgID {
		return nil, partydomain.ErrForbidden
	}
	return entity, nil
}

func (s *Service) orgID(ctx context.Context) (snowflake.ID, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return 0, partydomain.ErrInvalidOrganization
	}
	return orgID, nil
}

func toResponse(kind partydomain.Kind, p *partydomain.Party) *partydomain.Response {
	return &partydomain.Response{
		ID:        p.ID,
		Kind:      kind,
		Name:      p.Name,
		Email:     p.Email,
		CreatedAt: p.CreatedAt.UTC(),
		UpdatedAt: p.UpdatedAt.UTC(),
	}
}

