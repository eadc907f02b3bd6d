package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/lingoflow/internal/apperr"
	catalogdomain "github.com/smallbiznis/lingoflow/internal/catalog/domain"
	"github.com/smallbiznis/lingoflow/internal/clock"
	"github.com/smallbiznis/lingoflow/internal/config"
	obsmetrics "github.com/smallbiznis/lingoflow/internal/observability/metrics"
	"github.com/smallbiznis/lingoflow/internal/orgcontext"
	partydomain "github.com/smallbiznis/lingoflow/internal/party/domain"
	projectdomain "github.com/smallbiznis/lingoflow/internal/project/domain"
	dbpkg "github.com/smallbiznis/lingoflow/pkg/db"
	"github.com/smallbiznis/lingoflow/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
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
	Repo        projectdomain.Repository
	PartyRepo   partydomain.Repository
	CatalogRepo catalogdomain.Repository
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	pricingCfg  *config.PricingConfigHolder
	metrics     *obsmetrics.PricingMetrics
	repo        projectdomain.Repository
	partyRepo   partydomain.Repository
	catalogRepo catalogdomain.Repository
}

func New(p Params) projectdomain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.NewSystemClock()
	}
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("project.service"),
		genID:       p.GenID,
		clock:       clk,
		pricingCfg:  p.PricingCfg,
		metrics:     p.Metrics,
		repo:        p.Repo,
		partyRepo:   p.PartyRepo,
		catalogRepo: p.CatalogRepo,
	}
}

// Create writes the project, its language pair links and the opening history
// row in one transaction.
func (s *Service) Create(ctx context.Context, req projectdomain.CreateRequest) (*projectdomain.Response, error) {
	orgID, err := s.orgID(ctx)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, projectdomain.ErrInvalidName
	}
	if !req.Status.Valid() {
		return nil, projectdomain.ErrInvalidStatus
	}
	if err := checkDates(req.StartDate, req.Deadline); err != nil {
		return nil, err
	}
	code, err := projectCode(req.Code, name)
	if err != nil {
		return nil, err
	}

	project := projectdomain.Project{
		OrgID:     orgID,
		Name:      name,
		Code:      code,
		Status:    req.Status,
		StartDate: req.StartDate,
		Deadline:  req.Deadline,
	}
	if req.Metadata != nil {
		project.Metadata = datatypes.JSONMap(req.Metadata)
	}
	if project.ClientID, err = parseID(req.ClientID, "client_id"); err != nil {
		return nil, err
	}
	if project.ProjectManagerID, err = parseID(req.ProjectManagerID, "project_manager_id"); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.AccountManagerID) != "" {
		id, err := parseID(req.AccountManagerID, "account_manager_id")
		if err != nil {
			return nil, err
		}
		project.AccountManagerID = &id
	}
	if project.ServiceID, err = parseID(req.ServiceID, "service_id"); err != nil {
		return nil, err
	}
	if project.SpecializationID, err = parseID(req.SpecializationID, "specialization_id"); err != nil {
		return nil, err
	}
	pairIDs, err := parseLanguagePairs(req.LanguagePairIDs)
	if err != nil {
		return nil, err
	}

	err = dbpkg.WithTenantTx(ctx, s.db, orgID, func(tx *gorm.DB) error {
		if err := s.checkReferences(ctx, tx, orgID, &project, nil); err != nil {
			return err
		}
		if err := s.checkLanguagePairs(ctx, tx, orgID, pairIDs); err != nil {
			return err
		}

		now := s.clock.Now()
		project.ID = s.genID.Generate()
		project.CreatedAt = now
		project.UpdatedAt = now
		if err := s.repo.Insert(ctx, tx, &project); err != nil {
			return err
		}
		if err := s.repo.ReplaceLanguagePairs(ctx, tx, project.ID, pairIDs); err != nil {
			return err
		}
		return s.appendHistory(ctx, tx, &project, nil, req.StatusComment)
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncStatusTransition("", project.Status.String())
	return toResponse(&project, pairIDs), nil
}

func (s *Service) Get(ctx context.Context, id string) (*projectdomain.Response, error) {
	project, err := s.load(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	pairs, err := s.repo.ListLanguagePairs(ctx, s.db, []snowflake.ID{project.ID})
	if err != nil {
		return nil, err
	}
	return toResponse(project, pairs[project.ID]), nil
}

func (s *Service) List(ctx context.Context, req projectdomain.ListRequest) (*projectdomain.ListResponse, error) {
	orgID, err := s.orgID(ctx)
	if err != nil {
		return nil, err
	}

	var filter projectdomain.Filter
	if strings.TrimSpace(req.ClientID) != "" {
		if filter.ClientID, err = parseID(req.ClientID, "client_id"); err != nil {
			return nil, err
		}
	}
	if status := strings.TrimSpace(req.Status); status != "" {
		filter.Status = projectdomain.Status(status)
		if !filter.Status.Valid() {
			return nil, projectdomain.ErrInvalidStatus
		}
	}

	afterID, err := pagination.AfterID(req.PageToken)
	if err != nil {
		return nil, err
	}
	limit := pagination.ClampSize(req.PageSize, 25, s.pricingCfg.Get().MaxPageSize)

	items, err := s.repo.List(ctx, s.db, orgID, filter, afterID, limit+1)
	if err != nil {
		return nil, err
	}
	items, pageInfo := pagination.Trim(items, limit, func(p projectdomain.Project) snowflake.ID { return p.ID })

	ids := make([]snowflake.ID, 0, len(items))
	for _, p := range items {
		ids = append(ids, p.ID)
	}
	pairs, err := s.repo.ListLanguagePairs(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}

	resp := make([]projectdomain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, *toResponse(&items[i], pairs[items[i].ID]))
	}
	return &projectdomain.ListResponse{Items: resp, PageInfo: pageInfo}, nil
}

// Update appends a history row only when the status actually changes.
func (s *Service) Update(ctx context.Context, id string, req projectdomain.UpdateRequest) (*projectdomain.Response, error) {
	if isEmptyUpdate(req) {
		return nil, projectdomain.ErrEmptyUpdate
	}
	if req.Status != nil && !req.Status.Valid() {
		return nil, projectdomain.ErrInvalidStatus
	}
	orgID, err := s.orgID(ctx)
	if err != nil {
		return nil, err
	}

	var pairIDs []snowflake.ID
	var oldStatus projectdomain.Status
	var updated projectdomain.Project
	replace := req.LanguagePairIDs != nil
	if replace {
		if pairIDs, err = parseLanguagePairs(req.LanguagePairIDs); err != nil {
			return nil, err
		}
	}

	err = dbpkg.WithTenantTx(ctx, s.db, orgID, func(tx *gorm.DB) error {
		current, err := s.load(ctx, tx, id)
		if err != nil {
			return err
		}
		next := *current
		oldStatus = current.Status

		if err := applyUpdate(&next, req); err != nil {
			return err
		}
		if err := checkDates(next.StartDate, next.Deadline); err != nil {
			return err
		}
		if err := s.checkReferences(ctx, tx, orgID, &next, current); err != nil {
			return err
		}

		next.UpdatedAt = s.clock.Now()
		if err := s.repo.Update(ctx, tx, &next); err != nil {
			return err
		}

		if replace {
			if err := s.checkLanguagePairs(ctx, tx, orgID, pairIDs); err != nil {
				return err
			}
			if err := s.repo.ReplaceLanguagePairs(ctx, tx, next.ID, pairIDs); err != nil {
				return err
			}
		} else {
			pairs, err := s.repo.ListLanguagePairs(ctx, tx, []snowflake.ID{next.ID})
			if err != nil {
				return err
			}
			pairIDs = pairs[next.ID]
		}

		if next.Status != current.Status {
			prev := current.Status
			if err := s.appendHistory(ctx, tx, &next, &prev, req.StatusComment); err != nil {
				return err
			}
		}
		updated = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	if updated.Status != oldStatus {
		s.metrics.IncStatusTransition(oldStatus.String(), updated.Status.String())
		s.log.Info("project status changed",
			zap.String("project_id", updated.ID.String()),
			zap.String("from", oldStatus.String()),
			zap.String("to", updated.Status.String()),
		)
	}
	return toResponse(&updated, pairIDs), nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	orgID, err := s.orgID(ctx)
	if err != nil {
		return err
	}
	return dbpkg.WithTenantTx(ctx, s.db, orgID, func(tx *gorm.DB) error {
		project, err := s.load(ctx, tx, id)
		if err != nil {
			return err
		}
		return s.repo.Delete(ctx, tx, project.ID)
	})
}

func (s *Service) History(ctx context.Context, id string) ([]projectdomain.HistoryResponse, error) {
	project, err := s.load(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListHistory(ctx, s.db, project.ID)
	if err != nil {
		return nil, err
	}

	resp := make([]projectdomain.HistoryResponse, 0, len(items))
	for _, h := range items {
		entry := projectdomain.HistoryResponse{
			ID:        h.ID,
			ProjectID: h.ProjectID,
			NewStatus: projectdomain.Status(h.NewStatus),
			Comment:   h.Comment,
			ChangedAt: h.ChangedAt.UTC(),
		}
		if h.OldStatus != nil {
			old := projectdomain.Status(*h.OldStatus)
			entry.OldStatus = &old
		}
		resp = append(resp, entry)
	}
	return resp, nil
}

func (s *Service) appendHistory(ctx context.Context, db *gorm.DB, project *projectdomain.Project, old *projectdomain.Status, comment string) error {
	entry := &projectdomain.StatusHistory{
		ID:        s.genID.Generate(),
		ProjectID: project.ID,
		OrgID:     project.OrgID,
		NewStatus: project.Status.String(),
		ChangedAt: s.clock.Now(),
	}
	if old != nil {
		value := old.String()
		entry.OldStatus = &value
	}
	if c := strings.TrimSpace(comment); c != "" {
		entry.Comment = &c
	}
	return s.repo.InsertHistory(ctx, db, entry)
}

// checkReferences validates the foreign keys of next under the tenant. With
// current set, only the keys that changed are looked up again.
func (s *Service) checkReferences(ctx context.Context, db *gorm.DB, orgID snowflake.ID, next, current *projectdomain.Project) error {
	var prev projectdomain.Project
	if current != nil {
		prev = *current
	}
	changed := func(a, b snowflake.ID) bool { return current == nil || a != b }

	if changed(next.ClientID, prev.ClientID) {
		ok, err := s.partyRepo.Exists(ctx, db, partydomain.KindClient, orgID, next.ClientID)
		if err := notFound(ok, err, "client"); err != nil {
			return err
		}
	}
	if changed(next.ProjectManagerID, prev.ProjectManagerID) {
		ok, err := s.catalogRepo.ManagerExists(ctx, db, orgID, next.ProjectManagerID)
		if err := notFound(ok, err, "project_manager"); err != nil {
			return err
		}
	}
	if next.AccountManagerID != nil && changed(*next.AccountManagerID, derefID(prev.AccountManagerID)) {
		ok, err := s.catalogRepo.ManagerExists(ctx, db, orgID, *next.AccountManagerID)
		if err := notFound(ok, err, "account_manager"); err != nil {
			return err
		}
	}
	if changed(next.ServiceID, prev.ServiceID) {
		ok, err := s.catalogRepo.ServiceExists(ctx, db, orgID, next.ServiceID)
		if err := notFound(ok, err, "service"); err != nil {
			return err
		}
	}
	if changed(next.SpecializationID, prev.SpecializationID) {
		ok, err := s.catalogRepo.SpecializationExists(ctx, db, orgID, next.SpecializationID)
		if err := notFound(ok, err, "specialization"); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) checkLanguagePairs(ctx context.Context, db *gorm.DB, orgID snowflake.ID, ids []snowflake.ID) error {
	count, err := s.catalogRepo.CountLanguagePairs(ctx, db, orgID, ids)
	if err != nil {
		return err
	}
	if count != int64(len(ids)) {
		return apperr.NotFound("language_pair")
	}
	return nil
}

func (s *Service) load(ctx context.Context, db *gorm.DB, id string) (*projectdomain.Project, error) {
	orgID, err := s.orgID(ctx)
	if err != nil {
		return nil, err
	}
	projectID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || projectID == 0 {
		return nil, projectdomain.ErrInvalidID
	}

	project, err := s.repo.FindByID(ctx, db, projectID)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, projectdomain.ErrNotFound
	}
	if project.OrgID != orgID {
		return nil, projectdomain.ErrForbidden
	}
	return project, nil
}

func (s *Service) orgID(ctx context.Context) (snowflake.ID, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return 0, projectdomain.ErrInvalidOrganization
	}
	return orgID, nil
}
