package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/lingoflow/internal/apperr"
	catalogdomain "github.com/smallbiznis/lingoflow/internal/catalog/domain"
	"github.com/smallbiznis/lingoflow/internal/clock"
	jobdomain "github.com/smallbiznis/lingoflow/internal/job/domain"
	"github.com/smallbiznis/lingoflow/internal/orgcontext"
	partydomain "github.com/smallbiznis/lingoflow/internal/party/domain"
	projectdomain "github.com/smallbiznis/lingoflow/internal/project/domain"
	dbpkg "github.com/smallbiznis/lingoflow/pkg/db"
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
	Repo        jobdomain.Repository
	ProjectRepo projectdomain.Repository
	PartyRepo   partydomain.Repository
	CatalogRepo catalogdomain.Repository
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	genID       *snowflake.Node
	clock       clock.Clock
	repo        jobdomain.Repository
	projectRepo projectdomain.Repository
	partyRepo   partydomain.Repository
	catalogRepo catalogdomain.Repository
}

func New(p Params) jobdomain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.NewSystemClock()
	}
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("job.service"),
		genID:       p.GenID,
		clock:       clk,
		repo:        p.Repo,
		projectRepo: p.ProjectRepo,
		partyRepo:   p.PartyRepo,
		catalogRepo: p.CatalogRepo,
	}
}

func (s *Service) Create(ctx context.Context, req jobdomain.CreateRequest) (*jobdomain.Response, error) {
	orgID, err := tenant(ctx)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, jobdomain.ErrInvalidName
	}
	job := jobdomain.Job{OrgID: orgID, Name: name}
	for _, f := range []struct {
		field string
		value string
		dst   *snowflake.ID
	}{
		{"project_id", req.ProjectID, &job.ProjectID},
		{"service_id", req.ServiceID, &job.ServiceID},
		{"language_pair_id", req.LanguagePairID, &job.LanguagePairID},
		{"specialization_id", req.SpecializationID, &job.SpecializationID},
	} {
		id, err := parseID(f.value, f.field)
		if err != nil {
			return nil, err
		}
		*f.dst = id
	}
	if strings.TrimSpace(req.VendorID) != "" {
		id, err := parseID(req.VendorID, "vendor_id")
		if err != nil {
			return nil, err
		}
		job.VendorID = &id
	}

	err = dbpkg.WithTenantTx(ctx, s.db, orgID, func(tx *gorm.DB) error {
		if _, err := loadProject(ctx, tx, s.projectRepo, orgID, job.ProjectID); err != nil {
			return err
		}
		if job.VendorID != nil {
			ok, err := s.partyRepo.Exists(ctx, tx, partydomain.KindVendor, orgID, *job.VendorID)
			if err := missing(ok, err, "vendor"); err != nil {
				return err
			}
		}
		ok, err := s.catalogRepo.ServiceExists(ctx, tx, orgID, job.ServiceID)
		if err := missing(ok, err, "service"); err != nil {
			return err
		}
		ok, err = s.catalogRepo.LanguagePairExists(ctx, tx, orgID, job.LanguagePairID)
		if err := missing(ok, err, "language_pair"); err != nil {
			return err
		}
		ok, err = s.catalogRepo.SpecializationExists(ctx, tx, orgID, job.SpecializationID)
		if err := missing(ok, err, "specialization"); err != nil {
			return err
		}

		now := s.clock.Now()
		job.ID = s.genID.Generate()
		job.CreatedAt = now
		job.UpdatedAt = now
		return s.repo.InsertJob(ctx, tx, &job)
	})
	if err != nil {
		return nil, err
	}
	return toJobResponse(&job), nil
}

func (s *Service) Get(ctx context.Context, id string) (*jobdomain.Response, error) {
	orgID, err := tenant(ctx)
	if err != nil {
		return nil, err
	}
	job, err := loadJob(ctx, s.db, s.repo, orgID, id)
	if err != nil {
		return nil, err
	}
	return toJobResponse(job), nil
}

func (s *Service) List(ctx context.Context, req jobdomain.ListRequest) ([]jobdomain.Response, error) {
	orgID, err := tenant(ctx)
	if err != nil {
		return nil, err
	}
	projectID, err := parseID(req.ProjectID, "project_id")
	if err != nil {
		return nil, err
	}
	if _, err := loadProject(ctx, s.db, s.projectRepo, orgID, projectID); err != nil {
		return nil, err
	}

	items, err := s.repo.ListJobs(ctx, s.db, projectID)
	if err != nil {
		return nil, err
	}
	resp := make([]jobdomain.Response, 0, len(items))
	for i := range items {
		resp = append(resp, *toJobResponse(&items[i]))
	}
	return resp, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	orgID, err := tenant(ctx)
	if err != nil {
		return err
	}
	return dbpkg.WithTenantTx(ctx, s.db, orgID, func(tx *gorm.DB) error {
		job, err := loadJob(ctx, tx, s.repo, orgID, id)
		if err != nil {
			return err
		}
		return s.repo.DeleteJob(ctx, tx, job.ID)
	})
}

func tenant(ctx context.Context) (snowflake.ID, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return 0, jobdomain.ErrInvalidOrganization
	}
	return orgID, nil
}

func loadJob(ctx context.Context, db *gorm.DB, repo jobdomain.Repository, orgID snowflake.ID, id string) (*jobdomain.Job, error) {
	jobID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || jobID == 0 {
		return nil, jobdomain.ErrInvalidID
	}
	job, err := repo.FindJob(ctx, db, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, jobdomain.ErrNotFound
	}
	if job.OrgID != orgID {
		return nil, jobdomain.ErrForbidden
	}
	return job, nil
}

// loadProject treats a foreign project like a missing one; it is a reference
// here, not the resource being acted on.
func loadProject(ctx context.Context, db *gorm.DB, repo projectdomain.Repository, orgID, id snowflake.ID) (*projectdomain.Project, error) {
	project, err := repo.FindByID(ctx, db, id)
	if err != nil {
		return nil, err
	}
	if project == nil || project.OrgID != orgID {
		return nil, apperr.NotFound("project")
	}
	return project, nil
}

func missing(ok bool, err error, resource string) error {
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound(resource)
	}
	return nil
}

func parseID(value, field string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, jobdomain.InvalidField(field)
	}
	return id, nil
}

func toJobResponse(j *jobdomain.Job) *jobdomain.Response {
	return &jobdomain.Response{
		ID:               j.ID,
		ProjectID:        j.ProjectID,
		VendorID:         j.VendorID,
		ServiceID:        j.ServiceID,
		LanguagePairID:   j.LanguagePairID,
		SpecializationID: j.SpecializationID,
		Name:             j.Name,
		CreatedAt:        j.CreatedAt.UTC(),
		UpdatedAt:        j.UpdatedAt.UTC(),
	}
}
