package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/lingoflow/internal/clock"
	"github.com/smallbiznis/lingoflow/internal/orgcontext"
	partydomain "github.com/smallbiznis/lingoflow/internal/party/domain"
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
	Repo      settingsdomain.Repository
	PartyRepo partydomain.Repository
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	clock     clock.Clock
	repo      settingsdomain.Repository
	partyRepo partydomain.Repository
}

func New(p Params) settingsdomain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.NewSystemClock()
	}
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("settings.service"),
		clock:     clk,
		repo:      p.Repo,
		partyRepo: p.PartyRepo,
	}
}

// Resolve never fails on a missing record: absent settings and every client
// resolve to the zero Flags, which restrict all dimensions.
func (s *Service) Resolve(ctx context.Context, db *gorm.DB, orgID snowflake.ID, kind partydomain.Kind, partyID snowflake.ID) (settingsdomain.Flags, error) {
	if kind != partydomain.KindVendor {
		return settingsdomain.Flags{}, nil
	}

	item, err := s.repo.FindByVendorID(ctx, db, partyID)
	if err != nil {
		return settingsdomain.Flags{}, err
	}
	if item == nil || item.OrgID != orgID {
		return settingsdomain.Flags{}, nil
	}
	return item.Flags(), nil
}

func (s *Service) Get(ctx context.Context, vendorID string) (*settingsdomain.Response, error) {
	orgID, vendor, err := s.loadVendor(ctx, s.db, vendorID)
	if err != nil {
		return nil, err
	}

	item, err := s.repo.FindByVendorID(ctx, s.db, vendor.ID)
	if err != nil {
		return nil, err
	}
	if item == nil || item.OrgID != orgID {
		return &settingsdomain.Response{VendorID: vendor.ID}, nil
	}
	return toResponse(item), nil
}

// Upsert leaves usage counters alone. Counters of a dimension are not kept
// while its flag is on, so run reconciliation after switching a flag off.
func (s *Service) Upsert(ctx context.Context, vendorID string, req settingsdomain.UpsertRequest) (*settingsdomain.Response, error) {
	if req.WorksWithAllServices == nil && req.WorksWithAllLanguagePairs == nil && req.WorksWithAllSpecializations == nil {
		return nil, settingsdomain.ErrEmptyUpdate
	}

	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return nil, settingsdomain.ErrInvalidOrganization
	}

	var resp *settingsdomain.Response
	err := dbpkg.WithTenantTx(ctx, s.db, orgID, func(tx *gorm.DB) error {
		_, vendor, err := s.loadVendor(ctx, tx, vendorID)
		if err != nil {
			return err
		}

		current, err := s.repo.FindByVendorID(ctx, tx, vendor.ID)
		if err != nil {
			return err
		}
		next := settingsdomain.VendorSettings{VendorID: vendor.ID, OrgID: orgID}
		if current != nil {
			next = *current
		}
		before := next.Flags()

		if req.WorksWithAllServices != nil {
			next.WorksWithAllServices = *req.WorksWithAllServices
		}
		if req.WorksWithAllLanguagePairs != nil {
			next.WorksWithAllLanguagePairs = *req.WorksWithAllLanguagePairs
		}
		if req.WorksWithAllSpecializations != nil {
			next.WorksWithAllSpecializations = *req.WorksWithAllSpecializations
		}
		next.UpdatedAt = s.clock.Now()

		if err := s.repo.Upsert(ctx, tx, &next); err != nil {
			return err
		}

		after := next.Flags()
		for _, dim := range partydomain.Dimensions {
			if before.Restricted(dim) != after.Restricted(dim) {
				s.log.Info("vendor scope policy changed",
					zap.String("vendor_id", vendor.ID.String()),
					zap.String("dimension", dim.String()),
					zap.Bool("restricted", after.Restricted(dim)),
				)
			}
		}

		resp = toResponse(&next)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (s *Service) loadVendor(ctx context.Context, db *gorm.DB, vendorID string) (snowflake.ID, *partydomain.Party, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return 0, nil, settingsdomain.ErrInvalidOrganization
	}
	id, err := snowflake.ParseString(strings.TrimSpace(vendorID))
	if err != nil || id == 0 {
		return 0, nil, settingsdomain.ErrInvalidVendor
	}

	vendor, err := s.partyRepo.FindByID(ctx, db, partydomain.KindVendor, id)
	if err != nil {
		return 0, nil, err
	}
	if vendor == nil {
		return 0, nil, partydomain.NotFound(partydomain.KindVendor)
	}
	if vendor.OrgID != orgID {
		return 0, nil, settingsdomain.ErrForbidden
	}
	return orgID, vendor, nil
}

func toResponse(item *settingsdomain.VendorSettings) *settingsdomain.Response {
	updatedAt := item.UpdatedAt.UTC()
	return &settingsdomain.Response{
		VendorID:  item.VendorID,
		Flags:     item.Flags(),
		UpdatedAt: &updatedAt,
	}
}
