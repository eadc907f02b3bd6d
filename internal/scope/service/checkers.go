package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/lingoflow/internal/apperr"
	partydomain "github.com/smallbiznis/lingoflow/internal/party/domain"
	scopedomain "github.com/smallbiznis/lingoflow/internal/scope/domain"
	"gorm.io/gorm"
)

// valueChecker serves dimensions the party may use freely: the value only has
// to exist under the tenant and counters are left alone.
type valueChecker struct {
	dim      partydomain.Dimension
	registry *Registry
}

func (c valueChecker) Dimension() partydomain.Dimension { return c.dim }

func (c valueChecker) Restricted() bool { return false }

func (c valueChecker) Check(ctx context.Context, db *gorm.DB, _ partydomain.Kind, orgID, _, valueID snowflake.ID) error {
	return c.registry.valueExists(ctx, db, c.dim, orgID, valueID)
}

func (c valueChecker) Acquire(context.Context, *gorm.DB, partydomain.Kind, snowflake.ID, snowflake.ID, snowflake.ID) error {
	return nil
}

func (c valueChecker) Release(context.Context, *gorm.DB, partydomain.Kind, snowflake.ID, snowflake.ID, snowflake.ID) error {
	return nil
}

// registryChecker serves restricted dimensions: the value must also be in the
// party's scope registry, and every price list row holds one count on it.
type registryChecker struct {
	valueChecker
}

func (c registryChecker) Restricted() bool { return true }

func (c registryChecker) Check(ctx context.Context, db *gorm.DB, kind partydomain.Kind, orgID, partyID, valueID snowflake.ID) error {
	if err := c.valueChecker.Check(ctx, db, kind, orgID, partyID, valueID); err != nil {
		return err
	}
	ok, err := c.registry.IsInScope(ctx, db, kind, partyID, c.dim, valueID)
	if err != nil {
		return err
	}
	if !ok {
		c.registry.metrics.IncScopeViolation(kind.String(), c.dim.String())
		return scopedomain.Violation(c.dim, valueID)
	}
	return nil
}

func (c registryChecker) Acquire(ctx context.Context, db *gorm.DB, kind partydomain.Kind, orgID, partyID, valueID snowflake.ID) error {
	return c.registry.IncrementUsage(ctx, db, kind, orgID, partyID, c.dim, valueID)
}

func (c registryChecker) Release(ctx context.Context, db *gorm.DB, kind partydomain.Kind, orgID, partyID, valueID snowflake.ID) error {
	return c.registry.DecrementUsage(ctx, db, kind, orgID, partyID, c.dim, valueID)
}

func (r *Registry) valueExists(ctx context.Context, db *gorm.DB, dim partydomain.Dimension, orgID, valueID snowflake.ID) error {
	var (
		ok  bool
		err error
	)
	switch dim {
	case partydomain.DimensionService:
		ok, err = r.catalogRepo.ServiceExists(ctx, db, orgID, valueID)
	case partydomain.DimensionLanguagePair:
		ok, err = r.catalogRepo.LanguagePairExists(ctx, db, orgID, valueID)
	case partydomain.DimensionSpecialization:
		ok, err = r.catalogRepo.SpecializationExists(ctx, db, orgID, valueID)
	default:
		return partydomain.ErrInvalidDimension
	}
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFound(dim.String())
	}
	return nil
}

var (
	_ scopedomain.Checker = valueChecker{}
	_ scopedomain.Checker = registryChecker{}
)
