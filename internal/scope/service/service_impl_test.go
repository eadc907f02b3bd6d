package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/lingoflow/internal/apperr"
	catalogrepo "github.com/smallbiznis/lingoflow/internal/catalog/repository"
	"github.com/smallbiznis/lingoflow/internal/config"
	"github.com/smallbiznis/lingoflow/internal/dbtest"
	partydomain "github.com/smallbiznis/lingoflow/internal/party/domain"
	partyrepo "github.com/smallbiznis/lingoflow/internal/party/repository"
	scopedomain "github.com/smallbiznis/lingoflow/internal/scope/domain"
	"github.com/smallbiznis/lingoflow/internal/scope/repository"
	"github.com/smallbiznis/lingoflow/internal/seed"
	settingsrepo "github.com/smallbiznis/lingoflow/internal/settings/repository"
	settingsservice "github.com/smallbiznis/lingoflow/internal/settings/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newScopeService(t *testing.T) (*dbtest.Env, scopedomain.Service) {
	t.Helper()
	env := dbtest.Open(t)
	log := zap.NewNop()

	settings := settingsservice.New(settingsservice.Params{
		DB:        env.DB,
		Log:       log,
		Repo:      settingsrepo.Provide(),
		PartyRepo: partyrepo.Provide(),
	})
	registry := NewRegistry(RegistryParams{
		Log:         log,
		PricingCfg:  config.NewStaticPricingConfigHolder(config.DefaultPricingConfig()),
		Repo:        repository.Provide(),
		CatalogRepo: catalogrepo.Provide(),
		Settings:    settings,
	})
	return env, New(Params{
		DB:        env.DB,
		Log:       log,
		Repo:      repository.Provide(),
		Registry:  registry,
		PartyRepo: partyrepo.Provide(),
	})
}

func TestAddListRemove(t *testing.T) {
	env, svc := newScopeService(t)
	vendor := env.Party(t, "vendors", "Ana")
	pair := env.LanguagePair(t, "English", "Japanese")

	added, err := svc.Add(env.Ctx, partydomain.KindVendor, vendor.String(), partydomain.DimensionLanguagePair, scopedomain.AddRequest{ValueID: pair.String()})
	require.NoError(t, err)
	assert.Zero(t, added.UsageCount)

	_, err = svc.Add(env.Ctx, partydomain.KindVendor, vendor.String(), partydomain.DimensionLanguagePair, scopedomain.AddRequest{ValueID: pair.String()})
	assert.ErrorIs(t, err, apperr.ErrDuplicateEntry)

	items, err := svc.List(env.Ctx, partydomain.KindVendor, vendor.String(), partydomain.DimensionLanguagePair)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "English > Japanese", items[0].Label)

	require.NoError(t, svc.Remove(env.Ctx, partydomain.KindVendor, vendor.String(), partydomain.DimensionLanguagePair, pair.String()))
	err = svc.Remove(env.Ctx, partydomain.KindVendor, vendor.String(), partydomain.DimensionLanguagePair, pair.String())
	assert.ErrorIs(t, err, scopedomain.ErrEntryNotFound)
}

func TestAddChecksValueAndOwnership(t *testing.T) {
	env, svc := newScopeService(t)
	vendor := env.Party(t, "vendors", "Ana")

	_, err := svc.Add(env.Ctx, partydomain.KindVendor, vendor.String(), partydomain.DimensionService, scopedomain.AddRequest{ValueID: env.Node.Generate().String()})
	assert.EqualError(t, err, "service_not_found")

	foreign := env.PartyInOrg(t, "clients", "Other", env.Node.Generate())
	service := env.Service(t, "Editing")
	_, err = svc.Add(env.Ctx, partydomain.KindClient, foreign.String(), partydomain.DimensionService, scopedomain.AddRequest{ValueID: service.String()})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = svc.Add(env.Ctx, partydomain.KindClient, env.Node.Generate().String(), partydomain.DimensionService, scopedomain.AddRequest{ValueID: service.String()})
	assert.EqualError(t, err, "client_not_found")
}

func TestRemoveRefusesEntryInUse(t *testing.T) {
	env, svc := newScopeService(t)
	vendor := env.Party(t, "vendors", "Ana")
	service := env.Service(t, "Translation")
	pair := env.LanguagePair(t, "English", "Italian")
	spec := env.Specialization(t, "Medical")

	_, err := svc.Add(env.Ctx, partydomain.KindVendor, vendor.String(), partydomain.DimensionService, scopedomain.AddRequest{ValueID: service.String()})
	require.NoError(t, err)

	now := time.Now().UTC()
	require.NoError(t, env.DB.Table("vendor_price_lists").Create(map[string]any{
		"id": env.Node.Generate(), "org_id": env.OrgID, "party_id": vendor,
		"service_id": service, "language_pair_id": pair, "specialization_id": spec,
		"unit_id": seed.UnitID("Word"), "currency_id": seed.CurrencyID("USD"),
		"price_per_unit": decimal.RequireFromString("0.1"), "note": "",
		"created_at": now, "updated_at": now,
	}).Error)

	err = svc.Remove(env.Ctx, partydomain.KindVendor, vendor.String(), partydomain.DimensionService, service.String())
	assert.ErrorIs(t, err, scopedomain.ErrScopeInUse)
	assert.Equal(t, int64(0), env.UsageCount(t, "vendor_services", "service_id", vendor, service))
}

func TestReconcileReportsAndRepairsDrift(t *testing.T) {
	env, svc := newScopeService(t)
	vendor := env.Party(t, "vendors", "Ana")
	service := env.Service(t, "Translation")
	pair := env.LanguagePair(t, "English", "Italian")
	spec := env.Specialization(t, "Medical")

	for _, add := range []struct {
		dim   partydomain.Dimension
		value string
	}{
		{partydomain.DimensionService, service.String()},
		{partydomain.DimensionLanguagePair, pair.String()},
		{partydomain.DimensionSpecialization, spec.String()},
	} {
		_, err := svc.Add(env.Ctx, partydomain.KindVendor, vendor.String(), add.dim, scopedomain.AddRequest{ValueID: add.value})
		require.NoError(t, err)
	}

	now := time.Now().UTC()
	require.NoError(t, env.DB.Table("vendor_price_lists").Create(map[string]any{
		"id": env.Node.Generate(), "org_id": env.OrgID, "party_id": vendor,
		"service_id": service, "language_pair_id": pair, "specialization_id": spec,
		"unit_id": seed.UnitID("Word"), "currency_id": seed.CurrencyID("USD"),
		"price_per_unit": decimal.RequireFromString("0.1"), "note": "",
		"created_at": now, "updated_at": now,
	}).Error)

	drifts, err := svc.Reconcile(env.Ctx, partydomain.KindVendor, env.OrgID, scopedomain.ReconcileOptions{})
	require.NoError(t, err)
	require.Len(t, drifts, 3)
	for _, d := range drifts {
		assert.Equal(t, int64(0), d.Stored)
		assert.Equal(t, int64(1), d.Actual)
	}

	_, err = svc.Reconcile(env.Ctx, partydomain.KindVendor, env.OrgID, scopedomain.ReconcileOptions{Apply: true})
	require.NoError(t, err)
	assert.Equal(t, int64(1), env.UsageCount(t, "vendor_services", "service_id", vendor, service))

	drifts, err = svc.Reconcile(env.Ctx, partydomain.KindVendor, env.OrgID, scopedomain.ReconcileOptions{})
	require.NoError(t, err)
	assert.Empty(t, drifts)

	_, err = svc.Reconcile(env.Ctx, partydomain.KindVendor, 0, scopedomain.ReconcileOptions{})
	assert.ErrorIs(t, err, scopedomain.ErrInvalidOrganization)
}

func TestReconcileAddsAllowListRowsOnlyWhenAsked(t *testing.T) {
	env, svc := newScopeService(t)
	vendor := env.Party(t, "vendors", "Ana")
	service := env.Service(t, "Translation")
	pair := env.LanguagePair(t, "English", "Italian")
	spec := env.Specialization(t, "Medical")

	// Priced while the allow-lists are empty, as after a flag is turned off.
	now := time.Now().UTC()
	require.NoError(t, env.DB.Table("vendor_price_lists").Create(map[string]any{
		"id": env.Node.Generate(), "org_id": env.OrgID, "party_id": vendor,
		"service_id": service, "language_pair_id": pair, "specialization_id": spec,
		"unit_id": seed.UnitID("Word"), "currency_id": seed.CurrencyID("USD"),
		"price_per_unit": decimal.RequireFromString("0.1"), "note": "",
		"created_at": now, "updated_at": now,
	}).Error)

	drifts, err := svc.Reconcile(env.Ctx, partydomain.KindVendor, env.OrgID, scopedomain.ReconcileOptions{Apply: true})
	require.NoError(t, err)
	require.Len(t, drifts, 3)
	for _, d := range drifts {
		assert.True(t, d.Missing)
	}
	assert.Equal(t, int64(-1), env.UsageCount(t, "vendor_services", "service_id", vendor, service))
	assert.Equal(t, int64(-1), env.UsageCount(t, "vendor_language_pairs", "language_pair_id", vendor, pair))

	_, err = svc.Reconcile(env.Ctx, partydomain.KindVendor, env.OrgID, scopedomain.ReconcileOptions{Apply: true, AddMissing: true})
	require.NoError(t, err)
	assert.Equal(t, int64(1), env.UsageCount(t, "vendor_services", "service_id", vendor, service))
	assert.Equal(t, int64(1), env.UsageCount(t, "vendor_language_pairs", "language_pair_id", vendor, pair))
	assert.Equal(t, int64(1), env.UsageCount(t, "vendor_specializations", "specialization_id", vendor, spec))

	drifts, err = svc.Reconcile(env.Ctx, partydomain.KindVendor, env.OrgID, scopedomain.ReconcileOptions{})
	require.NoError(t, err)
	assert.Empty(t, drifts)
}
