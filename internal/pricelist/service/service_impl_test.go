package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/lingoflow/internal/apperr"
	catalogrepo "github.com/smallbiznis/lingoflow/internal/catalog/repository"
	"github.com/smallbiznis/lingoflow/internal/config"
	"github.com/smallbiznis/lingoflow/internal/dbtest"
	partydomain "github.com/smallbiznis/lingoflow/internal/party/domain"
	partyrepo "github.com/smallbiznis/lingoflow/internal/party/repository"
	pricelistdomain "github.com/smallbiznis/lingoflow/internal/pricelist/domain"
	"github.com/smallbiznis/lingoflow/internal/pricelist/repository"
	scopedomain "github.com/smallbiznis/lingoflow/internal/scope/domain"
	scoperepo "github.com/smallbiznis/lingoflow/internal/scope/repository"
	scopeservice "github.com/smallbiznis/lingoflow/internal/scope/service"
	"github.com/smallbiznis/lingoflow/internal/seed"
	settingsdomain "github.com/smallbiznis/lingoflow/internal/settings/domain"
	settingsrepo "github.com/smallbiznis/lingoflow/internal/settings/repository"
	settingsservice "github.com/smallbiznis/lingoflow/internal/settings/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type harness struct {
	*dbtest.Env
	prices   pricelistdomain.Service
	scopes   scopedomain.Service
	settings settingsdomain.Service
	resolver settingsdomain.Resolver
	registry scopedomain.Registry

	vendor         snowflake.ID
	service        snowflake.ID
	pair           snowflake.ID
	specialization snowflake.ID
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	env := dbtest.Open(t)
	log := zap.NewNop()

	settingsSvc := settingsservice.New(settingsservice.Params{
		DB:        env.DB,
		Log:       log,
		Repo:      settingsrepo.Provide(),
		PartyRepo: partyrepo.Provide(),
	})
	registry := scopeservice.NewRegistry(scopeservice.RegistryParams{
		Log:         log,
		PricingCfg:  config.NewStaticPricingConfigHolder(config.DefaultPricingConfig()),
		Repo:        scoperepo.Provide(),
		CatalogRepo: catalogrepo.Provide(),
		Settings:    settingsSvc,
	})
	scopeSvc := scopeservice.New(scopeservice.Params{
		DB:        env.DB,
		Log:       log,
		Repo:      scoperepo.Provide(),
		Registry:  registry,
		PartyRepo: partyrepo.Provide(),
	})
	prices := New(Params{
		DB:          env.DB,
		Log:         log,
		GenID:       env.Node,
		Repo:        repository.Provide(),
		PartyRepo:   partyrepo.Provide(),
		CatalogRepo: catalogrepo.Provide(),
		Settings:    settingsSvc,
		Registry:    registry,
	})

	return &harness{
		Env:            env,
		prices:         prices,
		scopes:         scopeSvc,
		settings:       settingsSvc,
		resolver:       settingsSvc,
		registry:       registry,
		vendor:         env.Party(t, "vendors", "Ana Translations"),
		service:        env.Service(t, "Translation"),
		pair:           env.LanguagePair(t, "English", "Spanish"),
		specialization: env.Specialization(t, "Legal"),
	}
}

// pricesWith builds a second engine over the same database with repo swapped.
func (h *harness) pricesWith(repo pricelistdomain.Repository) pricelistdomain.Service {
	return New(Params{
		DB:          h.DB,
		Log:         zap.NewNop(),
		GenID:       h.Node,
		Repo:        repo,
		PartyRepo:   partyrepo.Provide(),
		CatalogRepo: catalogrepo.Provide(),
		Settings:    h.resolver,
		Registry:    h.registry,
	})
}

func (h *harness) allow(t *testing.T, dim partydomain.Dimension, value snowflake.ID) {
	t.Helper()
	_, err := h.scopes.Add(h.Ctx, partydomain.KindVendor, h.vendor.String(), dim, scopedomain.AddRequest{ValueID: value.String()})
	require.NoError(t, err)
}

func (h *harness) allowAll(t *testing.T) {
	t.Helper()
	h.allow(t, partydomain.DimensionService, h.service)
	h.allow(t, partydomain.DimensionLanguagePair, h.pair)
	h.allow(t, partydomain.DimensionSpecialization, h.specialization)
}

func (h *harness) request(price string) pricelistdomain.CreateRequest {
	p := decimal.RequireFromString(price)
	return pricelistdomain.CreateRequest{
		PartyID:          h.vendor.String(),
		ServiceID:        h.service.String(),
		LanguagePairID:   h.pair.String(),
		SpecializationID: h.specialization.String(),
		UnitID:           seed.UnitID("Word").String(),
		CurrencyID:       seed.CurrencyID("USD").String(),
		PricePerUnit:     &p,
	}
}

func (h *harness) usage(t *testing.T, dim partydomain.Dimension, value snowflake.ID) int64 {
	t.Helper()
	return h.UsageCount(t, dim.Table(partydomain.KindVendor), dim.Column(), h.vendor, value)
}

func (h *harness) assertNoDrift(t *testing.T) {
	t.Helper()
	drifts, err := h.scopes.Reconcile(h.Ctx, partydomain.KindVendor, h.OrgID, scopedomain.ReconcileOptions{})
	require.NoError(t, err)
	assert.Empty(t, drifts)
}

func TestCreateRejectsValueOutsideScope(t *testing.T) {
	h := newHarness(t)
	h.allow(t, partydomain.DimensionService, h.service)
	h.allow(t, partydomain.DimensionSpecialization, h.specialization)

	_, err := h.prices.Create(h.Ctx, partydomain.KindVendor, h.request("0.12"))
	require.ErrorIs(t, err, apperr.ErrScopeViolation)

	var sv *apperr.ScopeViolationError
	require.ErrorAs(t, err, &sv)
	assert.Equal(t, "language_pair", sv.Dimension)
	assert.Equal(t, h.pair.String(), sv.ValueID)
	assert.Zero(t, h.Count(t, "vendor_price_lists", "party_id = ?", h.vendor))
}

func TestCreateWithWorksWithAllFlagSkipsRegistry(t *testing.T) {
	h := newHarness(t)
	h.allow(t, partydomain.DimensionService, h.service)
	h.allow(t, partydomain.DimensionSpecialization, h.specialization)

	on := true
	_, err := h.settings.Upsert(h.Ctx, h.vendor.String(), settingsdomain.UpsertRequest{WorksWithAllLanguagePairs: &on})
	require.NoError(t, err)

	resp, err := h.prices.Create(h.Ctx, partydomain.KindVendor, h.request("0.12"))
	require.NoError(t, err)
	assert.Equal(t, "English > Spanish", resp.LanguagePair)
	assert.Equal(t, "Word", resp.UnitName)
	assert.Equal(t, "USD", resp.CurrencyCode)

	assert.Equal(t, int64(1), h.usage(t, partydomain.DimensionService, h.service))
	assert.Equal(t, int64(-1), h.usage(t, partydomain.DimensionLanguagePair, h.pair))
	h.assertNoDrift(t)
}

func TestCreateStillRequiresExistingValueWhenUnrestricted(t *testing.T) {
	h := newHarness(t)
	on := true
	_, err := h.settings.Upsert(h.Ctx, h.vendor.String(), settingsdomain.UpsertRequest{
		WorksWithAllServices:        &on,
		WorksWithAllLanguagePairs:   &on,
		WorksWithAllSpecializations: &on,
	})
	require.NoError(t, err)

	req := h.request("1")
	req.ServiceID = h.Node.Generate().String()
	_, err = h.prices.Create(h.Ctx, partydomain.KindVendor, req)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCountersFollowEveryMutation(t *testing.T) {
	h := newHarness(t)
	h.allowAll(t)
	otherService := h.Service(t, "Proofreading")
	h.allow(t, partydomain.DimensionService, otherService)

	first, err := h.prices.Create(h.Ctx, partydomain.KindVendor, h.request("0.10"))
	require.NoError(t, err)
	req := h.request("2.00")
	req.UnitID = seed.UnitID("Page").String()
	second, err := h.prices.Create(h.Ctx, partydomain.KindVendor, req)
	require.NoError(t, err)

	assert.Equal(t, int64(2), h.usage(t, partydomain.DimensionService, h.service))
	assert.Equal(t, int64(2), h.usage(t, partydomain.DimensionLanguagePair, h.pair))
	h.assertNoDrift(t)

	moved := otherService.String()
	_, err = h.prices.Update(h.Ctx, partydomain.KindVendor, first.ID.String(), pricelistdomain.UpdateRequest{ServiceID: &moved})
	require.NoError(t, err)
	assert.Equal(t, int64(1), h.usage(t, partydomain.DimensionService, h.service))
	assert.Equal(t, int64(1), h.usage(t, partydomain.DimensionService, otherService))
	assert.Equal(t, int64(2), h.usage(t, partydomain.DimensionLanguagePair, h.pair))
	h.assertNoDrift(t)

	price := decimal.RequireFromString("3.50")
	_, err = h.prices.Update(h.Ctx, partydomain.KindVendor, second.ID.String(), pricelistdomain.UpdateRequest{PricePerUnit: &price})
	require.NoError(t, err)
	assert.Equal(t, int64(1), h.usage(t, partydomain.DimensionService, h.service))

	require.NoError(t, h.prices.Delete(h.Ctx, partydomain.KindVendor, first.ID.String()))
	require.NoError(t, h.prices.Delete(h.Ctx, partydomain.KindVendor, second.ID.String()))
	assert.Zero(t, h.usage(t, partydomain.DimensionService, h.service))
	assert.Zero(t, h.usage(t, partydomain.DimensionService, otherService))
	assert.Zero(t, h.usage(t, partydomain.DimensionLanguagePair, h.pair))
	h.assertNoDrift(t)
}

func TestDecrementNeverGoesBelowZero(t *testing.T) {
	h := newHarness(t)
	h.allowAll(t)

	created, err := h.prices.Create(h.Ctx, partydomain.KindVendor, h.request("1"))
	require.NoError(t, err)

	require.NoError(t, h.DB.Exec(`UPDATE vendor_services SET usage_count = 0`).Error)
	require.NoError(t, h.prices.Delete(h.Ctx, partydomain.KindVendor, created.ID.String()))

	assert.Zero(t, h.usage(t, partydomain.DimensionService, h.service))
	assert.Zero(t, h.Count(t, "vendor_price_lists", "id = ?", created.ID))
}

func TestUniqueKeyPerParty(t *testing.T) {
	h := newHarness(t)
	h.allowAll(t)

	_, err := h.prices.Create(h.Ctx, partydomain.KindVendor, h.request("1"))
	require.NoError(t, err)

	_, err = h.prices.Create(h.Ctx, partydomain.KindVendor, h.request("2"))
	require.ErrorIs(t, err, apperr.ErrDuplicateEntry)
	assert.Equal(t, int64(1), h.usage(t, partydomain.DimensionService, h.service))

	req := h.request("2")
	req.CurrencyID = seed.CurrencyID("EUR").String()
	_, err = h.prices.Create(h.Ctx, partydomain.KindVendor, req)
	require.NoError(t, err)
	assert.Equal(t, int64(2), h.usage(t, partydomain.DimensionService, h.service))
}

func TestUpdateIntoExistingKeyIsRejected(t *testing.T) {
	h := newHarness(t)
	h.allowAll(t)

	_, err := h.prices.Create(h.Ctx, partydomain.KindVendor, h.request("1"))
	require.NoError(t, err)
	req := h.request("1")
	req.UnitID = seed.UnitID("Page").String()
	page, err := h.prices.Create(h.Ctx, partydomain.KindVendor, req)
	require.NoError(t, err)

	word := seed.UnitID("Word").String()
	_, err = h.prices.Update(h.Ctx, partydomain.KindVendor, page.ID.String(), pricelistdomain.UpdateRequest{UnitID: &word})
	assert.ErrorIs(t, err, apperr.ErrDuplicateEntry)
}

// staleKeyRepo never sees an existing key, like a transaction whose rival
// committed right after the lookup.
type staleKeyRepo struct {
	pricelistdomain.Repository
}

func (staleKeyRepo) FindByKey(context.Context, *gorm.DB, partydomain.Kind, pricelistdomain.Key) (*pricelistdomain.PriceList, error) {
	return nil, nil
}

func TestConcurrentCreateHitsUniqueIndex(t *testing.T) {
	h := newHarness(t)
	h.allowAll(t)

	_, err := h.prices.Create(h.Ctx, partydomain.KindVendor, h.request("1"))
	require.NoError(t, err)

	racing := h.pricesWith(staleKeyRepo{Repository: repository.Provide()})
	_, err = racing.Create(h.Ctx, partydomain.KindVendor, h.request("2"))
	require.ErrorIs(t, err, pricelistdomain.ErrDuplicate)
	assert.ErrorIs(t, err, apperr.ErrDuplicateEntry)

	assert.Equal(t, int64(1), h.Count(t, "vendor_price_lists", "party_id = ?", h.vendor))
	assert.Equal(t, int64(1), h.usage(t, partydomain.DimensionService, h.service))
	assert.Equal(t, int64(1), h.usage(t, partydomain.DimensionLanguagePair, h.pair))
	assert.Equal(t, int64(1), h.usage(t, partydomain.DimensionSpecialization, h.specialization))
	h.assertNoDrift(t)
}

func TestConcurrentUpdateHitsUniqueIndex(t *testing.T) {
	h := newHarness(t)
	h.allowAll(t)
	editing := h.Service(t, "Editing")
	h.allow(t, partydomain.DimensionService, editing)

	_, err := h.prices.Create(h.Ctx, partydomain.KindVendor, h.request("1"))
	require.NoError(t, err)
	req := h.request("1")
	req.ServiceID = editing.String()
	other, err := h.prices.Create(h.Ctx, partydomain.KindVendor, req)
	require.NoError(t, err)

	racing := h.pricesWith(staleKeyRepo{Repository: repository.Provide()})
	translation := h.service.String()
	_, err = racing.Update(h.Ctx, partydomain.KindVendor, other.ID.String(), pricelistdomain.UpdateRequest{ServiceID: &translation})
	require.ErrorIs(t, err, pricelistdomain.ErrDuplicate)

	assert.Equal(t, int64(1), h.usage(t, partydomain.DimensionService, h.service))
	assert.Equal(t, int64(1), h.usage(t, partydomain.DimensionService, editing))
	h.assertNoDrift(t)
}

func TestFailedIncrementRollsBackInsert(t *testing.T) {
	h := newHarness(t)
	h.allowAll(t)

	require.NoError(t, h.DB.Exec(`CREATE TRIGGER fail_service_usage_insert BEFORE INSERT ON vendor_services
		BEGIN SELECT RAISE(ABORT, 'forced failure'); END`).Error)
	require.NoError(t, h.DB.Exec(`CREATE TRIGGER fail_service_usage_update BEFORE UPDATE ON vendor_services
		BEGIN SELECT RAISE(ABORT, 'forced failure'); END`).Error)

	_, err := h.prices.Create(h.Ctx, partydomain.KindVendor, h.request("1"))
	require.Error(t, err)

	assert.Zero(t, h.Count(t, "vendor_price_lists", "party_id = ?", h.vendor))
	assert.Zero(t, h.usage(t, partydomain.DimensionService, h.service))
	assert.Zero(t, h.usage(t, partydomain.DimensionLanguagePair, h.pair))
}

func TestForeignTenantIsForbidden(t *testing.T) {
	h := newHarness(t)
	h.allowAll(t)

	created, err := h.prices.Create(h.Ctx, partydomain.KindVendor, h.request("1"))
	require.NoError(t, err)

	other := h.ForOrg(h.Node.Generate())
	_, err = h.prices.Get(other, partydomain.KindVendor, created.ID.String())
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	err = h.prices.Delete(other, partydomain.KindVendor, created.ID.String())
	assert.ErrorIs(t, err, apperr.ErrForbidden)
	assert.Equal(t, int64(1), h.usage(t, partydomain.DimensionService, h.service))

	_, err = h.prices.Create(other, partydomain.KindVendor, h.request("1"))
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCreateValidatesInput(t *testing.T) {
	h := newHarness(t)
	h.allowAll(t)

	req := h.request("-1")
	_, err := h.prices.Create(h.Ctx, partydomain.KindVendor, req)
	assert.ErrorIs(t, err, pricelistdomain.ErrInvalidPrice)

	req = h.request("1")
	req.ServiceID = "not-an-id"
	_, err = h.prices.Create(h.Ctx, partydomain.KindVendor, req)
	var fe *apperr.FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "service_id", fe.Field)

	req = h.request("1")
	req.CurrencyID = h.Node.Generate().String()
	_, err = h.prices.Create(h.Ctx, partydomain.KindVendor, req)
	assert.EqualError(t, err, "currency_not_found")

	_, err = h.prices.Update(h.Ctx, partydomain.KindVendor, h.Node.Generate().String(), pricelistdomain.UpdateRequest{})
	assert.ErrorIs(t, err, pricelistdomain.ErrEmptyUpdate)
}

func TestListFiltersAndPaginates(t *testing.T) {
	h := newHarness(t)
	h.allowAll(t)

	for _, unit := range []string{"Word", "Page", "Hour"} {
		req := h.request("1")
		req.UnitID = seed.UnitID(unit).String()
		_, err := h.prices.Create(h.Ctx, partydomain.KindVendor, req)
		require.NoError(t, err)
	}

	req := pricelistdomain.ListRequest{PartyID: h.vendor.String()}
	req.PageSize = 2
	page, err := h.prices.List(h.Ctx, partydomain.KindVendor, req)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.True(t, page.PageInfo.HasMore)

	req.PageToken = page.PageInfo.NextPageToken
	rest, err := h.prices.List(h.Ctx, partydomain.KindVendor, req)
	require.NoError(t, err)
	require.Len(t, rest.Items, 1)
	assert.False(t, rest.PageInfo.HasMore)

	none, err := h.prices.List(h.Ctx, partydomain.KindVendor, pricelistdomain.ListRequest{ServiceID: h.Node.Generate().String()})
	require.NoError(t, err)
	assert.Empty(t, none.Items)
}

func TestMatchIsReadOnly(t *testing.T) {
	h := newHarness(t)
	h.allowAll(t)

	_, err := h.prices.Create(h.Ctx, partydomain.KindVendor, h.request("0.08"))
	require.NoError(t, err)

	matches, err := h.prices.Match(h.Ctx, partydomain.KindVendor, pricelistdomain.MatchRequest{
		PartyID:          h.vendor,
		ServiceID:        h.service,
		LanguagePairID:   h.pair,
		SpecializationID: h.specialization,
	})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.True(t, matches[0].PricePerUnit.Equal(decimal.RequireFromString("0.08")))
	assert.Equal(t, int64(1), h.usage(t, partydomain.DimensionService, h.service))

	empty, err := h.prices.Match(h.Ctx, partydomain.KindVendor, pricelistdomain.MatchRequest{})
	require.NoError(t, err)
	assert.Empty(t, empty)
}
