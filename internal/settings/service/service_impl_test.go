package service

import (
	"testing"

	"github.com/smallbiznis/lingoflow/internal/apperr"
	"github.com/smallbiznis/lingoflow/internal/dbtest"
	partydomain "github.com/smallbiznis/lingoflow/internal/party/domain"
	partyrepo "github.com/smallbiznis/lingoflow/internal/party/repository"
	settingsdomain "github.com/smallbiznis/lingoflow/internal/settings/domain"
	"github.com/smallbiznis/lingoflow/internal/settings/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newSettings(t *testing.T) (*dbtest.Env, settingsdomain.Service) {
	t.Helper()
	env := dbtest.Open(t)
	return env, New(Params{
		DB:        env.DB,
		Log:       zap.NewNop(),
		Repo:      repository.Provide(),
		PartyRepo: partyrepo.Provide(),
	})
}

func TestMissingSettingsRestrictEverything(t *testing.T) {
	env, svc := newSettings(t)
	vendor := env.Party(t, "vendors", "Ana")

	resp, err := svc.Get(env.Ctx, vendor.String())
	require.NoError(t, err)
	assert.Equal(t, settingsdomain.Flags{}, resp.Flags)
	assert.Nil(t, resp.UpdatedAt)

	flags, err := svc.Resolve(env.Ctx, env.DB, env.OrgID, partydomain.KindVendor, vendor)
	require.NoError(t, err)
	for _, dim := range partydomain.Dimensions {
		assert.True(t, flags.Restricted(dim), dim.String())
	}
}

func TestUpsertChangesOnlySuppliedFlags(t *testing.T) {
	env, svc := newSettings(t)
	vendor := env.Party(t, "vendors", "Ana")
	on, off := true, false

	resp, err := svc.Upsert(env.Ctx, vendor.String(), settingsdomain.UpsertRequest{WorksWithAllServices: &on, WorksWithAllSpecializations: &on})
	require.NoError(t, err)
	assert.True(t, resp.WorksWithAllServices)
	assert.False(t, resp.WorksWithAllLanguagePairs)

	resp, err = svc.Upsert(env.Ctx, vendor.String(), settingsdomain.UpsertRequest{WorksWithAllSpecializations: &off})
	require.NoError(t, err)
	assert.True(t, resp.WorksWithAllServices)
	assert.False(t, resp.WorksWithAllSpecializations)

	flags, err := svc.Resolve(env.Ctx, env.DB, env.OrgID, partydomain.KindVendor, vendor)
	require.NoError(t, err)
	assert.False(t, flags.Restricted(partydomain.DimensionService))
	assert.True(t, flags.Restricted(partydomain.DimensionSpecialization))

	_, err = svc.Upsert(env.Ctx, vendor.String(), settingsdomain.UpsertRequest{})
	assert.ErrorIs(t, err, settingsdomain.ErrEmptyUpdate)
}

func TestClientsAreAlwaysRestricted(t *testing.T) {
	env, svc := newSettings(t)
	client := env.Party(t, "clients", "Acme")

	flags, err := svc.Resolve(env.Ctx, env.DB, env.OrgID, partydomain.KindClient, client)
	require.NoError(t, err)
	assert.Equal(t, settingsdomain.Flags{}, flags)

	_, err = svc.Get(env.Ctx, client.String())
	assert.EqualError(t, err, "vendor_not_found")
}

func TestSettingsOfForeignVendorAreForbidden(t *testing.T) {
	env, svc := newSettings(t)
	vendor := env.PartyInOrg(t, "vendors", "Other", env.Node.Generate())
	on := true

	_, err := svc.Upsert(env.Ctx, vendor.String(), settingsdomain.UpsertRequest{WorksWithAllServices: &on})
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}
