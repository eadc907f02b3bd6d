package service

import (
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/lingoflow/internal/apperr"
	catalogrepo "github.com/smallbiznis/lingoflow/internal/catalog/repository"
	"github.com/smallbiznis/lingoflow/internal/clock"
	"github.com/smallbiznis/lingoflow/internal/dbtest"
	partyrepo "github.com/smallbiznis/lingoflow/internal/party/repository"
	projectdomain "github.com/smallbiznis/lingoflow/internal/project/domain"
	"github.com/smallbiznis/lingoflow/internal/project/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	*dbtest.Env
	clock *clock.FakeClock
	svc   projectdomain.Service

	client         snowflake.ID
	manager        snowflake.ID
	service        snowflake.ID
	specialization snowflake.ID
	pairs          []snowflake.ID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	env := dbtest.Open(t)
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))

	return &fixture{
		Env:   env,
		clock: clk,
		svc: New(Params{
			DB:          env.DB,
			Log:         zap.NewNop(),
			GenID:       env.Node,
			Clock:       clk,
			Repo:        repository.Provide(),
			PartyRepo:   partyrepo.Provide(),
			CatalogRepo: catalogrepo.Provide(),
		}),
		client:         env.Party(t, "clients", "Acme Legal"),
		manager:        env.Manager(t, "Maria"),
		service:        env.Service(t, "Translation"),
		specialization: env.Specialization(t, "Legal"),
		pairs: []snowflake.ID{
			env.LanguagePair(t, "English", "German"),
			env.LanguagePair(t, "English", "French"),
		},
	}
}

func (f *fixture) request(status projectdomain.Status) projectdomain.CreateRequest {
	return projectdomain.CreateRequest{
		ClientID:         f.client.String(),
		ProjectManagerID: f.manager.String(),
		ServiceID:        f.service.String(),
		SpecializationID: f.specialization.String(),
		LanguagePairIDs:  []string{f.pairs[0].String(), f.pairs[1].String(), f.pairs[0].String()},
		Name:             "Contract Batch 7",
		Status:           status,
		Metadata:         map[string]any{"po": "PO-118"},
	}
}

func TestCreateWritesOpeningHistory(t *testing.T) {
	f := newFixture(t)

	resp, err := f.svc.Create(f.Ctx, f.request(projectdomain.StatusDraft))
	require.NoError(t, err)
	assert.Equal(t, "contract-batch-7", resp.Code)
	assert.ElementsMatch(t, f.pairs, resp.LanguagePairIDs)

	history, err := f.svc.History(f.Ctx, resp.ID.String())
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Nil(t, history[0].OldStatus)
	assert.Equal(t, projectdomain.StatusDraft, history[0].NewStatus)

	got, err := f.svc.Get(f.Ctx, resp.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "PO-118", got.Metadata["po"])
	assert.Len(t, got.LanguagePairIDs, 2)
}

func TestStatusChangesBuildHistoryChain(t *testing.T) {
	f := newFixture(t)

	created, err := f.svc.Create(f.Ctx, f.request(projectdomain.StatusOfferedByClient))
	require.NoError(t, err)

	sequence := []projectdomain.Status{
		projectdomain.StatusOfferAccepted,
		projectdomain.StatusInProgress,
		projectdomain.StatusSubmitted,
	}
	for _, next := range sequence {
		f.clock.Advance(time.Hour)
		status := next
		_, err := f.svc.Update(f.Ctx, created.ID.String(), projectdomain.UpdateRequest{Status: &status, StatusComment: "moved"})
		require.NoError(t, err)
	}

	name := "Contract Batch 7b"
	_, err = f.svc.Update(f.Ctx, created.ID.String(), projectdomain.UpdateRequest{Name: &name})
	require.NoError(t, err)

	history, err := f.svc.History(f.Ctx, created.ID.String())
	require.NoError(t, err)
	require.Len(t, history, len(sequence)+1)

	assert.Nil(t, history[0].OldStatus)
	for i := 1; i < len(history); i++ {
		require.NotNil(t, history[i].OldStatus)
		assert.Equal(t, history[i-1].NewStatus, *history[i].OldStatus)
		assert.True(t, history[i].ChangedAt.After(history[i-1].ChangedAt))
		require.NotNil(t, history[i].Comment)
		assert.Equal(t, "moved", *history[i].Comment)
	}
	assert.Equal(t, projectdomain.StatusSubmitted, history[len(history)-1].NewStatus)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)

	req := f.request("Archived")
	_, err := f.svc.Create(f.Ctx, req)
	assert.ErrorIs(t, err, projectdomain.ErrInvalidStatus)

	req = f.request(projectdomain.StatusDraft)
	start := time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC)
	deadline := start.Add(-24 * time.Hour)
	req.StartDate, req.Deadline = &start, &deadline
	_, err = f.svc.Create(f.Ctx, req)
	assert.ErrorIs(t, err, projectdomain.ErrInvalidDeadline)

	req = f.request(projectdomain.StatusDraft)
	req.LanguagePairIDs = []string{f.Node.Generate().String()}
	_, err = f.svc.Create(f.Ctx, req)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	req = f.request(projectdomain.StatusDraft)
	req.ClientID = f.PartyInOrg(t, "clients", "Elsewhere", f.Node.Generate()).String()
	_, err = f.svc.Create(f.Ctx, req)
	assert.EqualError(t, err, "client_not_found")
	assert.Zero(t, f.Count(t, "projects", "org_id = ?", f.OrgID))
}

func TestUpdateReplacesLanguagePairs(t *testing.T) {
	f := newFixture(t)
	created, err := f.svc.Create(f.Ctx, f.request(projectdomain.StatusDraft))
	require.NoError(t, err)

	resp, err := f.svc.Update(f.Ctx, created.ID.String(), projectdomain.UpdateRequest{
		LanguagePairIDs: []string{f.pairs[1].String()},
	})
	require.NoError(t, err)
	assert.Equal(t, []snowflake.ID{f.pairs[1]}, resp.LanguagePairIDs)
	assert.Equal(t, int64(1), f.Count(t, "project_language_pairs", "project_id = ?", created.ID))

	history, err := f.svc.History(f.Ctx, created.ID.String())
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestDeleteCascades(t *testing.T) {
	f := newFixture(t)
	created, err := f.svc.Create(f.Ctx, f.request(projectdomain.StatusDraft))
	require.NoError(t, err)

	other := f.ForOrg(f.Node.Generate())
	assert.ErrorIs(t, f.svc.Delete(other, created.ID.String()), apperr.ErrForbidden)

	require.NoError(t, f.svc.Delete(f.Ctx, created.ID.String()))
	assert.Zero(t, f.Count(t, "projects", "id = ?", created.ID))
	assert.Zero(t, f.Count(t, "project_language_pairs", "project_id = ?", created.ID))
	assert.Zero(t, f.Count(t, "project_status_history", "project_id = ?", created.ID))

	_, err = f.svc.Get(f.Ctx, created.ID.String())
	assert.ErrorIs(t, err, projectdomain.ErrNotFound)
}

func TestListFiltersByStatus(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(f.Ctx, f.request(projectdomain.StatusDraft))
	require.NoError(t, err)
	_, err = f.svc.Create(f.Ctx, f.request(projectdomain.StatusHold))
	require.NoError(t, err)

	list, err := f.svc.List(f.Ctx, projectdomain.ListRequest{Status: string(projectdomain.StatusHold)})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, projectdomain.StatusHold, list.Items[0].Status)
}
