package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/lingoflow/internal/apperr"
	"github.com/smallbiznis/lingoflow/internal/observability"
	"github.com/smallbiznis/lingoflow/internal/orgcontext"
	partydomain "github.com/smallbiznis/lingoflow/internal/party/domain"
	pricelistdomain "github.com/smallbiznis/lingoflow/internal/pricelist/domain"
	"github.com/smallbiznis/lingoflow/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakePartyService struct {
	partydomain.Service
	seenOrg snowflake.ID
	created partydomain.CreateRequest
	getErr  error
}

func (f *fakePartyService) Create(ctx context.Context, kind partydomain.Kind, req partydomain.CreateRequest) (*partydomain.Response, error) {
	f.created = req
	orgID, _ := orgcontext.OrgIDFromContext(ctx)
	f.seenOrg = orgID
	return &partydomain.Response{ID: 7, Kind: kind, Name: req.Name, CreatedAt: time.Unix(0, 0).UTC()}, nil
}

func (f *fakePartyService) Get(ctx context.Context, kind partydomain.Kind, id string) (*partydomain.Response, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &partydomain.Response{ID: 7, Kind: kind, Name: "Acme"}, nil
}

type fakePriceListService struct {
	pricelistdomain.Service
	createErr error
}

func (f *fakePriceListService) Create(ctx context.Context, kind partydomain.Kind, req pricelistdomain.CreateRequest) (*pricelistdomain.Response, error) {
	return nil, f.createErr
}

type response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Details []Detail        `json:"details"`
}

func newTestServer(t *testing.T, parties *fakePartyService, prices *fakePriceListService) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	engine := NewEngine(observability.Config{}, nil)
	srv := &Server{
		engine:       engine,
		log:          zap.NewNop(),
		partySvc:     parties,
		priceListSvc: prices,
	}
	srv.registerAPIRoutes()
	srv.registerFallback()
	return engine
}

func perform(t *testing.T, engine *gin.Engine, method, path, org string, body any) (*httptest.ResponseRecorder, response) {
	t.Helper()

	var buf bytes.Buffer
	switch v := body.(type) {
	case nil:
	case string:
		buf.WriteString(v)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(v))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if org != "" {
		req.Header.Set(HeaderOrg, org)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	var out response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return rec, out
}

func TestTenantHeaderRequired(t *testing.T) {
	engine := newTestServer(t, &fakePartyService{}, &fakePriceListService{})

	for _, org := range []string{"", "acme", "0"} {
		t.Run(fmt.Sprintf("org=%q", org), func(t *testing.T) {
			rec, body := perform(t, engine, http.MethodGet, "/api/vendors/1", org, nil)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.False(t, body.Success)
			assert.Equal(t, "unauthorized", body.Message)
		})
	}
}

func TestCreatePartyEnvelope(t *testing.T) {
	parties := &fakePartyService{}
	engine := newTestServer(t, parties, &fakePriceListService{})

	rec, body := perform(t, engine, http.MethodPost, "/api/vendors", "42", map[string]any{"name": "Acme"})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, body.Success)
	assert.Equal(t, snowflake.ID(42), parties.seenOrg)
	assert.Equal(t, "Acme", parties.created.Name)

	var data partydomain.Response
	require.NoError(t, json.Unmarshal(body.Data, &data))
	assert.Equal(t, partydomain.KindVendor, data.Kind)
}

func TestValidationDetailsUseJSONNames(t *testing.T) {
	engine := newTestServer(t, &fakePartyService{}, &fakePriceListService{})

	rec, body := perform(t, engine, http.MethodPost, "/api/clients", "42", map[string]any{"email": "not-an-email"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation error", body.Message)

	fields := map[string]string{}
	for _, d := range body.Details {
		fields[d.Field] = d.Code
	}
	assert.Equal(t, "required", fields["name"])
	assert.Equal(t, "email", fields["email"])
}

func TestMalformedBody(t *testing.T) {
	engine := newTestServer(t, &fakePartyService{}, &fakePriceListService{})

	rec, body := perform(t, engine, http.MethodPost, "/api/vendors", "42", `{"name":`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Len(t, body.Details, 1)
	assert.Equal(t, "body", body.Details[0].Field)
}

func TestScopeViolationResponse(t *testing.T) {
	prices := &fakePriceListService{createErr: &apperr.ScopeViolationError{Dimension: "language_pair", ValueID: "99"}}
	engine := newTestServer(t, &fakePartyService{}, prices)

	price := "0.10"
	rec, body := perform(t, engine, http.MethodPost, "/api/vendor-price-list", "42", map[string]any{
		"party_id":          "1",
		"service_id":        "2",
		"language_pair_id":  "99",
		"specialization_id": "3",
		"unit_id":           "4",
		"currency_id":       "5",
		"price_per_unit":    price,
	})
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Len(t, body.Details, 1)
	assert.Equal(t, Detail{Field: "language_pair", Code: "scope_violation", Message: "99"}, body.Details[0])
}

func TestNotFoundMessages(t *testing.T) {
	parties := &fakePartyService{getErr: partydomain.NotFound(partydomain.KindClient)}
	engine := newTestServer(t, parties, &fakePriceListService{})

	rec, body := perform(t, engine, http.MethodGet, "/api/clients/5", "42", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "client_not_found", body.Message)

	rec, body = perform(t, engine, http.MethodGet, "/nowhere", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "route_not_found", body.Message)
}

func TestMapError(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{name: "field", err: apperr.Invalid("unit_id", "unit_required"), status: http.StatusBadRequest},
		{name: "page token", err: fmt.Errorf("list: %w", pagination.ErrInvalidPageToken), status: http.StatusBadRequest},
		{name: "not found", err: apperr.NotFound("job"), status: http.StatusNotFound},
		{name: "forbidden", err: apperr.New("job_forbidden", apperr.ErrForbidden), status: http.StatusForbidden},
		{name: "duplicate", err: apperr.New("price_list_exists", apperr.ErrDuplicateEntry), status: http.StatusConflict},
		{name: "conflict", err: apperr.New("scope_in_use", apperr.ErrConflict), status: http.StatusConflict},
		{name: "unauthorized", err: ErrUnauthorized, status: http.StatusUnauthorized},
		{name: "unknown", err: errors.New("boom"), status: http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := mapError(tc.err)
			assert.Equal(t, tc.status, status)
			assert.False(t, body.Success)
		})
	}

	_, body := mapError(errors.New("pq: relation does not exist"))
	assert.Equal(t, "internal server error", body.Message)
}

func TestClassifyErrorForLog(t *testing.T) {
	kind, level := classifyErrorForLog(errors.New("boom"))
	assert.Equal(t, "internal_error", kind)
	assert.Equal(t, "error", level)

	kind, level = classifyErrorForLog(&apperr.ScopeViolationError{Dimension: "service", ValueID: "1"})
	assert.Equal(t, "auth_error", kind)
	assert.Equal(t, "warn", level)

	kind, level = classifyErrorForLog(apperr.NotFound("vendor"))
	assert.Equal(t, "client_error", kind)
	assert.Equal(t, "info", level)
}
