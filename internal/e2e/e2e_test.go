package e2e

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/lingoflow/internal/clock"
	"github.com/smallbiznis/lingoflow/internal/config"
	"github.com/smallbiznis/lingoflow/internal/dbtest"
	"github.com/smallbiznis/lingoflow/internal/observability"
	obsmetrics "github.com/smallbiznis/lingoflow/internal/observability/metrics"
	"github.com/smallbiznis/lingoflow/internal/seed"
	"github.com/smallbiznis/lingoflow/internal/server"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"go.uber.org/zap"
)

type testEnv struct {
	db      *dbtest.Env
	httpSrv *httptest.Server
	baseURL string
	org     string
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Details []struct {
		Field   string `json:"field"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"details"`
}

func startEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := dbtest.Open(t)
	var srv *server.Server

	app := fxtest.New(t,
		fx.NopLogger,
		fx.Supply(db.DB, db.Node, config.Config{}, observability.Config{}),
		fx.Supply(config.NewStaticPricingConfigHolder(config.DefaultPricingConfig())),
		fx.Provide(zap.NewNop),
		fx.Provide(func() *obsmetrics.HTTPMetrics { return nil }),
		clock.Module,
		server.Domains,
		fx.Provide(server.NewEngine),
		fx.Provide(server.NewServer),
		fx.Populate(&srv),
	)
	app.RequireStart()
	t.Cleanup(app.RequireStop)

	httpSrv := httptest.NewServer(srv.Engine())
	t.Cleanup(httpSrv.Close)

	return &testEnv{
		db:      db,
		httpSrv: httpSrv,
		baseURL: httpSrv.URL,
		org:     db.OrgID.String(),
	}
}

func TestE2E_HealthCheck(t *testing.T) {
	env := startEnv(t)

	resp, err := http.Get(env.baseURL + "/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}
}

func TestE2E_VendorPricingLifecycle(t *testing.T) {
	env := startEnv(t)

	serviceID := env.db.Service(t, "Translation")
	pairID := env.db.LanguagePair(t, "en", "de")
	specID := env.db.Specialization(t, "Legal")

	vendorID := createID(t, env, "/api/vendors", map[string]any{"name": "Lexa Translations"})

	priceReq := map[string]any{
		"party_id":          vendorID,
		"service_id":        serviceID.String(),
		"language_pair_id":  pairID.String(),
		"specialization_id": specID.String(),
		"unit_id":           seed.UnitID("Word").String(),
		"currency_id":       seed.CurrencyID("USD").String(),
		"price_per_unit":    "0.08",
	}

	// Vendors start restricted on every dimension.
	resp, body := env.do(t, http.MethodPost, "/api/vendor-price-list", priceReq)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 before scoping, got %d: %s", resp.StatusCode, body.Message)
	}
	if len(body.Details) != 1 || body.Details[0].Code != "scope_violation" {
		t.Fatalf("expected scope_violation detail, got %+v", body.Details)
	}

	for dim, valueID := range map[string]snowflake.ID{
		"service":        serviceID,
		"language_pair":  pairID,
		"specialization": specID,
	} {
		resp, body := env.do(t, http.MethodPost, "/api/vendor-scopes/"+vendorID+"/"+dim, map[string]any{"value_id": valueID.String()})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("add %s scope: expected 201, got %d: %s", dim, resp.StatusCode, body.Message)
		}
	}

	priceListID := createID(t, env, "/api/vendor-price-list", priceReq)

	vendor := mustParseID(t, vendorID)
	if got := env.db.UsageCount(t, "vendor_services", "service_id", vendor, serviceID); got != 1 {
		t.Fatalf("expected service usage 1, got %d", got)
	}

	resp, body = env.do(t, http.MethodPost, "/api/vendor-price-list", priceReq)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate price list, got %d: %s", resp.StatusCode, body.Message)
	}

	resp, body = env.do(t, http.MethodDelete, "/api/vendor-scopes/"+vendorID+"/service/"+serviceID.String(), nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 removing a used scope, got %d: %s", resp.StatusCode, body.Message)
	}

	resp, body = env.do(t, http.MethodDelete, "/api/vendor-price-list/"+priceListID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete price list: expected 200, got %d: %s", resp.StatusCode, body.Message)
	}
	if got := env.db.UsageCount(t, "vendor_services", "service_id", vendor, serviceID); got != 0 {
		t.Fatalf("expected service usage 0 after delete, got %d", got)
	}

	resp, body = env.do(t, http.MethodDelete, "/api/vendor-scopes/"+vendorID+"/service/"+serviceID.String(), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("remove unused scope: expected 200, got %d: %s", resp.StatusCode, body.Message)
	}
}

func TestE2E_JobFinancials(t *testing.T) {
	env := startEnv(t)

	serviceID := env.db.Service(t, "Translation")
	pairID := env.db.LanguagePair(t, "en", "fr")
	specID := env.db.Specialization(t, "Medical")
	managerID := env.db.Manager(t, "Mia")

	clientID := createID(t, env, "/api/clients", map[string]any{"name": "Globex"})
	vendorID := createID(t, env, "/api/vendors", map[string]any{"name": "Lexa Translations"})

	resp, body := env.do(t, http.MethodPut, "/api/vendor-settings/"+vendorID, map[string]any{
		"works_with_all_services":        true,
		"works_with_all_language_pairs":  true,
		"works_with_all_specializations": true,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update vendor settings: expected 200, got %d: %s", resp.StatusCode, body.Message)
	}

	priceListID := createID(t, env, "/api/vendor-price-list", map[string]any{
		"party_id":          vendorID,
		"service_id":        serviceID.String(),
		"language_pair_id":  pairID.String(),
		"specialization_id": specID.String(),
		"unit_id":           seed.UnitID("Word").String(),
		"currency_id":       seed.CurrencyID("USD").String(),
		"price_per_unit":    "0.05",
	})

	projectID := createID(t, env, "/api/projects", map[string]any{
		"client_id":          clientID,
		"project_manager_id": managerID.String(),
		"service_id":         serviceID.String(),
		"specialization_id":  specID.String(),
		"language_pair_ids":  []string{pairID.String()},
		"name":               "Clinical trial leaflets",
		"status":             "In Progress",
		"deadline":           time.Now().Add(72 * time.Hour).UTC(),
	})
	if n := env.db.Count(t, "project_status_history", "project_id = ?", mustParseID(t, projectID)); n != 1 {
		t.Fatalf("expected opening status history row, got %d", n)
	}

	jobID := createID(t, env, "/api/jobs", map[string]any{
		"project_id":        projectID,
		"vendor_id":         vendorID,
		"service_id":        serviceID.String(),
		"language_pair_id":  pairID.String(),
		"specialization_id": specID.String(),
		"name":              "Leaflet EN>FR",
	})

	resp, body = env.do(t, http.MethodGet, "/api/jobs/"+jobID+"/price-suggestions?direction=payable", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("suggestions: expected 200, got %d: %s", resp.StatusCode, body.Message)
	}
	var suggestions []struct {
		ID string `json:"id"`
	}
	decode(t, body.Data, &suggestions)
	if len(suggestions) != 1 || suggestions[0].ID != priceListID {
		t.Fatalf("expected one suggestion %s, got %+v", priceListID, suggestions)
	}

	resp, body = env.do(t, http.MethodPost, "/api/job-unit-payables", map[string]any{
		"job_id":         jobID,
		"unit_id":        seed.UnitID("Word").String(),
		"unit_amount":    "1000",
		"price_per_unit": "0.05",
		"currency_id":    seed.CurrencyID("USD").String(),
		"price_list_id":  priceListID,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create payable: expected 201, got %d: %s", resp.StatusCode, body.Message)
	}
	var line struct {
		Subtotal string `json:"subtotal"`
	}
	decode(t, body.Data, &line)
	if line.Subtotal != "50.00" {
		t.Fatalf("expected payable subtotal 50.00, got %s", line.Subtotal)
	}

	resp, body = env.do(t, http.MethodPost, "/api/job-flat-receivables", map[string]any{
		"job_id":      jobID,
		"subtotal":    "80",
		"currency_id": seed.CurrencyID("USD").String(),
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create receivable: expected 201, got %d: %s", resp.StatusCode, body.Message)
	}

	resp, body = env.do(t, http.MethodGet, "/api/jobs/"+jobID+"/financial-summary", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("summary: expected 200, got %d: %s", resp.StatusCode, body.Message)
	}
	var summary struct {
		Totals []struct {
			CurrencyCode string `json:"currency_code"`
			Receivable   string `json:"receivable"`
			Payable      string `json:"payable"`
			Margin       string `json:"margin"`
		} `json:"totals"`
	}
	decode(t, body.Data, &summary)
	if len(summary.Totals) != 1 {
		t.Fatalf("expected one currency bucket, got %+v", summary.Totals)
	}
	total := summary.Totals[0]
	if total.CurrencyCode != "USD" || total.Receivable != "80.00" || total.Payable != "50.00" || total.Margin != "30.00" {
		t.Fatalf("unexpected totals: %+v", total)
	}

	resp, body = env.do(t, http.MethodDelete, "/api/projects/"+projectID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete project: expected 200, got %d: %s", resp.StatusCode, body.Message)
	}
	if n := env.db.Count(t, "job_financial_lines", "job_id = ?", mustParseID(t, jobID)); n != 0 {
		t.Fatalf("expected financial lines removed with the project, got %d", n)
	}
}

func TestE2E_TenantIsolation(t *testing.T) {
	env := startEnv(t)

	vendorID := createID(t, env, "/api/vendors", map[string]any{"name": "Lexa Translations"})

	other := *env
	other.org = env.db.Node.Generate().String()

	resp, body := other.do(t, http.MethodGet, "/api/vendors/"+vendorID, nil)
	if resp.StatusCode != http.StatusNotFound && resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected foreign tenant to be refused, got %d: %s", resp.StatusCode, body.Message)
	}

	anonymous := *env
	anonymous.org = ""
	resp, _ = anonymous.do(t, http.MethodGet, "/api/vendors", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without tenant header, got %d", resp.StatusCode)
	}
}

func createID(t *testing.T, env *testEnv, path string, payload any) string {
	t.Helper()
	resp, body := env.do(t, http.MethodPost, path, payload)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST %s: expected 201, got %d: %s %+v", path, resp.StatusCode, body.Message, body.Details)
	}
	var created struct {
		ID string `json:"id"`
	}
	decode(t, body.Data, &created)
	if created.ID == "" {
		t.Fatalf("POST %s: missing id", path)
	}
	return created.ID
}

func (e *testEnv) do(t *testing.T, method, path string, payload any) (*http.Response, envelope) {
	t.Helper()

	var reqBody io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("encode json: %v", err)
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, e.baseURL+path, reqBody)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if e.org != "" {
		req.Header.Set(server.HeaderOrg, e.org)
	}

	resp, err := e.httpSrv.Client().Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	var out envelope
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("decode envelope: %v: %s", err, string(data))
	}
	return resp, out
}

func decode(t *testing.T, raw json.RawMessage, dst any) {
	t.Helper()
	if err := json.Unmarshal(raw, dst); err != nil {
		t.Fatalf("decode data: %v: %s", err, string(raw))
	}
}

func mustParseID(t *testing.T, value string) snowflake.ID {
	t.Helper()
	parsed, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || parsed == 0 {
		t.Fatalf("invalid snowflake id: %s", value)
	}
	return parsed
}
