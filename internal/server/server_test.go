package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	balancedomain "github.com/hexabill/hexabill/internal/balance/domain"
	"github.com/hexabill/hexabill/internal/config"
	customerdomain "github.com/hexabill/hexabill/internal/customer/domain"
	settingsdomain "github.com/hexabill/hexabill/internal/settings/domain"
	"github.com/hexabill/hexabill/pkg/tenantctx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeBalanceService struct {
	snapshot          balancedomain.Snapshot
	reconcileSnapshot balancedomain.Snapshot
	validation        balancedomain.ValidationResult
	decision          balancedomain.CreditDecision
	err               error

	lastTenant    snowflake.ID
	reconcileIDs  []snowflake.ID
	creditAmounts []decimal.Decimal
}

func (f *fakeBalanceService) recordTenant(ctx context.Context) {
	if tenantID, ok := tenantctx.TenantIDFromContext(ctx); ok {
		f.lastTenant = tenantID
	}
}

func (f *fakeBalanceService) Recalculate(ctx context.Context, _ snowflake.ID) (balancedomain.Snapshot, error) {
	f.recordTenant(ctx)
	return f.snapshot, f.err
}

func (f *fakeBalanceService) Validate(ctx context.Context, _ snowflake.ID) (balancedomain.ValidationResult, error) {
	f.recordTenant(ctx)
	return f.validation, f.err
}

func (f *fakeBalanceService) Reconcile(ctx context.Context, id snowflake.ID) (balancedomain.Snapshot, error) {
	f.recordTenant(ctx)
	f.reconcileIDs = append(f.reconcileIDs, id)
	return f.reconcileSnapshot, f.err
}

func (f *fakeBalanceService) CheckCredit(ctx context.Context, _ snowflake.ID, amount decimal.Decimal) (balancedomain.CreditDecision, error) {
	f.recordTenant(ctx)
	f.creditAmounts = append(f.creditAmounts, amount)
	return f.decision, f.err
}

type fakeCustomerService struct {
	customer customerdomain.Customer
	err      error
}

func (f *fakeCustomerService) Create(context.Context, customerdomain.CreateCustomerRequest) (customerdomain.Customer, error) {
	return f.customer, f.err
}

func (f *fakeCustomerService) GetByID(context.Context, customerdomain.GetCustomerRequest) (customerdomain.Customer, error) {
	return f.customer, f.err
}

type fakeSettingsService struct {
	values map[string]string
}

func (f *fakeSettingsService) Get(_ context.Context, key string) (string, bool, error) {
	value, ok := f.values[key]
	return value, ok, nil
}

func (f *fakeSettingsService) Set(_ context.Context, key, value string) error {
	if f.values == nil {
		f.values = map[string]string{}
	}
	f.values[key] = value
	return nil
}

func (f *fakeSettingsService) ReconcileSchedule(context.Context) settingsdomain.Schedule {
	schedule := settingsdomain.Schedule{Enabled: false, RunAt: settingsdomain.DefaultRunAt}
	if raw, ok := f.values[settingsdomain.KeyReconcileEnabled]; ok && raw == "true" {
		schedule.Enabled = true
	}
	if raw, ok := f.values[settingsdomain.KeyReconcileRunAt]; ok {
		if runAt, err := settingsdomain.ParseTimeOfDay(raw); err == nil {
			schedule.RunAt = runAt
		}
	}
	return schedule
}

func newTestServer(balance *fakeBalanceService, customer *fakeCustomerService, settings *fakeSettingsService) *Server {
	gin.SetMode(gin.TestMode)
	engine := NewEngine(zap.NewNop())
	return NewServer(ServerParams{
		Gin:         engine,
		Cfg:         config.Config{Environment: "test"},
		CustomerSvc: customer,
		BalanceSvc:  balance,
		SettingsSvc: settings,
	})
}

func doRequest(srv *Server, method, path string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	rec := httptest.NewRecorder()
	srv.Engine().ServeHTTP(rec, req)
	return rec
}

func TestGetBalanceReturnsSnapshot(t *testing.T) {
	balance := &fakeBalanceService{snapshot: balancedomain.Snapshot{
		TotalSales:     decimal.NewFromInt(800),
		TotalPayments:  decimal.NewFromInt(400),
		PendingBalance: decimal.NewFromInt(400),
	}}
	srv := newTestServer(balance, &fakeCustomerService{}, &fakeSettingsService{})

	rec := doRequest(srv, http.MethodGet, "/v1/customers/42/balance", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data balancedomain.Snapshot `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.True(t, decimal.NewFromInt(400).Equal(body.Data.PendingBalance))
}

func TestGetBalanceInvalidID(t *testing.T) {
	srv := newTestServer(&fakeBalanceService{}, &fakeCustomerService{}, &fakeSettingsService{})

	rec := doRequest(srv, http.MethodGet, "/v1/customers/not-a-number/balance", nil, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetBalanceNotFound(t *testing.T) {
	balance := &fakeBalanceService{err: customerdomain.ErrNotFound}
	srv := newTestServer(balance, &fakeCustomerService{}, &fakeSettingsService{})

	rec := doRequest(srv, http.MethodGet, "/v1/customers/42/balance", nil, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTenantHeaderPropagates(t *testing.T) {
	balance := &fakeBalanceService{}
	srv := newTestServer(balance, &fakeCustomerService{}, &fakeSettingsService{})

	rec := doRequest(srv, http.MethodGet, "/v1/customers/42/balance", nil, map[string]string{
		tenantHeader: "7",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, snowflake.ID(7), balance.lastTenant)
}

func TestTenantHeaderMalformed(t *testing.T) {
	srv := newTestServer(&fakeBalanceService{}, &fakeCustomerService{}, &fakeSettingsService{})

	rec := doRequest(srv, http.MethodGet, "/v1/customers/42/balance", nil, map[string]string{
		tenantHeader: "zzz",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReconcileCustomer(t *testing.T) {
	// Distinct snapshots prove the response comes from the reconcile
	// transaction itself, never a separate re-read.
	balance := &fakeBalanceService{
		snapshot:          balancedomain.Snapshot{PendingBalance: decimal.NewFromInt(999)},
		reconcileSnapshot: balancedomain.Snapshot{PendingBalance: decimal.NewFromInt(400)},
	}
	srv := newTestServer(balance, &fakeCustomerService{}, &fakeSettingsService{})

	rec := doRequest(srv, http.MethodPost, "/v1/customers/42/reconcile", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []snowflake.ID{42}, balance.reconcileIDs)

	var body struct {
		Data balancedomain.Snapshot `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.True(t, decimal.NewFromInt(400).Equal(body.Data.PendingBalance))
}

func TestCheckCredit(t *testing.T) {
	balance := &fakeBalanceService{decision: balancedomain.CreditDecision{
		Allowed:        false,
		PendingBalance: decimal.NewFromInt(400),
		CreditLimit:    decimal.NewFromInt(500),
	}}
	srv := newTestServer(balance, &fakeCustomerService{}, &fakeSettingsService{})

	rec := doRequest(srv, http.MethodPost, "/v1/customers/42/credit-check",
		[]byte(`{"amount":"150.00"}`), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data balancedomain.CreditDecision `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.False(t, body.Data.Allowed)
	require.Len(t, balance.creditAmounts, 1)
	require.True(t, decimal.RequireFromString("150.00").Equal(balance.creditAmounts[0]))
}

func TestCheckCreditRejectsBadAmount(t *testing.T) {
	srv := newTestServer(&fakeBalanceService{}, &fakeCustomerService{}, &fakeSettingsService{})

	for _, payload := range []string{`{"amount":"abc"}`, `{"amount":"-5"}`, `{}`} {
		rec := doRequest(srv, http.MethodPost, "/v1/customers/42/credit-check", []byte(payload), nil)
		require.Equal(t, http.StatusBadRequest, rec.Code, "payload %s", payload)
	}
}

func TestCreateCustomerWithoutTenant(t *testing.T) {
	customer := &fakeCustomerService{err: customerdomain.ErrInvalidTenant}
	srv := newTestServer(&fakeBalanceService{}, customer, &fakeSettingsService{})

	rec := doRequest(srv, http.MethodPost, "/v1/customers",
		[]byte(`{"name":"Acme","email":"acme@example.com"}`), nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateReconcileSchedule(t *testing.T) {
	settings := &fakeSettingsService{}
	srv := newTestServer(&fakeBalanceService{}, &fakeCustomerService{}, settings)

	rec := doRequest(srv, http.MethodPut, "/admin/reconcile/schedule",
		[]byte(`{"enabled":true,"run_at":"03:15"}`), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "true", settings.values[settingsdomain.KeyReconcileEnabled])
	require.Equal(t, "03:15", settings.values[settingsdomain.KeyReconcileRunAt])

	rec = doRequest(srv, http.MethodPut, "/admin/reconcile/schedule",
		[]byte(`{"run_at":"25:00"}`), nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(&fakeBalanceService{}, &fakeCustomerService{}, &fakeSettingsService{})

	rec := doRequest(srv, http.MethodGet, "/healthz", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
}
