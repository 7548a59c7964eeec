package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Dan9191/cofrinho-service/internal/config"
	"github.com/Dan9191/cofrinho-service/internal/models"
	"github.com/Dan9191/cofrinho-service/internal/repository"
	"github.com/Dan9191/cofrinho-service/internal/service"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type stubSource struct{}

func (stubSource) GetKeyRate(context.Context) (*models.KeyRate, error) {
	return &models.KeyRate{Series: 4389, Date: time.Date(2024, time.March, 12, 0, 0, 0, 0, time.UTC), Rate: decimal.RequireFromString("10.65")}, nil
}

type stubMailer struct{ sent int }

func (m *stubMailer) SendSnapshot(string, string, []byte, string) error {
	m.sent++
	return nil
}

func newTestRouter(t *testing.T) (http.Handler, *config.Config, *stubMailer) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	hash, err := bcrypt.GenerateFromPassword([]byte("admin-pass"), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := &config.Config{
		JWTSecret:                  "jwt-secret",
		HMACSecret:                 "hmac-secret",
		AdminPasswordHash:          string(hash),
		DefaultAnnualRate:          decimal.RequireFromString("0.1065"),
		CDIPercent:                 decimal.NewFromInt(100),
		DefaultInitialBalance:      decimal.NewFromInt(10000),
		DefaultMonthlyContribution: decimal.Zero,
		DefaultHorizonDays:         180,
		MinHorizonDays:             30,
		MaxHorizonDays:             365,
		LocaleFormatting:           false,
		Locale:                     "pt-BR",
		CurrencySymbol:             "R$",
		MaxUploadBytes:             64 << 10,
	}
	mailer := &stubMailer{}
	svc, err := service.NewService(repository.NewMemoryRateStore(), stubSource{}, mailer, log, cfg)
	require.NoError(t, err)
	return NewRouter(NewHandler(svc, cfg, log)), cfg, mailer
}

func do(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var e models.ErrorResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&e))
	return e
}

func TestSimulate_OK(t *testing.T) {
	h, _, _ := newTestRouter(t)

	body := `{"initial_balance": 10000, "monthly_contribution": "500", "horizon_days": 30, "start_date": "2024-01-01"}`
	w := do(t, h, httptest.NewRequest(http.MethodPost, "/simulations", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.SimulationResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Len(t, resp.Entries, 30)
	assert.Equal(t, "10587.91", resp.FinalBalance)
	assert.Equal(t, "R$ 10587.91", resp.FormattedFinalBalance)
	assert.Equal(t, "2024-01-31", resp.Entries[29].Date)
}

func TestSimulate_EmptyBodyUsesDefaults(t *testing.T) {
	h, _, _ := newTestRouter(t)

	w := do(t, h, httptest.NewRequest(http.MethodPost, "/simulations", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.SimulationResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, 180, resp.HorizonDays)
	assert.Equal(t, "10000.00", resp.InitialBalance)
}

func TestSimulate_BadRequests(t *testing.T) {
	h, _, _ := newTestRouter(t)

	cases := map[string]struct {
		body   string
		status int
		kind   string
		field  string
	}{
		"invalid json":      {`{invalid-json}`, http.StatusBadRequest, "bad_request", ""},
		"unknown field":     {`{"rate": 1}`, http.StatusBadRequest, "bad_request", ""},
		"negative initial":  {`{"initial_balance": -1}`, http.StatusBadRequest, "invalid_parameter", "initial_balance"},
		"horizon too short": {`{"horizon_days": 1}`, http.StatusBadRequest, "invalid_parameter", "horizon_days"},
		"horizon too long":  {`{"horizon_days": 1000}`, http.StatusBadRequest, "invalid_parameter", "horizon_days"},
		"overflow":          {`{"initial_balance": 99999999999999}`, http.StatusUnprocessableEntity, "numeric_overflow", ""},
		"huge exponent":     {`{"initial_balance": 1e2000000}`, http.StatusUnprocessableEntity, "numeric_overflow", ""},
		"sub-cent amount":   {`{"monthly_contribution": 1e-2000000}`, http.StatusBadRequest, "invalid_parameter", "monthly_contribution"},
		"past year 9999":    {`{"start_date": "9999-12-01", "horizon_days": 60}`, http.StatusBadRequest, "invalid_parameter", "start_date"},
		"trailing object":   {`{"horizon_days": 30}{"horizon_days": 31}`, http.StatusBadRequest, "bad_request", ""},
		"trailing garbage":  {`{"horizon_days": 30} xyz`, http.StatusBadRequest, "bad_request", ""},
		"oversized body":    {`{"start_date": "` + strings.Repeat(" ", 70<<10) + `"}`, http.StatusRequestEntityTooLarge, "too_large", ""},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			w := do(t, h, httptest.NewRequest(http.MethodPost, "/simulations", strings.NewReader(tc.body)))
			require.Equal(t, tc.status, w.Code, w.Body.String())
			e := decodeError(t, w)
			assert.Equal(t, tc.kind, e.Kind)
			assert.Equal(t, tc.field, e.Field)
		})
	}
}

func TestSimulate_MethodNotAllowed(t *testing.T) {
	h, _, _ := newTestRouter(t)

	w := do(t, h, httptest.NewRequest(http.MethodGet, "/simulations", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestExportImport_RoundTrip(t *testing.T) {
	h, _, _ := newTestRouter(t)

	w := do(t, h, httptest.NewRequest(http.MethodPost, "/simulations/export",
		strings.NewReader(`{"monthly_contribution": 100, "horizon_days": 60, "start_date": "2024-01-01"}`)))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Header().Get("Content-Disposition"), "simulacao_cofrinho.json")
	signature := w.Header().Get(SignatureHeader)
	require.NotEmpty(t, signature)
	file := w.Body.Bytes()

	req := httptest.NewRequest(http.MethodPost, "/snapshots/import?verify=true", bytes.NewReader(file))
	req.Header.Set(SignatureHeader, signature)
	w = do(t, h, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.SnapshotResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.True(t, resp.Verified)
	assert.Equal(t, 60, resp.HorizonDays)
	assert.Equal(t, "2024-03-01", resp.Entries[59].Date)
}

func TestSimulate_TrailingWhitespaceAccepted(t *testing.T) {
	h, _, _ := newTestRouter(t)

	w := do(t, h, httptest.NewRequest(http.MethodPost, "/simulations", strings.NewReader("{\"horizon_days\": 30}\n\t ")))
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestExportImport_CustomPeriodVerifies(t *testing.T) {
	h, _, _ := newTestRouter(t)

	w := do(t, h, httptest.NewRequest(http.MethodPost, "/simulations/export",
		strings.NewReader(`{"monthly_contribution": 100, "horizon_days": 60, "contribution_period_days": 7, "start_date": "2024-01-01"}`)))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	file := w.Body.Bytes()
	assert.Contains(t, string(file), `"periodo_aporte_dias": 7`)

	w = do(t, h, httptest.NewRequest(http.MethodPost, "/snapshots/import?verify=true", bytes.NewReader(file)))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.SnapshotResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.True(t, resp.Verified)
	assert.Equal(t, 7, resp.ContributionPeriodDays)
}

func TestImport_Multipart(t *testing.T) {
	h, _, _ := newTestRouter(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "simulacao_cofrinho.json")
	require.NoError(t, err)
	part.Write([]byte(`{"valor_inicial": 100.0, "aporte_mensal": 0.0, "dias": 1, "resultados": [100.03], "datas": ["2024-01-02"]}`))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/snapshots/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := do(t, h, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestImport_Errors(t *testing.T) {
	h, _, _ := newTestRouter(t)

	cases := map[string]struct {
		body      string
		signature string
		status    int
		kind      string
	}{
		"malformed":     {`not json`, "", http.StatusBadRequest, "malformed_input"},
		"unequal":       {`{"valor_inicial": 1, "aporte_mensal": 0, "dias": 1, "resultados": [1, 2], "datas": ["2024-01-02"]}`, "", http.StatusUnprocessableEntity, "schema_mismatch"},
		"bad signature": {`{}`, "abcd", http.StatusBadRequest, "invalid_signature"},
		"bad hex":       {`{}`, "xyz", http.StatusBadRequest, "invalid_signature"},
		"too large":     {`{"x": "` + strings.Repeat("a", 70<<10) + `"}`, "", http.StatusRequestEntityTooLarge, "too_large"},
		"huge balance":  {`{"valor_inicial": 1, "aporte_mensal": 0, "dias": 1, "resultados": [1e5000000], "datas": ["2024-01-02"]}`, "", http.StatusUnprocessableEntity, "schema_mismatch"},
		"huge dias":     {`{"valor_inicial": 1, "aporte_mensal": 0, "dias": 1e100000000, "resultados": [], "datas": []}`, "", http.StatusUnprocessableEntity, "schema_mismatch"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/snapshots/import", strings.NewReader(tc.body))
			if tc.signature != "" {
				req.Header.Set(SignatureHeader, tc.signature)
			}
			w := do(t, h, req)
			require.Equal(t, tc.status, w.Code, w.Body.String())
			assert.Equal(t, tc.kind, decodeError(t, w).Kind)
		})
	}
}

func TestCurrentRate(t *testing.T) {
	h, _, _ := newTestRouter(t)

	w := do(t, h, httptest.NewRequest(http.MethodGet, "/rates/current", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var quote models.RateQuote
	require.NoError(t, json.NewDecoder(w.Body).Decode(&quote))
	assert.Equal(t, "default", quote.Source)
}

func login(t *testing.T, h http.Handler) string {
	t.Helper()
	w := do(t, h, httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"password": "admin-pass"}`)))
	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	return resp["token"]
}

func TestLogin(t *testing.T) {
	h, _, _ := newTestRouter(t)

	w := do(t, h, httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"password": "nope"}`)))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, h, httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"password": "admin-pass"} {}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	token := login(t, h)
	_, err := jwt.Parse(token, func(*jwt.Token) (interface{}, error) { return []byte("jwt-secret"), nil })
	assert.NoError(t, err)
}

func TestRefreshRate_RequiresAuth(t *testing.T) {
	h, _, _ := newTestRouter(t)

	w := do(t, h, httptest.NewRequest(http.MethodPost, "/rates/refresh", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/rates/refresh", nil)
	req.Header.Set("Authorization", "Bearer "+login(t, h))
	w = do(t, h, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, h, httptest.NewRequest(http.MethodGet, "/rates/current", nil))
	var quote models.RateQuote
	require.NoError(t, json.NewDecoder(w.Body).Decode(&quote))
	assert.Equal(t, "sgs:4389", quote.Source)
	assert.Equal(t, "0.1065", quote.AnnualRate.String())
}

func TestEmailExport(t *testing.T) {
	h, _, mailer := newTestRouter(t)
	body := `{"to": "user@local", "simulation": {"horizon_days": 30}}`

	w := do(t, h, httptest.NewRequest(http.MethodPost, "/simulations/email", strings.NewReader(body)))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 0, mailer.sent)

	req := httptest.NewRequest(http.MethodPost, "/simulations/email", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+login(t, h))
	w = do(t, h, req)
	assert.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	assert.Equal(t, 1, mailer.sent)

	req = httptest.NewRequest(http.MethodPost, "/simulations/email", strings.NewReader(body+body))
	req.Header.Set("Authorization", "Bearer "+login(t, h))
	w = do(t, h, req)
	assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	assert.Equal(t, 1, mailer.sent)
}
