package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"datamod/internal/config"
	apperrors "datamod/internal/errors"
	"datamod/internal/infrastructure"
	"datamod/internal/shared/testutil"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
})

func newErrorHandler(t *testing.T) *apperrors.ErrorHandler {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	return apperrors.NewErrorHandler(logger, false)
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var problem map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	return problem
}

func TestRequestID(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{name: "generated", header: ""},
		{name: "propagated", header: "req-123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seenReqID, seenTrace string
			h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seenReqID = chimw.GetReqID(r.Context())
				seenTrace = infrastructure.GetTraceID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
			if tt.header != "" {
				req.Header.Set(RequestIDHeader, tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			got := rec.Header().Get(RequestIDHeader)
			require.NotEmpty(t, got)
			if tt.header != "" {
				assert.Equal(t, tt.header, got)
			}
			assert.Equal(t, got, seenReqID)
			assert.Equal(t, got, seenTrace)
		})
	}
}

func TestStructuredLogger(t *testing.T) {
	logger, buf := testutil.NewTestLogger(t)
	h := RequestID(StructuredLogger(logger)(okHandler))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/units", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, buf.ContainsMessage("request completed"))
}

func TestRateLimiter(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	rl := NewRateLimiter(config.RateLimitConfig{Enabled: true, RPS: 0.001, Burst: 2}, newErrorHandler(t), logger)
	h := rl.Handler(okHandler)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/session", nil))
		codes = append(codes, rec.Code)
		if rec.Code == http.StatusTooManyRequests {
			assert.Equal(t, "1", rec.Header().Get("Retry-After"))
			problem := decodeProblem(t, rec)
			assert.Equal(t, apperrors.TypeRateLimit, problem["type"])
		}
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestNewRateLimiter_Defaults(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	rl := NewRateLimiter(config.RateLimitConfig{}, newErrorHandler(t), logger)
	assert.Equal(t, float64(config.DefaultRateLimit), float64(rl.limiter.Limit()))
	assert.Equal(t, config.DefaultBurstSize, rl.limiter.Burst())
}

func TestTimeout(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		status  int
	}{
		{
			name:    "fast handler",
			handler: okHandler,
			status:  http.StatusOK,
		},
		{
			name: "handler gives up at the deadline",
			handler: func(w http.ResponseWriter, r *http.Request) {
				<-r.Context().Done()
			},
			status: http.StatusGatewayTimeout,
		},
		{
			name: "handler wrote its own response",
			handler: func(w http.ResponseWriter, r *http.Request) {
				<-r.Context().Done()
				w.WriteHeader(http.StatusConflict)
			},
			status: http.StatusConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := Timeout(20*time.Millisecond, newErrorHandler(t))(tt.handler)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/session/apply", nil))
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestCORS(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	cfg := config.SecurityConfig{AllowedOrigins: []string{"http://localhost:8080"}, EnableCORS: true}

	tests := []struct {
		name       string
		cfg        config.SecurityConfig
		method     string
		origin     string
		preflight  bool
		wantOrigin string
		wantStatus int
	}{
		{name: "allowed origin", cfg: cfg, method: http.MethodGet, origin: "http://localhost:8080", wantOrigin: "http://localhost:8080", wantStatus: http.StatusOK},
		{name: "other origin", cfg: cfg, method: http.MethodGet, origin: "http://example.com", wantStatus: http.StatusOK},
		{name: "preflight", cfg: cfg, method: http.MethodOptions, origin: "http://localhost:8080", preflight: true, wantOrigin: "http://localhost:8080", wantStatus: http.StatusNoContent},
		{name: "wildcard", cfg: config.SecurityConfig{AllowedOrigins: []string{"*"}, EnableCORS: true}, method: http.MethodGet, origin: "http://example.com", wantOrigin: "http://example.com", wantStatus: http.StatusOK},
		{name: "disabled", cfg: config.SecurityConfig{AllowedOrigins: []string{"*"}}, method: http.MethodGet, origin: "http://example.com", wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := CORS(tt.cfg, logger)(okHandler)
			req := httptest.NewRequest(tt.method, "/api/session", nil)
			req.Header.Set("Origin", tt.origin)
			if tt.preflight {
				req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantOrigin, rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestSecureHeaders(t *testing.T) {
	h := DefaultSecureHeaders().Handler(okHandler)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/session", nil))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "connect-src 'self' ws: wss:")
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))

	upgrade := httptest.NewRequest(http.MethodGet, "/ws", nil)
	upgrade.Header.Set("Upgrade", "websocket")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, upgrade)
	assert.Empty(t, rec.Header().Get("X-Frame-Options"))
}

func TestAuditLog(t *testing.T) {
	logger, buf := testutil.NewTestLogger(t)
	h := AuditLog(logger)(okHandler)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/session", nil))
	assert.False(t, buf.ContainsMessage("audit log"))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/session/undo", nil))
	assert.True(t, buf.ContainsMessage("audit log"))
}

func TestOTelMiddleware(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	metrics, err := infrastructure.CreateBusinessMetrics(provider.Meter(infrastructure.MeterName))
	require.NoError(t, err)

	logger, _ := testutil.NewTestLogger(t)
	r := chi.NewRouter()
	r.Use(NewOTelMiddleware(nil, metrics, logger).Handler)
	r.Get("/api/units", okHandler)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/units", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	found := false
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "http_requests_total" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			require.Len(t, sum.DataPoints, 1)
			assert.Equal(t, int64(1), sum.DataPoints[0].Value)
			route, _ := sum.DataPoints[0].Attributes.Value("route")
			assert.Equal(t, "/api/units", route.AsString())
			found = true
		}
	}
	assert.True(t, found)
}

type applyRequest struct {
	Path   string  `json:"path" validate:"required,safepath"`
	Kind   string  `json:"kind" validate:"required,oneof=multiply divide"`
	Factor float64 `json:"factor" validate:"required_if=Kind divide"`
}

func TestValidationMiddleware_Decode(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	m := NewValidationMiddleware(logger, newErrorHandler(t))

	tests := []struct {
		name       string
		body       string
		wantErr    bool
		wantFields []string
	}{
		{name: "valid", body: `{"path":"data/in.csv","kind":"multiply"}`},
		{name: "missing fields", body: `{}`, wantErr: true, wantFields: []string{"path", "kind"}},
		{name: "empty body", body: ``, wantErr: true, wantFields: []string{"path", "kind"}},
		{name: "parent traversal", body: `{"path":"../secret.csv","kind":"multiply"}`, wantErr: true, wantFields: []string{"path"}},
		{name: "bad enum", body: `{"path":"a.csv","kind":"explode"}`, wantErr: true, wantFields: []string{"kind"}},
		{name: "unknown field", body: `{"path":"a.csv","kind":"multiply","extra":1}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/session/apply", strings.NewReader(tt.body))
			var got applyRequest
			err := m.Decode(req, &got)
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)

			var apiErr *apperrors.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
			if tt.wantFields == nil {
				return
			}
			details, ok := apiErr.Details.(apperrors.ValidationErrors)
			require.True(t, ok)
			fields := make([]string, 0, len(details.Errors))
			for _, e := range details.Errors {
				fields = append(fields, e.Field)
			}
			assert.ElementsMatch(t, tt.wantFields, fields)
		})
	}
}

func TestValidationMiddleware_ValidateRequest(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	m := NewValidationMiddleware(logger, newErrorHandler(t))
	h := m.ValidateRequest(okHandler)

	tests := []struct {
		name   string
		method string
		body   string
		status int
	}{
		{name: "get passes", method: http.MethodGet, status: http.StatusOK},
		{name: "valid json", method: http.MethodPost, body: `{"a":1}`, status: http.StatusOK},
		{name: "empty body", method: http.MethodPost, status: http.StatusOK},
		{name: "invalid json", method: http.MethodPost, body: `{"a":`, status: http.StatusBadRequest},
		{name: "too large", method: http.MethodPost, body: `"` + strings.Repeat("x", DefaultMaxBodySize) + `"`, status: http.StatusRequestEntityTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(tt.method, "/api/session/apply", strings.NewReader(tt.body)))
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestContentTypeValidator(t *testing.T) {
	h := ContentTypeValidator(newErrorHandler(t), "application/json")(okHandler)

	tests := []struct {
		name        string
		contentType string
		body        string
		status      int
	}{
		{name: "json", contentType: "application/json; charset=utf-8", body: `{}`, status: http.StatusOK},
		{name: "no body", status: http.StatusOK},
		{name: "form", contentType: "application/x-www-form-urlencoded", body: "a=1", status: http.StatusUnsupportedMediaType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/session/open", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestQueryParamValidator(t *testing.T) {
	v := NewQueryParamValidator(newErrorHandler(t))

	tests := []struct {
		name   string
		query  string
		want   int
		ok     bool
		status int
	}{
		{name: "default", query: "", want: 50, ok: true},
		{name: "in range", query: "limit=10", want: 10, ok: true},
		{name: "not a number", query: "limit=ten", ok: false, status: http.StatusBadRequest},
		{name: "too large", query: "limit=5000", ok: false, status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/session/rows?"+tt.query, nil)
			got, ok := v.ValidateInt(rec, req, "limit", 1, 1000, 50)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
				return
			}
			assert.Equal(t, tt.status, rec.Code)
		})
	}

	rec := httptest.NewRecorder()
	format, ok := v.ValidateEnum(rec, httptest.NewRequest(http.MethodGet, "/?format=pdf", nil), "format", []string{"png", "pdf"}, "png")
	assert.True(t, ok)
	assert.Equal(t, "pdf", format)

	rec = httptest.NewRecorder()
	_, ok = v.ValidateEnum(rec, httptest.NewRequest(http.MethodGet, "/?format=svg", nil), "format", []string{"png", "pdf"}, "png")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	original, ok := v.ValidateBool(rec, httptest.NewRequest(http.MethodGet, "/?original=true", nil), "original", false)
	assert.True(t, ok)
	assert.True(t, original)
}
