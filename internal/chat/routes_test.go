package chat

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seanankenbruck/qsar-chat/internal/observability"
	"github.com/seanankenbruck/qsar-chat/internal/ratelimit"
	"github.com/seanankenbruck/qsar-chat/internal/report"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupRouter(t *testing.T, cfg RouterConfig, opts ...Option) *gin.Engine {
	t.Helper()
	p, _ := newTestProcessor(t, opts...)
	r, err := p.SetupRoutes(cfg)
	require.NoError(t, err)
	return r
}

func doJSON(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
		Details string `json:"details"`
	} `json:"error"`
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorEnvelope {
	t.Helper()
	var env errorEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestChatEndpoint(t *testing.T) {
	r := setupRouter(t, RouterConfig{})

	t.Run("success", func(t *testing.T) {
		w := doJSON(r, http.MethodPost, "/api/chat", ChatRequest{Message: "¿El benceno es irritante dérmico según QSAR?"})
		require.Equal(t, http.StatusOK, w.Code)

		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "success", resp["type"])
		assert.Contains(t, resp, "response_es")
		query := resp["query"].(map[string]interface{})
		assert.Equal(t, "benceno", query["substance"])
		assert.Equal(t, "es", query["language"])
		assert.Equal(t, "natural", query["query_type"])
		results := resp["results"].([]interface{})
		require.Len(t, results, 2)
		first := results[0].(map[string]interface{})
		assert.Equal(t, "Irritación/Corrosión Dérmica", first["endpoint"])
		assert.Contains(t, first, "explanation_es")
		assert.Contains(t, first, "regulatory_relevance_es")
		assert.Len(t, first["similar_substances"], 3)
	})

	t.Run("validation error is 200", func(t *testing.T) {
		w := doJSON(r, http.MethodPost, "/api/chat", ChatRequest{Message: "dame la predicción según qsar"})
		require.Equal(t, http.StatusOK, w.Code)

		var resp ChatResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, ResponseValidationError, resp.Type)
		assert.Len(t, resp.Examples, 3)
	})

	t.Run("missing message", func(t *testing.T) {
		w := doJSON(r, http.MethodPost, "/api/chat", map[string]string{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		env := decodeError(t, w)
		assert.Equal(t, "MISSING_REQUIRED_FIELD", env.Error.Code)
		assert.Equal(t, "Mensaje requerido", env.Error.Message)
	})

	t.Run("non-string message", func(t *testing.T) {
		w := doJSON(r, http.MethodPost, "/api/chat", map[string]int{"message": 42})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Mensaje requerido", decodeError(t, w).Error.Message)
	})
}

func TestExamplesAndEndpoints(t *testing.T) {
	r := setupRouter(t, RouterConfig{})

	w := doJSON(r, http.MethodGet, "/api/examples", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var info CatalogInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Len(t, info.Examples, 8)
	assert.Len(t, info.AvailableSubstances, 8)
	assert.Equal(t, "1.0.0-MVP", info.SimulatorStats.Version)
	assert.Contains(t, w.Body.String(), `"known_substances":8`)

	w = doJSON(r, http.MethodGet, "/api/endpoints", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Endpoints       []map[string]interface{} `json:"endpoints"`
		DefaultEndpoint string                   `json:"default_endpoint"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Endpoints, 8)
	assert.Equal(t, "acute_oral", body.DefaultEndpoint)
}

func TestReportEndpoints(t *testing.T) {
	signer := report.NewSigner("route-test-secret-for-downloads", time.Minute)
	r := setupRouter(t, RouterConfig{}, WithReports(report.NewGenerator(report.NewMemoryStore(time.Hour), signer)))

	w := doJSON(r, http.MethodPost, "/api/chat", ChatRequest{Message: "¿El benceno es irritante dérmico según QSAR?"})
	require.Equal(t, http.StatusOK, w.Code)
	var chat struct {
		Results json.RawMessage `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &chat))

	t.Run("missing substance", func(t *testing.T) {
		w := doJSON(r, http.MethodPost, "/api/generate-report", map[string]interface{}{"results": chat.Results})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "Datos de reporte incompletos", decodeError(t, w).Error.Message)
	})

	t.Run("missing results", func(t *testing.T) {
		w := doJSON(r, http.MethodPost, "/api/generate-report", map[string]interface{}{"substance": "benceno"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("generate and download", func(t *testing.T) {
		w := doJSON(r, http.MethodPost, "/api/generate-report", map[string]interface{}{
			"substance":  "benceno",
			"results":    chat.Results,
			"user_query": "¿El benceno es irritante dérmico según QSAR?",
		})
		require.Equal(t, http.StatusOK, w.Code)

		var generated report.Generated
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &generated))
		assert.True(t, generated.Success)
		assert.True(t, strings.HasPrefix(generated.PDFURL, "/api/download-report/"+generated.ReportID+"?token="))
		assert.True(t, strings.HasSuffix(generated.ContentPreview, "..."))

		w = doJSON(r, http.MethodGet, generated.PDFURL, nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, report.DownloadContentType, w.Header().Get("Content-Type"))
		assert.Equal(t, "attachment; filename=reporte_qsar_benceno.txt", w.Header().Get("Content-Disposition"))
		assert.Contains(t, w.Body.String(), "Sustancia analizada: benceno")

		u, err := url.Parse(generated.PDFURL)
		require.NoError(t, err)
		w = doJSON(r, http.MethodGet, u.Path+"?token=forged", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "INVALID_REPORT_TOKEN", decodeError(t, w).Error.Code)
	})

	t.Run("unknown report", func(t *testing.T) {
		token, err := signer.Sign("nope")
		require.NoError(t, err)
		w := doJSON(r, http.MethodGet, "/api/download-report/nope?token="+token, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestHistoryEndpoint(t *testing.T) {
	r := setupRouter(t, RouterConfig{})

	doJSON(r, http.MethodPost, "/api/chat", ChatRequest{Message: "¿El benceno es irritante dérmico según QSAR?"})
	doJSON(r, http.MethodPost, "/api/chat", ChatRequest{Message: "dame la predicción según qsar"})

	w := doJSON(r, http.MethodGet, "/api/history?limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Entries []map[string]interface{} `json:"entries"`
		Count   int                      `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, false, body.Entries[0]["valid"])

	w = doJSON(r, http.MethodGet, "/api/history?limit=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	checker := observability.NewHealthChecker("qsar-chat", "test")
	checker.Register("catalog", observability.CatalogHealthCheck("1.0.0-MVP", 8, 8))
	r := setupRouter(t, RouterConfig{}, WithHealthChecker(checker))

	w := doJSON(r, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)

	doJSON(r, http.MethodGet, "/api/examples", nil)
	w = doJSON(r, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "qsar_http_requests_total")
}

func TestRateLimitedRoutes(t *testing.T) {
	r := setupRouter(t, RouterConfig{RateLimiter: ratelimit.New(1, time.Minute)})

	assert.Equal(t, http.StatusOK, doJSON(r, http.MethodGet, "/api/examples", nil).Code)
	w := doJSON(r, http.MethodGet, "/api/examples", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "RATE_LIMITED", decodeError(t, w).Error.Code)

	assert.Equal(t, http.StatusOK, doJSON(r, http.MethodGet, "/health", nil).Code, "health is not rate limited")
}

func TestGetErrorStatusCode(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, getErrorStatusCode(assert.AnError))

	body := formatErrorResponse(assert.AnError)["error"].(gin.H)
	assert.EqualValues(t, "INTERNAL_ERROR", body["code"])
	assert.Equal(t, "Error interno del servidor", body["message"])
	assert.NotContains(t, body, "details")
	assert.NotContains(t, body, "metadata")
}
