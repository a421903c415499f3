package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/address-converter/app/config"
	"github.com/address-converter/app/controllers"
	"github.com/address-converter/app/responses"
	"github.com/address-converter/app/services"
	"github.com/address-converter/helpers/utils"
	"github.com/address-converter/internal/metrics"
	"github.com/address-converter/internal/registry"
	"github.com/address-converter/internal/store"
	"github.com/address-converter/internal/testutil"
)

const testAdminToken = "secret"

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	st, err := store.OpenSQLite(dsn, logger)
	require.NoError(t, err)
	sqlDB, err := st.DB().DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.Seed(context.Background(), testutil.Dataset()))

	cfg := config.Defaults()
	cfg.HTTP.AdminToken = testAdminToken
	cfg.HTTP.RateLimitRPS = 0

	holder := registry.NewHolder(nil)
	m := metrics.New()
	l1, err := services.NewLRUCacheService(100, logger)
	require.NoError(t, err)
	cache := services.NewHybridCacheService(l1, nil, m, logger)

	adminService := services.NewAdminService(holder, st, cache, nil, m, logger)
	_, err = adminService.Reload(context.Background())
	require.NoError(t, err)

	ctrl := Controllers{
		Conversion: controllers.NewConversionController(services.NewConversionService(holder, cfg.Conversion, cache, m, logger), logger),
		Address:    controllers.NewAddressController(services.NewAddressService(holder, cfg.Search, m, logger), logger),
		Admin:      controllers.NewAdminController(adminService, logger),
	}
	router := gin.New()
	SetupAllRoutes(router, ctrl, cfg.HTTP, m, logger)
	return router
}

func do(router *gin.Engine, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func TestForwardAndReverse(t *testing.T) {
	router := setupRouter(t)

	w := do(router, http.MethodGet, "/v1/conversions/forward?province_id=1&district_id=5&ward_id=21", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var fwd struct {
		Default    struct{ NewWardCode string `json:"new_ward_code"` } `json:"default"`
		Candidates []json.RawMessage                                 `json:"candidates"`
		Level      string                                            `json:"level"`
	}
	decode(t, w, &fwd)
	assert.Equal(t, "00005", fwd.Default.NewWardCode)
	assert.Len(t, fwd.Candidates, 1)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	w = do(router, http.MethodGet, "/v1/conversions/reverse?province_code=01&ward_code=00008", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var rev responses.ReverseResponse
	decode(t, w, &rev)
	assert.Equal(t, 2, rev.Total)
}

func TestForwardErrors(t *testing.T) {
	router := setupRouter(t)

	tests := []struct {
		name   string
		path   string
		status int
		code   string
	}{
		{"missing ward", "/v1/conversions/forward?province_id=1&district_id=5", http.StatusBadRequest, controllers.CodeInvalidRequest},
		{"bad accuracy", "/v1/conversions/forward?province_id=1&district_id=5&ward_id=20&min_accuracy=150", http.StatusBadRequest, controllers.CodeInvalidRequest},
		{"not found", "/v1/conversions/forward?province_id=8&district_id=99&ward_id=99", http.StatusNotFound, controllers.CodeConversionNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(router, http.MethodGet, tt.path, nil)
			assert.Equal(t, tt.status, w.Code)
			var resp responses.ErrorResponse
			decode(t, w, &resp)
			assert.Equal(t, tt.code, resp.Error)
			assert.NotEmpty(t, resp.RequestID)
		})
	}
}

func TestBatchAndNormalize(t *testing.T) {
	router := setupRouter(t)

	w := do(router, http.MethodPost, "/v1/conversions/batch", map[string]any{
		"addresses": []map[string]int64{
			{"province_id": 1, "district_id": 5, "ward_id": 20},
			{"province_id": 8, "district_id": 99, "ward_id": 99},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var batch services.BatchResult
	decode(t, w, &batch)
	assert.Equal(t, 2, batch.Total)
	assert.Equal(t, 1, batch.Succeeded)
	assert.Equal(t, 1, batch.Failed)

	w = do(router, http.MethodPost, "/v1/conversions/batch", map[string]any{"addresses": []any{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(router, http.MethodPost, "/v1/conversions/normalize", map[string]any{
		"structure": "NEW",
		"new":       map[string]string{"province_code": "01", "ward_code": "00008"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var norm struct {
		Structure string            `json:"structure"`
		Old       []json.RawMessage `json:"old"`
	}
	decode(t, w, &norm)
	assert.Equal(t, "NEW", norm.Structure)
	assert.Len(t, norm.Old, 2)
}

func TestAddressRoutes(t *testing.T) {
	router := setupRouter(t)

	w := do(router, http.MethodGet, "/v1/addresses/search?q=Ba%20%C4%90%C3%ACnh", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var sr responses.SearchResponse
	decode(t, w, &sr)
	require.NotZero(t, sr.Total)
	assert.Equal(t, 1.0, sr.Results[0].Score)

	w = do(router, http.MethodGet, "/v1/addresses/search", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(router, http.MethodPost, "/v1/addresses/validate", map[string]any{
		"address_type":      "NEW",
		"new_province_code": "01",
		"new_ward_code":     "00005",
		"project_id":        900,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var vr responses.ValidateAddressResponse
	decode(t, w, &vr)
	assert.Equal(t, "Vinhomes Metropolis, Phường Giảng Võ, Hà Nội", vr.DisplayAddress)

	w = do(router, http.MethodPost, "/v1/addresses/validate", map[string]any{
		"address_type": "OLD",
		"province_id":  1,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	var er responses.ErrorResponse
	decode(t, w, &er)
	assert.NotNil(t, er.Details)
}

func TestUnitAndHistoryRoutes(t *testing.T) {
	router := setupRouter(t)

	w := do(router, http.MethodGet, "/v1/units/legacy_ward/00001?include_inactive=true", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(router, http.MethodGet, "/v1/units/legacy_district/5/children?include_inactive=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list responses.UnitListResponse
	decode(t, w, &list)
	assert.Equal(t, 4, list.Total)

	w = do(router, http.MethodGet, "/v1/units/ward/12345", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(router, http.MethodGet, "/v1/units/county/01", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(router, http.MethodGet, "/v1/history/province/02", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var h struct {
		IsMerged   bool `json:"is_merged"`
		MergedInto struct {
			Code string `json:"code"`
		} `json:"merged_into"`
	}
	decode(t, w, &h)
	assert.True(t, h.IsMerged)
	assert.Equal(t, "08", h.MergedInto.Code)

	w = do(router, http.MethodGet, "/v1/history/street/01", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminRoutes(t *testing.T) {
	router := setupRouter(t)

	w := do(router, http.MethodGet, "/v1/admin/stats", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(router, http.MethodGet, "/v1/admin/stats", nil, "Authorization", "Bearer "+testAdminToken)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(router, http.MethodPost, "/v1/admin/reload", nil, "X-Admin-Token", testAdminToken)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(router, http.MethodGet, "/v1/admin/consistency", nil, "X-Admin-Token", testAdminToken)
	require.Equal(t, http.StatusOK, w.Code)
	var cr responses.ConsistencyResponse
	decode(t, w, &cr)
	assert.NotEmpty(t, cr.SnapshotVersion)

	// chưa cấu hình Meilisearch
	w = do(router, http.MethodPost, "/v1/admin/index", nil, "X-Admin-Token", testAdminToken)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	// bỏ mapping mặc định mà không có thay thế
	w = do(router, http.MethodPost, "/v1/admin/corrections", map[string]any{"deactivate": []int64{2}}, "X-Admin-Token", testAdminToken)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthMetricsAndNoRoute(t *testing.T) {
	router := setupRouter(t)

	for _, path := range []string{"/health", "/ready", "/live", "/v1/health", "/"} {
		w := do(router, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	do(router, http.MethodGet, "/v1/conversions/forward?province_id=1&district_id=5&ward_id=20", nil)
	w := do(router, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `address_http_requests_total{method="GET",route="/v1/conversions/forward",status_code="200"}`)

	w = do(router, http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RateLimit(1, 1))
	router.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, do(router, http.MethodGet, "/x", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(router, http.MethodGet, "/x", nil).Code)
}

func TestRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestID())
	router.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(controllers.RequestIDKey)) })

	id := utils.GenerateUUID()
	w := do(router, http.MethodGet, "/x", nil, RequestIDHeader, id)
	assert.Equal(t, id, w.Header().Get(RequestIDHeader))
	assert.Equal(t, id, w.Body.String())

	for _, header := range []string{"", "abc", "<script>"} {
		w = do(router, http.MethodGet, "/x", nil, RequestIDHeader, header)
		got := w.Header().Get(RequestIDHeader)
		assert.True(t, utils.IsUUID(got), "header %q", header)
		assert.NotEqual(t, header, got)
	}
}
