package datafeed

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	v1 "github.com/anomalab/datafeed/internal/api/v1"
	dferrors "github.com/anomalab/datafeed/internal/core/errors"
)

func newTestRouter(t *testing.T) (*gin.Engine, *Registry) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	registry, _ := newTestRegistry()
	handler := NewHandler(registry, testService())

	r := gin.New()
	handler.RegisterRoutes(r)
	return r, registry
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestPutDatafeed(t *testing.T) {
	r, _ := newTestRouter(t)

	resp := doJSON(t, r, http.MethodPut, "/v1/datafeeds/datafeed-farequote", aggregatedConfig(hourlyBuckets))
	require.Equal(t, http.StatusOK, resp.Code)

	var stored v1.DatafeedConfig
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &stored))
	require.Equal(t, "datafeed-farequote", stored.ID)
	require.Equal(t, "farequote", stored.JobID)
	require.False(t, stored.CreatedAt.IsZero())
}

func TestPutDatafeed_InvalidConfig(t *testing.T) {
	r, _ := newTestRouter(t)

	config := aggregatedConfig(`{"a":{"terms":{"field":"airline"}}}`)
	resp := doJSON(t, r, http.MethodPut, "/v1/datafeeds/datafeed-bad", config)
	require.Equal(t, http.StatusBadRequest, resp.Code)

	var errResp dferrors.ErrorResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &errResp))
	require.Equal(t, dferrors.HttpInvalidConfigError, errResp.ErrorType)
	require.Contains(t, errResp.Message, "date bucketing aggregation")
}

func TestPutDatafeed_MalformedBody(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPut, "/v1/datafeeds/datafeed-x", bytes.NewReader([]byte("not json")))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	require.Equal(t, http.StatusBadRequest, resp.Code)

	var errResp dferrors.ErrorResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &errResp))
	require.Equal(t, dferrors.HttpInvalidJsonError, errResp.ErrorType)
}

func TestPutDatafeed_JobConflict(t *testing.T) {
	r, _ := newTestRouter(t)

	resp := doJSON(t, r, http.MethodPut, "/v1/datafeeds/datafeed-one", aggregatedConfig(hourlyBuckets))
	require.Equal(t, http.StatusOK, resp.Code)

	resp = doJSON(t, r, http.MethodPut, "/v1/datafeeds/datafeed-two", aggregatedConfig(hourlyBuckets))
	require.Equal(t, http.StatusConflict, resp.Code)

	var errResp dferrors.ErrorResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &errResp))
	require.Equal(t, dferrors.HttpDuplicateDatafeed, errResp.ErrorType)
}

func TestGetDatafeed_NotFound(t *testing.T) {
	r, _ := newTestRouter(t)

	resp := doJSON(t, r, http.MethodGet, "/v1/datafeeds/datafeed-missing", nil)
	require.Equal(t, http.StatusNotFound, resp.Code)

	var errResp dferrors.ErrorResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &errResp))
	require.Equal(t, dferrors.HttpDatafeedNotFound, errResp.ErrorType)
}

func TestListDatafeeds(t *testing.T) {
	r, registry := newTestRouter(t)

	_, err := registry.Put(context.Background(), aggregatedConfig(hourlyBuckets))
	require.NoError(t, err)

	resp := doJSON(t, r, http.MethodGet, "/v1/datafeeds", nil)
	require.Equal(t, http.StatusOK, resp.Code)

	var result struct {
		Count     int                  `json:"count"`
		Datafeeds []*v1.DatafeedConfig `json:"datafeeds"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &result))
	require.Equal(t, 1, result.Count)
	require.Len(t, result.Datafeeds, 1)
}

func TestDeleteDatafeed(t *testing.T) {
	r, registry := newTestRouter(t)

	stored, err := registry.Put(context.Background(), aggregatedConfig(hourlyBuckets))
	require.NoError(t, err)

	resp := doJSON(t, r, http.MethodDelete, "/v1/datafeeds/"+stored.ID, nil)
	require.Equal(t, http.StatusOK, resp.Code)

	resp = doJSON(t, r, http.MethodGet, "/v1/datafeeds/"+stored.ID, nil)
	require.Equal(t, http.StatusNotFound, resp.Code)
}

func TestValidateDatafeed(t *testing.T) {
	r, _ := newTestRouter(t)

	resp := doJSON(t, r, http.MethodPost, "/v1/datafeeds/_validate", aggregatedConfig(hourlyBuckets))
	require.Equal(t, http.StatusOK, resp.Code)

	var result struct {
		Valid      bool       `json:"valid"`
		Resolution Resolution `json:"resolution"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &result))
	require.True(t, result.Valid)
	require.Equal(t, int64(3600000), result.Resolution.BucketSpanMillis)
}

func TestValidateDatafeed_WithWindow(t *testing.T) {
	r, _ := newTestRouter(t)

	resp := doJSON(t, r, http.MethodPost, "/v1/datafeeds/_validate?start=1000&end=2000", aggregatedConfig(hourlyBuckets))
	require.Equal(t, http.StatusOK, resp.Code)

	var result map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &result))

	searchQuery, ok := result["search_query"].(map[string]interface{})
	require.True(t, ok, "expected a search_query in the response, got %v", result)
	require.Contains(t, searchQuery, "bool")
}

func TestValidateDatafeed_BadWindow(t *testing.T) {
	r, _ := newTestRouter(t)

	resp := doJSON(t, r, http.MethodPost, "/v1/datafeeds/_validate?start=soon&end=2000", aggregatedConfig(hourlyBuckets))
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestValidateDatafeed_InvalidConfig(t *testing.T) {
	r, _ := newTestRouter(t)

	config := aggregatedConfig(`{"a":{"date_histogram":{"field":"ts","calendar_interval":"year"}}}`)
	resp := doJSON(t, r, http.MethodPost, "/v1/datafeeds/_validate", config)
	require.Equal(t, http.StatusBadRequest, resp.Code)

	var errResp dferrors.ErrorResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &errResp))
	require.Equal(t, dferrors.HttpInvalidConfigError, errResp.ErrorType)
	require.Contains(t, errResp.Message, "variable length")
}
