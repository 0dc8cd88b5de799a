package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// PerformJSON sends a request with an optional JSON body through the engine
// and returns the recorded response.
func PerformJSON(t *testing.T, engine *gin.Engine, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err, "Failed to marshal request body")
		req = httptest.NewRequest(method, path, bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

// DecodeJSON parses a recorded response body into a generic map.
func DecodeJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var result map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result), "Failed to parse JSON response")
	return result
}

// AssertSuccessEnvelope checks the standard success envelope shape.
func AssertSuccessEnvelope(t *testing.T, w *httptest.ResponseRecorder) {
	t.Helper()

	resp := DecodeJSON(t, w)
	success, _ := resp["success"].(bool)
	assert.True(t, success, "Expected success envelope")
	assert.Nil(t, resp["error"], "Expected no error in envelope")
}

// AssertErrorEnvelope checks the standard error envelope and its code.
func AssertErrorEnvelope(t *testing.T, w *httptest.ResponseRecorder, expectedCode string) {
	t.Helper()

	resp := DecodeJSON(t, w)
	success, _ := resp["success"].(bool)
	assert.False(t, success, "Expected error envelope")

	errMap, ok := resp["error"].(map[string]interface{})
	require.True(t, ok, "Expected error object in envelope")
	assert.Equal(t, expectedCode, errMap["code"], "Unexpected error code")
}
