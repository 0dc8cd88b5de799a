package testutil

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMockDB_RunsExpectedQueries(t *testing.T) {
	mock := NewMockDB(t)

	rows := mock.Mock.NewRows([]string{"count"}).AddRow(3)
	mock.Mock.ExpectQuery("SELECT count").WillReturnRows(rows)

	var count int64
	require.NoError(t, mock.DB.Raw("SELECT count(*) FROM assets").Scan(&count).Error)
	assert.Equal(t, int64(3), count)

	mock.ExpectationsWereMet(t)
}

func TestDeterministicIdentifiers(t *testing.T) {
	assert.Equal(t, TenantID("warehouse-north"), TenantID("warehouse-north"))
	assert.NotEqual(t, TenantID("warehouse-north"), TenantID("warehouse-south"))

	// Seed kinds are namespaced so an asset and a tenant with the same
	// name do not collide.
	assert.NotEqual(t, TenantID("pump-station-4"), AssetID("pump-station-4"))
	assert.NotEqual(t, AssetID("auditor-7"), UserID("auditor-7"))
}

func TestPerformJSON_PostsBodyWithContentType(t *testing.T) {
	engine := gin.New()
	engine.POST("/api/v1/inventory/submissions", func(c *gin.Context) {
		var payload map[string]interface{}
		require.NoError(t, c.ShouldBindJSON(&payload))
		assert.Equal(t, "application/json", c.GetHeader("Content-Type"))
		assert.Equal(t, "warehouse-north", c.GetHeader("X-Tenant-ID"))
		c.JSON(http.StatusOK, gin.H{"success": true, "data": payload})
	})

	w := PerformJSON(t, engine, http.MethodPost, "/api/v1/inventory/submissions",
		map[string]interface{}{"counted_quantity": 42},
		map[string]string{"X-Tenant-ID": "warehouse-north"},
	)

	assert.Equal(t, http.StatusOK, w.Code)
	AssertSuccessEnvelope(t, w)
}

func TestAssertErrorEnvelope(t *testing.T) {
	engine := gin.New()
	engine.GET("/api/v1/assets/missing", func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error":   gin.H{"code": "NOT_FOUND", "message": "asset not found"},
		})
	})

	w := PerformJSON(t, engine, http.MethodGet, "/api/v1/assets/missing", nil, nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	AssertErrorEnvelope(t, w, "NOT_FOUND")
}
