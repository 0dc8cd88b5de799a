package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assettrack/backend/internal/infrastructure/auth"
	"github.com/assettrack/backend/internal/infrastructure/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestJWTService() *auth.JWTService {
	cfg := config.JWTConfig{
		Secret:                 "test-secret-key-at-least-32-chars",
		RefreshSecret:          "test-refresh-secret-key-32-chars",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 7 * 24 * time.Hour,
		Issuer:                 "test-issuer",
		MaxRefreshCount:        10,
	}
	return auth.NewJWTService(cfg)
}

func issueToken(t *testing.T, jwtService *auth.JWTService) (string, auth.GenerateTokenInput) {
	t.Helper()
	input := auth.GenerateTokenInput{
		TenantID: uuid.New(),
		UserID:   uuid.New(),
		Username: "counter-1",
	}
	pair, err := jwtService.GenerateTokenPair(input)
	require.NoError(t, err)
	return pair.AccessToken, input
}

func authRouter(cfg JWTMiddlewareConfig, inspect func(c *gin.Context)) *gin.Engine {
	router := gin.New()
	router.Use(JWTAuthMiddlewareWithConfig(cfg))
	handler := func(c *gin.Context) {
		if inspect != nil {
			inspect(c)
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
	router.GET("/api/v1/assets", handler)
	router.GET("/health", handler)
	router.GET("/api/v1/system/info", handler)
	return router
}

func doGet(router *gin.Engine, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuth_ValidTokenPopulatesContext(t *testing.T) {
	jwtService := newTestJWTService()
	token, input := issueToken(t, jwtService)

	var gotUser, gotTenant string
	router := authRouter(DefaultJWTConfig(jwtService), func(c *gin.Context) {
		gotUser = GetJWTUserID(c)
		gotTenant = GetJWTTenantID(c)
	})

	rec := doGet(router, "/api/v1/assets", "Bearer "+token)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, input.UserID.String(), gotUser)
	assert.Equal(t, input.TenantID.String(), gotTenant)
}

func TestJWTAuth_RejectsBadHeaders(t *testing.T) {
	jwtService := newTestJWTService()
	router := authRouter(DefaultJWTConfig(jwtService), nil)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"no bearer prefix", "Token abc123"},
		{"empty token", "Bearer "},
		{"garbage token", "Bearer not.a.jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doGet(router, "/api/v1/assets", tt.header)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Body.String(), `"success":false`)
		})
	}
}

func TestJWTAuth_ExpiredTokenNamed(t *testing.T) {
	cfg := config.JWTConfig{
		Secret:                 "test-secret-key-at-least-32-chars",
		RefreshSecret:          "test-refresh-secret-key-32-chars",
		AccessTokenExpiration:  -time.Minute,
		RefreshTokenExpiration: time.Hour,
		Issuer:                 "test-issuer",
	}
	jwtService := auth.NewJWTService(cfg)
	token, _ := issueToken(t, jwtService)

	router := authRouter(DefaultJWTConfig(jwtService), nil)
	rec := doGet(router, "/api/v1/assets", "Bearer "+token)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "TOKEN_EXPIRED")
}

func TestJWTAuth_SkipPathsBypassAuthentication(t *testing.T) {
	jwtService := newTestJWTService()
	router := authRouter(DefaultJWTConfig(jwtService), nil)

	assert.Equal(t, http.StatusOK, doGet(router, "/health", "").Code)
	assert.Equal(t, http.StatusOK, doGet(router, "/api/v1/system/info", "").Code, "system prefix stays open")
	assert.Equal(t, http.StatusUnauthorized, doGet(router, "/api/v1/assets", "").Code)
}

func TestJWTAuth_RevokedTokenRejected(t *testing.T) {
	jwtService := newTestJWTService()
	token, _ := issueToken(t, jwtService)

	claims, err := jwtService.ValidateAccessToken(token)
	require.NoError(t, err)
	require.NotEmpty(t, claims.ID)

	blacklist := auth.NewInMemoryTokenBlacklist()
	require.NoError(t, blacklist.AddToBlacklist(context.Background(), claims.ID, time.Hour))

	cfg := DefaultJWTConfig(jwtService)
	cfg.TokenBlacklist = blacklist
	router := authRouter(cfg, nil)

	rec := doGet(router, "/api/v1/assets", "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "TOKEN_REVOKED")
}

func TestJWTAuth_UserWideInvalidationRejected(t *testing.T) {
	jwtService := newTestJWTService()
	token, input := issueToken(t, jwtService)

	// Let the invalidation timestamp land strictly after token issuance.
	time.Sleep(5 * time.Millisecond)
	blacklist := auth.NewInMemoryTokenBlacklist()
	require.NoError(t, blacklist.AddUserTokensToBlacklist(context.Background(), input.UserID.String(), time.Hour))

	cfg := DefaultJWTConfig(jwtService)
	cfg.TokenBlacklist = blacklist
	router := authRouter(cfg, nil)

	rec := doGet(router, "/api/v1/assets", "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuth_OnErrorOverridesResponse(t *testing.T) {
	jwtService := newTestJWTService()
	cfg := DefaultJWTConfig(jwtService)
	cfg.OnError = func(c *gin.Context, err error) {
		c.AbortWithStatusJSON(http.StatusTeapot, gin.H{"custom": true})
	}
	router := authRouter(cfg, nil)

	rec := doGet(router, "/api/v1/assets", "")
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Contains(t, rec.Body.String(), "custom")
}

func TestGetJWTAccessors_EmptyWithoutAuthentication(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	assert.Empty(t, GetJWTUserID(c))
	assert.Empty(t, GetJWTTenantID(c))
}
