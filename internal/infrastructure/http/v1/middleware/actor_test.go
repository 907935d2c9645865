package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "stockcore/internal/core/context"
	"stockcore/pkg/identity"
)

const actorTestSecret = "test-secret"

func actorTestRouter(t *testing.T, seen *string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorHandler())
	r.Use(Actor(identity.NewParser(identity.Config{Secret: actorTestSecret})))
	r.GET("/ping", func(c *gin.Context) {
		*seen = appctx.GetActorID(c.Request.Context())
		c.Status(http.StatusNoContent)
	})
	return r
}

func signActorToken(t *testing.T, uid string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, identity.Claims{UserID: uid})
	signed, err := token.SignedString([]byte(actorTestSecret))
	require.NoError(t, err)
	return signed
}

func TestActor_NoTokenIsSystem(t *testing.T) {
	var seen string
	r := actorTestRouter(t, &seen)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "system", seen)
}

func TestActor_ValidToken(t *testing.T) {
	var seen string
	r := actorTestRouter(t, &seen)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Authorization", "Bearer "+signActorToken(t, "u-42"))
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "u-42", seen)
}

func TestActor_InvalidTokenRejected(t *testing.T) {
	var seen string
	r := actorTestRouter(t, &seen)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, seen, "handler must not run")
}

func TestActor_MalformedHeaderIgnored(t *testing.T) {
	var seen string
	r := actorTestRouter(t, &seen)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "system", seen)
}
