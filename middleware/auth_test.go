package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"piazza/models"
	"piazza/observability"
)

var secret = []byte("test-secret")

func init() {
	gin.SetMode(gin.TestMode)
}

func protectedRouter() *gin.Engine {
	r := gin.New()
	r.Use(JWTAuthMiddleware(secret))
	r.GET("/whoami", func(c *gin.Context) {
		id, ok := CurrentIdentity(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"userId": id.UserID, "name": id.DisplayName})
	})
	return r
}

func TestJWTAuthMiddleware(t *testing.T) {
	alice := models.Identity{UserID: "u1", DisplayName: "alice"}
	valid, _, err := IssueToken(secret, alice, time.Hour, time.Now())
	require.NoError(t, err)
	expired, _, err := IssueToken(secret, alice, time.Hour, time.Now().Add(-2*time.Hour))
	require.NoError(t, err)
	forged, _, err := IssueToken([]byte("other"), alice, time.Hour, time.Now())
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: "u1"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{"bearer header", "Bearer " + valid, "", http.StatusOK},
		{"query parameter", "", valid, http.StatusOK},
		{"missing", "", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + valid, "", http.StatusUnauthorized},
		{"expired", "Bearer " + expired, "", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + forged, "", http.StatusUnauthorized},
		{"alg none", "Bearer " + none, "", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := "/whoami"
			if tt.query != "" {
				target += "?token=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			protectedRouter().ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusOK {
				assert.JSONEq(t, `{"userId":"u1","name":"alice"}`, w.Body.String())
			}
		})
	}
}

func TestJWTAuthMiddleware_SkipsPreflight(t *testing.T) {
	r := gin.New()
	r.Use(JWTAuthMiddleware(secret))
	r.OPTIONS("/whoami", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/whoami", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestIssueToken_Claims(t *testing.T) {
	now := time.Now().Truncate(time.Second)

	signed, expiresAt, err := IssueToken(secret, models.Identity{UserID: "u9", DisplayName: "zoe"}, 24*time.Hour, now)
	require.NoError(t, err)

	claims, err := ParseToken(secret, signed)
	require.NoError(t, err)
	assert.Equal(t, "u9", claims.UserID)
	assert.Equal(t, "zoe", claims.Name)
	assert.Equal(t, now.Add(24*time.Hour), expiresAt)
	assert.True(t, claims.ExpiresAt.Time.Equal(expiresAt))
}

func TestRequestLoggerAndMetrics(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	m := observability.NewMetrics(prometheus.NewRegistry())

	r := gin.New()
	r.Use(RequestLogger(logger), Metrics(m))
	r.GET("/api/posts/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/posts/abc", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	r.ServeHTTP(w, req)

	assert.Equal(t, "req-1", w.Header().Get(RequestIDHeader))
	assert.Contains(t, buf.String(), `"request_id":"req-1"`)
	assert.Contains(t, buf.String(), `"status":404`)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/posts/:id", "404")))
}
