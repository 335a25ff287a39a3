package interfaces

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"referral-intake/infrastructure"
)

func TestRequestLogger_LogsAndCounts(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.DebugLevel)
	metrics := infrastructure.NewMetrics(prometheus.NewRegistry())

	router := gin.New()
	router.Use(RequestLogger(zap.New(core), metrics))
	router.GET("/items/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items/42", nil))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "HTTP request", entry.Message)
	assert.Equal(t, zap.DebugLevel, entry.Level)
	assert.Equal(t, "/items/42", entry.ContextMap()["path"])
	assert.EqualValues(t, http.StatusNotFound, entry.ContextMap()["status"])

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues("GET", "/items/:id", "404")))
}

func TestRequestLogger_WarnsOnServerErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.WarnLevel)

	router := gin.New()
	router.Use(RequestLogger(zap.New(core), nil))
	router.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, zap.WarnLevel, logs.All()[0].Level)
}

func TestRequestLogger_NilLoggerPassesThrough(t *testing.T) {
	gin.SetMode(gin.TestMode)
	called := false

	router := gin.New()
	router.Use(RequestLogger(nil, nil))
	router.GET("/ok", func(c *gin.Context) {
		called = true
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))

	assert.True(t, called)
	assert.Equal(t, http.StatusOK, w.Code)
}
