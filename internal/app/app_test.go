package app

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/odyssey-procure/internal/observability"
	"github.com/odyssey-erp/odyssey-procure/internal/shared"
	"github.com/odyssey-erp/odyssey-procure/jobs"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "BRL", cfg.Currency)
	require.Equal(t, "pt-BR", cfg.Locale)
	require.Equal(t, 120, cfg.RateLimitPerMinute)
	require.Equal(t, "0 3 * * *", cfg.PayablesSweepCron)
	require.False(t, cfg.IsProduction())
}

func TestConfigValidate(t *testing.T) {
	valid := Config{Currency: "BRL", Locale: "pt-BR", LogLevel: "debug", RateLimitPerMinute: 1}
	require.NoError(t, valid.Validate())

	cases := map[string]func(*Config){
		"currency length": func(c *Config) { c.Currency = "REAL" },
		"unknown currency": func(c *Config) { c.Currency = "ABC" },
		"locale":           func(c *Config) { c.Locale = "not a locale!" },
		"log level":        func(c *Config) { c.LogLevel = "loud" },
		"rate limit":       func(c *Config) { c.RateLimitPerMinute = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := valid
			mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestActorMiddleware(t *testing.T) {
	var seen string
	h := ActorMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = shared.ActorFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(ActorHeader, "  Ana Costa ")
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.Equal(t, "Ana Costa", seen)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, shared.SystemActor, seen)
}

func TestRouterProtectsAPIWithToken(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	router := NewRouter(RouterParams{
		Config:     &Config{RateLimitPerMinute: 100, APITokenHash: string(hash)},
		Metrics:    observability.NewMetrics(),
		JobHandler: jobs.NewHandler(nil, nil),
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/jobs/health", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/jobs/health", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"queue":"default"`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "odyssey_http_requests_total")
}

func TestRouterWithoutTokenHashIsOpen(t *testing.T) {
	router := NewRouter(RouterParams{JobHandler: jobs.NewHandler(nil, nil)})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}
