package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/stygo/stygo-backend/internal/config"
)

func cacheFixture(t *testing.T) (echo.MiddlewareFunc, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cfg := config.CacheConfig{
		Enabled:      true,
		TTL:          time.Minute,
		MaxBodyBytes: 1 << 20,
		KeyStrategy:  "route_query",
		Prefix:       "catalog",
		Methods:      map[string]bool{"GET": true},
	}
	cleanup := func() {
		rdb.Close()
		mr.Close()
	}
	return NewRedisCache(cfg, rdb), cleanup
}

func hitCache(mw echo.MiddlewareFunc, calls *int) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/products/all", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/v1/products/all")

	h := mw(func(c echo.Context) error {
		*calls++
		return c.JSON(http.StatusOK, echo.Map{"products": []string{"kurta"}})
	})
	_ = h(c)
	return rec
}

func TestRedisCacheReplaysSecondRead(t *testing.T) {
	mw, cleanup := cacheFixture(t)
	defer cleanup()

	calls := 0
	first := hitCache(mw, &calls)
	if first.Code != http.StatusOK || first.Header().Get("X-Cache") != "MISS" {
		t.Fatalf("first read: code=%d cache=%q", first.Code, first.Header().Get("X-Cache"))
	}
	second := hitCache(mw, &calls)
	if second.Code != http.StatusOK || second.Header().Get("X-Cache") != "HIT" {
		t.Fatalf("second read: code=%d cache=%q", second.Code, second.Header().Get("X-Cache"))
	}
	if calls != 1 {
		t.Fatalf("handler ran %d times, want 1", calls)
	}
	if first.Body.String() != second.Body.String() {
		t.Fatalf("cached body differs: %q vs %q", first.Body.String(), second.Body.String())
	}
}

func TestRedisCacheSkipsNonGet(t *testing.T) {
	mw, cleanup := cacheFixture(t)
	defer cleanup()

	calls := 0
	e := echo.New()
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/v1/products/all", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetPath("/v1/products/all")
		h := mw(func(c echo.Context) error {
			calls++
			return c.JSON(http.StatusOK, echo.Map{"ok": true})
		})
		_ = h(c)
		if rec.Header().Get("X-Cache") == "HIT" {
			t.Fatal("POST must never be served from cache")
		}
	}
	if calls != 2 {
		t.Fatalf("handler ran %d times, want 2", calls)
	}
}
