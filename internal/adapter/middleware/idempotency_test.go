package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

const testKey = "0f8fad5b-d9cb-469f-a165-70867728950e"

// helper: new Echo with the middleware and a simple route
func setupEcho(rdb *redis.Client, ttl time.Duration, handler echo.HandlerFunc) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(Idempotency(rdb, ttl, nil))
	e.POST("/api/calculate", handler)
	e.GET("/api/calculate", handler) // for non-mutating bypass test
	return e
}

func mkJSONBody(t *testing.T, v any) io.Reader {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return bytes.NewReader(b)
}

func doReq(t *testing.T, e *echo.Echo, method, path string, body io.Reader, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func newMiniredisClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

// countingHandler answers 200 with a call counter so replays are observable
func countingHandler(calls *int32) echo.HandlerFunc {
	return func(c echo.Context) error {
		n := atomic.AddInt32(calls, 1)
		return c.JSON(http.StatusOK, map[string]any{"call": n})
	}
}

func Test_BypassOnGET(t *testing.T) {
	mr, rdb := newMiniredisClient(t)
	defer mr.Close()
	var calls int32
	e := setupEcho(rdb, 30*time.Second, countingHandler(&calls))
	rec := doReq(t, e, http.MethodGet, "/api/calculate", nil, map[string]string{HeaderIdempotencyKey: testKey})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(mr.Keys()) != 0 {
		t.Fatalf("GET must not touch the store, keys=%v", mr.Keys())
	}
}

func Test_BypassWithoutHeader(t *testing.T) {
	mr, rdb := newMiniredisClient(t)
	defer mr.Close()
	var calls int32
	e := setupEcho(rdb, 30*time.Second, countingHandler(&calls))
	for i := 0; i < 2; i++ {
		rec := doReq(t, e, http.MethodPost, "/api/calculate", mkJSONBody(t, map[string]int{"x": 1}), nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if rec.Header().Get(HeaderReplayed) != "" {
			t.Fatalf("no replay expected without %s", HeaderIdempotencyKey)
		}
	}
	if calls != 2 {
		t.Fatalf("handler calls = %d, want 2", calls)
	}
}

func Test_InvalidKeyFormat(t *testing.T) {
	mr, rdb := newMiniredisClient(t)
	defer mr.Close()
	var calls int32
	e := setupEcho(rdb, 30*time.Second, countingHandler(&calls))
	for _, k := range []string{"NOT-VALID", "abc", strings.Repeat("z", 32)} {
		rec := doReq(t, e, http.MethodPost, "/api/calculate", mkJSONBody(t, map[string]int{"x": 1}), map[string]string{HeaderIdempotencyKey: k})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("key %q => want 400, got %d", k, rec.Code)
		}
	}
	if calls != 0 {
		t.Fatalf("handler must not run on invalid key, calls=%d", calls)
	}
}

func Test_ReplaysSameKeySameBody(t *testing.T) {
	mr, rdb := newMiniredisClient(t)
	defer mr.Close()
	var calls int32
	e := setupEcho(rdb, 30*time.Second, countingHandler(&calls))
	hdr := map[string]string{HeaderIdempotencyKey: testKey}
	body := map[string]float64{"loanAmount": 1000, "interestRate": 12, "duration": 12}

	first := doReq(t, e, http.MethodPost, "/api/calculate", mkJSONBody(t, body), hdr)
	if first.Code != http.StatusOK {
		t.Fatalf("first call => want 200, got %d", first.Code)
	}
	second := doReq(t, e, http.MethodPost, "/api/calculate", mkJSONBody(t, body), hdr)
	if second.Code != http.StatusOK {
		t.Fatalf("replay => want 200, got %d", second.Code)
	}
	if second.Header().Get(HeaderReplayed) != "true" {
		t.Fatalf("replay header missing")
	}
	if first.Body.String() != second.Body.String() {
		t.Fatalf("replayed body differs:\n%s\n%s", first.Body.String(), second.Body.String())
	}
	if calls != 1 {
		t.Fatalf("handler calls = %d, want 1", calls)
	}

	key := buildKey(http.MethodPost, "/api/calculate", "192.0.2.1", testKey)
	if ttl := mr.TTL(key); ttl <= 0 || ttl > 30*time.Second {
		t.Fatalf("final TTL = %v, want (0, 30s]", ttl)
	}
}

func Test_KeyCaseInsensitive(t *testing.T) {
	mr, rdb := newMiniredisClient(t)
	defer mr.Close()
	var calls int32
	e := setupEcho(rdb, 30*time.Second, countingHandler(&calls))
	body := map[string]int{"x": 1}
	doReq(t, e, http.MethodPost, "/api/calculate", mkJSONBody(t, body), map[string]string{HeaderIdempotencyKey: testKey})
	rec := doReq(t, e, http.MethodPost, "/api/calculate", mkJSONBody(t, body), map[string]string{HeaderIdempotencyKey: strings.ToUpper(testKey)})
	if rec.Header().Get(HeaderReplayed) != "true" || calls != 1 {
		t.Fatalf("upper-case key should replay, calls=%d", calls)
	}
}

func Test_ConflictOnDifferentBody(t *testing.T) {
	mr, rdb := newMiniredisClient(t)
	defer mr.Close()
	var calls int32
	e := setupEcho(rdb, 30*time.Second, countingHandler(&calls))
	hdr := map[string]string{HeaderIdempotencyKey: testKey}

	doReq(t, e, http.MethodPost, "/api/calculate", mkJSONBody(t, map[string]int{"x": 1}), hdr)
	rec := doReq(t, e, http.MethodPost, "/api/calculate", mkJSONBody(t, map[string]int{"x": 2}), hdr)
	if rec.Code != http.StatusConflict {
		t.Fatalf("different body => want 409, got %d", rec.Code)
	}
	if calls != 1 {
		t.Fatalf("handler calls = %d, want 1", calls)
	}
}

func Test_ConflictWhileInProgress(t *testing.T) {
	mr, rdb := newMiniredisClient(t)
	defer mr.Close()
	var calls int32
	e := setupEcho(rdb, 30*time.Second, countingHandler(&calls))

	raw := []byte(`{"x":1}`)
	key := buildKey(http.MethodPost, "/api/calculate", "192.0.2.1", testKey)
	pending, _ := json.Marshal(idempEntry{InProgress: true, BodySHA256: bodyHash(raw), Key: testKey})
	if err := mr.Set(key, string(pending)); err != nil {
		t.Fatalf("seed: %v", err)
	}

	rec := doReq(t, e, http.MethodPost, "/api/calculate", bytes.NewReader(raw), map[string]string{HeaderIdempotencyKey: testKey})
	if rec.Code != http.StatusConflict {
		t.Fatalf("in progress => want 409, got %d", rec.Code)
	}
	if calls != 0 {
		t.Fatalf("handler must not run while in progress, calls=%d", calls)
	}
}

func Test_ClientErrorsAreReplayed(t *testing.T) {
	mr, rdb := newMiniredisClient(t)
	defer mr.Close()
	var calls int32
	e := setupEcho(rdb, 30*time.Second, func(c echo.Context) error {
		atomic.AddInt32(&calls, 1)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid loanAmount: must be greater than 0"})
	})
	hdr := map[string]string{HeaderIdempotencyKey: testKey}
	body := map[string]int{"loanAmount": 0}

	doReq(t, e, http.MethodPost, "/api/calculate", mkJSONBody(t, body), hdr)
	rec := doReq(t, e, http.MethodPost, "/api/calculate", mkJSONBody(t, body), hdr)
	if rec.Code != http.StatusBadRequest || rec.Header().Get(HeaderReplayed) != "true" {
		t.Fatalf("want replayed 400, got %d replayed=%q", rec.Code, rec.Header().Get(HeaderReplayed))
	}
	if calls != 1 {
		t.Fatalf("handler calls = %d, want 1", calls)
	}
}

func Test_ServerErrorsReleaseKey(t *testing.T) {
	mr, rdb := newMiniredisClient(t)
	defer mr.Close()
	var calls int32
	e := setupEcho(rdb, 30*time.Second, func(c echo.Context) error {
		if atomic.AddInt32(&calls, 1) == 1 {
			return echo.NewHTTPError(http.StatusInternalServerError, "boom")
		}
		return c.JSON(http.StatusOK, map[string]bool{"ok": true})
	})
	hdr := map[string]string{HeaderIdempotencyKey: testKey}

	first := doReq(t, e, http.MethodPost, "/api/calculate", mkJSONBody(t, map[string]int{"x": 1}), hdr)
	if first.Code != http.StatusInternalServerError {
		t.Fatalf("first => want 500, got %d", first.Code)
	}
	if len(mr.Keys()) != 0 {
		t.Fatalf("5xx must not be stored, keys=%v", mr.Keys())
	}
	second := doReq(t, e, http.MethodPost, "/api/calculate", mkJSONBody(t, map[string]int{"x": 1}), hdr)
	if second.Code != http.StatusOK || second.Header().Get(HeaderReplayed) != "" {
		t.Fatalf("retry after 5xx should run the handler, got %d", second.Code)
	}
	if calls != 2 {
		t.Fatalf("handler calls = %d, want 2", calls)
	}
}

func Test_StoreUnavailable(t *testing.T) {
	mr, rdb := newMiniredisClient(t)
	var calls int32
	e := setupEcho(rdb, 30*time.Second, countingHandler(&calls))
	mr.Close()

	rec := doReq(t, e, http.MethodPost, "/api/calculate", mkJSONBody(t, map[string]int{"x": 1}), map[string]string{HeaderIdempotencyKey: testKey})
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("store down => want 503, got %d", rec.Code)
	}
	if calls != 0 {
		t.Fatalf("handler must not run without the store, calls=%d", calls)
	}
}

// expireAfterSetNX makes the first SETNX lose to an entry that is gone by the
// time it is read, like a key expiring between the two calls.
type expireAfterSetNX struct {
	mr    *miniredis.Miniredis
	key   string
	entry string
	fired bool
}

func (h *expireAfterSetNX) DialHook(next redis.DialHook) redis.DialHook { return next }
func (h *expireAfterSetNX) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}
func (h *expireAfterSetNX) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		if h.fired || !isSetNX(cmd) {
			return next(ctx, cmd)
		}
		h.fired = true
		_ = h.mr.Set(h.key, h.entry)
		err := next(ctx, cmd)
		h.mr.Del(h.key)
		return err
	}
}

func isSetNX(cmd redis.Cmder) bool {
	if cmd.Name() == "setnx" {
		return true
	}
	for _, a := range cmd.Args() {
		if strings.EqualFold(fmt.Sprint(a), "nx") {
			return true
		}
	}
	return false
}

func Test_KeyExpiredBeforeReadIsClaimedAgain(t *testing.T) {
	mr, rdb := newMiniredisClient(t)
	defer mr.Close()
	var calls int32
	e := setupEcho(rdb, 30*time.Second, countingHandler(&calls))

	raw := []byte(`{"x":1}`)
	key := buildKey(http.MethodPost, "/api/calculate", "192.0.2.1", testKey)
	stale, _ := json.Marshal(idempEntry{InProgress: true, BodySHA256: bodyHash(raw), Key: testKey})
	hook := &expireAfterSetNX{mr: mr, key: key, entry: string(stale)}
	rdb.AddHook(hook)

	rec := doReq(t, e, http.MethodPost, "/api/calculate", bytes.NewReader(raw), map[string]string{HeaderIdempotencyKey: testKey})
	if !hook.fired {
		t.Fatalf("SETNX was never intercepted")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expired key => want 200, got %d; body=%s", rec.Code, rec.Body.String())
	}
	if calls != 1 {
		t.Fatalf("handler calls = %d, want 1", calls)
	}
	if !mr.Exists(key) {
		t.Fatalf("final entry not stored")
	}
}
