package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/annel0/voxel-level/internal/auth"
	"github.com/annel0/voxel-level/internal/cache"
	"github.com/annel0/voxel-level/internal/logging"
	"github.com/annel0/voxel-level/internal/vec"
	"github.com/annel0/voxel-level/internal/world"
	"github.com/annel0/voxel-level/internal/world/block"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, opts Options) (*LevelServer, *world.BlockLevel) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	lvl, err := world.NewBlockLevel(vec.New(2, 1, 1))
	require.NoError(t, err)
	lvl.SetVoxel(vec.New(40, 3, 3), block.Stone)

	opts.Registerer = prometheus.NewRegistry()
	opts.Logger = logging.NewWriterLogger("api", io.Discard, logging.ERROR)
	return NewLevelServer(lvl, opts), lvl
}

func do(t *testing.T, s *LevelServer, method, path string, body interface{}, header ...string) (*httptest.ResponseRecorder, GenericResponse) {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}

	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	var resp GenericResponse
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, Options{})
	w, _ := do(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestLevelInfo(t *testing.T) {
	s, lvl := newTestServer(t, Options{})
	w, resp := do(t, s, http.MethodGet, "/api/level", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, resp.Success)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, lvl.ID().String(), data["id"])
	assert.Equal(t, float64(2), data["chunks"])
	assert.Equal(t, float64(1), data["uniform_chunks"])
	assert.Equal(t, false, data["writable"])
	assert.Contains(t, data, "process")
}

func TestGetVoxel(t *testing.T) {
	s, _ := newTestServer(t, Options{})

	w, resp := do(t, s, http.MethodGet, "/api/voxel?x=40&y=3&z=3", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, "core:stone", data["block"])
	assert.Equal(t, true, data["solid"])
	assert.Equal(t, map[string]interface{}{"x": float64(1), "y": float64(0), "z": float64(0)}, data["chunk"])

	w, _ = do(t, s, http.MethodGet, "/api/voxel?x=-1&y=0&z=0", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = do(t, s, http.MethodGet, "/api/voxel?x=a&y=0&z=0", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSetVoxelDisabled(t *testing.T) {
	s, lvl := newTestServer(t, Options{})

	w, _ := do(t, s, http.MethodPut, "/api/voxel", SetVoxelRequest{X: 1, Y: 1, Z: 1, Block: "core:dirt"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	v, _ := lvl.GetVoxel(vec.New(1, 1, 1))
	assert.True(t, v.IsAir(), "при выключенной записи уровень не меняется")
}

func TestSetVoxelEnabled(t *testing.T) {
	s, lvl := newTestServer(t, Options{EnableWrites: true})

	w, _ := do(t, s, http.MethodPut, "/api/voxel", SetVoxelRequest{X: 1, Y: 2, Z: 3, Block: "core:dirt"})
	require.Equal(t, http.StatusOK, w.Code)
	v, _ := lvl.GetVoxel(vec.New(1, 2, 3))
	assert.Equal(t, block.Dirt, v)

	w, _ = do(t, s, http.MethodPut, "/api/voxel", SetVoxelRequest{X: 100, Y: 0, Z: 0, Block: "core:dirt"})
	assert.Equal(t, http.StatusNotFound, w.Code, "запись вне уровня отбрасывается")

	w, _ = do(t, s, http.MethodPut, "/api/voxel", map[string]int{"x": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSetVoxelUnknownBlock(t *testing.T) {
	s, lvl := newTestServer(t, Options{EnableWrites: true})

	w, resp := do(t, s, http.MethodPut, "/api/voxel", SetVoxelRequest{X: 1, Y: 2, Z: 3, Block: "mod:nothing"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, resp.Message, "mod:nothing")

	assert.False(t, lvl.IsSolid(vec.New(1, 2, 3)), "неизвестный блок не записывается")
}

func TestSetVoxelRequiresToken(t *testing.T) {
	authority, err := auth.NewAuthority("")
	require.NoError(t, err)
	hash, err := auth.HashPassword("builder-pass")
	require.NoError(t, err)

	s, lvl := newTestServer(t, Options{
		EnableWrites: true,
		Authority:    authority,
		Gate:         auth.NewPasswordGate(hash, authority, time.Hour),
	})
	req := SetVoxelRequest{X: 5, Y: 5, Z: 5, Block: "core:sand"}

	w, _ := do(t, s, http.MethodPut, "/api/voxel", req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = do(t, s, http.MethodPost, "/api/token", TokenRequest{Editor: "bob", Password: "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, resp := do(t, s, http.MethodPost, "/api/token", TokenRequest{Editor: "bob", Password: "builder-pass"})
	require.Equal(t, http.StatusOK, w.Code)
	token := resp.Data.(map[string]interface{})["token"].(string)

	w, _ = do(t, s, http.MethodPut, "/api/voxel", req, "Authorization", "Bearer "+token)
	require.Equal(t, http.StatusOK, w.Code)
	v, _ := lvl.GetVoxel(vec.New(5, 5, 5))
	assert.Equal(t, block.Sand, v)
}

func TestGetChunkCached(t *testing.T) {
	chunks, err := cache.NewMemoryCache(cache.Config{}, nil)
	require.NoError(t, err)
	defer chunks.Close()

	s, _ := newTestServer(t, Options{EnableWrites: true, Cache: chunks})

	w, resp := do(t, s, http.MethodGet, "/api/chunks/1/0/0", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	raw := resp.Data.(map[string]interface{})
	assert.Contains(t, raw["palette"], "core:stone")

	w, _ = do(t, s, http.MethodGet, "/api/chunks/1/0/0", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))

	// Запись в чанк сбрасывает кеш
	w, _ = do(t, s, http.MethodPut, "/api/voxel", SetVoxelRequest{X: 33, Y: 0, Z: 0, Block: "core:dirt"})
	require.Equal(t, http.StatusOK, w.Code)

	w, resp = do(t, s, http.MethodGet, "/api/chunks/1/0/0", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	raw = resp.Data.(map[string]interface{})
	assert.Contains(t, raw["palette"], "core:dirt")
	assert.Equal(t, int64(1), chunks.Metrics().Invalidations)

	w, _ = do(t, s, http.MethodGet, "/api/chunks/5/0/0", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w, _ = do(t, s, http.MethodGet, "/api/chunks/a/0/0", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// fillHookCache вызывает onSet один раз перед первым Set
type fillHookCache struct {
	cache.ChunkCache
	onSet func()
}

func (h *fillHookCache) Set(ctx context.Context, key string, value []byte) error {
	if h.onSet != nil {
		fn := h.onSet
		h.onSet = nil
		fn()
	}
	return h.ChunkCache.Set(ctx, key, value)
}

func TestGetChunkWriteDuringFill(t *testing.T) {
	mem, err := cache.NewMemoryCache(cache.Config{}, nil)
	require.NoError(t, err)
	defer mem.Close()

	hooked := &fillHookCache{ChunkCache: mem}
	s, _ := newTestServer(t, Options{EnableWrites: true, Cache: hooked})

	// Запись стартует между промахом и заполнением кеша
	done := make(chan int)
	writeBeforeFill := false
	hooked.onSet = func() {
		go func() {
			data, _ := json.Marshal(SetVoxelRequest{X: 33, Y: 0, Z: 0, Block: "core:dirt"})
			req := httptest.NewRequest(http.MethodPut, "/api/voxel", bytes.NewReader(data))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			s.Handler().ServeHTTP(w, req)
			done <- w.Code
		}()
		select {
		case <-done:
			writeBeforeFill = true
		case <-time.After(100 * time.Millisecond):
		}
	}

	w, _ := do(t, s, http.MethodGet, "/api/chunks/1/0/0", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	require.False(t, writeBeforeFill, "запись не должна завершиться, пока кеш заполняется")

	select {
	case code := <-done:
		require.Equal(t, http.StatusOK, code)
	case <-time.After(5 * time.Second):
		t.Fatal("запись не завершилась")
	}

	w, resp := do(t, s, http.MethodGet, "/api/chunks/1/0/0", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"), "устаревший ответ не должен остаться в кеше")
	raw := resp.Data.(map[string]interface{})
	assert.Contains(t, raw["palette"], "core:dirt")
}

func TestGetChunkWithoutCache(t *testing.T) {
	s, _ := newTestServer(t, Options{})

	w, resp := do(t, s, http.MethodGet, "/api/chunks/0/0/0", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("X-Cache"))
	assert.True(t, resp.Success)
}

func TestNeighbors(t *testing.T) {
	s, _ := newTestServer(t, Options{})

	w, resp := do(t, s, http.MethodGet, "/api/chunks/0/0/0/neighbors", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := resp.Data.([]interface{})
	require.Len(t, list, world.NeighborCount)

	present := 0
	for _, item := range list {
		if item.(map[string]interface{})["present"] == true {
			present++
		}
	}
	assert.Equal(t, 1, present, "в уровне 2x1x1 у чанка (0,0,0) один сосед")

	w, _ = do(t, s, http.MethodGet, "/api/chunks/x/0/0/neighbors", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRaycastEndpoint(t *testing.T) {
	s, _ := newTestServer(t, Options{})

	w, resp := do(t, s, http.MethodPost, "/api/raycast", RaycastRequest{
		Origin:    [3]float32{0.5, 3.5, 3.5},
		Direction: [3]float32{1, 0, 0},
		Radius:    64,
	})
	require.Equal(t, http.StatusOK, w.Code)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, true, data["hit"])
	assert.InDelta(t, 39.5, data["distance"], 1e-4)
	assert.Equal(t, []interface{}{float64(-1), float64(0), float64(0)}, data["normal"])

	w, resp = do(t, s, http.MethodPost, "/api/raycast", RaycastRequest{
		Origin:    [3]float32{0.5, 3.5, 3.5},
		Direction: [3]float32{0, 0, 0},
		Radius:    64,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, resp.Data.(map[string]interface{})["hit"])

	w, _ = do(t, s, http.MethodPost, "/api/raycast", RaycastRequest{Radius: -1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t, Options{})
	do(t, s, http.MethodGet, "/health", nil)

	w, _ := do(t, s, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "voxel_api_http_request_duration_seconds")
}

func TestFormatUptime(t *testing.T) {
	assert.Equal(t, "5с", formatUptime(5*time.Second))
	assert.Equal(t, "2м 3с", formatUptime(2*time.Minute+3*time.Second))
	assert.Equal(t, "1ч 0м 0с", formatUptime(time.Hour))
	assert.Equal(t, "1д 2ч 0м 0с", formatUptime(26*time.Hour))
}

func TestWithLevel(t *testing.T) {
	s, _ := newTestServer(t, Options{})
	var id string
	s.WithLevel(func(level *world.BlockLevel) {
		id = level.ID().String()
	})
	assert.NotEmpty(t, id)
}
