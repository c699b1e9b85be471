package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/annel0/voxel-level/internal/cache"
	"github.com/annel0/voxel-level/internal/vec"
	"github.com/annel0/voxel-level/internal/world"
	"github.com/annel0/voxel-level/internal/world/block"
	"github.com/gin-gonic/gin"
	"github.com/go-gl/mathgl/mgl32"
)

// LevelInfo сводка об уровне
type LevelInfo struct {
	ID            string       `json:"id"`
	Size          vec.Vec3     `json:"size"`
	WorldSize     vec.Vec3     `json:"world_size"`
	Chunks        int          `json:"chunks"`
	UniformChunks int          `json:"uniform_chunks"`
	Textures      int          `json:"textures"`
	AtlasBytes    int          `json:"atlas_bytes"`
	Writable      bool         `json:"writable"`
	Process       ProcessStats `json:"process"`
}

// VoxelInfo воксель и его координаты
type VoxelInfo struct {
	Position vec.Vec3        `json:"position"`
	Chunk    vec.Vec3        `json:"chunk"`
	Relative vec.Vec3        `json:"relative"`
	Block    block.BlockData `json:"block"`
	Solid    bool            `json:"solid"`
}

// SetVoxelRequest запрос на запись вокселя
type SetVoxelRequest struct {
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Z     int    `json:"z"`
	Block string `json:"block" binding:"required"`
}

// NeighborInfo сосед чанка
type NeighborInfo struct {
	Offset  vec.Vec3 `json:"offset"`
	Chunk   vec.Vec3 `json:"chunk"`
	Present bool     `json:"present"`
	Uniform bool     `json:"uniform,omitempty"`
}

// RaycastRequest запрос трассировки луча
type RaycastRequest struct {
	Origin    [3]float32 `json:"origin"`
	Direction [3]float32 `json:"direction"`
	Radius    float32    `json:"radius"`
}

// RaycastResponse результат трассировки
type RaycastResponse struct {
	Hit      bool       `json:"hit"`
	Voxel    *VoxelInfo `json:"voxel,omitempty"`
	Normal   mgl32.Vec3 `json:"normal"`
	Distance float32    `json:"distance"`
}

// TokenRequest запрос токена редактора
type TokenRequest struct {
	Editor   string `json:"editor" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func badRequest(c *gin.Context, format string, args ...interface{}) {
	c.JSON(http.StatusBadRequest, GenericResponse{
		Success: false,
		Message: fmt.Sprintf(format, args...),
	})
}

// handleHealth проверка состояния сервера
func (s *LevelServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Unix(),
	})
}

// handleLevelInfo возвращает сводку об уровне
func (s *LevelServer) handleLevelInfo(c *gin.Context) {
	s.mu.RLock()
	info := LevelInfo{
		ID:         s.level.ID().String(),
		Size:       s.level.Size(),
		WorldSize:  s.level.WorldSize(),
		Chunks:     s.level.ChunkCount(),
		Textures:   len(s.level.Assets().TextureUVs),
		AtlasBytes: len(s.level.Atlas()),
		Writable:   s.opts.EnableWrites,
	}
	s.level.ForEachChunk(func(_ vec.Vec3, chunk *world.BlockChunk) {
		if chunk.IsUniform() {
			info.UniformChunks++
		}
	})
	s.mu.RUnlock()

	info.Process = s.metrics.Stats()
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Уровень", Data: info})
}

func parseInts(values ...string) ([]int, error) {
	out := make([]int, len(values))
	for i, v := range values {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("некорректное число %q", v)
		}
		out[i] = n
	}
	return out, nil
}

// voxelInfo требует удержания s.mu
func (s *LevelServer) voxelInfo(pos vec.Vec3) (VoxelInfo, bool) {
	b, ok := s.level.GetVoxel(pos)
	if !ok {
		return VoxelInfo{}, false
	}
	return VoxelInfo{
		Position: pos,
		Chunk:    world.ToChunk(pos),
		Relative: world.ToRelative(pos),
		Block:    b,
		Solid:    s.level.IsSolid(pos),
	}, true
}

// handleGetVoxel возвращает воксель по мировым координатам
func (s *LevelServer) handleGetVoxel(c *gin.Context) {
	xyz, err := parseInts(c.Query("x"), c.Query("y"), c.Query("z"))
	if err != nil {
		badRequest(c, "Неверные координаты: %v", err)
		return
	}
	pos := vec.New(xyz[0], xyz[1], xyz[2])

	s.mu.RLock()
	info, ok := s.voxelInfo(pos)
	s.mu.RUnlock()

	if !ok {
		c.JSON(http.StatusNotFound, GenericResponse{
			Success: false,
			Message: fmt.Sprintf("Воксель %v вне уровня", pos),
		})
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Воксель", Data: info})
}

// handleSetVoxel записывает воксель
func (s *LevelServer) handleSetVoxel(c *gin.Context) {
	var req SetVoxelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Неверный формат запроса")
		return
	}
	pos := vec.New(req.X, req.Y, req.Z)
	b := block.New(req.Block)

	// Кеш сбрасывается под той же блокировкой, что и запись: заполнение
	// кеша идёт под RLock и не может вклиниться между ними
	s.mu.Lock()
	if _, known := s.level.Registry().Lookup(b.Identifier()); !known {
		s.mu.Unlock()
		badRequest(c, "Неизвестный блок %s", b.Identifier())
		return
	}
	written := s.level.SetVoxel(pos, b)
	info, _ := s.voxelInfo(pos)
	if written {
		s.invalidateChunk(c, world.ToChunk(pos))
	}
	s.mu.Unlock()

	if !written {
		c.JSON(http.StatusNotFound, GenericResponse{
			Success: false,
			Message: fmt.Sprintf("Воксель %v вне уровня, запись отброшена", pos),
		})
		return
	}

	s.logger.Debug("Воксель %v = %s (редактор: %s)", pos, b, c.GetString(editorKey))
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Воксель записан", Data: info})
}

// chunkKey ключ кеша чанка, требует удержания s.mu
func (s *LevelServer) chunkKey(chunk vec.Vec3) string {
	return cache.ChunkKey(s.level.ID(), chunk)
}

// invalidateChunk сбрасывает закешированный чанк после записи, требует s.mu.Lock
func (s *LevelServer) invalidateChunk(c *gin.Context, chunk vec.Vec3) {
	if s.opts.Cache == nil {
		return
	}
	key := s.chunkKey(chunk)
	if err := s.opts.Cache.Invalidate(c.Request.Context(), key); err != nil {
		s.logger.Warn("⚠️ Не удалось инвалидировать %s: %v", key, err)
	}
}

// handleGetChunk отдаёт чанк в сырой форме (палитра + RLE).
// Закодированный ответ кешируется до следующей записи в чанк.
func (s *LevelServer) handleGetChunk(c *gin.Context) {
	xyz, err := parseInts(c.Param("x"), c.Param("y"), c.Param("z"))
	if err != nil {
		badRequest(c, "Неверные координаты чанка: %v", err)
		return
	}
	coords := vec.New(xyz[0], xyz[1], xyz[2])
	ctx := c.Request.Context()

	s.mu.RLock()
	key := s.chunkKey(coords)
	s.mu.RUnlock()

	if s.opts.Cache != nil {
		body, err := s.opts.Cache.Get(ctx, key)
		if err == nil {
			c.Header("X-Cache", "HIT")
			c.Data(http.StatusOK, "application/json; charset=utf-8", body)
			return
		}
		if !cache.IsCacheMiss(err) {
			s.logger.Warn("⚠️ Ошибка кеша %s: %v", key, err)
		}
	}

	body, found, err := s.fillChunk(ctx, coords, key)
	switch {
	case err != nil:
		c.JSON(http.StatusInternalServerError, GenericResponse{Success: false, Message: err.Error()})
		return
	case !found:
		c.JSON(http.StatusNotFound, GenericResponse{
			Success: false,
			Message: fmt.Sprintf("Чанк %v вне уровня", coords),
		})
		return
	}
	if s.opts.Cache != nil {
		c.Header("X-Cache", "MISS")
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

// fillChunk кодирует чанк и кладёт его в кеш. RLock держится до конца
// Cache.Set, поэтому запись с инвалидацией выполнится либо до кодирования,
// либо после заполнения кеша, и устаревший ответ в кеше не останется.
func (s *LevelServer) fillChunk(ctx context.Context, coords vec.Vec3, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chunk, ok := s.level.GetChunk(coords)
	if !ok {
		return nil, false, nil
	}
	body, err := json.Marshal(GenericResponse{Success: true, Message: "Чанк", Data: chunk.ToRaw()})
	if err != nil {
		return nil, true, err
	}
	if s.opts.Cache != nil {
		if err := s.opts.Cache.Set(ctx, key, body); err != nil {
			s.logger.Warn("⚠️ Не удалось закешировать %s: %v", key, err)
		}
	}
	return body, true, nil
}

// handleNeighbors возвращает 26 соседей чанка
func (s *LevelServer) handleNeighbors(c *gin.Context) {
	xyz, err := parseInts(c.Param("x"), c.Param("y"), c.Param("z"))
	if err != nil {
		badRequest(c, "Неверные координаты чанка: %v", err)
		return
	}
	chunk := vec.New(xyz[0], xyz[1], xyz[2])
	offsets := world.NeighborOffsets()

	s.mu.RLock()
	positions := s.level.NeighborPositions(chunk)
	out := make([]NeighborInfo, 0, world.NeighborCount)
	for i, nb := range positions {
		info := NeighborInfo{Offset: offsets[i], Chunk: nb.Coord, Present: nb.Present}
		if nb.Present {
			ch, _ := s.level.GetChunk(nb.Coord)
			info.Uniform = ch.IsUniform()
		}
		out = append(out, info)
	}
	s.mu.RUnlock()

	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Соседи чанка", Data: out})
}

// handleRaycast трассирует луч по непустым вокселям
func (s *LevelServer) handleRaycast(c *gin.Context) {
	var req RaycastRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Неверный формат запроса")
		return
	}
	if req.Radius < 0 {
		badRequest(c, "radius не может быть отрицательным")
		return
	}
	// Ограничиваем длину обхода сеткой уровня
	ws := s.level.WorldSize()
	maxRadius := float32(ws.X + ws.Y + ws.Z)
	if req.Radius > maxRadius {
		req.Radius = maxRadius
	}

	s.mu.RLock()
	hit, ok := s.level.Raycast(mgl32.Vec3(req.Origin), mgl32.Vec3(req.Direction), req.Radius)
	var resp RaycastResponse
	if ok {
		info, _ := s.voxelInfo(hit.Voxel)
		resp = RaycastResponse{Hit: true, Voxel: &info, Normal: hit.Normal, Distance: hit.Distance}
	}
	s.mu.RUnlock()

	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Трассировка", Data: resp})
}

// handleToken обменивает пароль редактора на токен
func (s *LevelServer) handleToken(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Неверный формат запроса")
		return
	}

	token, err := s.opts.Gate.Exchange(req.Editor, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, GenericResponse{
			Success: false,
			Message: "Неверное имя редактора или пароль",
		})
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Токен выдан", Data: gin.H{"token": token}})
}
