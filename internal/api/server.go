package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/annel0/voxel-level/internal/auth"
	"github.com/annel0/voxel-level/internal/cache"
	"github.com/annel0/voxel-level/internal/logging"
	"github.com/annel0/voxel-level/internal/middleware"
	"github.com/annel0/voxel-level/internal/world"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// ServiceName имя сервиса в метриках и трассировке
const ServiceName = "voxel_api"

// Options настройки HTTP API уровня
type Options struct {
	Addr         string                // адрес для запуска сервера, по умолчанию ":8088"
	EnableWrites bool                  // разрешить PUT /api/voxel
	Authority    *auth.Authority       // если задан, запись требует токена
	Gate         *auth.PasswordGate    // если задан, доступен POST /api/token
	Cache        cache.ChunkCache      // если задан, GET /api/chunks кешируется
	Registerer   prometheus.Registerer // nil означает DefaultRegisterer
	Logger       *logging.Logger       // nil означает логгер компонента "api"
}

// LevelServer HTTP API над одним уровнем.
// Сам уровень не синхронизирован, поэтому все обращения к нему
// проходят через mu: чтение под RLock, запись под Lock.
type LevelServer struct {
	mu         sync.RWMutex
	level      *world.BlockLevel
	router     *gin.Engine
	opts       Options
	logger     *logging.Logger
	metrics    *ServerMetrics
	httpServer *http.Server
}

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// NewLevelServer создаёт сервер над уровнем
func NewLevelServer(level *world.BlockLevel, opts Options) *LevelServer {
	if opts.Addr == "" {
		opts.Addr = ":8088"
	}
	if opts.Registerer == nil {
		opts.Registerer = prometheus.DefaultRegisterer
	}
	if opts.Logger == nil {
		opts.Logger = logging.GetAPILogger()
	}

	router := gin.New()        // без стандартного logger/recovery
	router.Use(gin.Recovery()) // добавим только recovery

	// === Observability middleware ===
	router.Use(otelgin.Middleware(ServiceName))
	router.Use(middleware.NewRequestLogger(opts.Logger).Handler())

	promMw := middleware.NewPrometheusMiddleware(ServiceName, opts.Registerer)
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router)

	s := &LevelServer{
		level:   level,
		router:  router,
		opts:    opts,
		logger:  opts.Logger,
		metrics: NewServerMetrics(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes настраивает маршруты API
func (s *LevelServer) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/api")
	{
		api.GET("/level", s.handleLevelInfo)
		api.GET("/voxel", s.handleGetVoxel)
		api.PUT("/voxel", s.writesMiddleware(), s.jwtMiddleware(), s.handleSetVoxel)
		api.GET("/chunks/:x/:y/:z", s.handleGetChunk)
		api.GET("/chunks/:x/:y/:z/neighbors", s.handleNeighbors)
		api.POST("/raycast", s.handleRaycast)

		if s.opts.Gate != nil {
			api.POST("/token", s.handleToken)
		}
	}
}

// Handler возвращает http.Handler сервера (для тестов и встраивания)
func (s *LevelServer) Handler() http.Handler {
	return s.router
}

// WithLevel выполняет fn под блокировкой записи.
// Нужен, например, для сохранения уровня, пока сервер работает.
func (s *LevelServer) WithLevel(fn func(level *world.BlockLevel)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.level)
}

// Start запускает сервер в отдельной горутине
func (s *LevelServer) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("❌ Ошибка HTTP сервера: %v", err)
			errCh <- err
		}
	}()

	// Ошибка привязки к порту приходит сразу
	select {
	case err := <-errCh:
		return err
	case <-time.After(100 * time.Millisecond):
	}

	s.logger.Info("✅ HTTP API запущен на %s (запись: %v)", s.opts.Addr, s.opts.EnableWrites)
	return nil
}

// Shutdown останавливает сервер, дожидаясь активных запросов
func (s *LevelServer) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("🛑 Остановка HTTP API...")

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
