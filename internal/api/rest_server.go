package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/annel0/sandworld/internal/app"
	"github.com/annel0/sandworld/internal/logging"
	"github.com/annel0/sandworld/internal/metrics"
	"github.com/annel0/sandworld/internal/middleware"
	"github.com/annel0/sandworld/internal/protocol"
	"github.com/annel0/sandworld/internal/world"
)

// Simulation операции мира, доступные через API
type Simulation interface {
	RequestChunkLoad(x, y int) error
	RequestChunkUnload(x, y int) error
	PushEdit(globalX, globalY int, typeName string) error
	Snapshot(x, y int) (world.ChunkSnapshot, bool)
	BlockTypes() []app.BlockTypeInfo
	Stats() app.RunnerStats
}

// RestServer представляет REST API сервер управления симуляцией
type RestServer struct {
	router  *gin.Engine
	sim     Simulation
	codec   *protocol.Codec
	port    string
	metrics *metrics.ServerMetrics
	log     *logging.Logger
	http    *http.Server
	ln      net.Listener
}

// Config содержит конфигурацию для REST сервера
type Config struct {
	Port     string               // порт для запуска сервера
	Service  string               // имя сервиса для otel и метрик
	Codec    *protocol.Codec      // бинарные снимки; nil отключает format=binary
	Registry *prometheus.Registry // регистр метрик; nil создаёт новый
	Server   *metrics.ServerMetrics
}

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// NewRestServer создает новый REST API сервер
func NewRestServer(sim Simulation, config Config) *RestServer {
	if config.Port == "" {
		config.Port = ":8088"
	}
	if config.Service == "" {
		config.Service = "sandworld"
	}
	if config.Registry == nil {
		config.Registry = prometheus.NewRegistry()
	}
	if config.Server == nil {
		config.Server = metrics.NewServerMetrics()
	}

	router := gin.New()        // без стандартного logger/recovery
	router.Use(gin.Recovery()) // добавим только recovery

	log := logging.GetServerLogger()
	router.Use(middleware.NewRequestLogger(log).Handler())
	router.Use(otelgin.Middleware(config.Service))

	promMw := middleware.NewPrometheusMiddleware(config.Service, config.Registry)
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router, config.Registry)

	rs := &RestServer{
		router:  router,
		sim:     sim,
		codec:   config.Codec,
		port:    config.Port,
		metrics: config.Server,
		log:     log,
	}
	rs.http = &http.Server{
		Addr:              config.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	rs.setupRoutes()
	return rs
}

// Router возвращает gin.Engine (для тестов и встраивания)
func (rs *RestServer) Router() *gin.Engine {
	return rs.router
}

// setupRoutes настраивает маршруты REST API
func (rs *RestServer) setupRoutes() {
	rs.router.GET("/health", rs.handleHealth)

	api := rs.router.Group("/api")
	{
		api.GET("/stats", rs.handleStats)
		api.GET("/blocktypes", rs.handleBlockTypes)
		api.POST("/chunks/load", rs.handleChunkLoad)
		api.POST("/chunks/unload", rs.handleChunkUnload)
		api.GET("/chunks/:x/:y", rs.handleChunk)
		api.POST("/edits", rs.handleEdit)
	}
}

// ChunkRequest запрос загрузки или выгрузки чанка
type ChunkRequest struct {
	X *int `json:"x" binding:"required"`
	Y *int `json:"y" binding:"required"`
}

// EditRequest внешняя правка глобальной ячейки
type EditRequest struct {
	X    *int   `json:"x" binding:"required"`
	Y    *int   `json:"y" binding:"required"`
	Type string `json:"type" binding:"required"`
}

// ChunkView JSON-представление снимка
type ChunkView struct {
	X       int      `json:"x"`
	Y       int      `json:"y"`
	Tick    uint64   `json:"tick"`
	Size    int      `json:"size"`
	Types   []uint16 `json:"types"`
	IDs     []uint8  `json:"ids"`
	Light   []uint32 `json:"light"`
	Pending int      `json:"pending"`
}

func newChunkView(s world.ChunkSnapshot) ChunkView {
	v := ChunkView{
		X:       s.Coord.X,
		Y:       s.Coord.Y,
		Tick:    s.Tick,
		Size:    1 << s.Shift,
		Types:   make([]uint16, len(s.Cells)),
		IDs:     make([]uint8, len(s.Cells)),
		Light:   s.Light,
		Pending: len(s.Pending),
	}
	for i, cell := range s.Cells {
		v.Types[i] = cell.Type()
		v.IDs[i] = cell.ID()
	}
	return v
}

func (rs *RestServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Unix(),
	})
}

// handleStats возвращает статистику симуляции и процесса
func (rs *RestServer) handleStats(c *gin.Context) {
	server := gin.H{
		"uptime":      rs.metrics.GetUptime(),
		"server_time": time.Now().Unix(),
		"memory":      rs.metrics.GetDetailedMemoryStats(),
	}
	if cpu, err := rs.metrics.GetCPUUsage(); err == nil {
		server["cpu_percent"] = cpu
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Статистика получена",
		Data: gin.H{
			"world":  rs.sim.Stats(),
			"server": server,
		},
	})
}

func (rs *RestServer) handleBlockTypes(c *gin.Context) {
	types := rs.sim.BlockTypes()
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Список типов блоков получен",
		Data:    gin.H{"types": types, "total": len(types)},
	})
}

func (rs *RestServer) handleChunkLoad(c *gin.Context) {
	var req ChunkRequest
	if !rs.bind(c, &req) {
		return
	}
	if err := rs.sim.RequestChunkLoad(*req.X, *req.Y); err != nil {
		rs.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Чанк загружен"})
}

func (rs *RestServer) handleChunkUnload(c *gin.Context) {
	var req ChunkRequest
	if !rs.bind(c, &req) {
		return
	}
	if err := rs.sim.RequestChunkUnload(*req.X, *req.Y); err != nil {
		rs.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Запрос на выгрузку принят"})
}

func (rs *RestServer) handleEdit(c *gin.Context) {
	var req EditRequest
	if !rs.bind(c, &req) {
		return
	}
	if err := rs.sim.PushEdit(*req.X, *req.Y, req.Type); err != nil {
		rs.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, GenericResponse{Success: true, Message: "Правка будет применена в следующем тике"})
}

// handleChunk отдаёт снимок чанка; ?format=binary отдаёт кадр protocol.Codec
func (rs *RestServer) handleChunk(c *gin.Context) {
	x, errX := strconv.Atoi(c.Param("x"))
	y, errY := strconv.Atoi(c.Param("y"))
	if errX != nil || errY != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{Success: false, Message: "Координаты чанка должны быть целыми"})
		return
	}
	snap, ok := rs.sim.Snapshot(x, y)
	if !ok {
		c.JSON(http.StatusNotFound, GenericResponse{Success: false, Message: "Чанк не загружен"})
		return
	}
	if c.Query("format") == "binary" {
		if rs.codec == nil {
			c.JSON(http.StatusNotAcceptable, GenericResponse{Success: false, Message: "Бинарный формат отключён"})
			return
		}
		c.Data(http.StatusOK, "application/octet-stream", rs.codec.Marshal(snap))
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Снимок чанка", Data: newChunkView(snap)})
}

func (rs *RestServer) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, GenericResponse{
			Success: false,
			Message: "Неверный формат запроса: " + err.Error(),
		})
		return false
	}
	return true
}

// fail переводит ошибки симуляции в HTTP-статусы
func (rs *RestServer) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, app.ErrUnknownBlockType):
		status = http.StatusBadRequest
	case errors.Is(err, app.ErrChunkNotLoaded):
		status = http.StatusNotFound
	case errors.Is(err, world.ErrUnloadWithoutLoad):
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		rs.log.Error("Ошибка запроса %s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, GenericResponse{Success: false, Message: err.Error()})
}

// Start занимает порт и обслуживает запросы в фоне до Stop.
// Ошибка возвращается, только если порт занять не удалось.
func (rs *RestServer) Start() error {
	ln, err := net.Listen("tcp", rs.port)
	if err != nil {
		return err
	}
	rs.ln = ln
	rs.log.Info("REST API слушает %s", ln.Addr())
	go func() {
		if err := rs.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			rs.log.Error("REST API остановлен с ошибкой: %v", err)
		}
	}()
	return nil
}

// Addr фактический адрес после Start (для порта 0)
func (rs *RestServer) Addr() string {
	if rs.ln == nil {
		return rs.port
	}
	return rs.ln.Addr().String()
}

// Stop выполняет graceful shutdown
func (rs *RestServer) Stop(ctx context.Context) error {
	return rs.http.Shutdown(ctx)
}
