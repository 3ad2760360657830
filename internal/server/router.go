package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/lotostats/internal/draws"
	"github.com/MarcoPoloResearchLab/lotostats/internal/drawsync"
	"github.com/MarcoPoloResearchLab/lotostats/internal/predict"
	"github.com/MarcoPoloResearchLab/lotostats/internal/provider"
	"github.com/MarcoPoloResearchLab/lotostats/internal/stats"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultHeartbeatInterval = 25 * time.Second

var (
	errMissingStore        = errors.New("record store dependency required")
	errMissingQueries      = errors.New("query facade dependency required")
	errMissingSynchronizer = errors.New("sync coordinator dependency required")
)

// RecordStore is the write and lookup surface used by the admin endpoints.
type RecordStore interface {
	InsertOne(ctx context.Context, record draws.Draw) (int64, error)
	InsertMany(ctx context.Context, records []draws.Draw) (draws.InsertSummary, error)
	Update(ctx context.Context, record draws.Draw) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (draws.Draw, bool, error)
}

// DrawQueries is the read side.
type DrawQueries interface {
	ListByCategory(ctx context.Context, category string) ([]draws.Draw, error)
	ListAll(ctx context.Context) ([]draws.Draw, error)
	LatestDateFor(ctx context.Context, category string) (string, bool, error)
}

// Synchronizer runs the three sync modes for a category.
type Synchronizer interface {
	InitialLoad(ctx context.Context, category string) (drawsync.Result, error)
	Refresh(ctx context.Context, category string) (drawsync.Result, error)
	ForceReset(ctx context.Context, category string) (drawsync.Result, error)
}

// Predictor produces AI suggestions from a category's history.
type Predictor interface {
	Predict(ctx context.Context, category string, records []draws.Draw) (predict.Prediction, error)
}

type Dependencies struct {
	Store             RecordStore
	Queries           DrawQueries
	Synchronizer      Synchronizer
	Predictor         Predictor
	Realtime          *RealtimeDispatcher
	AllowedOrigins    []string
	HeartbeatInterval time.Duration
	Logger            *zap.Logger
}

func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Store == nil {
		return nil, errMissingStore
	}
	if deps.Queries == nil {
		return nil, errMissingQueries
	}
	if deps.Synchronizer == nil {
		return nil, errMissingSynchronizer
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	realtime := deps.Realtime
	if realtime == nil {
		realtime = NewRealtimeDispatcher()
	}
	heartbeat := deps.HeartbeatInterval
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeatInterval
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware(deps.AllowedOrigins))

	handler := &httpHandler{
		store:        deps.Store,
		queries:      deps.Queries,
		synchronizer: deps.Synchronizer,
		predictor:    deps.Predictor,
		realtime:     realtime,
		heartbeat:    heartbeat,
		logger:       logger,
	}

	router.GET("/categories", handler.handleListCategories)
	categories := router.Group("/categories/:slug")
	categories.Use(handler.resolveCategory)
	categories.GET("/draws", handler.handleListCategoryDraws)
	categories.GET("/latest", handler.handleLatestDate)
	categories.POST("/load", handler.handleSync(syncModeLoad))
	categories.POST("/refresh", handler.handleSync(syncModeRefresh))
	categories.POST("/reset", handler.handleSync(syncModeReset))
	categories.GET("/stats", handler.handleFrequencies)
	categories.GET("/cooccurrence", handler.handleCoOccurrences)
	categories.POST("/predictions", handler.handlePrediction)

	router.GET("/draws", handler.handleListDraws)
	router.GET("/draws/:id", handler.handleGetDraw)

	admin := router.Group("/admin")
	admin.POST("/draws", handler.handleCreateDraw)
	admin.PUT("/draws/:id", handler.handleUpdateDraw)
	admin.DELETE("/draws/:id", handler.handleDeleteDraw)
	admin.POST("/draws/import", handler.handleImportDraws)
	admin.GET("/draws/export", handler.handleExportDraws)

	router.GET("/events", handler.handleEvents)

	return router, nil
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	config := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Content-Type", "Accept", "Cache-Control", "Last-Event-ID"},
		MaxAge:       12 * time.Hour,
	}
	if len(allowedOrigins) == 0 || (len(allowedOrigins) == 1 && allowedOrigins[0] == "*") {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = allowedOrigins
	}
	return cors.New(config)
}

type httpHandler struct {
	store        RecordStore
	queries      DrawQueries
	synchronizer Synchronizer
	predictor    Predictor
	realtime     *RealtimeDispatcher
	heartbeat    time.Duration
	logger       *zap.Logger
}

const categoryContextKey = "lotostats_category"

func (h *httpHandler) resolveCategory(c *gin.Context) {
	category, ok := draws.ResolveCategory(c.Param("slug"))
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "unknown_category"})
		return
	}
	c.Set(categoryContextKey, category)
	c.Next()
}

func categoryFrom(c *gin.Context) draws.Category {
	value, _ := c.Get(categoryContextKey)
	category, _ := value.(draws.Category)
	return category
}

func parseDrawID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Param("id")), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_id"})
		return 0, false
	}
	return id, true
}

// respondError maps a domain error onto an HTTP status and a stable reason.
func (h *httpHandler) respondError(c *gin.Context, operation string, err error) {
	status, reason := classifyError(err)
	body := gin.H{"error": reason}
	var serviceErr *draws.ServiceError
	if errors.As(err, &serviceErr) {
		body["code"] = serviceErr.Code()
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("operation", operation), zap.String("reason", reason), zap.Error(err))
	} else {
		h.logger.Debug("request rejected", zap.String("operation", operation), zap.String("reason", reason), zap.Error(err))
	}
	c.JSON(status, body)
}

func classifyError(err error) (int, string) {
	switch {
	case errors.Is(err, draws.ErrDuplicateRecord):
		return http.StatusConflict, "duplicate_record"
	case errors.Is(err, draws.ErrRecordNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, draws.ErrInvalidDraw):
		return http.StatusBadRequest, "invalid_draw"
	case errors.Is(err, stats.ErrInvalidNumber):
		return http.StatusBadRequest, "invalid_number"
	case errors.Is(err, draws.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, "storage_unavailable"
	case errors.Is(err, predict.ErrNoHistory):
		return http.StatusNotFound, "no_history"
	case errors.Is(err, predict.ErrMalformedResponse):
		return http.StatusBadGateway, "prediction_failed"
	case errors.Is(err, provider.ErrFetchFailed):
		return http.StatusBadGateway, "fetch_failed"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
