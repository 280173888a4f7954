package api

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"BitLearn/internal/domain/models"
	icache "BitLearn/internal/service/cache"
	"BitLearn/internal/service/ratelimit"
	"BitLearn/internal/usecase"
	xhttp "BitLearn/pkg/http"
	applogger "BitLearn/pkg/logger"
)

// Engine is the part of usecase.LearningEngine served over HTTP.
type Engine interface {
	Status() models.Status
	Config() models.EngineConfig
	AllModels() []models.Model
	Model(id string) (models.Model, error)
	RecentInsights(limit int, types ...models.InsightType) []models.Insight
	GenerateInsights(ctx context.Context, count int, minConfidence float64) []models.Insight
	ForceSyncWithCloud(ctx context.Context) error
	ForceTraining(ctx context.Context, symbol string) (usecase.TrainResult, error)
	UpdateConfig(patch models.ConfigPatch) (models.EngineConfig, error)
	AddSymbol(symbol string) (models.Model, error)
	RemoveSymbol(symbol string) error
	Subscribe(buffer int, topics ...models.EventType) (<-chan models.Event, func())
}

// Limits for the force endpoints, per client IP and action.
type Limits struct {
	Burst  float64
	PerSec float64
}

// LearningHandler exposes the engine facade under /api.
type LearningHandler struct {
	engine   Engine
	cache    icache.BytesCache
	cacheTTL time.Duration
	rl       *ratelimit.Limiter
	limits   Limits
	l        *applogger.Logger
}

func NewLearningHandler(engine Engine, cache icache.BytesCache, cacheTTL time.Duration, rl *ratelimit.Limiter, limits Limits, l *applogger.Logger) *LearningHandler {
	return &LearningHandler{
		engine:   engine,
		cache:    cache,
		cacheTTL: cacheTTL,
		rl:       rl,
		limits:   limits,
		l:        l,
	}
}

func (h *LearningHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/status", h.Status)
	g.GET("/models", h.Models)
	g.GET("/models/:id", h.Model)
	g.GET("/insights", h.Insights)
	g.POST("/insights/generate", h.GenerateInsights, h.limit("generate"))
	g.POST("/sync", h.ForceSync, h.limit("sync"))
	g.POST("/training", h.ForceTraining, h.limit("training"))
	g.GET("/config", h.Config)
	g.PATCH("/config", h.UpdateConfig)
	g.POST("/symbols", h.AddSymbol)
	g.DELETE("/symbols/:symbol", h.RemoveSymbol)
}

// limit guards an expensive action with a token bucket per client.
func (h *LearningHandler) limit(action string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.RealIP() + ":" + action
			if !h.rl.Allow(key, h.limits.Burst, h.limits.PerSec) {
				secs := int(math.Ceil(h.rl.RetryAfter(key).Seconds()))
				if secs > 0 {
					c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
				}
				h.l.Warn("api rate limited", applogger.String("action", action), applogger.String("remote", c.RealIP()))
				return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError(action+" rate limited", secs))
			}
			return next(c)
		}
	}
}

func (h *LearningHandler) Status(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.engine.Status())
}

func (h *LearningHandler) Models(c echo.Context) error {
	all := h.engine.AllModels()
	return xhttp.ListResponse(c, all, int64(len(all)))
}

func (h *LearningHandler) Model(c echo.Context) error {
	m, err := h.engine.Model(c.Param("id"))
	if err != nil {
		return h.fail(c, "model", err)
	}
	return xhttp.SuccessResponse(c, m)
}

// Insights serves recent history newest first. Responses are cached until the
// TTL runs out or a newer insight appears.
func (h *LearningHandler) Insights(c echo.Context) error {
	req := &models.InsightsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	types, err := parseInsightTypes(req.Types)
	if err != nil {
		return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()).WithField("types"))
	}

	ctx := c.Request().Context()
	key := h.insightsKey(req.Limit, types)
	if h.cache != nil {
		if b, ok, err := h.cache.GetBytes(ctx, key); err != nil {
			h.l.Warn("insights cache read failed", applogger.Error(err))
		} else if ok {
			c.Response().Header().Set("X-Cache", "HIT")
			return c.JSONBlob(http.StatusOK, b)
		}
	}

	rows := h.engine.RecentInsights(req.Limit, types...)
	body, err := json.Marshal(xhttp.APIResponse{
		Status:  http.StatusOK,
		Message: http.StatusText(http.StatusOK),
		Data:    &xhttp.ListDataResponse{Rows: rows, Total: int64(len(rows))},
	})
	if err != nil {
		return h.fail(c, "insights", err)
	}
	if h.cache != nil {
		if err := h.cache.SetBytes(ctx, key, body, h.cacheTTL); err != nil {
			h.l.Warn("insights cache write failed", applogger.Error(err))
		}
	}
	c.Response().Header().Set("X-Cache", "MISS")
	return c.JSONBlob(http.StatusOK, body)
}

func (h *LearningHandler) insightsKey(limit int, types []models.InsightType) string {
	newest := "none"
	if latest := h.engine.RecentInsights(1); len(latest) > 0 {
		newest = latest[0].ID
	}
	names := make([]string, 0, len(types))
	for _, t := range types {
		names = append(names, string(t))
	}
	sort.Strings(names)
	return "insights:" + newest + ":" + strconv.Itoa(limit) + ":" + strings.Join(names, ",")
}

func (h *LearningHandler) GenerateInsights(c echo.Context) error {
	req := &models.GenerateInsightsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	minConfidence := h.engine.Config().ConfidenceThreshold
	if req.MinConfidence != nil {
		minConfidence = *req.MinConfidence
	}
	out := h.engine.GenerateInsights(c.Request().Context(), req.Count, minConfidence)
	return xhttp.CreatedResponse(c, &xhttp.ListDataResponse{Rows: out, Total: int64(len(out))})
}

func (h *LearningHandler) ForceSync(c echo.Context) error {
	if err := h.engine.ForceSyncWithCloud(c.Request().Context()); err != nil {
		return h.fail(c, "sync", err)
	}
	return xhttp.SuccessResponse(c, h.engine.Status().CloudSyncInfo)
}

// ForceTraining trains every model, or one symbol's model when symbol is
// given in the body or the query string.
func (h *LearningHandler) ForceTraining(c echo.Context) error {
	req := &models.ForceTrainingRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	if req.Symbol == "" {
		req.Symbol = strings.TrimSpace(c.QueryParam("symbol"))
	}
	res, err := h.engine.ForceTraining(c.Request().Context(), req.Symbol)
	if err != nil {
		return h.fail(c, "training", err)
	}
	return xhttp.SuccessResponse(c, res)
}

func (h *LearningHandler) Config(c echo.Context) error {
	return xhttp.SuccessResponse(c, models.NewConfigView(h.engine.Config()))
}

func (h *LearningHandler) UpdateConfig(c echo.Context) error {
	req := &models.ConfigUpdateRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	patch, err := req.Patch()
	if err != nil {
		return h.fail(c, "config", err)
	}
	cfg, err := h.engine.UpdateConfig(patch)
	if err != nil {
		return h.fail(c, "config", err)
	}
	h.l.Info("engine config updated", applogger.String("remote", c.RealIP()))
	return xhttp.SuccessResponse(c, models.NewConfigView(cfg))
}

func (h *LearningHandler) AddSymbol(c echo.Context) error {
	req := &models.SymbolRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	m, err := h.engine.AddSymbol(req.Symbol)
	if err != nil {
		return h.fail(c, "symbols", err)
	}
	return xhttp.CreatedResponse(c, m.Summary())
}

func (h *LearningHandler) RemoveSymbol(c echo.Context) error {
	if err := h.engine.RemoveSymbol(c.Param("symbol")); err != nil {
		return h.fail(c, "symbols", err)
	}
	return xhttp.NoContentResponse(c)
}

// fail maps engine sentinels onto the AppError envelope.
func (h *LearningHandler) fail(c echo.Context, op string, err error) error {
	var appErr *xhttp.AppError
	switch {
	case errors.Is(err, models.ErrConfigInvalid):
		appErr = xhttp.BadRequestError(err.Error())
	case errors.Is(err, models.ErrModelNotFound):
		appErr = xhttp.NotFoundError(err.Error())
	case errors.Is(err, models.ErrTrainingInProgress):
		appErr = xhttp.ConflictError(err.Error())
	case errors.Is(err, models.ErrCloudSyncFailure):
		appErr = xhttp.BadGatewayError(err.Error())
	default:
		appErr = xhttp.InternalError("internal error")
	}
	appErr = appErr.WithError(err)
	if appErr.Status >= http.StatusInternalServerError {
		h.l.Error("api "+op+" failed", applogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}

func parseInsightTypes(raw string) ([]models.InsightType, error) {
	var out []models.InsightType
	for _, part := range strings.Split(raw, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		t := models.InsightType(part)
		if !models.IsValidInsightType(t) {
			return nil, errors.New("unknown insight type " + strconv.Quote(part))
		}
		out = append(out, t)
	}
	return out, nil
}
