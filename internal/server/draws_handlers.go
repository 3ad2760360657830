package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/MarcoPoloResearchLab/lotostats/internal/draws"
	"github.com/MarcoPoloResearchLab/lotostats/internal/drawsync"
	"github.com/MarcoPoloResearchLab/lotostats/internal/predict"
	"github.com/MarcoPoloResearchLab/lotostats/internal/stats"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	syncModeLoad    = "load"
	syncModeRefresh = "refresh"
	syncModeReset   = "reset"
)

func (h *httpHandler) handleListCategories(c *gin.Context) {
	catalog := draws.Categories()
	payload := make([]categoryPayload, 0, len(catalog))
	for _, category := range catalog {
		payload = append(payload, newCategoryPayload(category))
	}
	c.JSON(http.StatusOK, gin.H{"categories": payload})
}

func (h *httpHandler) handleListCategoryDraws(c *gin.Context) {
	category := categoryFrom(c)
	records, err := h.queries.ListByCategory(c.Request.Context(), category.APIName)
	if err != nil {
		h.respondError(c, "list_category_draws", err)
		return
	}
	c.JSON(http.StatusOK, drawListPayload{Draws: newDrawPayloads(records)})
}

func (h *httpHandler) handleLatestDate(c *gin.Context) {
	category := categoryFrom(c)
	date, found, err := h.queries.LatestDateFor(c.Request.Context(), category.APIName)
	if err != nil {
		h.respondError(c, "latest_date", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"category": category.APIName, "found": found, "date": date})
}

func (h *httpHandler) handleListDraws(c *gin.Context) {
	records, err := h.queries.ListAll(c.Request.Context())
	if err != nil {
		h.respondError(c, "list_draws", err)
		return
	}
	c.JSON(http.StatusOK, drawListPayload{Draws: newDrawPayloads(records)})
}

func (h *httpHandler) handleGetDraw(c *gin.Context) {
	id, ok := parseDrawID(c)
	if !ok {
		return
	}
	record, found, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "get_draw", err)
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
		return
	}
	c.JSON(http.StatusOK, newDrawPayload(record))
}

// handleSync answers 200 with the partial result even when some months
// failed; only failures outside the month loop map to an error status.
func (h *httpHandler) handleSync(mode string) gin.HandlerFunc {
	return func(c *gin.Context) {
		category := categoryFrom(c)
		var (
			result drawsync.Result
			err    error
		)
		switch mode {
		case syncModeRefresh:
			result, err = h.synchronizer.Refresh(c.Request.Context(), category.APIName)
		case syncModeReset:
			result, err = h.synchronizer.ForceReset(c.Request.Context(), category.APIName)
		default:
			result, err = h.synchronizer.InitialLoad(c.Request.Context(), category.APIName)
		}
		if err != nil {
			h.respondError(c, "sync_"+mode, err)
			return
		}
		inserted := result.Inserted()
		if inserted > 0 || mode == syncModeReset {
			h.realtime.PublishChange(category.APIName, "sync_"+mode, inserted, len(result.Records))
		}
		if result.Err != nil {
			h.logger.Warn("sync finished with failures",
				zap.String("category", category.APIName),
				zap.String("mode", mode),
				zap.String("run_id", result.RunID),
				zap.Error(result.Err))
		}
		c.JSON(http.StatusOK, newSyncResultPayload(result))
	}
}

func (h *httpHandler) handleFrequencies(c *gin.Context) {
	category := categoryFrom(c)
	limit := 0
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_limit"})
			return
		}
		limit = parsed
	}
	records, err := h.queries.ListByCategory(c.Request.Context(), category.APIName)
	if err != nil {
		h.respondError(c, "frequencies", err)
		return
	}
	c.JSON(http.StatusOK, stats.Frequencies(records, limit))
}

func (h *httpHandler) handleCoOccurrences(c *gin.Context) {
	category := categoryFrom(c)
	target, err := strconv.Atoi(strings.TrimSpace(c.Query("number")))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_number"})
		return
	}
	records, err := h.queries.ListByCategory(c.Request.Context(), category.APIName)
	if err != nil {
		h.respondError(c, "cooccurrences", err)
		return
	}
	companions, err := stats.CoOccurrences(records, target, stats.DefaultTopCompanions)
	if err != nil {
		h.respondError(c, "cooccurrences", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"category": category.APIName,
		"number":   target,
		"winning":  companions.Winning,
		"machine":  companions.Machine,
	})
}

func (h *httpHandler) handlePrediction(c *gin.Context) {
	if h.predictor == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "prediction_unavailable"})
		return
	}
	category := categoryFrom(c)
	records, err := h.queries.ListByCategory(c.Request.Context(), category.APIName)
	if err != nil {
		h.respondError(c, "prediction", err)
		return
	}
	prediction, err := h.predictor.Predict(c.Request.Context(), category.APIName, records)
	if err != nil {
		if errors.Is(err, predict.ErrNoHistory) || errors.Is(err, predict.ErrMalformedResponse) {
			h.respondError(c, "prediction", err)
			return
		}
		h.logger.Error("prediction generation failed", zap.String("category", category.APIName), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "prediction_failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"category":          prediction.Category,
		"predicted_numbers": prediction.Numbers,
		"analysis":          prediction.Analysis,
	})
}
