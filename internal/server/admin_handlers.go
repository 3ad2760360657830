package server

import (
	"net/http"
	"time"

	"github.com/MarcoPoloResearchLab/lotostats/internal/draws"
	"github.com/gin-gonic/gin"
)

const realtimeSourceAdmin = "admin"

type importRequestPayload struct {
	Draws []drawPayload `json:"draws"`
}

func (h *httpHandler) handleCreateDraw(c *gin.Context) {
	var request drawPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	record, ok := request.toDraw()
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown_category"})
		return
	}
	record.ID = 0

	id, err := h.store.InsertOne(c.Request.Context(), record)
	if err != nil {
		h.respondError(c, "create_draw", err)
		return
	}
	stored, found, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil || !found {
		h.respondError(c, "create_draw", errOrNotFound(err))
		return
	}
	h.realtime.PublishChange(stored.Category, realtimeSourceAdmin, 1, 0)
	c.JSON(http.StatusCreated, newDrawPayload(stored))
}

func (h *httpHandler) handleUpdateDraw(c *gin.Context) {
	id, ok := parseDrawID(c)
	if !ok {
		return
	}
	var request drawPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	record, ok := request.toDraw()
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown_category"})
		return
	}
	record.ID = id

	previous, found, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "update_draw", err)
		return
	}
	if err := h.store.Update(c.Request.Context(), record); err != nil {
		h.respondError(c, "update_draw", err)
		return
	}
	stored, _, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "update_draw", err)
		return
	}
	if found && previous.Category != stored.Category {
		h.realtime.PublishChange(previous.Category, realtimeSourceAdmin, 0, 0)
	}
	h.realtime.PublishChange(stored.Category, realtimeSourceAdmin, 0, 0)
	c.JSON(http.StatusOK, newDrawPayload(stored))
}

func (h *httpHandler) handleDeleteDraw(c *gin.Context) {
	id, ok := parseDrawID(c)
	if !ok {
		return
	}
	previous, found, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "delete_draw", err)
		return
	}
	if err := h.store.Delete(c.Request.Context(), id); err != nil {
		h.respondError(c, "delete_draw", err)
		return
	}
	if found {
		h.realtime.PublishChange(previous.Category, realtimeSourceAdmin, 0, 0)
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleImportDraws(c *gin.Context) {
	var request importRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	records := make([]draws.Draw, 0, len(request.Draws))
	for index, entry := range request.Draws {
		record, ok := entry.toDraw()
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown_category", "index": index})
			return
		}
		record.ID = 0
		records = append(records, record)
	}

	summary, err := h.store.InsertMany(c.Request.Context(), records)
	if err != nil {
		h.respondError(c, "import_draws", err)
		return
	}
	for category, inserted := range summary.InsertedByCategory {
		h.realtime.PublishChange(category, realtimeSourceAdmin, inserted, 0)
	}
	c.JSON(http.StatusOK, gin.H{"inserted": summary.Inserted, "skipped": summary.Skipped})
}

func (h *httpHandler) handleExportDraws(c *gin.Context) {
	var (
		records []draws.Draw
		err     error
	)
	if raw := c.Query("category"); raw != "" {
		category, ok := draws.ResolveCategory(raw)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown_category"})
			return
		}
		records, err = h.queries.ListByCategory(c.Request.Context(), category.APIName)
	} else {
		records, err = h.queries.ListAll(c.Request.Context())
	}
	if err != nil {
		h.respondError(c, "export_draws", err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="draws.json"`)
	c.JSON(http.StatusOK, gin.H{
		"exported_at": time.Now().UTC().Format(time.RFC3339),
		"draws":       newDrawPayloads(records),
	})
}

func errOrNotFound(err error) error {
	if err != nil {
		return err
	}
	return draws.ErrRecordNotFound
}
