package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jengzang/timeline-core/internal/models"
	"github.com/jengzang/timeline-core/internal/service"
	"github.com/jengzang/timeline-core/pkg/response"
)

// TimelineHandler handles HTTP requests for reconstructed timeline
// items.
type TimelineHandler struct {
	service *service.TimelineService
}

// NewTimelineHandler creates a new timeline handler.
func NewTimelineHandler(service *service.TimelineService) *TimelineHandler {
	return &TimelineHandler{service: service}
}

// GetItems handles GET /api/v1/timeline/items?start=&end=
func (h *TimelineHandler) GetItems(c *gin.Context) {
	start, err := time.Parse(time.RFC3339, c.Query("start"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid start parameter", err)
		return
	}
	end, err := time.Parse(time.RFC3339, c.Query("end"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "invalid end parameter", err)
		return
	}
	if end.Before(start) {
		response.Error(c, http.StatusBadRequest, "end must not precede start", nil)
		return
	}

	items, err := h.service.GetItemsInRange(c.Request.Context(), models.DateInterval{Start: start, End: end})
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "failed to load timeline items", err)
		return
	}

	response.Success(c, gin.H{"items": items, "count": len(items)})
}

// reprocessRequest is the body of POST /api/v1/timeline/reprocess.
type reprocessRequest struct {
	SeedItemID string `json:"seedItemId" binding:"required"`
}

// Reprocess handles POST /api/v1/timeline/reprocess
func (h *TimelineHandler) Reprocess(c *gin.Context) {
	var req reprocessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if err := h.service.Reprocess(c.Request.Context(), req.SeedItemID); err != nil {
		response.Error(c, http.StatusInternalServerError, "reprocess failed", err)
		return
	}

	response.Success(c, gin.H{"seedItemId": req.SeedItemID})
}
