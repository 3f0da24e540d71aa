package eventlog

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/allisson/missionhub/internal/httputil"
)

// Handler exposes the event log over the admin API.
type Handler struct {
	log    *EventLog
	logger *slog.Logger
}

// NewHandler creates a new event log handler.
func NewHandler(log *EventLog, logger *slog.Logger) *Handler {
	return &Handler{log: log, logger: logger}
}

// ListHandler returns recent entries, newest first.
// GET /v1/event-log?limit=50
func (h *Handler) ListHandler(c *gin.Context) {
	limit, err := httputil.ParseLimit(c, min(50, h.log.Capacity()), h.log.Capacity())
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entries": h.log.Recent(limit),
		"total":   h.log.Len(),
	})
}
