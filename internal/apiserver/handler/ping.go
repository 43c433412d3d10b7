package handler

import (
	"net/http"
	"time"

	"github.com/amoylab/rowgate/internal/common/dto"

	"github.com/gin-gonic/gin"
)

// HandlePing is a liveness probe that never touches the database
func (h *Handler) HandlePing(c *gin.Context) {
	start := time.Now()
	c.JSON(http.StatusOK, dto.PingResponse{
		Status:    "ok",
		LatencyMS: time.Since(start).Milliseconds(),
		TS:        start.UnixMilli(),
		Message:   "rowgate is alive",
		Endpoint:  "ping",
	})
}
