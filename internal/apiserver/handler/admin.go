package handler

import (
	"net/http"

	"github.com/amoylab/rowgate/internal/common/dto"
	"github.com/amoylab/rowgate/internal/common/errorx"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// HandleAdmin serves POST /api/admin; the admin secret middleware runs first
func (h *Handler) HandleAdmin(c *gin.Context) {
	body, err := readBody(c)
	if err != nil {
		h.errHandler.HandleError(c, err)
		return
	}

	action := gjson.GetBytes(body, "action")
	if action.Exists() && action.Type != gjson.String {
		h.errHandler.HandleError(c, errorx.ValidationError("action", "must be a string"))
		return
	}
	h.logger.Debug("admin request", zap.String("action", action.String()))

	var req dto.AdminRequest
	if err := decodeJSON(body, &req); err != nil {
		h.errHandler.HandleError(c, err)
		return
	}

	resp, err := h.console.Handle(c.Request.Context(), &req)
	if err != nil {
		h.errHandler.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
