package handler

import (
	"net/http"
	"strconv"

	"github.com/amoylab/rowgate/internal/common/cnst"
	"github.com/amoylab/rowgate/internal/common/dto"
	"github.com/amoylab/rowgate/internal/common/errorx"
	"github.com/amoylab/rowgate/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"
)

// HandleQuery serves GET and POST /api/query
func (h *Handler) HandleQuery(c *gin.Context) {
	var (
		req dto.QueryRequest
		err error
	)
	if c.Request.Method == http.MethodGet {
		err = bindQueryString(c, &req)
	} else {
		err = readJSONBody(c, &req)
	}
	if err != nil {
		h.errHandler.HandleError(c, err)
		return
	}

	req.AppKey = utils.FirstNonEmpty(req.AppKey, c.GetHeader(HeaderAppKey))
	req.UserKey = utils.FirstNonEmpty(req.UserKey, c.GetHeader(HeaderUserKey))

	resp, err := h.gateway.Query(c.Request.Context(), &req)
	if err != nil {
		h.errHandler.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// bindQueryString reads the GET form: plain fields from the query string,
// data, where and params as JSON encoded strings.
func bindQueryString(c *gin.Context, req *dto.QueryRequest) error {
	req.Action = c.DefaultQuery("action", string(cnst.ActionTables))
	req.Table = c.Query("table")
	req.SQL = c.Query("sql")
	req.AppKey = c.Query("app_key")
	req.UserKey = c.Query("user_key")

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return errorx.ValidationError("limit", "must be an integer")
		}
		req.Limit = limit
	}

	for name, dst := range map[string]any{
		"data":   &req.Data,
		"where":  &req.Where,
		"params": &req.Params,
	} {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		if !gjson.Valid(raw) {
			return errorx.ErrInvalidInput.
				WithMessage("Invalid JSON in %s parameter", name).
				WithDetail("field", name)
		}
		if err := decodeJSON([]byte(raw), dst); err != nil {
			return errorx.ValidationError(name, "unexpected JSON shape")
		}
	}
	return nil
}
