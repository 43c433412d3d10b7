package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/amoylab/rowgate/internal/common/errorx"
	"github.com/amoylab/rowgate/internal/console"
	"github.com/amoylab/rowgate/internal/gateway"

	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const (
	HeaderAppKey  = "X-App-Key"
	HeaderUserKey = "X-User-Key"

	maxBodyBytes = 1 << 20
)

// Handler serves the gateway, admin and ping endpoints
type Handler struct {
	gateway    *gateway.Gateway
	console    *console.Console
	errHandler *errorx.ErrorHandler
	logger     *zap.Logger
}

func New(gw *gateway.Gateway, con *console.Console, errHandler *errorx.ErrorHandler, logger *zap.Logger) *Handler {
	return &Handler{
		gateway:    gw,
		console:    con,
		errHandler: errHandler,
		logger:     logger.Named("handler"),
	}
}

// readBody reads the request body and checks that it is one JSON object
func readBody(c *gin.Context) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		return nil, errorx.ErrInvalidInput.WithMessage("Failed to read request body: %s", err)
	}
	if !gjson.ValidBytes(body) || !gjson.ParseBytes(body).IsObject() {
		return nil, errorx.ErrInvalidInput.WithMessage("Invalid JSON body")
	}
	return body, nil
}

// readJSONBody decodes a JSON object body. Numbers decode as json.Number so
// integers keep their precision.
func readJSONBody(c *gin.Context, dst any) error {
	body, err := readBody(c)
	if err != nil {
		return err
	}
	return decodeJSON(body, dst)
}

func decodeJSON(data []byte, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		return errorx.ErrInvalidInput.WithMessage("Invalid JSON: %s", err)
	}
	return nil
}
