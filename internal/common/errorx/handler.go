package errorx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const traceIDKey = "trace_id"

// ErrorHandler provides unified error handling capabilities
type ErrorHandler struct {
	logger *zap.Logger
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *zap.Logger) *ErrorHandler {
	return &ErrorHandler{
		logger: logger,
	}
}

// Envelope is the JSON body written for every failed request
type Envelope struct {
	Status   string         `json:"status"`
	Message  string         `json:"message"`
	Code     string         `json:"code"`
	Category ErrorCategory  `json:"category"`
	Details  map[string]any `json:"details,omitempty"`
	TraceID  string         `json:"trace_id,omitempty"`
}

// HandleError converts any error to APIError and writes the error envelope
func (h *ErrorHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	apiErr := ConvertToAPIError(err).WithTraceID(ExtractTraceID(c))
	h.logError(c, apiErr, err)

	c.AbortWithStatusJSON(apiErr.HTTPStatus, Envelope{
		Status:   "error",
		Message:  apiErr.Message,
		Code:     apiErr.Code,
		Category: apiErr.Category,
		Details:  apiErr.Details,
		TraceID:  apiErr.TraceID,
	})
}

// ConvertToAPIError converts any error to APIError
func ConvertToAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	return ErrInternalServer.WithDetail("original_error", err.Error())
}

func (h *ErrorHandler) logError(c *gin.Context, apiErr *APIError, originalErr error) {
	var stackTrace string
	if apiErr.Severity == SeverityCritical {
		buf := make([]byte, 1024*4)
		n := runtime.Stack(buf, false)
		stackTrace = string(buf[:n])
	}

	fields := []zap.Field{
		zap.String("trace_id", apiErr.TraceID),
		zap.String("error_code", apiErr.Code),
		zap.String("category", string(apiErr.Category)),
		zap.Int("http_status", apiErr.HTTPStatus),
		zap.String("path", c.Request.URL.Path),
		zap.String("method", c.Request.Method),
		zap.String("client_ip", c.ClientIP()),
	}

	if originalErr != nil && originalErr.Error() != apiErr.Error() {
		fields = append(fields, zap.Error(originalErr))
	}

	if len(apiErr.Details) > 0 {
		detailsJSON, _ := json.Marshal(apiErr.Details)
		fields = append(fields, zap.String("details", string(detailsJSON)))
	}

	if stackTrace != "" {
		fields = append(fields, zap.String("stack_trace", stackTrace))
	}

	switch apiErr.Severity {
	case SeverityInfo:
		h.logger.Info(apiErr.Message, fields...)
	case SeverityWarning:
		h.logger.Warn(apiErr.Message, fields...)
	default:
		h.logger.Error(apiErr.Message, fields...)
	}
}

// ErrorMiddleware writes the envelope for the last error a handler attached with c.Error
func (h *ErrorHandler) ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			h.HandleError(c, c.Errors.Last().Err)
		}
	}
}

// RecoveryMiddleware returns a gin middleware for panic recovery
func (h *ErrorHandler) RecoveryMiddleware() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, err any) {
		panicErr := &APIError{
			Code:       "E5000",
			Message:    "Server panic occurred",
			Category:   CategoryInternal,
			Severity:   SeverityCritical,
			HTTPStatus: http.StatusInternalServerError,
			Details: map[string]any{
				"panic": fmt.Sprintf("%v", err),
			},
		}

		h.HandleError(c, panicErr)
	})
}

// ExtractTraceID extracts trace ID from context or request
func ExtractTraceID(c *gin.Context) string {
	if traceID := c.GetString(traceIDKey); traceID != "" {
		return traceID
	}

	if traceID := c.GetHeader("X-Trace-Id"); traceID != "" {
		c.Set(traceIDKey, traceID)
		return traceID
	}

	traceID := uuid.New().String()
	c.Set(traceIDKey, traceID)
	return traceID
}
