package console

import (
	"context"
	"time"

	"github.com/amoylab/rowgate/internal/common/dto"
	"github.com/amoylab/rowgate/pkg/trace"

	"go.uber.org/zap"
)

// audit publishes a mutation event. The mutation has committed, so a
// publish failure is logged and swallowed.
func (c *Console) audit(ctx context.Context, event dto.AuditEvent) {
	event.Timestamp = time.Now().UTC()
	event.TraceID = trace.TraceID(ctx)
	if err := c.notifier.Publish(ctx, &event); err != nil {
		c.logger.Warn("failed to publish audit event",
			zap.String("action", event.Action), zap.Error(err))
	}
}
