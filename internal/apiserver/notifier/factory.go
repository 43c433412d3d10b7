package notifier

import (
	"fmt"

	"github.com/amoylab/rowgate/internal/common/config"

	"go.uber.org/zap"
)

// NewNotifier creates the audit notifier selected by cfg.Type
func NewNotifier(logger *zap.Logger, cfg *config.NotifierConfig) (Notifier, error) {
	switch cfg.Type {
	case "", config.NotifierTypeNone:
		return Noop{}, nil
	case config.NotifierTypeRedis:
		return NewRedisNotifier(logger, &cfg.Redis)
	default:
		return nil, fmt.Errorf("unknown notifier type: %s", cfg.Type)
	}
}
