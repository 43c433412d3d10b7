package notifier

import (
	"context"
	"errors"

	"github.com/amoylab/rowgate/internal/common/dto"
)

// ErrNotWatchable is returned by notifiers that only publish
var ErrNotWatchable = errors.New("notifier cannot be watched")

// Notifier publishes admin audit events
type Notifier interface {
	// Publish records one event. Delivery is best effort: callers log the
	// error and carry on, the admin mutation has already committed.
	Publish(ctx context.Context, event *dto.AuditEvent) error

	// Watch streams events published after from. from is a stream position;
	// "$" means only new events and "0" replays everything retained.
	Watch(ctx context.Context, from string) (<-chan *dto.AuditEvent, error)

	Close() error
}

// Noop discards every event
type Noop struct{}

func (Noop) Publish(context.Context, *dto.AuditEvent) error { return nil }

func (Noop) Watch(context.Context, string) (<-chan *dto.AuditEvent, error) {
	return nil, ErrNotWatchable
}

func (Noop) Close() error { return nil }
