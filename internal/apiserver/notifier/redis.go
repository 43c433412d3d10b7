package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/amoylab/rowgate/internal/common/config"
	"github.com/amoylab/rowgate/internal/common/dto"
	"github.com/amoylab/rowgate/pkg/utils"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	fieldEvent  = "event"
	fieldAction = "action"
)

// RedisNotifier appends audit events to a Redis stream
type RedisNotifier struct {
	logger *zap.Logger
	client redis.UniversalClient
	stream string
	maxLen int64
}

// NewRedisNotifier connects to Redis and pings it once
func NewRedisNotifier(logger *zap.Logger, cfg *config.RedisConfig) (*RedisNotifier, error) {
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    utils.SplitByMultipleDelimiters(cfg.Addr, ";", ","),
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	stream := cfg.Stream
	if stream == "" {
		stream = config.DefaultAuditStream
	}
	return &RedisNotifier{
		logger: logger.Named("notifier.redis"),
		client: client,
		stream: stream,
		maxLen: cfg.MaxLen,
	}, nil
}

// Publish implements Notifier.Publish
func (r *RedisNotifier) Publish(ctx context.Context, event *dto.AuditEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: r.stream,
		Values: map[string]interface{}{
			fieldEvent:  string(data),
			fieldAction: event.Action,
		},
	}
	if r.maxLen > 0 {
		args.MaxLen = r.maxLen
		args.Approx = true
	}
	if _, err := r.client.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("failed to add message to stream: %w", err)
	}
	return nil
}

// Watch implements Notifier.Watch
func (r *RedisNotifier) Watch(ctx context.Context, from string) (<-chan *dto.AuditEvent, error) {
	if from == "" || from == "$" {
		// pin "$" to a concrete id so events published between reads are not skipped
		last, err := r.client.XRevRangeN(ctx, r.stream, "+", "-", 1).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read stream tail: %w", err)
		}
		from = "0-0"
		if len(last) > 0 {
			from = last[0].ID
		}
	}
	ch := make(chan *dto.AuditEvent, 10)

	go func() {
		defer close(ch)
		lastID := from

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			streams, err := r.client.XRead(ctx, &redis.XReadArgs{
				Streams: []string{r.stream, lastID},
				Count:   10,
				Block:   time.Second,
			}).Result()
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				if !errors.Is(err, redis.Nil) {
					r.logger.Error("failed to read from stream", zap.Error(err))
					time.Sleep(100 * time.Millisecond)
				}
				continue
			}

			for _, stream := range streams {
				for _, message := range stream.Messages {
					lastID = message.ID
					raw, ok := message.Values[fieldEvent].(string)
					if !ok {
						continue
					}
					var event dto.AuditEvent
					if err := json.Unmarshal([]byte(raw), &event); err != nil {
						r.logger.Error("failed to unmarshal audit event",
							zap.String("id", message.ID), zap.Error(err))
						continue
					}
					event.ID = message.ID
					select {
					case ch <- &event:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()

	return ch, nil
}

func (r *RedisNotifier) Close() error {
	return r.client.Close()
}
