// broadcast/broadcast.go
package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wfunc/rajamantri/models"
)

// DefaultQueueName is the Redis list room events are pushed to.
const DefaultQueueName = "rmcs_events"

// 广播接口
type Broadcaster interface {
	Publish(ctx context.Context, event models.Event) error
	Close() error
}

// RedisBroadcaster 把房间事件以 JSON 形式 RPUSH 到 Redis 列表，供离线消费
type RedisBroadcaster struct {
	rdb   *redis.Client
	queue string
}

// NewRedisBroadcaster connects to addr and checks the connection.
func NewRedisBroadcaster(addr string, db int, queue string) (*RedisBroadcaster, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return newRedisBroadcaster(rdb, queue), nil
}

func newRedisBroadcaster(rdb *redis.Client, queue string) *RedisBroadcaster {
	if queue == "" {
		queue = DefaultQueueName
	}
	return &RedisBroadcaster{rdb: rdb, queue: queue}
}

func (b *RedisBroadcaster) Publish(ctx context.Context, event models.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := b.rdb.RPush(ctx, b.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", b.queue, err)
	}
	return nil
}

func (b *RedisBroadcaster) Close() error {
	return b.rdb.Close()
}

// NopBroadcaster drops every event. Used when Redis is not configured.
type NopBroadcaster struct{}

func (NopBroadcaster) Publish(context.Context, models.Event) error { return nil }
func (NopBroadcaster) Close() error                                { return nil }
