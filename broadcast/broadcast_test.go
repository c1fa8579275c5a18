package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wfunc/rajamantri/models"
)

// captureHook answers every command locally and records its arguments.
type captureHook struct {
	mu   sync.Mutex
	cmds [][]interface{}
	err  error
}

func (h *captureHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return nil, errors.New("dial disabled in tests")
	}
}

func (h *captureHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		h.mu.Lock()
		h.cmds = append(h.cmds, cmd.Args())
		h.mu.Unlock()
		if h.err != nil {
			cmd.SetErr(h.err)
		}
		return h.err
	}
}

func (h *captureHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func newCaptured(t *testing.T, queue string) (*RedisBroadcaster, *captureHook) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	hook := &captureHook{}
	rdb.AddHook(hook)
	t.Cleanup(func() { rdb.Close() })
	return newRedisBroadcaster(rdb, queue), hook
}

func TestRedisBroadcaster_Publish(t *testing.T) {
	b, hook := newCaptured(t, "")
	event := models.Event{
		Type:      models.EventPlayerJoined,
		RoomID:    "ABC234",
		PlayerID:  "p1",
		Payload:   map[string]interface{}{"name": "Bob"},
		Timestamp: 1700000000000,
	}

	require.NoError(t, b.Publish(context.Background(), event))

	require.Len(t, hook.cmds, 1)
	args := hook.cmds[0]
	require.Len(t, args, 3)
	assert.Equal(t, "rpush", args[0])
	assert.Equal(t, DefaultQueueName, args[1])

	var got models.Event
	require.NoError(t, json.Unmarshal(args[2].([]byte), &got))
	assert.Equal(t, event.Type, got.Type)
	assert.Equal(t, event.RoomID, got.RoomID)
	assert.Equal(t, "Bob", got.Payload["name"])
}

func TestRedisBroadcaster_PublishError(t *testing.T) {
	b, hook := newCaptured(t, "custom")
	hook.err = errors.New("READONLY")

	err := b.Publish(context.Background(), models.Event{Type: models.EventRoomCreated})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "custom")
}

// TestRedisBroadcaster_Live needs a local Redis; it is skipped otherwise.
func TestRedisBroadcaster_Live(t *testing.T) {
	b, err := NewRedisBroadcaster("localhost:6379", 0, "rmcs_events_test")
	if err != nil {
		t.Skipf("redis not available: %v", err)
	}
	defer b.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	defer b.rdb.Del(context.Background(), "rmcs_events_test")

	require.NoError(t, b.Publish(ctx, models.Event{Type: models.EventGameResolved, RoomID: "LIVE22"}))
	res, err := b.rdb.LPop(ctx, "rmcs_events_test").Result()
	require.NoError(t, err)
	assert.Contains(t, res, "LIVE22")
}

func TestNopBroadcaster(t *testing.T) {
	var b Broadcaster = NopBroadcaster{}
	assert.NoError(t, b.Publish(context.Background(), models.Event{}))
	assert.NoError(t, b.Close())
}
