// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/huex/liarbar/internal/models"
)

// Rdb is the global Redis client. Nil means the action historian is off.
var Rdb *redis.Client

// DefaultQueueName is the Redis list that room action records are pushed to.
var DefaultQueueName = "liarbar_actions"

// RoomActionRecord is one successful room mutation, in the order it was
// applied. A consumer can replay a room's history from these.
type RoomActionRecord struct {
	RoomID      string         `json:"room_id"`
	ActorUserID string         `json:"actor_user_id"`
	ActionType  models.MsgType `json:"action_type"`
	Payload     interface{}    `json:"payload,omitempty"`
	Timestamp   int64          `json:"timestamp"`
}

// Connect initializes the global client from REDIS_ADDR / REDIS_DB.
func Connect(ctx context.Context) error {
	addr := getEnv("REDIS_ADDR", "localhost:6379")
	dbIdx := getEnvInt("REDIS_DB", 0)

	client := redis.NewClient(&redis.Options{Addr: addr, DB: dbIdx})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("connect to redis at %s: %w", addr, err)
	}
	Rdb = client
	return nil
}

// PublishRoomAction pushes a record onto the historian queue. No-op when the
// client is not connected.
func PublishRoomAction(ctx context.Context, record RoomActionRecord) error {
	if Rdb == nil {
		return nil
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal RoomActionRecord: %w", err)
	}
	queueName := getEnv("HISTORIAN_QUEUE_NAME", DefaultQueueName)
	if err := Rdb.RPush(ctx, queueName, data).Err(); err != nil {
		return fmt.Errorf("rpush to redis list %q: %w", queueName, err)
	}
	return nil
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
