package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/khainghsuthwe/ReserveMyTable/pkg/response"
	"github.com/redis/go-redis/v9"
)

const (
	// IdempotencyKeyHeader carries the client-chosen idempotency key
	IdempotencyKeyHeader = "X-Idempotency-Key"
	// IdempotencyKeyPrefix namespaces idempotency records in Redis
	IdempotencyKeyPrefix = "idempotency:"
	// DefaultIdempotencyTTL keeps completed responses long enough to absorb client retries
	DefaultIdempotencyTTL = 10 * time.Minute
)

// IdempotencyStatus is the lifecycle of a stored request
type IdempotencyStatus string

const (
	StatusProcessing IdempotencyStatus = "processing"
	StatusCompleted  IdempotencyStatus = "completed"
)

// IdempotencyRecord stores the state of an idempotent request
type IdempotencyRecord struct {
	Status       IdempotencyStatus `json:"status"`
	RequestHash  string            `json:"request_hash"`
	ResponseCode int               `json:"response_code,omitempty"`
	ResponseBody string            `json:"response_body,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// RedisClient is the subset of Redis used for idempotency records
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// IdempotencyConfig holds configuration for the idempotency middleware
type IdempotencyConfig struct {
	Redis RedisClient
	// TTL for completed records
	TTL time.Duration
	// ProcessingTTL bounds how long a crashed request blocks its key
	ProcessingTTL time.Duration
	// Subject returns the caller identity; each subject gets its own key space
	Subject func(*gin.Context) string
}

// DefaultIdempotencyConfig returns default configuration
func DefaultIdempotencyConfig(rdb RedisClient) *IdempotencyConfig {
	return &IdempotencyConfig{
		Redis:         rdb,
		TTL:           DefaultIdempotencyTTL,
		ProcessingTTL: 30 * time.Second,
		Subject:       func(*gin.Context) string { return "" },
	}
}

// Idempotency replays the stored response for a repeated X-Idempotency-Key.
// Requests without the header pass through. Redis failures fail open.
func Idempotency(cfg *IdempotencyConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" {
			c.Next()
			return
		}

		var body []byte
		if c.Request.Body != nil {
			body, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
		}
		subject := ""
		if cfg.Subject != nil {
			subject = cfg.Subject(c)
		}
		hash := requestHash(c, body, subject)

		ctx := c.Request.Context()
		redisKey := idempotencyRedisKey(subject, key)

		record := &IdempotencyRecord{Status: StatusProcessing, RequestHash: hash, CreatedAt: time.Now()}
		claimed, err := setRecordNX(ctx, cfg.Redis, redisKey, record, cfg.ProcessingTTL)
		if err != nil {
			c.Next()
			return
		}

		if !claimed {
			existing, err := getRecord(ctx, cfg.Redis, redisKey)
			if err != nil {
				c.Next()
				return
			}
			switch {
			case existing.RequestHash != hash:
				response.Error(c, http.StatusUnprocessableEntity, "IDEMPOTENCY_KEY_REUSED", "idempotency key already used with a different request")
			case existing.Status == StatusProcessing:
				response.Error(c, http.StatusConflict, "REQUEST_IN_PROGRESS", "a request with this idempotency key is still being processed")
			default:
				c.Header("Idempotent-Replayed", "true")
				c.Data(existing.ResponseCode, "application/json; charset=utf-8", []byte(existing.ResponseBody))
				c.Abort()
			}
			return
		}

		rw := &capturingWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = rw
		c.Next()

		status := rw.Status()
		if status >= http.StatusInternalServerError {
			// let the client retry server failures with the same key
			cfg.Redis.Del(ctx, redisKey)
			return
		}

		record.Status = StatusCompleted
		record.ResponseCode = status
		record.ResponseBody = rw.body.String()
		if data, err := json.Marshal(record); err == nil {
			cfg.Redis.Set(context.WithoutCancel(ctx), redisKey, data, cfg.TTL)
		}
	}
}

type capturingWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *capturingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

// idempotencyRedisKey scopes key to the caller. Anonymous callers share one space.
func idempotencyRedisKey(subject, key string) string {
	if subject == "" {
		return IdempotencyKeyPrefix + key
	}
	sum := sha256.Sum256([]byte(subject))
	return IdempotencyKeyPrefix + hex.EncodeToString(sum[:8]) + ":" + key
}

func requestHash(c *gin.Context, body []byte, subject string) string {
	h := sha256.New()
	h.Write([]byte(c.Request.Method))
	h.Write([]byte(c.Request.URL.Path))
	h.Write([]byte(subject))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

func getRecord(ctx context.Context, rdb RedisClient, key string) (*IdempotencyRecord, error) {
	raw, err := rdb.Get(ctx, key).Bytes()
	if err != nil {
		return nil, err
	}
	var record IdempotencyRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func setRecordNX(ctx context.Context, rdb RedisClient, key string, record *IdempotencyRecord, ttl time.Duration) (bool, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return false, err
	}
	ok, err := rdb.SetNX(ctx, key, data, ttl).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, err
	}
	return ok, nil
}
