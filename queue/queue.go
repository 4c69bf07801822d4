// Package queue provides the Redis-backed task queue used for asynchronous
// request processing: API handlers enqueue requests, a worker drains them
// through the agent, and results are stored with a TTL for polling.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/taskforge-ai/taskforge/types"
	"go.uber.org/zap"
)

const (
	tasksKey        = "taskforge:tasks"
	resultKeyPrefix = "taskforge:result:"
)

// Config configures the queue.
type Config struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	// ResultTTL bounds how long results stay available for polling.
	ResultTTL time.Duration `yaml:"result_ttl"`
	// PopTimeout is the blocking-pop timeout of one worker iteration.
	PopTimeout time.Duration `yaml:"pop_timeout"`
}

// Job is one queued request.
type Job struct {
	ID      string `json:"id"`
	Request string `json:"request"`
	UserID  string `json:"user_id,omitempty"`
}

// JobResult is the stored outcome of a processed job.
type JobResult struct {
	ID         string    `json:"id"`
	Status     string    `json:"status"`
	Response   any       `json:"response,omitempty"`
	Error      string    `json:"error,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
}

// Queue is the Redis-backed task queue.
type Queue struct {
	client *redis.Client
	cfg    Config
	logger *zap.Logger
}

// New creates a queue and verifies connectivity.
func New(cfg Config, logger *zap.Logger) (*Queue, error) {
	if cfg.Addr == "" {
		cfg.Addr = "localhost:6379"
	}
	if cfg.ResultTTL == 0 {
		cfg.ResultTTL = time.Hour
	}
	if cfg.PopTimeout == 0 {
		cfg.PopTimeout = time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &Queue{
		client: client,
		cfg:    cfg,
		logger: logger.With(zap.String("component", "queue")),
	}, nil
}

// Enqueue pushes a job onto the queue.
func (q *Queue) Enqueue(ctx context.Context, job Job) error {
	if job.ID == "" {
		return types.NewError(types.ErrInvalidRequest, "job id is required")
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.LPush(ctx, tasksKey, payload).Err(); err != nil {
		return types.NewError(types.ErrQueueFailure, "enqueue job").WithCause(err)
	}
	q.logger.Debug("job enqueued", zap.String("job_id", job.ID))
	return nil
}

// Depth returns the number of pending jobs.
func (q *Queue) Depth(ctx context.Context) (int64, error) {
	n, err := q.client.LLen(ctx, tasksKey).Result()
	if err != nil {
		return 0, types.NewError(types.ErrQueueFailure, "read queue depth").WithCause(err)
	}
	return n, nil
}

// pop blocks for up to PopTimeout waiting for the next job. A nil job with
// nil error means the timeout elapsed with nothing queued.
func (q *Queue) pop(ctx context.Context) (*Job, error) {
	values, err := q.client.BRPop(ctx, q.cfg.PopTimeout, tasksKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, types.NewError(types.ErrQueueFailure, "pop job").WithCause(err)
	}
	// BRPop returns [key, value].
	var job Job
	if err := json.Unmarshal([]byte(values[1]), &job); err != nil {
		return nil, fmt.Errorf("decode job: %w", err)
	}
	return &job, nil
}

// StoreResult saves the outcome of a job for polling, expiring after the
// configured TTL.
func (q *Queue) StoreResult(ctx context.Context, result JobResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	key := resultKeyPrefix + result.ID
	if err := q.client.Set(ctx, key, payload, q.cfg.ResultTTL).Err(); err != nil {
		return types.NewError(types.ErrQueueFailure, "store result").WithCause(err)
	}
	return nil
}

// Result loads the stored outcome for a job ID. The second return value is
// false while the job is still pending (or the result expired).
func (q *Queue) Result(ctx context.Context, id string) (*JobResult, bool, error) {
	payload, err := q.client.Get(ctx, resultKeyPrefix+id).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, types.NewError(types.ErrQueueFailure, "load result").WithCause(err)
	}
	var result JobResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, false, fmt.Errorf("decode result: %w", err)
	}
	return &result, true, nil
}

// Close releases the redis connection.
func (q *Queue) Close() error {
	return q.client.Close()
}
