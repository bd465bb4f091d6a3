package taskqueue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"github.com/commitlens/commitlens/internal/config"
	"github.com/commitlens/commitlens/internal/provider"
	"github.com/commitlens/commitlens/pkg/logger"
)

const (
	TaskTypeCommit = "commit:score"
)

// CommitTask carries one webhook-announced commit to the scoring pipeline.
// Everything beyond the sha comes from the push payload; the diff is
// fetched by the processor.
type CommitTask struct {
	RepositoryID uint      `json:"repository_id"`
	Sha          string    `json:"sha"`
	Message      string    `json:"message"`
	Author       string    `json:"author"`
	AuthorEmail  string    `json:"author_email,omitempty"`
	Date         time.Time `json:"date"`
}

// Descriptor converts the task back into the provider-level commit record
// the pipeline consumes.
func (t *CommitTask) Descriptor() provider.CommitDescriptor {
	return provider.CommitDescriptor{
		Sha:         t.Sha,
		Message:     t.Message,
		AuthorName:  t.Author,
		AuthorEmail: t.AuthorEmail,
		Date:        t.Date,
	}
}

// Processor handles one dequeued commit task.
type Processor func(ctx context.Context, task *CommitTask) error

// Queue defines the interface for commit task dispatch.
type Queue interface {
	// Enqueue adds a task to the queue
	Enqueue(task *CommitTask) error
	// IsAsync returns true if queue processes tasks asynchronously
	IsAsync() bool
	// Close gracefully shuts down the queue
	Close() error
}

// New builds the queue variant for the configuration: an asynq-backed
// queue when Redis is enabled and reachable, otherwise an in-process
// fallback that runs the processor directly.
func New(cfg *config.RedisConfig, processor Processor) Queue {
	if cfg.Enabled {
		queue, err := NewAsyncQueue(cfg)
		if err != nil {
			logger.Infof("[TaskQueue] Redis unavailable, falling back to sync mode: %v", err)
			return NewSyncQueue(processor)
		}
		logger.Infof("[TaskQueue] Async queue initialized with Redis at %s", cfg.Addr)
		return queue
	}
	logger.Infof("[TaskQueue] Sync queue initialized (Redis disabled)")
	return NewSyncQueue(processor)
}

// AsyncQueue implements Queue using asynq (Redis-based)
type AsyncQueue struct {
	client *asynq.Client
}

// NewAsyncQueue creates a new Redis-based async queue
func NewAsyncQueue(cfg *config.RedisConfig) (*AsyncQueue, error) {
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}

	client := asynq.NewClient(redisOpt)

	// Ping Redis before trusting the queue
	inspector := asynq.NewInspector(redisOpt)
	defer inspector.Close()

	if _, err := inspector.Queues(); err != nil {
		client.Close()
		return nil, err
	}

	return &AsyncQueue{client: client}, nil
}

// Enqueue adds a commit task to the async queue
func (q *AsyncQueue) Enqueue(task *CommitTask) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return err
	}

	t := asynq.NewTask(TaskTypeCommit, payload)
	info, err := q.client.Enqueue(t,
		asynq.Queue("default"),
		asynq.MaxRetry(3),
	)
	if err != nil {
		return err
	}

	logger.Infof("[AsyncQueue] Task enqueued: id=%s, queue=%s", info.ID, info.Queue)
	return nil
}

// IsAsync returns true for async queue
func (q *AsyncQueue) IsAsync() bool {
	return true
}

// Close closes the async queue client
func (q *AsyncQueue) Close() error {
	return q.client.Close()
}

// SyncQueue implements Queue with in-process handling (no Redis)
type SyncQueue struct {
	processor Processor
}

// NewSyncQueue creates a new synchronous queue
func NewSyncQueue(processor Processor) *SyncQueue {
	return &SyncQueue{processor: processor}
}

// Enqueue hands the task to a goroutine so the webhook response is not
// blocked behind the scorer.
func (q *SyncQueue) Enqueue(task *CommitTask) error {
	if q.processor == nil {
		logger.Infof("[SyncQueue] Warning: no processor set, task will be dropped")
		return nil
	}

	go func() {
		ctx := context.Background()
		if err := q.processor(ctx, task); err != nil {
			logger.Infof("[SyncQueue] Task processing failed: %v", err)
		}
	}()

	return nil
}

// IsAsync returns false for sync queue
func (q *SyncQueue) IsAsync() bool {
	return false
}

// Close is a no-op for sync queue
func (q *SyncQueue) Close() error {
	return nil
}
