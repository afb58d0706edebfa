// Package queue implements the Channel Work Queues (C4): one Redis-backed
// priority, delay-capable job store per channel, with stalled-job recovery
// and bounded completed/failed history.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/5-VED/notification-dispatcher/config"
	"github.com/5-VED/notification-dispatcher/database"
	"github.com/5-VED/notification-dispatcher/models"
)

// Job is the unit enqueued per (Notification, target channel).
type Job struct {
	ID             string          `json:"id"`
	NotificationID uuid.UUID       `json:"notificationId"`
	UserID         string          `json:"userId"`
	Type           models.NotificationType `json:"type"`
	Title          string          `json:"title"`
	Message        string          `json:"message"`
	Metadata       models.Metadata `json:"metadata,omitempty"`
	Priority       int             `json:"priority"`
	DelayUntil     time.Time       `json:"delayUntil"`
	Attempts       int             `json:"attempts"`
}

// dequeue-and-lease script: pops the lowest-scored member with score <= now
// from the waiting set (score encodes priority desc + enqueue-order FIFO, so
// the lowest score is the highest-priority, earliest job), and moves
// it to the active set scored by lease expiry, atomically.
const leaseScript = `
local waitingKey = KEYS[1]
local activeKey = KEYS[2]
local now = tonumber(ARGV[1])
local leaseUntil = tonumber(ARGV[2])

local candidates = redis.call('ZRANGEBYSCORE', waitingKey, '-inf', now, 'LIMIT', 0, 1)
if #candidates == 0 then
	return nil
end

local member = candidates[1]
redis.call('ZREM', waitingKey, member)
redis.call('ZADD', activeKey, leaseUntil, member)
return member
`

// Queue is a single channel's work queue.
type Queue struct {
	channel string
	redis   *database.RedisDB
	cfg     config.QueueConfig
}

// New builds a Queue for the given channel name ("email", "push", "sms").
func New(channel string, redis *database.RedisDB, cfg config.QueueConfig) *Queue {
	return &Queue{channel: channel, redis: redis, cfg: cfg}
}

func (q *Queue) waitingKey() string   { return fmt.Sprintf("queue:%s:waiting", q.channel) }
func (q *Queue) activeKey() string    { return fmt.Sprintf("queue:%s:active", q.channel) }
func (q *Queue) jobKey(id string) string { return fmt.Sprintf("queue:%s:job:%s", q.channel, id) }
func (q *Queue) completedKey() string { return fmt.Sprintf("queue:%s:completed", q.channel) }
func (q *Queue) failedKey() string    { return fmt.Sprintf("queue:%s:failed", q.channel) }

// score packs priority-desc and enqueue-order-ascending into a single
// float64 so that ZRANGEBYSCORE ascending yields priority-desc, FIFO within
// priority: highest priority gets the smallest score.
func score(priority int, enqueuedAt time.Time) float64 {
	return float64(-priority)*1e15 + float64(enqueuedAt.UnixNano())/1e6
}

// Enqueue stores the job payload and adds it to the waiting sorted set.
func (q *Queue) Enqueue(ctx context.Context, job *Job) error {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	if job.DelayUntil.IsZero() {
		job.DelayUntil = time.Now().UTC()
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	if err := q.redis.HSet(ctx, q.jobKey(job.ID), "payload", string(payload)); err != nil {
		return fmt.Errorf("store job payload: %w", err)
	}

	// leaseScript's ZRANGEBYSCORE '-inf..now' bound already keeps a
	// not-yet-ready job out of consideration regardless of its score sign,
	// so the priority/FIFO score can be used unconditionally here too.
	s := score(job.Priority, job.DelayUntil)

	if err := q.redis.ZAdd(ctx, q.waitingKey(), redis.Z{Score: s, Member: job.ID}); err != nil {
		return fmt.Errorf("enqueue job: %w", err)
	}
	return nil
}

// EnqueueBatch writes every job's payload and waiting-set membership
// through a single Redis pipeline round trip, used by the bulk ingest
// paths (§4.7, §4.8's "optimized" bulk send) instead of one round trip
// per job.
func (q *Queue) EnqueueBatch(ctx context.Context, jobs []*Job) error {
	if len(jobs) == 0 {
		return nil
	}

	pipe := q.redis.Pipeline()
	now := time.Now().UTC()

	for _, job := range jobs {
		if job.ID == "" {
			job.ID = uuid.New().String()
		}
		if job.DelayUntil.IsZero() {
			job.DelayUntil = now
		}

		payload, err := json.Marshal(job)
		if err != nil {
			return fmt.Errorf("marshal job: %w", err)
		}

		pipe.HSet(ctx, q.jobKey(job.ID), "payload", string(payload))

		pipe.ZAdd(ctx, q.waitingKey(), redis.Z{Score: score(job.Priority, job.DelayUntil), Member: job.ID})
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("enqueue batch: %w", err)
	}
	return nil
}

// Lease atomically takes the highest-priority ready job and marks it
// active with a lease expiring after stalledInterval. Returns nil, nil if
// no ready job exists.
func (q *Queue) Lease(ctx context.Context) (*Job, error) {
	now := time.Now().UTC()
	leaseUntil := now.Add(q.cfg.StalledInterval)

	result, err := q.redis.Eval(ctx, leaseScript,
		[]string{q.waitingKey(), q.activeKey()},
		float64(now.UnixNano())/1e6,
		float64(leaseUntil.UnixNano())/1e6,
	)
	if err != nil {
		return nil, fmt.Errorf("lease job: %w", err)
	}
	if result == nil {
		return nil, nil
	}

	jobID, ok := result.(string)
	if !ok {
		return nil, fmt.Errorf("unexpected lease result type %T", result)
	}

	return q.loadJob(ctx, jobID)
}

func (q *Queue) loadJob(ctx context.Context, jobID string) (*Job, error) {
	fields, err := q.redis.HGetAll(ctx, q.jobKey(jobID))
	if err != nil {
		return nil, fmt.Errorf("load job %s: %w", jobID, err)
	}
	payload, ok := fields["payload"]
	if !ok {
		return nil, fmt.Errorf("job %s payload missing", jobID)
	}

	var job Job
	if err := json.Unmarshal([]byte(payload), &job); err != nil {
		return nil, fmt.Errorf("unmarshal job %s: %w", jobID, err)
	}
	return &job, nil
}

// Complete removes the job from the active set and records it in the
// bounded completed-history list.
func (q *Queue) Complete(ctx context.Context, job *Job) error {
	if err := q.redis.ZRem(ctx, q.activeKey(), job.ID); err != nil {
		return fmt.Errorf("remove from active: %w", err)
	}
	if err := q.recordHistory(ctx, q.completedKey(), job, q.cfg.KeepCompleted); err != nil {
		return err
	}
	return q.redis.Del(ctx, q.jobKey(job.ID))
}

// Fail applies the retry policy: reschedule with exponential backoff while
// attempts remain, or declare the job dead and record it in the bounded
// failed-history list.
func (q *Queue) Fail(ctx context.Context, job *Job) (dead bool, err error) {
	if ferr := q.redis.ZRem(ctx, q.activeKey(), job.ID); ferr != nil {
		return false, fmt.Errorf("remove from active: %w", ferr)
	}

	job.Attempts++
	if job.Attempts >= q.cfg.MaxAttempts {
		if herr := q.recordHistory(ctx, q.failedKey(), job, q.cfg.KeepFailed); herr != nil {
			return true, herr
		}
		return true, q.redis.Del(ctx, q.jobKey(job.ID))
	}

	backoff := q.cfg.RetryBaseDelay * time.Duration(1<<uint(job.Attempts-1))
	job.DelayUntil = time.Now().UTC().Add(backoff)

	payload, merr := json.Marshal(job)
	if merr != nil {
		return false, fmt.Errorf("marshal retried job: %w", merr)
	}
	if herr := q.redis.HSet(ctx, q.jobKey(job.ID), "payload", string(payload)); herr != nil {
		return false, fmt.Errorf("store retried job payload: %w", herr)
	}

	if aerr := q.redis.ZAdd(ctx, q.waitingKey(), redis.Z{Score: score(job.Priority, job.DelayUntil), Member: job.ID}); aerr != nil {
		return false, fmt.Errorf("reschedule job: %w", aerr)
	}
	return false, nil
}

func (q *Queue) recordHistory(ctx context.Context, key string, job *Job, keep int) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal history entry: %w", err)
	}
	if err := q.redis.LPush(ctx, key, string(payload)); err != nil {
		return fmt.Errorf("push history: %w", err)
	}
	return q.redis.LTrim(ctx, key, 0, int64(keep-1))
}

// ReclaimStalled scans the active set for leases that have expired and
// reschedules them exactly once (maxStalledCount = 1, tracked via the
// Attempts field so a reclaimed-and-failed-again job still counts toward
// the retry budget).
func (q *Queue) ReclaimStalled(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	expired, err := q.redis.ZRangeByScore(ctx, q.activeKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatFloat(float64(now.UnixNano())/1e6, 'f', -1, 64),
	})
	if err != nil {
		return 0, fmt.Errorf("scan stalled: %w", err)
	}

	reclaimed := 0
	for _, jobID := range expired {
		job, err := q.loadJob(ctx, jobID)
		if err != nil {
			continue
		}
		if job.Attempts >= q.cfg.MaxStalledCount {
			// already reassigned once; Attempts is set to the last allowed
			// attempt so Fail declares the job dead instead of reassigning it.
			job.Attempts = q.cfg.MaxAttempts - 1
			if _, err := q.Fail(ctx, job); err == nil {
				reclaimed++
			}
			continue
		}

		job.Attempts++
		if err := q.redis.ZRem(ctx, q.activeKey(), jobID); err != nil {
			continue
		}
		if err := q.redis.ZAdd(ctx, q.waitingKey(), redis.Z{Score: score(job.Priority, time.Now().UTC()), Member: jobID}); err != nil {
			continue
		}
		reclaimed++
	}
	return reclaimed, nil
}

// Waiting returns the number of jobs waiting (ready or delayed) for this
// channel, for the Metrics Collector.
func (q *Queue) Waiting(ctx context.Context) (int64, error) {
	return q.redis.ZCard(ctx, q.waitingKey())
}

// Active returns the number of in-flight jobs for this channel.
func (q *Queue) Active(ctx context.Context) (int64, error) {
	return q.redis.ZCard(ctx, q.activeKey())
}

// Channel returns the channel name this queue serves.
func (q *Queue) Channel() string {
	return q.channel
}
