package worker

// dlq.go: dead letters.
// A job lands in dlq:<queue> when it runs out of attempts, has no processor
// or cannot be decoded. Admins list them and replay them into their queue.

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	DLQPrefix = "dlq:"

	// jobTypeUnknown marks envelopes that never decoded; they cannot be replayed.
	jobTypeUnknown = "unknown"
)

// DLQEntry is one dead job plus why and when it died.
type DLQEntry struct {
	OriginalQueue string          `json:"original_queue"`
	JobType       string          `json:"job_type"`
	Payload       json.RawMessage `json:"payload"`
	Reason        string          `json:"reason"`
	FailedAt      time.Time       `json:"failed_at"`
	Attempts      int             `json:"attempts"`
}

type DeadLetters struct {
	rdb *redis.Client
	now func() time.Time
}

func NewDeadLetters(rdb *redis.Client) *DeadLetters {
	return &DeadLetters{rdb: rdb, now: time.Now}
}

// Send records a dead job. It only logs on failure: the job is already lost
// to its queue and the worker has nothing better to do with the error.
func (d *DeadLetters) Send(ctx context.Context, queue string, job Job, reason string) {
	entry := DLQEntry{
		OriginalQueue: queue,
		JobType:       job.Type,
		Payload:       job.Payload,
		Reason:        reason,
		FailedAt:      d.now().UTC(),
		Attempts:      job.Attempts,
	}
	data, err := json.Marshal(entry)
	if err == nil {
		err = d.rdb.LPush(ctx, DLQPrefix+queue, data).Err()
	}
	if err != nil {
		log.Error().Err(err).Str("queue", queue).Str("reason", reason).Msg("dlq: job dropped")
		return
	}
	log.Warn().
		Str("queue", queue).
		Str("job_type", job.Type).
		Str("reason", reason).
		Int("attempts", job.Attempts).
		Msg("dlq: job moved to dead letter queue")
}

func (d *DeadLetters) Len(ctx context.Context, queue string) (int64, error) {
	return d.rdb.LLen(ctx, DLQPrefix+queue).Result()
}

// List returns up to limit entries, newest first. Undecodable entries are skipped.
func (d *DeadLetters) List(ctx context.Context, queue string, limit int64) ([]DLQEntry, error) {
	raws, err := d.rdb.LRange(ctx, DLQPrefix+queue, 0, limit-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]DLQEntry, 0, len(raws))
	for _, raw := range raws {
		var e DLQEntry
		if json.Unmarshal([]byte(raw), &e) == nil {
			out = append(out, e)
		}
	}
	return out, nil
}

// Replay moves up to max entries, oldest first, back into their queue with a
// fresh attempt count. Entries that can never run are discarded.
func (d *DeadLetters) Replay(ctx context.Context, queue string, max int) (int, error) {
	replayed := 0
	for i := 0; i < max; i++ {
		raw, err := d.rdb.RPop(ctx, DLQPrefix+queue).Result()
		if errors.Is(err, redis.Nil) {
			break
		}
		if err != nil {
			return replayed, err
		}

		var e DLQEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil || e.JobType == jobTypeUnknown {
			log.Warn().Str("queue", queue).Msg("dlq: discarding entry that cannot be replayed")
			continue
		}
		encoded, err := json.Marshal(Job{Type: e.JobType, Payload: e.Payload})
		if err != nil {
			return replayed, err
		}
		if err := d.rdb.LPush(ctx, e.OriginalQueue, encoded).Err(); err != nil {
			// put it back where it was
			_ = d.rdb.RPush(ctx, DLQPrefix+queue, raw).Err()
			return replayed, err
		}
		replayed++
	}
	if replayed > 0 {
		log.Info().Str("queue", queue).Int("replayed", replayed).Msg("dlq: jobs replayed")
	}
	return replayed, nil
}
