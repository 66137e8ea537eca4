package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueConfirmacion = "jobs:confirmacion"
	QueueEmail        = "jobs:email"

	JobConfirmacion = "confirmacion"
	JobEmail        = "email"
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type     string          `json:"type"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts"`
}

// Processor handles the payload of one job type. A returned error makes the
// job retry until MaxAttempts, then it lands in the DLQ.
type Processor interface {
	Process(ctx context.Context, raw json.RawMessage) error
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb  *redis.Client
	dead *DeadLetters
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb, dead: NewDeadLetters(rdb)}
}

// DeadLetters exposes the dead letter queues of the dispatched jobs.
func (d *Dispatcher) DeadLetters() *DeadLetters { return d.dead }

// ConfirmacionJobPayload is the job envelope sent to QueueConfirmacion.
type ConfirmacionJobPayload struct {
	OrdenID string `json:"orden_id"`
}

// EnqueueConfirmacion pushes an order confirmation job to Redis.
func (d *Dispatcher) EnqueueConfirmacion(ctx context.Context, ordenID string) error {
	return d.enqueue(ctx, QueueConfirmacion, Job{Type: JobConfirmacion}, ConfirmacionJobPayload{OrdenID: ordenID})
}

// EnqueueEmail pushes an email job to Redis.
func (d *Dispatcher) EnqueueEmail(ctx context.Context, payload EmailJobPayload) error {
	return d.enqueue(ctx, QueueEmail, Job{Type: JobEmail}, payload)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue string, job Job, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	job.Payload = data
	return d.push(ctx, queue, job)
}

func (d *Dispatcher) push(ctx context.Context, queue string, job Job) error {
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

// PoolConfig wires the worker pool.
type PoolConfig struct {
	Workers     int
	MaxAttempts int
	Processors  map[string]Processor // by Job.Type
}

// StartWorkerPool launches cfg.Workers goroutines consuming both queues.
// Each goroutine blocks on BRPOP, zero CPU when idle.
func (d *Dispatcher) StartWorkerPool(ctx context.Context, cfg PoolConfig) {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	for i := 0; i < cfg.Workers; i++ {
		go d.runWorker(ctx, cfg, i)
	}
	log.Info().Msgf("worker pool started with %d workers", cfg.Workers)
}

func (d *Dispatcher) runWorker(ctx context.Context, cfg PoolConfig, id int) {
	queues := []string{QueueConfirmacion, QueueEmail}
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			// Blocking pop: waits up to 5s then loops to check ctx
			result, err := d.rdb.BRPop(ctx, 5*time.Second, queues...).Result()
			if err != nil {
				continue // timeout or context cancelled
			}
			if len(result) < 2 {
				continue
			}
			d.processJob(ctx, cfg, result[0], result[1])
		}
	}
}

func (d *Dispatcher) processJob(ctx context.Context, cfg PoolConfig, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		d.dead.Send(ctx, queue, Job{Type: jobTypeUnknown, Payload: json.RawMessage(fmt.Sprintf("%q", raw))}, "invalid envelope")
		return
	}

	p, ok := cfg.Processors[job.Type]
	if !ok {
		d.dead.Send(ctx, queue, job, "no processor for job type")
		return
	}

	job.Attempts++
	err := p.Process(ctx, job.Payload)
	if err == nil {
		return
	}
	if job.Attempts >= cfg.MaxAttempts {
		d.dead.Send(ctx, queue, job, err.Error())
		return
	}
	log.Warn().Err(err).Str("queue", queue).Str("type", job.Type).Int("attempt", job.Attempts).
		Msg("job failed, requeued")
	if perr := d.push(ctx, queue, job); perr != nil {
		log.Error().Err(perr).Str("queue", queue).Msg("failed to requeue job")
	}
}
