package worker

// debouncer.go
// Trailing-edge debouncer keyed by identity. Rapid Schedule calls for the same
// key coalesce into one save, fired after a quiet period. The save function
// receives only the key; it must read the latest state for that key when it
// runs, so a write can never carry a stale snapshot or the wrong identity.

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// SaveFunc persists whatever the current state for key is.
type SaveFunc func(ctx context.Context, key string) error

// saveTimeout bounds a save started by the timer, which has no caller context.
const saveTimeout = 10 * time.Second

type pendiente struct {
	timer *time.Timer
	seq   uint64
}

// Debouncer schedules and flushes per-key trailing saves.
// Saves for the same key never run concurrently.
type Debouncer struct {
	delay time.Duration
	save  SaveFunc

	mu       sync.Mutex
	seq      uint64
	pending  map[string]*pendiente
	inflight map[string]chan struct{}
	closed   bool
	wg       sync.WaitGroup
}

func NewDebouncer(delay time.Duration, save SaveFunc) *Debouncer {
	return &Debouncer{
		delay:    delay,
		save:     save,
		pending:  make(map[string]*pendiente),
		inflight: make(map[string]chan struct{}),
	}
}

// Schedule (re)starts the quiet period for key.
func (d *Debouncer) Schedule(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	if p, ok := d.pending[key]; ok {
		p.timer.Stop()
	}
	d.seq++
	seq := d.seq
	d.pending[key] = &pendiente{
		seq:   seq,
		timer: time.AfterFunc(d.delay, func() { d.fire(key, seq) }),
	}
}

// Pending reports whether a save for key is waiting on its timer.
func (d *Debouncer) Pending(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.pending[key]
	return ok
}

// Flush runs a pending save for key right away and waits for it; if a save
// is already running, it waits for that one. Returns the save error.
func (d *Debouncer) Flush(ctx context.Context, key string) error {
	d.mu.Lock()
	p, ok := d.pending[key]
	if !ok {
		running := d.inflight[key]
		d.mu.Unlock()
		if running == nil {
			return nil
		}
		select {
		case <-running:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	p.timer.Stop()
	delete(d.pending, key)
	prev, done := d.beginLocked(key)
	d.mu.Unlock()

	return d.run(ctx, key, prev, done)
}

// Save writes key now, whether or not a save is pending. It drops the pending
// timer and runs after any save already in flight, so nothing that read an
// older state can land after it. It also works after Close.
func (d *Debouncer) Save(ctx context.Context, key string) error {
	d.mu.Lock()
	if p, ok := d.pending[key]; ok {
		p.timer.Stop()
		delete(d.pending, key)
	}
	prev, done := d.beginLocked(key)
	d.mu.Unlock()

	return d.run(ctx, key, prev, done)
}

// Close flushes every pending key and waits for all saves to finish.
// Schedule is a no-op afterwards.
func (d *Debouncer) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	keys := make([]string, 0, len(d.pending))
	for k := range d.pending {
		keys = append(keys, k)
	}
	d.mu.Unlock()

	var errs []error
	for _, k := range keys {
		if err := d.Flush(ctx, k); err != nil {
			errs = append(errs, err)
		}
	}
	d.wg.Wait()
	return errors.Join(errs...)
}

func (d *Debouncer) fire(key string, seq uint64) {
	d.mu.Lock()
	p, ok := d.pending[key]
	if !ok || p.seq != seq {
		// rescheduled, flushed or saved meanwhile
		d.mu.Unlock()
		return
	}
	delete(d.pending, key)
	prev, done := d.beginLocked(key)
	d.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := d.run(ctx, key, prev, done); err != nil {
		log.Error().Err(err).Str("key", key).Msg("debouncer: save failed")
	}
}

// beginLocked registers a save for key and returns the channel of the save
// it has to wait for (nil if none) and its own completion channel.
func (d *Debouncer) beginLocked(key string) (prev, done chan struct{}) {
	prev = d.inflight[key]
	done = make(chan struct{})
	d.inflight[key] = done
	d.wg.Add(1)
	return prev, done
}

func (d *Debouncer) run(ctx context.Context, key string, prev, done chan struct{}) error {
	defer func() {
		d.mu.Lock()
		if d.inflight[key] == done {
			delete(d.inflight, key)
		}
		d.mu.Unlock()
		close(done)
		d.wg.Done()
	}()
	if prev != nil {
		select {
		case <-prev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return d.save(ctx, key)
}
