package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type job struct {
	userID  uint64
	kind    string
	payload any
	enqAt   time.Time
}

// Dispatcher runs notifications off the request path on a small worker pool.
// A full queue drops the event; delivery errors are logged and forgotten.
type Dispatcher struct {
	notifier Notifier
	log      *slog.Logger
	ch       chan job
	timeout  time.Duration

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

func NewDispatcher(notifier Notifier, queueSize int, log *slog.Logger) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 1024
	}
	return &Dispatcher{
		notifier: notifier,
		log:      log,
		ch:       make(chan job, queueSize),
		timeout:  5 * time.Second,
	}
}

// Start launches workers and returns a shutdown func that stops intake,
// drains what is queued and waits for the workers or ctx, whichever ends first.
func (d *Dispatcher) Start(workers int) func(context.Context) error {
	if workers <= 0 {
		workers = 4
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for j := range d.ch {
				d.deliver(j)
			}
		}()
	}

	return func(ctx context.Context) error {
		d.mu.Lock()
		if !d.stopped {
			d.stopped = true
			close(d.ch)
		}
		d.mu.Unlock()

		done := make(chan struct{})
		go func() {
			d.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Notify queues an event and returns immediately. It satisfies Notifier so
// callers can hold either a Dispatcher or a direct Notifier.
func (d *Dispatcher) Notify(_ context.Context, userID uint64, kind string, payload any) error {
	d.Enqueue(userID, kind, payload)
	return nil
}

// Enqueue queues an event without blocking.
func (d *Dispatcher) Enqueue(userID uint64, kind string, payload any) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		d.log.Warn("notification dispatcher stopped, drop", "user_id", userID, "kind", kind)
		return
	}

	select {
	case d.ch <- job{userID: userID, kind: kind, payload: payload, enqAt: time.Now()}:
	default:
		d.log.Warn("notification queue full, drop", "user_id", userID, "kind", kind)
	}
}

// QueueLen returns the current queue length (sampled).
func (d *Dispatcher) QueueLen() int { return len(d.ch) }

func (d *Dispatcher) deliver(j job) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := d.notifier.Notify(ctx, j.userID, j.kind, j.payload); err != nil {
		d.log.Warn("notification failed", "user_id", j.userID, "kind", j.kind, "err", err)
		return
	}
	d.log.Debug("notification sent",
		"user_id", j.userID,
		"kind", j.kind,
		"queued_for", time.Since(j.enqAt),
	)
}
