// Package syncer pushes snapshots to the remote transport in the background.
// Callers enqueue and return immediately; the worker retries with backoff
// and dead-letters what it cannot deliver.
package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"Bt1QSocial/cache"
	"Bt1QSocial/logger"
	"Bt1QSocial/remote"

	"golang.org/x/time/rate"
)

// Options configures a Pusher. Zero values get defaults from withDefaults.
type Options struct {
	Namespace   string
	Timeout     time.Duration // per attempt
	MaxRetries  int           // extra attempts after the first, at least 1
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	// PushesPerMinute paces attempts; <= 0 disables pacing.
	PushesPerMinute int
	// DeadLetter receives payloads that exhausted their retries. Optional.
	DeadLetter cache.LocalCache
}

func (o Options) withDefaults() Options {
	if o.Namespace == "" {
		o.Namespace = "bt1q"
	}
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	if o.MaxRetries < 1 {
		o.MaxRetries = 1
	}
	if o.BaseBackoff <= 0 {
		o.BaseBackoff = 500 * time.Millisecond
	}
	if o.MaxBackoff < o.BaseBackoff {
		o.MaxBackoff = 30 * time.Second
		if o.MaxBackoff < o.BaseBackoff {
			o.MaxBackoff = o.BaseBackoff
		}
	}
	return o
}

// Stats counts push outcomes since the Pusher started.
type Stats struct {
	Pushed       int64 `json:"pushed"`
	Failed       int64 `json:"failed"`
	Retried      int64 `json:"retried"`
	Coalesced    int64 `json:"coalesced"`
	DeadLettered int64 `json:"deadLettered"`
}

// DeadLetter is the record written when a push is given up on.
type DeadLetter struct {
	FailedAt time.Time       `json:"failedAt"`
	Error    string          `json:"error"`
	Attempts int             `json:"attempts"`
	DeviceID string          `json:"deviceId,omitempty"`
	Payload  json.RawMessage `json:"payload"`
}

// Pusher owns one background worker. Pending payloads coalesce: only the
// newest snapshot is kept, since each one supersedes the previous.
type Pusher struct {
	transport remote.Transport
	opts      Options
	limiter   *rate.Limiter

	mu       sync.Mutex
	pending  *remote.Payload
	inFlight bool
	changed  chan struct{}
	closed   bool

	wake   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once

	pushed, failed, retried, coalesced, deadLettered atomic.Int64
}

// NewPusher starts the worker.
func NewPusher(transport remote.Transport, opts Options) *Pusher {
	opts = opts.withDefaults()

	limit := rate.Inf
	if opts.PushesPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(opts.PushesPerMinute))
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pusher{
		transport: transport,
		opts:      opts,
		limiter:   rate.NewLimiter(limit, 1),
		changed:   make(chan struct{}),
		wake:      make(chan struct{}, 1),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	go p.run()
	return p
}

// Enqueue schedules payload for delivery and never blocks.
func (p *Pusher) Enqueue(payload remote.Payload) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		logger.Debug("[Pusher] enqueue after close ignored")
		return
	}
	if p.pending != nil {
		p.coalesced.Add(1)
	}
	p.pending = &payload
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Flush waits until nothing is pending or in flight.
func (p *Pusher) Flush(ctx context.Context) error {
	for {
		p.mu.Lock()
		if p.pending == nil && !p.inFlight {
			p.mu.Unlock()
			return nil
		}
		ch := p.changed
		p.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close stops the worker. An attempt in flight is cancelled and an
// undelivered payload is dead-lettered.
func (p *Pusher) Close() error {
	p.once.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()
		p.cancel()
		<-p.done
	})
	return nil
}

// Stats returns a snapshot of the counters.
func (p *Pusher) Stats() Stats {
	return Stats{
		Pushed:       p.pushed.Load(),
		Failed:       p.failed.Load(),
		Retried:      p.retried.Load(),
		Coalesced:    p.coalesced.Load(),
		DeadLettered: p.deadLettered.Load(),
	}
}

func (p *Pusher) run() {
	defer close(p.done)
	for {
		select {
		case <-p.ctx.Done():
			p.mu.Lock()
			leftover := p.pending
			p.pending = nil
			p.notifyLocked()
			p.mu.Unlock()
			if leftover != nil {
				p.deadLetter(*leftover, 0, context.Canceled)
			}
			return
		case <-p.wake:
		}

		for {
			p.mu.Lock()
			payload := p.pending
			if payload == nil {
				p.mu.Unlock()
				break
			}
			p.pending = nil
			p.inFlight = true
			p.mu.Unlock()

			p.deliver(*payload)

			p.mu.Lock()
			p.inFlight = false
			p.notifyLocked()
			p.mu.Unlock()
		}
	}
}

func (p *Pusher) notifyLocked() {
	close(p.changed)
	p.changed = make(chan struct{})
}

func (p *Pusher) hasNewer() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pending != nil
}

// deliver runs the first attempt plus up to MaxRetries retries.
func (p *Pusher) deliver(payload remote.Payload) {
	attempts := 0
	for {
		if err := p.limiter.Wait(p.ctx); err != nil {
			p.deadLetter(payload, attempts, err)
			return
		}

		attempts++
		attemptCtx, cancel := context.WithTimeout(p.ctx, p.opts.Timeout)
		err := p.transport.Push(attemptCtx, payload)
		cancel()

		switch {
		case err == nil:
			p.pushed.Add(1)
			logger.Debug("[Pusher] snapshot pushed",
				logger.String("transport", p.transport.Name()),
				logger.Int("attempts", attempts))
			return
		case errors.Is(err, remote.ErrRemoteDisabled):
			return
		case errors.Is(err, remote.ErrNotAcknowledged):
			p.failed.Add(1)
			logger.Warn("[Pusher] remote did not acknowledge snapshot",
				logger.String("transport", p.transport.Name()))
			return
		case p.ctx.Err() != nil:
			p.failed.Add(1)
			p.deadLetter(payload, attempts, err)
			return
		}

		if p.hasNewer() {
			// a newer snapshot supersedes this one
			p.failed.Add(1)
			logger.Info("[Pusher] dropping failed push in favour of newer snapshot", logger.ErrorField(err))
			return
		}

		if attempts > p.opts.MaxRetries {
			p.failed.Add(1)
			p.deadLetter(payload, attempts, err)
			return
		}

		wait := p.backoff(attempts)
		logger.Warn("[Pusher] push failed, retrying",
			logger.String("transport", p.transport.Name()),
			logger.Int("attempt", attempts),
			logger.Duration("backoff", wait),
			logger.ErrorField(err))
		p.retried.Add(1)

		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-p.ctx.Done():
			timer.Stop()
			p.failed.Add(1)
			p.deadLetter(payload, attempts, err)
			return
		}
	}
}

// backoff returns BaseBackoff * 2^(attempt-1), capped at MaxBackoff.
func (p *Pusher) backoff(attempt int) time.Duration {
	d := p.opts.BaseBackoff
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= p.opts.MaxBackoff {
			return p.opts.MaxBackoff
		}
	}
	return d
}

func (p *Pusher) deadLetter(payload remote.Payload, attempts int, cause error) {
	p.deadLettered.Add(1)
	logger.Error("[Pusher] giving up on snapshot push",
		logger.String("transport", p.transport.Name()),
		logger.Int("attempts", attempts),
		logger.ErrorField(cause))

	if p.opts.DeadLetter == nil {
		return
	}
	data, err := remote.MarshalPayload(payload)
	if err != nil {
		logger.Error("[Pusher] failed to encode dead letter", logger.ErrorField(err))
		return
	}
	record, err := json.Marshal(DeadLetter{
		FailedAt: time.Now().UTC(),
		Error:    cause.Error(),
		Attempts: attempts,
		DeviceID: payload.DeviceID,
		Payload:  data,
	})
	if err != nil {
		logger.Error("[Pusher] failed to encode dead letter", logger.ErrorField(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.opts.DeadLetter.Set(ctx, cache.DeadLetterKey(p.opts.Namespace), record); err != nil {
		logger.Error("[Pusher] failed to write dead letter", logger.ErrorField(err))
	}
}
