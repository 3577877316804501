package batcher

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"batchgofer/internal/debounce"
)

// Config holds dispatcher settings
type Config struct {
	MaxBatchSize  int           // requests per physical call
	DebounceDelay time.Duration // quiet period before a drain
	CallTimeout   time.Duration // per physical call, 0 means no timeout
}

// Dispatcher merges concurrent requests into batched physical calls
type Dispatcher[K comparable, V any] struct {
	cfg       Config
	transport Transport[K, V]
	pending   registry[K, V]
	queue     queue[K]
	trigger   *debounce.Trigger
	batches   atomic.Uint64
	closed    atomic.Bool
	logger    zerolog.Logger
}

// New creates a Dispatcher. Invalid settings fail here, never at request time.
func New[K comparable, V any](cfg Config, transport Transport[K, V], logger zerolog.Logger) (*Dispatcher[K, V], error) {
	if cfg.MaxBatchSize <= 0 {
		return nil, ErrInvalidBatchSize
	}
	if cfg.DebounceDelay <= 0 {
		return nil, ErrInvalidDelay
	}
	if transport == nil {
		return nil, ErrNilTransport
	}

	d := &Dispatcher[K, V]{
		cfg:       cfg,
		transport: transport,
		logger:    logger.With().Str("component", "batcher").Logger(),
	}

	trigger, err := debounce.New(cfg.DebounceDelay, d.drain, d.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create trigger: %w", err)
	}
	d.trigger = trigger

	return d, nil
}

// Request enqueues req and waits for its result.
// Equivalent requests in flight at the same time share one result.
// If ctx ends first, ctx.Err() is returned; the request itself still completes for other waiters.
func (d *Dispatcher[K, V]) Request(ctx context.Context, req K) (V, error) {
	if d.closed.Load() {
		var zero V
		return zero, ErrClosed
	}

	e, created := d.pending.getOrCreate(req)
	queued := d.queue.push(req)

	d.logger.Debug().
		Interface("request", req).
		Bool("shared", !created).
		Int("queued", queued).
		Msg("enqueue")

	if queued < d.cfg.MaxBatchSize {
		d.trigger.Poke()
	} else {
		d.trigger.Flush()
	}

	return e.wait(ctx)
}

// BatchCount returns how many physical calls have been issued
func (d *Dispatcher[K, V]) BatchCount() uint64 {
	return d.batches.Load()
}

// Pending returns the number of queued requests, duplicates included
func (d *Dispatcher[K, V]) Pending() int {
	return d.queue.len()
}

// Close stops accepting requests and drains what is already queued without waiting the delay
func (d *Dispatcher[K, V]) Close() {
	if d.closed.Swap(true) {
		return
	}
	d.trigger.Flush()
	d.logger.Info().Uint64("batches", d.BatchCount()).Msg("batch dispatcher closed")
}

// drain sends queued requests in groups of at most MaxBatchSize until the queue is empty
func (d *Dispatcher[K, V]) drain() error {
	for {
		g := d.take()
		if g.size() == 0 {
			return nil
		}

		if err := d.send(g); err != nil {
			// Whatever is still queued goes out on the next run.
			if d.queue.len() > 0 {
				d.trigger.Poke()
			}
			return err
		}
	}
}

// take pops up to MaxBatchSize requests and claims their entries.
// Duplicates whose entry was already claimed are dropped.
func (d *Dispatcher[K, V]) take() *group[K, V] {
	g := &group[K, V]{}
	for g.size() < d.cfg.MaxBatchSize {
		reqs := d.queue.popN(d.cfg.MaxBatchSize - g.size())
		if len(reqs) == 0 {
			break
		}
		for _, req := range reqs {
			if e, ok := d.pending.remove(req); ok {
				g.add(req, e)
			}
		}
	}
	return g
}

// send issues one physical call for g and resolves its entries
func (d *Dispatcher[K, V]) send(g *group[K, V]) error {
	ctx := context.Background()
	if d.cfg.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.CallTimeout)
		defer cancel()
	}

	batch := d.batches.Add(1)
	d.logger.Debug().
		Uint64("batch", batch).
		Int("size", g.size()).
		Msg("sending batch")

	start := time.Now()
	items, err := d.call(ctx, g.reqs)
	if err == nil && len(items) != g.size() {
		err = fmt.Errorf("%w: expected %d, got %d", ErrResponseMismatch, g.size(), len(items))
	}
	if err != nil {
		d.logger.Error().
			Err(err).
			Uint64("batch", batch).
			Int("size", g.size()).
			Msg("batch call failed")
		g.failAll(&TransportError{Cause: err})
		return err
	}

	failed := 0
	for i, item := range items {
		e := g.entries[i]
		if !item.OK() {
			failed++
			e.fail(&RemoteError{Code: item.StatusCode, Message: item.Message})
		} else {
			e.resolve(item.Payload)
		}

		d.logger.Debug().
			Interface("request", g.reqs[i]).
			Int("status", item.StatusCode).
			Dur("latency", time.Since(e.createdAt)).
			Msg("request resolved")
	}

	d.logger.Debug().
		Uint64("batch", batch).
		Int("size", g.size()).
		Int("failed", failed).
		Dur("duration", time.Since(start)).
		Msg("batch completed")

	return nil
}

// call invokes the transport, turning a panic into an error
func (d *Dispatcher[K, V]) call(ctx context.Context, reqs []K) (items []ResponseItem[V], err error) {
	defer func() {
		if r := recover(); r != nil {
			items, err = nil, fmt.Errorf("transport panicked: %v", r)
		}
	}()
	return d.transport.SendGroup(ctx, reqs)
}
