package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/aman-zulfiqar/solana-amm-engine/internal/amm"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/constants"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/models"
	"github.com/aman-zulfiqar/solana-amm-engine/internal/storage"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DispatcherConfig controls the event fan-out.
type DispatcherConfig struct {
	QueueSize      int
	PublishTimeout time.Duration
	Logger         *logrus.Logger
}

// Dispatcher delivers pool events to publishers on a background goroutine.
// Enqueueing never blocks: when the queue is full the event is dropped and
// logged, so a slow publisher can never stall the engine.
type Dispatcher struct {
	queue      chan *models.Envelope
	publishers []storage.EventPublisher
	timeout    time.Duration
	logger     *logrus.Logger

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

func NewDispatcher(cfg DispatcherConfig, publishers ...storage.EventPublisher) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = constants.DefaultEventQueue
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = constants.DefaultPublishTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	d := &Dispatcher{
		queue:      make(chan *models.Envelope, cfg.QueueSize),
		publishers: publishers,
		timeout:    cfg.PublishTimeout,
		logger:     cfg.Logger,
		done:       make(chan struct{}),
	}
	go d.run()
	return d
}

// NewEnvelope wraps ev with a fresh id.
func NewEnvelope(ev amm.Event, poolName, signature string) (*models.Envelope, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal %s event: %w", ev.Kind(), err)
	}
	return &models.Envelope{
		ID:        uuid.NewString(),
		Kind:      string(ev.Kind()),
		Pool:      ev.PoolID().String(),
		PoolName:  poolName,
		Signature: signature,
		EmittedAt: time.Now().UTC(),
		Payload:   payload,
	}, nil
}

// Emit implements amm.EventSink for events without a ledger signature.
func (d *Dispatcher) Emit(ctx context.Context, ev amm.Event) {
	d.EmitSigned(ctx, ev, "", "")
}

// EmitSigned enqueues ev tagged with the pool name and the signature of the
// ledger transaction that produced it.
func (d *Dispatcher) EmitSigned(_ context.Context, ev amm.Event, poolName, signature string) {
	env, err := NewEnvelope(ev, poolName, signature)
	if err != nil {
		d.logger.WithError(err).Warn("dropping event")
		return
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}
	select {
	case d.queue <- env:
	default:
		d.logger.WithFields(logrus.Fields{
			"kind": env.Kind,
			"pool": env.Pool,
		}).Warn("event queue full, dropping event")
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for env := range d.queue {
		d.deliver(env)
	}
}

func (d *Dispatcher) deliver(env *models.Envelope) {
	for _, p := range d.publishers {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		err := p.Publish(ctx, env)
		cancel()
		if err != nil {
			d.logger.WithError(err).WithFields(logrus.Fields{
				"id":   env.ID,
				"kind": env.Kind,
				"pool": env.Pool,
			}).Warn("publish event failed")
		}
	}
}

// Close stops accepting events and waits until the queue drained or ctx ends.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
