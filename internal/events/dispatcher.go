package events

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

var (
	ErrQueueFull = errors.New("events: dispatch queue full")
	ErrClosed    = errors.New("events: dispatcher closed")
)

const (
	defaultQueueSize = 256
	defaultTimeout   = 5 * time.Second
)

type sink struct {
	name string
	pub  Publisher
}

// Dispatcher queues events and fans them out to its sinks on a background
// goroutine. Publish never blocks; a full queue drops the event.
type Dispatcher struct {
	Logger *zap.Logger
	// Enabled is consulted once per event; nil means always on.
	Enabled func(ctx context.Context) bool
	// Timeout bounds each sink call.
	Timeout time.Duration

	mu     sync.RWMutex
	sinks  []sink
	queue  chan PhaseChanged
	closed bool
	wg     sync.WaitGroup
	once   sync.Once

	dropped   uint64
	failed    uint64
	delivered uint64
}

func NewDispatcher(logger *zap.Logger, queueSize int, timeout time.Duration) *Dispatcher {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	d := &Dispatcher{Logger: logger, Timeout: timeout, queue: make(chan PhaseChanged, queueSize)}
	d.wg.Add(1)
	go d.run()
	return d
}

// Add registers a sink. Sinks added after Close are ignored.
func (d *Dispatcher) Add(name string, pub Publisher) {
	if d == nil || pub == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.sinks = append(d.sinks, sink{name: name, pub: pub})
}

// Publish enqueues evt for delivery.
func (d *Dispatcher) Publish(_ context.Context, evt PhaseChanged) error {
	if d == nil {
		return nil
	}
	if evt.Type == "" {
		evt.Type = TypePhaseChanged
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}
	select {
	case d.queue <- evt:
		return nil
	default:
		atomic.AddUint64(&d.dropped, 1)
		return ErrQueueFull
	}
}

// Close stops accepting events, drains the queue and closes every sink that
// implements io.Closer.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.once.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.queue)
		d.mu.Unlock()
		d.wg.Wait()

		for _, s := range d.sinks {
			if c, ok := s.pub.(io.Closer); ok {
				if err := c.Close(); err != nil {
					d.logger().Warn("event sink close failed", zap.String("sink", s.name), zap.Error(err))
				}
			}
		}
		d.logger().Info("event dispatcher stopped",
			zap.Uint64("delivered", atomic.LoadUint64(&d.delivered)),
			zap.Uint64("failed", atomic.LoadUint64(&d.failed)),
			zap.Uint64("dropped", atomic.LoadUint64(&d.dropped)),
		)
	})
}

type Stats struct {
	Delivered uint64 `json:"delivered"`
	Failed    uint64 `json:"failed"`
	Dropped   uint64 `json:"dropped"`
}

func (d *Dispatcher) Stats() Stats {
	if d == nil {
		return Stats{}
	}
	return Stats{
		Delivered: atomic.LoadUint64(&d.delivered),
		Failed:    atomic.LoadUint64(&d.failed),
		Dropped:   atomic.LoadUint64(&d.dropped),
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for evt := range d.queue {
		d.deliver(evt)
	}
}

func (d *Dispatcher) deliver(evt PhaseChanged) {
	ctx := context.Background()
	if d.Enabled != nil && !d.Enabled(ctx) {
		return
	}
	d.mu.RLock()
	sinks := append([]sink(nil), d.sinks...)
	d.mu.RUnlock()

	for _, s := range sinks {
		if err := d.call(ctx, s, evt); err != nil {
			atomic.AddUint64(&d.failed, 1)
			d.logger().Warn("event delivery failed",
				zap.String("sink", s.name),
				zap.String("cycle_id", evt.CycleID),
				zap.String("phase", evt.Phase),
				zap.Error(err),
			)
			continue
		}
		atomic.AddUint64(&d.delivered, 1)
	}
}

func (d *Dispatcher) call(ctx context.Context, s sink, evt PhaseChanged) (err error) {
	ctx, cancel := context.WithTimeout(ctx, d.Timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = errors.New("sink panicked")
			d.logger().Error("event sink panic", zap.String("sink", s.name), zap.Any("panic", r))
		}
	}()
	return s.pub.Publish(ctx, evt)
}

func (d *Dispatcher) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}
