package queue

import (
	"context"
	"fmt"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	"github.com/zoonosys/zoonosys-api/internal/api/metrics"
	"github.com/zoonosys/zoonosys-api/internal/core/domain"
	"github.com/zoonosys/zoonosys-api/internal/core/ports"
)

const (
	defaultWorkers = 2
	channelBuffer  = 128
	sendTimeout    = 30 * time.Second
	maxRetries     = 3
)

// Dispatcher delivers reset notifications off the request path. Messages are
// sharded by recipient so mails to one address go out in request order.
type Dispatcher struct {
	workers []chan ports.ResetNotification
	sender  ports.Notifier
	backoff func() retry.Backoff
	log     zerolog.Logger
	wg      sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers in front
// of sender. If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, sender ports.Notifier, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan ports.ResetNotification, numWorkers),
		sender:  sender,
		backoff: func() retry.Backoff {
			return retry.WithMaxRetries(maxRetries, retry.NewExponential(500*time.Millisecond))
		},
		log: log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan ports.ResetNotification, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers exit once Close has been
// called and their shard is empty, or as soon as ctx is cancelled. Wait
// blocks until they have.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.runWorker(ctx, i, ch)
		}()
	}
}

func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Close stops accepting notifications. Messages already queued are still
// delivered unless the Start context is cancelled first.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	for _, ch := range d.workers {
		close(ch)
	}
}

// Send queues n for delivery and returns immediately. A full shard drops the
// message and reports domain.ErrNotificationSendFailure.
func (d *Dispatcher) Send(_ context.Context, n ports.ResetNotification) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		metrics.NotificationsTotal.WithLabelValues("dropped").Inc()
		return fmt.Errorf("dispatcher closed: %w", domain.ErrNotificationSendFailure)
	}

	idx := d.shardIndex(n.To)
	select {
	case d.workers[idx] <- n:
		metrics.NotificationQueueDepth.WithLabelValues(strconv.Itoa(idx)).Inc()
		return nil
	default:
		metrics.NotificationsTotal.WithLabelValues("dropped").Inc()
		return fmt.Errorf("queue %d full: %w", idx, domain.ErrNotificationSendFailure)
	}
}

// shardIndex maps a recipient deterministically to a worker index.
func (d *Dispatcher) shardIndex(recipient string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(recipient))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan ports.ResetNotification) {
	depth := metrics.NotificationQueueDepth.WithLabelValues(strconv.Itoa(id))
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-ch:
			if !ok {
				return
			}
			depth.Dec()
			if err := d.deliver(ctx, n); err != nil {
				metrics.NotificationsTotal.WithLabelValues("failed").Inc()
				d.log.Error().Err(err).
					Str("to", n.To).
					Int("worker_id", id).
					Msg("reset notification failed")
				continue
			}
			metrics.NotificationsTotal.WithLabelValues("sent").Inc()
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, n ports.ResetNotification) error {
	return retry.Do(ctx, d.backoff(), func(ctx context.Context) error {
		attemptCtx, cancel := context.WithTimeout(ctx, sendTimeout)
		defer cancel()

		start := time.Now()
		err := d.sender.Send(attemptCtx, n)
		metrics.NotificationSendDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			d.log.Warn().Err(err).Str("to", n.To).Msg("reset notification attempt failed")
			return retry.RetryableError(err)
		}
		return nil
	})
}
