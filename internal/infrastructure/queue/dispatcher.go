package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hireloop/chatsync/internal/api/metrics"
	"github.com/hireloop/chatsync/internal/core/ports"
)

const (
	defaultWorkers = 8
	channelBuffer  = 256
)

// Dispatcher routes membership transitions to a fixed set of workers using
// consistent hashing on (entity kind, entity id, user id). Transitions for
// the same pair always land on the same worker, so they apply in arrival
// order; transitions for different pairs proceed concurrently.
type Dispatcher struct {
	workers []chan ports.SyncMembershipInput
	service ports.ChatSyncService
	log     zerolog.Logger
	wg      sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, service ports.ChatSyncService, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan ports.SyncMembershipInput, numWorkers),
		service: service,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan ports.SyncMembershipInput, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Wait blocks until all workers have stopped.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Enqueue hands a transition to the worker responsible for its serialization
// key. Non-blocking up to channelBuffer capacity per worker.
func (d *Dispatcher) Enqueue(input ports.SyncMembershipInput) {
	if desired, changed := input.Transition().Desired(); changed {
		metrics.MembershipTransitionsTotal.WithLabelValues(string(desired)).Inc()
	}
	id := d.shardIndex(serializationKey(input))
	d.workers[id] <- input
	metrics.QueueDepth.WithLabelValues(strconv.Itoa(id)).Set(float64(len(d.workers[id])))
}

// serializationKey identifies the stream that must stay ordered: one
// applicant in one entity's room.
func serializationKey(input ports.SyncMembershipInput) string {
	return string(input.EntityKind) + "|" + input.EntityID + "|" + input.UserID
}

// shardIndex maps a serialization key deterministically to a worker index.
func (d *Dispatcher) shardIndex(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32()) % len(d.workers)
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan ports.SyncMembershipInput) {
	defer d.wg.Done()
	workerID := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			return
		case input, ok := <-ch:
			if !ok {
				return
			}
			metrics.QueueDepth.WithLabelValues(workerID).Set(float64(len(ch)))

			// SyncMembership is a soft operation: failures are logged and
			// swallowed inside the boundary, never surfaced here.
			start := time.Now()
			d.service.SyncMembership(ctx, input)
			metrics.SyncDuration.Observe(time.Since(start).Seconds())

			d.log.Debug().
				Str("entity_kind", string(input.EntityKind)).
				Str("entity_id", input.EntityID).
				Str("user_id", input.UserID).
				Int("worker_id", id).
				Msg("membership transition processed")
		}
	}
}
