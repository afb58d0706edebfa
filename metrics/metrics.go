// Package metrics implements the Metrics Collector (C9): periodic sampling
// of queue depths, active workers, throughput and error rate. It is owned
// and started by the bootstrap layer, not a package-level singleton, per
// Design Note §9.
package metrics

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/5-VED/notification-dispatcher/models"
	"github.com/5-VED/notification-dispatcher/queue"
)

const sampleInterval = 10 * time.Second
const maxSamples = 100

// Sample is one periodic snapshot.
type Sample struct {
	Timestamp         time.Time
	Waiting           map[models.Channel]int64
	Active            map[models.Channel]int64
	TotalProcessed    int64
	TotalErrors       int64
	ThroughputPerSec  float64
	ErrorRate         float64
}

// Snapshot is the externally-exposed read view.
type Snapshot struct {
	Current           Sample
	AverageThroughput float64
	PeakThroughput    float64
	Healthy           bool
}

// Collector owns the rolling sample window and the process-wide counters.
type Collector struct {
	queues *queue.Manager

	totalProcessed int64
	totalErrors    int64
	startedAt      time.Time

	mu      sync.RWMutex
	samples []Sample
}

// New builds a Collector bound to the queue manager it samples.
func New(queues *queue.Manager) *Collector {
	return &Collector{
		queues:    queues,
		startedAt: time.Now().UTC(),
	}
}

// RecordProcessed increments the total-processed counter. Called by
// Channel Workers on every successful delivery.
func (c *Collector) RecordProcessed() {
	atomic.AddInt64(&c.totalProcessed, 1)
}

// RecordError increments the total-errors counter. Called by Channel
// Workers on every failed delivery attempt.
func (c *Collector) RecordError() {
	atomic.AddInt64(&c.totalErrors, 1)
}

// Run ticks every 10s, sampling queue depths and deriving throughput/error
// rate, until ctx is cancelled.
func (c *Collector) Run(ctx context.Context) {
	ticker := time.NewTicker(sampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.sample()
		}
	}
}

func (c *Collector) sample() {
	processed := atomic.LoadInt64(&c.totalProcessed)
	errs := atomic.LoadInt64(&c.totalErrors)
	elapsed := time.Since(c.startedAt).Seconds()
	if elapsed <= 0 {
		elapsed = 1
	}

	depths := c.queues.Depths(context.Background())
	waiting := make(map[models.Channel]int64, len(depths))
	active := make(map[models.Channel]int64, len(depths))
	for ch, d := range depths {
		waiting[ch] = d.Waiting
		active[ch] = d.Active
	}

	denom := processed
	if denom < 1 {
		denom = 1
	}

	s := Sample{
		Timestamp:        time.Now().UTC(),
		Waiting:          waiting,
		Active:           active,
		TotalProcessed:   processed,
		TotalErrors:      errs,
		ThroughputPerSec: float64(processed) / elapsed,
		ErrorRate:        float64(errs) / float64(denom),
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.samples = append(c.samples, s)
	if len(c.samples) > maxSamples {
		c.samples = c.samples[len(c.samples)-maxSamples:]
	}
}

// Snapshot returns the current sample, rolling averages, and the health
// predicate: healthy := errorRate < 5% && totalQueueDepth < 1000 &&
// totalActiveWorkers > 0.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(c.samples) == 0 {
		return Snapshot{}
	}

	current := c.samples[len(c.samples)-1]

	var sumThroughput, peak float64
	for _, s := range c.samples {
		sumThroughput += s.ThroughputPerSec
		if s.ThroughputPerSec > peak {
			peak = s.ThroughputPerSec
		}
	}
	avg := sumThroughput / float64(len(c.samples))

	var totalQueueDepth, totalActive int64
	for ch := range current.Waiting {
		totalQueueDepth += current.Waiting[ch]
	}
	for ch := range current.Active {
		totalActive += current.Active[ch]
	}

	healthy := current.ErrorRate < 0.05 && totalQueueDepth < 1000 && totalActive > 0

	return Snapshot{
		Current:           current,
		AverageThroughput: avg,
		PeakThroughput:    peak,
		Healthy:           healthy,
	}
}

// QueueDepth sums waiting+active across all channels, for HealthCheck.
func (c *Collector) QueueDepth(ctx context.Context) int64 {
	var total int64
	for _, d := range c.queues.Depths(ctx) {
		total += d.Waiting + d.Active
	}
	return total
}

// ActiveWorkers sums active job counts across all channels, for
// HealthCheck.
func (c *Collector) ActiveWorkers(ctx context.Context) int64 {
	var total int64
	for _, d := range c.queues.Depths(ctx) {
		total += d.Active
	}
	return total
}

// ThroughputPerSecond returns totalProcessed / elapsed since start.
func (c *Collector) ThroughputPerSecond() float64 {
	elapsed := time.Since(c.startedAt).Seconds()
	if elapsed <= 0 {
		elapsed = 1
	}
	return float64(atomic.LoadInt64(&c.totalProcessed)) / elapsed
}
