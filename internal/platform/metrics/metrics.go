package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

type Collector struct {
	totalRequests   uint64
	errorRequests   uint64
	rateLimited     uint64
	totalDurationMs uint64
	scansAccepted   uint64
	sheetsFinalized uint64

	mu            sync.Mutex
	scansRejected map[string]uint64
}

func New() *Collector {
	return &Collector{scansRejected: map[string]uint64{}}
}

func (c *Collector) Record(status int, duration time.Duration) {
	atomic.AddUint64(&c.totalRequests, 1)
	if status >= 500 {
		atomic.AddUint64(&c.errorRequests, 1)
	}
	if status == 429 {
		atomic.AddUint64(&c.rateLimited, 1)
	}
	atomic.AddUint64(&c.totalDurationMs, uint64(duration.Milliseconds()))
}

func (c *Collector) ScanAccepted() {
	atomic.AddUint64(&c.scansAccepted, 1)
}

// ScanRejected counts a rejected account scan under its reason code.
func (c *Collector) ScanRejected(reason string) {
	c.mu.Lock()
	c.scansRejected[reason]++
	c.mu.Unlock()
}

func (c *Collector) SheetFinalized() {
	atomic.AddUint64(&c.sheetsFinalized, 1)
}

func (c *Collector) Snapshot() map[string]any {
	total := atomic.LoadUint64(&c.totalRequests)
	errs := atomic.LoadUint64(&c.errorRequests)
	limited := atomic.LoadUint64(&c.rateLimited)
	totalMs := atomic.LoadUint64(&c.totalDurationMs)
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}

	c.mu.Lock()
	rejected := make(map[string]uint64, len(c.scansRejected))
	var rejectedTotal uint64
	for reason, n := range c.scansRejected {
		rejected[reason] = n
		rejectedTotal += n
	}
	c.mu.Unlock()

	return map[string]any{
		"requestsTotal":        total,
		"errorsTotal":          errs,
		"rateLimitedTotal":     limited,
		"avgDurationMs":        avg,
		"totalDurationMs":      totalMs,
		"scansAcceptedTotal":   atomic.LoadUint64(&c.scansAccepted),
		"scansRejectedTotal":   rejectedTotal,
		"scansRejectedByCode":  rejected,
		"sheetsFinalizedTotal": atomic.LoadUint64(&c.sheetsFinalized),
	}
}
