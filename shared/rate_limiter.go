package shared

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// PolitenessLimiter enforces a minimum delay between consecutive requests
// to the source site. Detail pages are fetched one at a time; the limiter
// keeps the gap between them even when row processing is fast.
type PolitenessLimiter struct {
	minimumDelay    time.Duration
	lastRequestTime time.Time
	mutex           sync.Mutex
	requestCount    int64
}

// NewPolitenessLimiter creates a limiter with the given minimum delay
// between requests.
func NewPolitenessLimiter(minimumDelay time.Duration) *PolitenessLimiter {
	return &PolitenessLimiter{minimumDelay: minimumDelay}
}

// Wait blocks until the minimum delay has elapsed since the previous call.
// The first call never blocks.
func (limiter *PolitenessLimiter) Wait() {
	limiter.mutex.Lock()
	defer limiter.mutex.Unlock()

	if !limiter.lastRequestTime.IsZero() {
		elapsed := time.Since(limiter.lastRequestTime)
		if elapsed < limiter.minimumDelay {
			remaining := limiter.minimumDelay - elapsed
			logrus.WithFields(logrus.Fields{
				"component":       "PolitenessLimiter",
				"remaining_delay": remaining,
				"request_count":   limiter.requestCount + 1,
			}).Debug("Enforcing politeness delay")
			time.Sleep(remaining)
		}
	}

	limiter.lastRequestTime = time.Now()
	limiter.requestCount++
}

// RequestCount returns the total number of requests let through.
func (limiter *PolitenessLimiter) RequestCount() int64 {
	limiter.mutex.Lock()
	defer limiter.mutex.Unlock()
	return limiter.requestCount
}
