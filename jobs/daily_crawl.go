package jobs

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/gongmoju-info/gongmoju-backend/services"
	"github.com/sirupsen/logrus"
)

// ErrCrawlInProgress is returned when a trigger arrives while a crawl run
// is still executing. Runs never overlap; the late trigger is rejected,
// not queued.
var ErrCrawlInProgress = fmt.Errorf("crawl already running")

// DailyCrawlJob wraps the crawler with mutual exclusion so the scheduled
// trigger and a manual API trigger cannot run concurrently against the
// source site.
type DailyCrawlJob struct {
	CrawlerService *services.CrawlerService
	running        atomic.Bool
}

func NewDailyCrawlJob(crawlerService *services.CrawlerService) *DailyCrawlJob {
	return &DailyCrawlJob{CrawlerService: crawlerService}
}

// Trigger runs one crawl and returns its aggregate result. Callers get
// ErrCrawlInProgress when a run is already underway.
func (j *DailyCrawlJob) Trigger(ctx context.Context) (*services.CrawlResult, error) {
	if !j.running.CompareAndSwap(false, true) {
		return nil, ErrCrawlInProgress
	}
	defer j.running.Store(false)

	return j.CrawlerService.RunCrawl(ctx)
}

// Run is the scheduled entry point. Failures are logged, not propagated;
// the next tick retries.
func (j *DailyCrawlJob) Run() {
	logrus.Info("Starting daily IPO crawl job")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()

	result, err := j.Trigger(ctx)
	if err != nil {
		logrus.Errorf("Daily IPO crawl job failed: %v", err)
		return
	}
	logrus.Infof("Daily IPO crawl job completed: %s", result.Message)
}
