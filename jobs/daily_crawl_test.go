package jobs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gongmoju-info/gongmoju-backend/models"
	"github.com/gongmoju-info/gongmoju-backend/services"
)

type noopUpserter struct{}

func (noopUpserter) UpsertIPO(context.Context, models.IPO) error { return nil }

func TestTriggerRejectsOverlappingRuns(t *testing.T) {
	fetchStarted := make(chan struct{})
	releaseFetch := make(chan struct{})
	var signalOnce sync.Once

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		signalOnce.Do(func() { close(fetchStarted) })
		<-releaseFetch
		_, _ = writer.Write([]byte("<html><body></body></html>"))
	}))
	defer server.Close()

	crawler := services.NewCrawlerService(&services.CrawlerConfiguration{
		BaseURL:            server.URL,
		ListURL:            server.URL + "/list",
		HTTPRequestTimeout: 5 * time.Second,
		PolitenessDelay:    time.Millisecond,
	}, noopUpserter{})
	job := NewDailyCrawlJob(crawler)

	firstDone := make(chan error, 1)
	go func() {
		_, err := job.Trigger(context.Background())
		firstDone <- err
	}()

	// Wait until the first run is provably inside its list fetch.
	select {
	case <-fetchStarted:
	case <-time.After(5 * time.Second):
		t.Fatal("first crawl never reached the list page")
	}

	_, err := job.Trigger(context.Background())
	assert.ErrorIs(t, err, ErrCrawlInProgress)

	close(releaseFetch)
	require.NoError(t, <-firstDone)

	// Once the first run finishes the guard is released again.
	result, err := job.Trigger(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Count)
}
