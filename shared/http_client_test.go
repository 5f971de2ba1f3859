package shared

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"
)

func TestFetchEUCKRPageDecodesKoreanText(t *testing.T) {
	const pageText = "<html><body>공모주 청약일정</body></html>"

	var receivedUserAgent string
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		receivedUserAgent = request.Header.Get("User-Agent")
		encoded, _, _ := transform.String(korean.EUCKR.NewEncoder(), pageText)
		_, _ = writer.Write([]byte(encoded))
	}))
	defer server.Close()

	decoded, err := FetchEUCKRPage(NewCrawlHTTPClient(5*time.Second), server.URL, 0)
	require.NoError(t, err)
	assert.Equal(t, pageText, decoded)
	assert.Contains(t, receivedUserAgent, "Chrome", "browser headers must be sent")
}

func TestFetchEUCKRPageRetriesTransientFailures(t *testing.T) {
	requestCount := 0
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		requestCount++
		if requestCount == 1 {
			writer.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = writer.Write([]byte("<html>ok</html>"))
	}))
	defer server.Close()

	decoded, err := FetchEUCKRPage(NewCrawlHTTPClient(5*time.Second), server.URL, 1)
	require.NoError(t, err, "a transient 503 must be retried away")
	assert.Equal(t, "<html>ok</html>", decoded)
	assert.Equal(t, 2, requestCount)
}

func TestExecuteHTTPRequestWithRetryExhaustsBudget(t *testing.T) {
	requestCount := 0
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		requestCount++
		writer.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	request, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	_, err = ExecuteHTTPRequestWithRetry(NewCrawlHTTPClient(5*time.Second), request, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
	assert.Equal(t, 2, requestCount)
}

func TestFetchEUCKRPageNonOKStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
		writer.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := FetchEUCKRPage(NewCrawlHTTPClient(5*time.Second), server.URL, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestPolitenessLimiterSpacing(t *testing.T) {
	limiter := NewPolitenessLimiter(50 * time.Millisecond)

	start := time.Now()
	limiter.Wait()
	assert.Less(t, time.Since(start), 50*time.Millisecond, "first call must not block")

	limiter.Wait()
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	assert.Equal(t, int64(2), limiter.RequestCount())
}
