package shared

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"
)

// crawlUserAgent is sent on every request to the source site. 38.co.kr
// serves a reduced page to clients without a browser user-agent.
const crawlUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// NewCrawlHTTPClient returns an HTTP client tuned for the sequential crawl:
// pooled connections against a single host, conservative timeouts.
func NewCrawlHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:          10,
			MaxIdleConnsPerHost:   2,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

// SetCrawlHeaders configures request headers to mimic browser behavior
// against the Korean source site.
func SetCrawlHeaders(request *http.Request) {
	request.Header.Set("User-Agent", crawlUserAgent)
	request.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	request.Header.Set("Accept-Language", "ko-KR,ko;q=0.9,en-US;q=0.8")
	request.Header.Set("Connection", "keep-alive")
}

// ExecuteHTTPRequestWithRetry sends the request, retrying network errors
// and non-200 responses with exponential backoff. Requests here are GETs
// with no body, so the same request can be re-sent as is.
func ExecuteHTTPRequestWithRetry(client *http.Client, request *http.Request, maxRetryAttempts int) (*http.Response, error) {
	logger := logrus.WithFields(logrus.Fields{
		"component": "ExecuteHTTPRequestWithRetry",
		"url":       request.URL.String(),
	})

	var response *http.Response
	var lastAttemptError error

	for attempt := 0; attempt <= maxRetryAttempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			logger.WithFields(logrus.Fields{
				"attempt": attempt + 1,
				"backoff": backoff,
			}).Debug("Retrying request after backoff")
			time.Sleep(backoff)
		}

		response, lastAttemptError = client.Do(request)
		if lastAttemptError == nil && response.StatusCode == http.StatusOK {
			return response, nil
		}

		if lastAttemptError != nil {
			lastAttemptError = fmt.Errorf("attempt %d failed: %w", attempt+1, lastAttemptError)
		} else {
			lastAttemptError = fmt.Errorf("attempt %d returned HTTP %d", attempt+1, response.StatusCode)
			response.Body.Close()
		}
	}

	return nil, fmt.Errorf("request to %s failed after %d attempts: %w",
		request.URL.String(), maxRetryAttempts+1, lastAttemptError)
}

// FetchEUCKRPage retrieves a page from the source site and decodes its
// EUC-KR body into a UTF-8 string. The encoding is fixed by the site, not
// detected; malformed byte sequences fall back to the decoder's replacement
// rune rather than failing the fetch. The legacy site throws transient 5xx
// responses, so the fetch retries with backoff before giving up.
func FetchEUCKRPage(client *http.Client, pageURL string, maxRetryAttempts int) (string, error) {
	request, err := http.NewRequest(http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request for %s: %w", pageURL, err)
	}
	SetCrawlHeaders(request)

	response, err := ExecuteHTTPRequestWithRetry(client, request, maxRetryAttempts)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", pageURL, err)
	}
	defer response.Body.Close()

	decoded, err := io.ReadAll(transform.NewReader(response.Body, korean.EUCKR.NewDecoder()))
	if err != nil {
		return "", fmt.Errorf("failed to decode EUC-KR body of %s: %w", pageURL, err)
	}

	logrus.WithFields(logrus.Fields{
		"component": "FetchEUCKRPage",
		"url":       pageURL,
		"bytes":     len(decoded),
	}).Debug("Fetched and decoded page")

	return string(decoded), nil
}
