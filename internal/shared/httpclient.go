package shared

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hashicorp/go-retryablehttp"
)

// Per-call timeouts for outbound requests.
const (
	ReadTimeout  = 15 * time.Second
	WriteTimeout = 30 * time.Second
)

// leveledLogger adapts a [log.Logger] to [retryablehttp.LeveledLogger].
type leveledLogger struct {
	l *log.Logger
}

func (ll leveledLogger) Error(msg string, kv ...any) { ll.l.Error(msg, kv...) }
func (ll leveledLogger) Info(msg string, kv ...any)  { ll.l.Debug(msg, kv...) }
func (ll leveledLogger) Debug(msg string, kv ...any) { ll.l.Debug(msg, kv...) }
func (ll leveledLogger) Warn(msg string, kv ...any)  { ll.l.Warn(msg, kv...) }

// NewRetryClient returns a retrying client for idempotent reads.
//
// Rate limited responses (429) are handed back to the caller untouched so it can honor Retry-After itself.
func NewRetryClient(logger *log.Logger, retries int) *retryablehttp.Client {
	client := retryablehttp.NewClient()
	client.RetryMax = retries
	client.RetryWaitMin = 250 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.HTTPClient.Timeout = ReadTimeout
	client.CheckRetry = checkRetry
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if logger != nil {
		client.Logger = leveledLogger{l: logger}
	} else {
		client.Logger = nil
	}
	return client
}

// NewReadClient wraps [NewRetryClient] as a plain [http.Client].
func NewReadClient(logger *log.Logger) *http.Client {
	return NewRetryClient(logger, 3).StandardClient()
}

// NewWriteClient returns a non-retrying client for mutating calls.
func NewWriteClient() *http.Client {
	return &http.Client{Timeout: WriteTimeout}
}

func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if resp != nil && resp.StatusCode == http.StatusTooManyRequests {
		return false, nil
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}
