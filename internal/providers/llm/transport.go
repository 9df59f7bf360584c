package llm

import (
	"context"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

// NewHTTPClient returns an *http.Client that retries connection errors,
// 429 and 5xx with exponential backoff. The SDK clients are configured
// with zero retries of their own so attempts are not multiplied.
func NewHTTPClient(timeout time.Duration, maxRetries int, logger *zap.Logger) *http.Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = maxRetries
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 8 * time.Second
	rc.CheckRetry = checkRetry
	rc.Logger = zapLeveled{logger.Named("http")}

	client := rc.StandardClient()
	client.Timeout = timeout
	return client
}

// checkRetry stops on caller cancellation and otherwise defers to the
// library policy
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	return retryablehttp.ErrorPropagatedRetryPolicy(ctx, resp, err)
}

// zapLeveled adapts zap to retryablehttp.LeveledLogger
type zapLeveled struct {
	l *zap.Logger
}

func (z zapLeveled) Error(msg string, kv ...interface{}) { z.l.Sugar().Errorw(msg, kv...) }
func (z zapLeveled) Info(msg string, kv ...interface{})  { z.l.Sugar().Debugw(msg, kv...) }
func (z zapLeveled) Debug(msg string, kv ...interface{}) { z.l.Sugar().Debugw(msg, kv...) }
func (z zapLeveled) Warn(msg string, kv ...interface{})  { z.l.Sugar().Warnw(msg, kv...) }
