package llm

import (
	"context"
	"errors"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"medcot/pkg/logging"
)

const maxBackoff = 30 * time.Second

// RetryClient retries failed generations with exponential backoff. With
// maxAttempts of 1 it behaves exactly like the wrapped client.
type RetryClient struct {
	next        Client
	maxAttempts int
	baseDelay   time.Duration
	logger      *logging.Logger
}

func NewRetryClient(next Client, logger *logging.Logger) *RetryClient {
	if next == nil {
		panic("llm: retry client requires a wrapped client")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &RetryClient{
		next:        next,
		maxAttempts: 1,
		baseDelay:   time.Second,
		logger:      logger,
	}
}

func (r *RetryClient) WithMaxAttempts(n int) *RetryClient {
	if n > 0 {
		r.maxAttempts = n
	}
	return r
}

func (r *RetryClient) WithBaseDelay(d time.Duration) *RetryClient {
	if d > 0 {
		r.baseDelay = d
	}
	return r
}

func (r *RetryClient) Generate(ctx context.Context, prompt string) (string, error) {
	return r.do(ctx, func(ctx context.Context) (string, error) {
		return r.next.Generate(ctx, prompt)
	})
}

func (r *RetryClient) Chat(ctx context.Context, messages []Message) (string, error) {
	return r.do(ctx, func(ctx context.Context) (string, error) {
		return r.next.Chat(ctx, messages)
	})
}

func (r *RetryClient) do(ctx context.Context, call func(context.Context) (string, error)) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		out, err := call(ctx)
		if err == nil {
			return out, nil
		}
		lastErr = err
		if attempt == r.maxAttempts || !Retryable(err) {
			break
		}
		delay := r.backoff(attempt)
		r.logger.Warn("llm call failed, retrying",
			"attempt", attempt,
			"max_attempts", r.maxAttempts,
			"delay", delay.String(),
			"purpose", PurposeFrom(ctx),
			"error", err.Error(),
		)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}
	}
	return "", lastErr
}

func (r *RetryClient) backoff(attempt int) time.Duration {
	delay := r.baseDelay << (attempt - 1)
	if delay <= 0 || delay > maxBackoff {
		return maxBackoff
	}
	return delay
}

// Retryable reports whether err is worth another attempt. Cancellation and
// client-side API errors (other than rate limiting) are not.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		status := apiErr.HTTPStatusCode
		if status == http.StatusTooManyRequests || status >= http.StatusInternalServerError {
			return true
		}
		return status == 0
	}
	return true
}
