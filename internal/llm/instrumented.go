package llm

import (
	"context"
	"time"

	"medcot/internal/observability/metrics"
)

type purposeKey struct{}

// WithPurpose tags ctx with the reason for a generation call ("patient",
// "doctor", "resolution", "questions"). The tag only feeds logs and metrics.
func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, purposeKey{}, purpose)
}

// PurposeFrom returns the purpose set by WithPurpose, or "unknown".
func PurposeFrom(ctx context.Context) string {
	if p, ok := ctx.Value(purposeKey{}).(string); ok && p != "" {
		return p
	}
	return "unknown"
}

// InstrumentedClient records call outcome and latency for every request.
type InstrumentedClient struct {
	next    Client
	metrics *metrics.GenerationMetrics
}

func NewInstrumentedClient(next Client, m *metrics.GenerationMetrics) *InstrumentedClient {
	return &InstrumentedClient{next: next, metrics: m}
}

func (c *InstrumentedClient) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	out, err := c.next.Generate(ctx, prompt)
	c.metrics.ObserveLLMCall(PurposeFrom(ctx), err, time.Since(start).Seconds())
	return out, err
}

func (c *InstrumentedClient) Chat(ctx context.Context, messages []Message) (string, error) {
	start := time.Now()
	out, err := c.next.Chat(ctx, messages)
	c.metrics.ObserveLLMCall(PurposeFrom(ctx), err, time.Since(start).Seconds())
	return out, err
}
