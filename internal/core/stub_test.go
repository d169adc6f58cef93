package core

import (
	"context"
	"strings"

	"medcot/internal/llm"
)

type stubCall struct {
	purpose string
	prompt  string
}

// stubLLM answers every request with respond and records what was asked.
type stubLLM struct {
	respond func(purpose, prompt string) (string, error)
	calls   []stubCall
}

func constantLLM(reply string) *stubLLM {
	return &stubLLM{respond: func(string, string) (string, error) { return reply, nil }}
}

func (s *stubLLM) Generate(ctx context.Context, prompt string) (string, error) {
	purpose := llm.PurposeFrom(ctx)
	s.calls = append(s.calls, stubCall{purpose: purpose, prompt: prompt})
	return s.respond(purpose, prompt)
}

func (s *stubLLM) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	parts := make([]string, 0, len(messages))
	for _, m := range messages {
		parts = append(parts, m.Content)
	}
	return s.Generate(ctx, strings.Join(parts, "\n"))
}

func (s *stubLLM) count(purpose string) int {
	n := 0
	for _, c := range s.calls {
		if c.purpose == purpose {
			n++
		}
	}
	return n
}
