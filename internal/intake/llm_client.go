package intake

import (
	"context"
	"time"
)

const (
	ChatRoleSystem    = "system"
	ChatRoleUser      = "user"
	ChatRoleAssistant = "assistant"
)

// ChatMessage is the wire representation sent to an LLM provider.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type TokenUsage struct {
	InputTokens  int32
	OutputTokens int32
	TotalTokens  int32
}

type LLMRequest struct {
	Model       string
	System      []string
	Messages    []ChatMessage
	MaxTokens   int32
	Temperature float32
	TopP        float32
}

type LLMResponse struct {
	Text       string
	Usage      TokenUsage
	StopReason string
}

// LLMClient is the text-in/text-out oracle used for completion judgments
// and full diagnostic report generation.
type LLMClient interface {
	Complete(ctx context.Context, req LLMRequest) (LLMResponse, error)
}

// BudgetedLLMClient bounds every provider call with a per-request
// deadline so a slow model cannot stall message handling.
type BudgetedLLMClient struct {
	inner  LLMClient
	budget time.Duration
}

// NewBudgetedLLMClient wraps inner with a per-call timeout. A zero or
// negative budget disables the deadline.
func NewBudgetedLLMClient(inner LLMClient, budget time.Duration) *BudgetedLLMClient {
	if inner == nil {
		panic("intake: inner LLM client cannot be nil")
	}
	return &BudgetedLLMClient{inner: inner, budget: budget}
}

func (c *BudgetedLLMClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	if c.budget > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.budget)
		defer cancel()
	}
	return c.inner.Complete(ctx, req)
}
