package intake

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/medbridge-ai/intake-pipeline/pkg/logging"
)

func TestFallbackClientPrimarySucceeds(t *testing.T) {
	primary := &scriptedLLM{responses: []LLMResponse{{Text: "primary"}}}
	fallback := &scriptedLLM{responses: []LLMResponse{{Text: "fallback"}}}
	client := NewFallbackLLMClient(primary, fallback, logging.New("error"))

	resp, err := client.Complete(context.Background(), LLMRequest{Model: "m"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Text != "primary" {
		t.Errorf("got %q, want primary response", resp.Text)
	}
	if fallback.calls != 0 {
		t.Errorf("fallback called %d times", fallback.calls)
	}
}

func TestFallbackClientSwitchesOnError(t *testing.T) {
	primary := &scriptedLLM{errs: []error{errors.New("throttled")}}
	fallback := &scriptedLLM{responses: []LLMResponse{{Text: "fallback"}}}
	client := NewFallbackLLMClient(primary, fallback, logging.New("error"))

	resp, err := client.Complete(context.Background(), LLMRequest{Model: "m"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if resp.Text != "fallback" {
		t.Errorf("got %q, want fallback response", resp.Text)
	}
}

func TestFallbackClientBothFail(t *testing.T) {
	primary := &scriptedLLM{errs: []error{errors.New("primary down")}}
	fallback := &scriptedLLM{errs: []error{errors.New("fallback down")}}
	client := NewFallbackLLMClient(primary, fallback, logging.New("error"))

	if _, err := client.Complete(context.Background(), LLMRequest{Model: "m"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestFallbackClientNoFallbackConfigured(t *testing.T) {
	wantErr := errors.New("primary down")
	primary := &scriptedLLM{errs: []error{wantErr}}
	client := NewFallbackLLMClient(primary, nil, logging.New("error"))

	if _, err := client.Complete(context.Background(), LLMRequest{Model: "m"}); !errors.Is(err, wantErr) {
		t.Fatalf("expected primary error, got %v", err)
	}
}

type deadlineCapturingLLM struct {
	deadline    time.Time
	hadDeadline bool
}

func (d *deadlineCapturingLLM) Complete(ctx context.Context, _ LLMRequest) (LLMResponse, error) {
	d.deadline, d.hadDeadline = ctx.Deadline()
	return LLMResponse{Text: "ok"}, nil
}

func TestBudgetedClientAppliesDeadline(t *testing.T) {
	inner := &deadlineCapturingLLM{}
	client := NewBudgetedLLMClient(inner, 45*time.Second)

	if _, err := client.Complete(context.Background(), LLMRequest{Model: "m"}); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if !inner.hadDeadline {
		t.Fatal("expected a deadline on the call context")
	}
	if remaining := time.Until(inner.deadline); remaining > 45*time.Second {
		t.Errorf("deadline too far out: %s", remaining)
	}
}

func TestBudgetedClientZeroBudgetDisablesDeadline(t *testing.T) {
	inner := &deadlineCapturingLLM{}
	client := NewBudgetedLLMClient(inner, 0)

	if _, err := client.Complete(context.Background(), LLMRequest{Model: "m"}); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if inner.hadDeadline {
		t.Fatal("expected no deadline")
	}
}
