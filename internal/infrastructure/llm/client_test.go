package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"z-book-ai-api/internal/config"
)

type stubChatModel struct {
	reply *schema.Message
	err   error

	gotMsgs []*schema.Message
	gotOpts []model.Option
}

func (s *stubChatModel) Generate(_ context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	s.gotMsgs = input
	s.gotOpts = opts
	return s.reply, s.err
}

func (s *stubChatModel) Stream(_ context.Context, _ []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not supported in stub")
}

func testLLMConfig() *config.LLMConfig {
	return &config.LLMConfig{
		Provider:          "together",
		Model:             "meta-llama/Meta-Llama-3.1-8B-Instruct-Turbo",
		Temperature:       0.7,
		TopP:              0.9,
		TopK:              50,
		RepetitionPenalty: 1.03,
	}
}

func TestCompleteBuildsMessagesAndOptions(t *testing.T) {
	stub := &stubChatModel{reply: schema.AssistantMessage("  Chapter One\nText  ", nil)}
	c := NewEinoClient(stub, testLLMConfig())

	got, err := c.Complete(context.Background(), CompletionRequest{
		System:    "You are an author.",
		Messages:  []string{"previous text", "continue"},
		MaxTokens: 4000,
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "Chapter One\nText" {
		t.Fatalf("Complete = %q, want trimmed text", got)
	}

	if len(stub.gotMsgs) != 3 {
		t.Fatalf("messages = %d, want 3", len(stub.gotMsgs))
	}
	if stub.gotMsgs[0].Role != schema.System || stub.gotMsgs[0].Content != "You are an author." {
		t.Errorf("first message = %+v, want system prompt", stub.gotMsgs[0])
	}
	for i, want := range []string{"previous text", "continue"} {
		m := stub.gotMsgs[i+1]
		if m.Role != schema.User || m.Content != want {
			t.Errorf("message %d = %+v, want user %q", i+1, m, want)
		}
	}

	opts := model.GetCommonOptions(nil, stub.gotOpts...)
	if opts.MaxTokens == nil || *opts.MaxTokens != 4000 {
		t.Errorf("max tokens option = %v, want 4000", opts.MaxTokens)
	}
	if opts.Temperature == nil || *opts.Temperature != float32(0.7) {
		t.Errorf("temperature option = %v, want 0.7", opts.Temperature)
	}
	if opts.TopP == nil || *opts.TopP != float32(0.9) {
		t.Errorf("top_p option = %v, want 0.9", opts.TopP)
	}
}

func TestCompleteWrapsBackendError(t *testing.T) {
	backendErr := errors.New("429 rate limited")
	c := NewEinoClient(&stubChatModel{err: backendErr}, testLLMConfig())

	_, err := c.Complete(context.Background(), CompletionRequest{System: "s", Messages: []string{"u"}})
	if !errors.Is(err, backendErr) {
		t.Fatalf("err = %v, want wrapped backend error", err)
	}
}

func TestCompleteNilResponse(t *testing.T) {
	c := NewEinoClient(&stubChatModel{}, testLLMConfig())
	if _, err := c.Complete(context.Background(), CompletionRequest{System: "s"}); err == nil {
		t.Fatal("expected error for nil response")
	}
}

func TestCompleteHonoursLimiterCancellation(t *testing.T) {
	cfg := testLLMConfig()
	cfg.RateLimit = config.LLMRateLimitConfig{Enabled: true, RequestsPerSecond: 0.001, Burst: 1}
	stub := &stubChatModel{reply: schema.AssistantMessage("ok", nil)}
	c := NewEinoClient(stub, cfg)

	if _, err := c.Complete(context.Background(), CompletionRequest{System: "s"}); err != nil {
		t.Fatalf("first call should use the burst token: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.Complete(ctx, CompletionRequest{System: "s"}); err == nil {
		t.Fatal("expected limiter error on cancelled context")
	}
}

func TestNewChatModelRequiresKey(t *testing.T) {
	if _, err := NewChatModel(context.Background(), &config.LLMConfig{}); err == nil {
		t.Fatal("expected error without api key")
	}
}
