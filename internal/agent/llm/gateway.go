package llm

import (
	"context"
	"fmt"
	"io"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/docuchat/server/internal/agent/model"
	logx "github.com/docuchat/server/pkg/logger"
)

// TextStream yields fragments of one response in order. It is finite and
// non-restartable; the concatenation of all fragments equals the full
// response. io.EOF terminates a successful stream.
type TextStream interface {
	Recv() (string, error)
	Close()
}

// Gateway is the narrow contract every workflow node talks to. Invoke
// blocks for the full response; Stream is an optimization that callers
// must never rely on succeeding.
type Gateway interface {
	Invoke(ctx context.Context, prompt string) (string, error)
	Stream(ctx context.Context, prompt string) (TextStream, error)
}

// Complete drains the streaming path and falls back to a single blocking
// call on any failure, whether opening the stream or mid-iteration.
func Complete(ctx context.Context, g Gateway, prompt string) (string, error) {
	stream, err := g.Stream(ctx, prompt)
	if err != nil {
		logx.Debug().Err(err).Msg("streaming unavailable, falling back to blocking call")
		return g.Invoke(ctx, prompt)
	}
	defer stream.Close()

	var b strings.Builder
	for {
		frag, err := stream.Recv()
		if err == io.EOF {
			return b.String(), nil
		}
		if err != nil {
			// The stream is not restartable, so rerun the whole request.
			logx.Debug().Err(err).Msg("stream failed mid-response, falling back to blocking call")
			return g.Invoke(ctx, prompt)
		}
		b.WriteString(frag)
	}
}

// ChatGateway adapts an Eino chat model to the Gateway contract.
type ChatGateway struct {
	cm        einomodel.BaseChatModel
	modelName string
}

func NewChatGateway(cm einomodel.BaseChatModel, modelName string) *ChatGateway {
	return &ChatGateway{cm: cm, modelName: modelName}
}

func (g *ChatGateway) Invoke(ctx context.Context, prompt string) (string, error) {
	out, err := g.cm.Generate(ctx, []*schema.Message{schema.UserMessage(prompt)})
	if err != nil {
		return "", fmt.Errorf("generate with %s: %w", g.modelName, err)
	}
	if out == nil {
		return "", nil
	}
	g.logUsage(out)
	return out.Content, nil
}

func (g *ChatGateway) Stream(ctx context.Context, prompt string) (TextStream, error) {
	sr, err := g.cm.Stream(ctx, []*schema.Message{schema.UserMessage(prompt)})
	if err != nil {
		return nil, fmt.Errorf("stream with %s: %w", g.modelName, err)
	}
	return &einoStream{r: sr}, nil
}

func (g *ChatGateway) logUsage(out *schema.Message) {
	if out.ResponseMeta == nil || out.ResponseMeta.Usage == nil {
		return
	}
	usage := out.ResponseMeta.Usage
	inC, outC, totalC := model.ComputeCost(usage, model.ResolvePricing(g.modelName))
	logx.Debug().
		Str("model", g.modelName).
		Int("prompt_tokens", usage.PromptTokens).
		Int("completion_tokens", usage.CompletionTokens).
		Int("total_tokens", usage.TotalTokens).
		Float64("input_cost_usd", inC).
		Float64("output_cost_usd", outC).
		Float64("total_cost_usd", totalC).
		Msg("LLM usage")
}

type einoStream struct {
	r *schema.StreamReader[*schema.Message]
}

func (s *einoStream) Recv() (string, error) {
	msg, err := s.r.Recv()
	if err != nil {
		return "", err
	}
	if msg == nil {
		return "", nil
	}
	return msg.Content, nil
}

func (s *einoStream) Close() {
	s.r.Close()
}
