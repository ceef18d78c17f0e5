// Package anthropic implements core.ReasoningEngine over the Anthropic
// Messages API.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/convocore/convocore/core"
)

// Options configures the Anthropic engine (model id, token budget,
// temperature, API key).
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

// Engine wraps the Anthropic Messages API behind core.ReasoningEngine.
type Engine struct {
	client *anthropic.Client
	opts   Options
}

// NewEngine creates an engine using the official client.
func NewEngine(optFns ...func(o *Options)) *Engine {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   1024,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(clientOpts...)
	return &Engine{client: &client, opts: opts}
}

// NewEngineFromClient creates an engine from an existing client.
func NewEngineFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Engine {
	opts := Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.7,
		MaxTokens:   1024,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Engine{client: client, opts: opts}
}

// Respond maps the conversation history onto the Messages API and converts
// the completion into an AgentResponse. Tool-use blocks become tool calls;
// plain completions become text responses.
func (e *Engine) Respond(ctx context.Context, systemPrompt string, history []core.Message) (core.AgentResponse, error) {
	params := anthropic.MessageNewParams{
		Model:       e.opts.Model,
		Messages:    buildMessages(history),
		MaxTokens:   e.opts.MaxTokens,
		Temperature: anthropic.Float(e.opts.Temperature),
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}

	resp, err := e.client.Messages.New(ctx, params)
	if err != nil {
		return core.AgentResponse{}, fmt.Errorf("anthropic api error: %w", err)
	}

	var (
		content   string
		toolCalls []core.ToolCall
	)
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			content += block.AsText().Text
		case "tool_use":
			tu := block.AsToolUse()
			input := map[string]any{}
			if tu.Input != nil {
				raw, err := json.Marshal(tu.Input)
				if err == nil {
					_ = json.Unmarshal(raw, &input)
				}
			}
			toolCalls = append(toolCalls, core.ToolCall{ID: tu.ID, Name: tu.Name, Input: input})
		}
	}

	if len(toolCalls) > 0 {
		return core.AgentResponse{Type: core.ResponseToolCall, Content: content, ToolCalls: toolCalls}, nil
	}
	return core.AgentResponse{Type: core.ResponseText, Content: content}, nil
}

// buildMessages converts session history to Anthropic message params.
func buildMessages(history []core.Message) []anthropic.MessageParam {
	messages := make([]anthropic.MessageParam, 0, len(history))
	for _, m := range history {
		if m.Content == "" {
			continue
		}
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == core.RoleAssistant {
			messages = append(messages, anthropic.NewAssistantMessage(block))
		} else {
			messages = append(messages, anthropic.NewUserMessage(block))
		}
	}
	return messages
}

// Interface compliance (compile-time assertion)
var _ core.ReasoningEngine = (*Engine)(nil)
