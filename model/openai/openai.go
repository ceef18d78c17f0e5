// Package openai implements core.ReasoningEngine over the OpenAI Chat
// Completions API.
package openai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go"

	"github.com/convocore/convocore/core"
)

// Options configures the OpenAI engine. Fields mirror a minimal subset of
// Chat Completion parameters.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
}

// Engine wraps the OpenAI Chat Completions API behind core.ReasoningEngine.
type Engine struct {
	client *openai.Client
	opts   Options
}

// NewEngine creates an engine using the official client.
func NewEngine(optFns ...func(o *Options)) *Engine {
	client := openai.NewClient()
	return NewEngineFromClient(&client, optFns...)
}

// NewEngineFromClient creates an engine from an existing client.
func NewEngineFromClient(client *openai.Client, optFns ...func(o *Options)) *Engine {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.7,
		MaxCompletionTokens: 1024,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Engine{client: client, opts: opts}
}

// Respond maps the conversation history onto Chat Completions and converts
// the completion into an AgentResponse.
func (e *Engine) Respond(ctx context.Context, systemPrompt string, history []core.Message) (core.AgentResponse, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+1)
	if systemPrompt != "" {
		messages = append(messages, openai.SystemMessage(systemPrompt))
	}
	for _, m := range history {
		if m.Content == "" {
			continue
		}
		if m.Role == core.RoleAssistant {
			messages = append(messages, openai.AssistantMessage(m.Content))
		} else {
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}

	resp, err := e.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:               e.opts.Model,
		Messages:            messages,
		Temperature:         openai.Float(e.opts.Temperature),
		MaxCompletionTokens: openai.Int(e.opts.MaxCompletionTokens),
	})
	if err != nil {
		return core.AgentResponse{}, fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return core.AgentResponse{}, fmt.Errorf("openai returned no choices")
	}
	msg := resp.Choices[0].Message

	var toolCalls []core.ToolCall
	for _, tc := range msg.ToolCalls {
		input := map[string]any{}
		if tc.Function.Arguments != "" {
			_ = json.Unmarshal([]byte(tc.Function.Arguments), &input)
		}
		toolCalls = append(toolCalls, core.ToolCall{ID: tc.ID, Name: tc.Function.Name, Input: input})
	}

	if len(toolCalls) > 0 {
		return core.AgentResponse{Type: core.ResponseToolCall, Content: msg.Content, ToolCalls: toolCalls}, nil
	}
	return core.AgentResponse{Type: core.ResponseText, Content: msg.Content}, nil
}

// Interface compliance (compile-time assertion)
var _ core.ReasoningEngine = (*Engine)(nil)
