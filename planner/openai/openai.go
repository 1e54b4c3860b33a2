// Package openai implements planner.Planner on the OpenAI Chat Completions
// API with function/tool calling. Because the API shape is shared by several
// vendors, the BaseURL option also serves OpenAI-compatible endpoints such as
// DeepSeek.
package openai

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/coolkidhugh/streamlit-medrax-agent/core"
	"github.com/coolkidhugh/streamlit-medrax-agent/planner"
)

// Options configure the OpenAI planner adapter. Fields mirror a minimal
// subset of Chat Completion parameters; extend via functional options.
type Options struct {
	Model               string
	Temperature         float64
	MaxCompletionTokens int64
	APIKey              string
	BaseURL             string // set to target an OpenAI-compatible endpoint
}

// Planner wraps the OpenAI Chat Completions API behind planner.Planner.
type Planner struct {
	client *openai.Client
	opts   Options
}

// New creates a planner using a client built from the options.
func New(optFns ...func(o *Options)) *Planner {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	if opts.BaseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(opts.BaseURL))
	}
	client := openai.NewClient(clientOpts...)

	return &Planner{client: &client, opts: opts}
}

// NewFromClient creates a planner from an existing client.
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Planner {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Planner{client: client, opts: opts}
}

func defaultOptions() Options {
	return Options{
		Model:               openai.ChatModelGPT4oMini,
		Temperature:         0.2,
		MaxCompletionTokens: 4096,
	}
}

// Plan implements planner.Planner with a single blocking completion call.
func (p *Planner) Plan(ctx context.Context, req planner.Request) (planner.Decision, error) {
	params := p.buildParams(req)

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return planner.Decision{}, fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return planner.Decision{}, fmt.Errorf("openai api returned no choices")
	}

	msg := resp.Choices[0].Message
	if len(msg.ToolCalls) > 0 {
		calls := make([]core.ToolCall, 0, len(msg.ToolCalls))
		for _, tc := range msg.ToolCalls {
			calls = append(calls, core.ToolCall{
				ID:        tc.ID,
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			})
		}
		return planner.Decision{ToolCalls: calls}, nil
	}

	return planner.Decision{FinalAnswer: msg.Content}, nil
}

// buildParams assembles the completion parameters including tool definitions.
func (p *Planner) buildParams(req planner.Request) openai.ChatCompletionNewParams {
	messages := buildMessages(req)

	params := openai.ChatCompletionNewParams{
		Messages:            messages,
		Model:               p.opts.Model,
		Temperature:         openai.Float(p.opts.Temperature),
		MaxCompletionTokens: openai.Int(p.opts.MaxCompletionTokens),
	}

	if len(req.Tools) == 0 {
		return params
	}
	tools := make([]openai.ChatCompletionToolParam, len(req.Tools))
	for i, tdef := range req.Tools {
		tools[i] = openai.ChatCompletionToolParam{
			Type: "function",
			Function: openai.FunctionDefinitionParam{
				Name:        tdef.Name,
				Description: openai.String(tdef.Description),
				Parameters:  tdef.Parameters,
			},
		}
	}
	params.Tools = tools
	return params
}

// buildMessages converts normalized contents into chat messages, attaching
// matching tool responses immediately after the assistant tool calls that
// produced them.
func buildMessages(req planner.Request) []openai.ChatCompletionMessageParamUnion {
	toolResponses, order := collectToolResponses(req.Contents)

	var messages []openai.ChatCompletionMessageParamUnion
	if req.Instructions != "" {
		messages = append(messages, openai.SystemMessage(req.Instructions))
	}

	for _, c := range req.Contents {
		if c.Role == "tool" {
			continue // paired below their originating calls
		}
		text := flattenText(c)
		switch c.Role {
		case "system":
			messages = append(messages, openai.SystemMessage(text))
		case "assistant":
			toolCalls, callIDs := extractToolCalls(c)
			if len(toolCalls) == 0 {
				messages = append(messages, openai.AssistantMessage(text))
				continue
			}
			messages = append(messages, openai.ChatCompletionMessageParamUnion{
				OfAssistant: &openai.ChatCompletionAssistantMessageParam{
					Role:      "assistant",
					ToolCalls: toolCalls,
				},
			})
			for _, id := range callIDs {
				if resp, ok := toolResponses[id]; ok {
					messages = append(messages, openai.ToolMessage(resp, id))
					delete(toolResponses, id)
				}
			}
		default:
			if text != "" {
				messages = append(messages, openai.UserMessage(text))
			}
		}
	}

	// Orphaned tool responses (call id lost upstream) still reach the model.
	for _, id := range order {
		if resp, ok := toolResponses[id]; ok {
			messages = append(messages, openai.ToolMessage(resp, id))
		}
	}
	return messages
}

// collectToolResponses indexes tool responses by call id preserving
// first-seen order.
func collectToolResponses(contents []core.Content) (map[string]string, []string) {
	responses := map[string]string{}
	order := []string{}
	for _, c := range contents {
		if c.Role != "tool" {
			continue
		}
		for _, p := range c.Parts {
			fr, ok := p.(core.FunctionResponsePart)
			if !ok || fr.Result.CallID == "" {
				continue
			}
			if _, exists := responses[fr.Result.CallID]; exists {
				continue
			}
			responses[fr.Result.CallID] = fr.Result.Text()
			order = append(order, fr.Result.CallID)
		}
	}
	return responses, order
}

func extractToolCalls(c core.Content) ([]openai.ChatCompletionMessageToolCallParam, []string) {
	var toolCalls []openai.ChatCompletionMessageToolCallParam
	var callIDs []string
	for _, p := range c.Parts {
		if fc, ok := p.(core.FunctionCallPart); ok {
			toolCalls = append(toolCalls, openai.ChatCompletionMessageToolCallParam{
				ID:   fc.Call.ID,
				Type: "function",
				Function: openai.ChatCompletionMessageToolCallFunctionParam{
					Name:      fc.Call.Name,
					Arguments: fc.Call.Arguments,
				},
			})
			callIDs = append(callIDs, fc.Call.ID)
		}
	}
	return toolCalls, callIDs
}

// flattenText joins text parts; file parts are rendered as a reference line
// so the model knows the on-disk path to hand to tools.
func flattenText(c core.Content) string {
	var b strings.Builder
	for _, p := range c.Parts {
		switch part := p.(type) {
		case core.TextPart:
			b.WriteString(part.Text)
		case core.FilePart:
			if b.Len() > 0 {
				b.WriteString("\n")
			}
			fmt.Fprintf(&b, "[attached image: %s]", part.Path)
		}
	}
	return b.String()
}

// Info returns metadata describing this adapter.
func (p *Planner) Info() planner.Info {
	return planner.Info{Name: p.opts.Model, Provider: "openai"}
}
