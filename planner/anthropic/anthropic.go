// Package anthropic implements planner.Planner on the Anthropic Messages API
// with tool use.
package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"

	"github.com/coolkidhugh/streamlit-medrax-agent/core"
	"github.com/coolkidhugh/streamlit-medrax-agent/planner"
)

// Options configure the Anthropic planner adapter.
type Options struct {
	Model       anthropic.Model
	Temperature float64
	MaxTokens   int64
	APIKey      string
}

// Planner wraps the Anthropic Messages API behind planner.Planner.
type Planner struct {
	client *anthropic.Client
	opts   Options
}

// New creates a planner using the official client.
func New(optFns ...func(o *Options)) *Planner {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}
	client := anthropic.NewClient(clientOpts...)

	return &Planner{client: &client, opts: opts}
}

// NewFromClient creates a planner from an existing client.
func NewFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Planner {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Planner{client: client, opts: opts}
}

func defaultOptions() Options {
	return Options{
		Model:       anthropic.ModelClaude3_5Sonnet20241022,
		Temperature: 0.2,
		MaxTokens:   4096,
	}
}

// Plan implements planner.Planner with a single blocking Messages call.
func (p *Planner) Plan(ctx context.Context, req planner.Request) (planner.Decision, error) {
	params := anthropic.MessageNewParams{
		Model:       p.opts.Model,
		Messages:    buildMessages(req.Contents),
		MaxTokens:   p.opts.MaxTokens,
		Temperature: anthropic.Float(p.opts.Temperature),
	}
	if req.Instructions != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.Instructions}}
	}
	if len(req.Tools) > 0 {
		params.Tools = buildTools(req.Tools)
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return planner.Decision{}, fmt.Errorf("anthropic api error: %w", err)
	}

	var answer strings.Builder
	var calls []core.ToolCall
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			answer.WriteString(block.AsText().Text)
		case "tool_use":
			toolBlock := block.AsToolUse()
			args := ""
			if toolBlock.Input != nil {
				if raw, err := json.Marshal(toolBlock.Input); err == nil {
					args = string(raw)
				}
			}
			calls = append(calls, core.ToolCall{
				ID:        toolBlock.ID,
				Name:      toolBlock.Name,
				Arguments: args,
			})
		}
	}

	if len(calls) > 0 {
		return planner.Decision{ToolCalls: calls}, nil
	}
	return planner.Decision{FinalAnswer: answer.String()}, nil
}

// buildMessages converts normalized contents into Anthropic messages. Tool
// results are embedded as tool_result blocks in a user message directly after
// the assistant turn that issued the call, which is the ordering the API
// requires.
func buildMessages(contents []core.Content) []anthropic.MessageParam {
	toolResponses := map[string]core.ToolResult{}
	for _, c := range contents {
		if c.Role != "tool" {
			continue
		}
		for _, p := range c.Parts {
			if fr, ok := p.(core.FunctionResponsePart); ok && fr.Result.CallID != "" {
				toolResponses[fr.Result.CallID] = fr.Result
			}
		}
	}

	var messages []anthropic.MessageParam
	for _, c := range contents {
		switch c.Role {
		case "system", "tool":
			continue // system handled via params.System, tool results paired below
		case "assistant":
			content, callIDs := buildAssistantContent(c.Parts)
			if len(content) > 0 {
				messages = append(messages, anthropic.NewAssistantMessage(content...))
			}
			var results []anthropic.ContentBlockParamUnion
			for _, id := range callIDs {
				if res, ok := toolResponses[id]; ok {
					results = append(results, anthropic.NewToolResultBlock(id, res.Text(), res.Failed()))
					delete(toolResponses, id)
				}
			}
			if len(results) > 0 {
				messages = append(messages, anthropic.NewUserMessage(results...))
			}
		default:
			content := buildUserContent(c.Parts)
			if len(content) > 0 {
				messages = append(messages, anthropic.NewUserMessage(content...))
			}
		}
	}
	return messages
}

func buildUserContent(parts []core.Part) []anthropic.ContentBlockParamUnion {
	var content []anthropic.ContentBlockParamUnion
	for _, p := range parts {
		switch part := p.(type) {
		case core.TextPart:
			if part.Text != "" {
				content = append(content, anthropic.NewTextBlock(part.Text))
			}
		case core.FilePart:
			content = append(content, anthropic.NewTextBlock(fmt.Sprintf("[attached image: %s]", part.Path)))
		}
	}
	return content
}

func buildAssistantContent(parts []core.Part) ([]anthropic.ContentBlockParamUnion, []string) {
	var content []anthropic.ContentBlockParamUnion
	var callIDs []string
	for _, p := range parts {
		switch part := p.(type) {
		case core.TextPart:
			if part.Text != "" {
				content = append(content, anthropic.NewTextBlock(part.Text))
			}
		case core.FunctionCallPart:
			var input any
			if part.Call.Arguments != "" {
				if err := json.Unmarshal([]byte(part.Call.Arguments), &input); err != nil {
					input = part.Call.Arguments
				}
			}
			content = append(content, anthropic.NewToolUseBlock(part.Call.ID, input, part.Call.Name))
			callIDs = append(callIDs, part.Call.ID)
		}
	}
	return content, callIDs
}

// buildTools converts tool definitions to the Anthropic tool format.
func buildTools(tools []planner.ToolDefinition) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, len(tools))
	for i, t := range tools {
		inputSchema := anthropic.ToolInputSchemaParam{Type: constant.Object("object")}
		if t.Parameters != nil {
			if properties, ok := t.Parameters["properties"]; ok {
				inputSchema.Properties = properties
			}
			switch req := t.Parameters["required"].(type) {
			case []string:
				inputSchema.Required = req
			case []any:
				for _, r := range req {
					if s, ok := r.(string); ok {
						inputSchema.Required = append(inputSchema.Required, s)
					}
				}
			}
		}
		out[i] = anthropic.ToolUnionParamOfTool(inputSchema, t.Name)
	}
	return out
}

// Info returns metadata describing this adapter.
func (p *Planner) Info() planner.Info {
	return planner.Info{Name: string(p.opts.Model), Provider: "anthropic"}
}
