package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"docchat/internal/domain"
	"docchat/internal/logger"
)

// MaxSubQuestions caps how many sub-questions are used regardless of how
// many the provider returns, to bound downstream retrieval cost.
const MaxSubQuestions = 6

const toolName = "analyze_question_complexity"

const systemPrompt = "You are an expert at analyzing questions and breaking them down into " +
	"essential components. Analyze the given question and break it down into the most " +
	"essential sub-questions needed to provide a complete answer. Focus on distinct " +
	"aspects that require separate consideration."

// planTool constrains the provider to machine-parseable structured output
// instead of prose.
var planTool = llms.Tool{
	Type: "function",
	Function: &llms.FunctionDefinition{
		Name:        toolName,
		Description: "Analyze question complexity and extract essential sub-questions",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"complexity": map[string]any{
					"type":        "string",
					"enum":        []string{"simple", "medium", "complex"},
					"description": "Question complexity level",
				},
				"sub_questions": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "Essential sub-questions needed to answer the original question",
				},
				"reasoning": map[string]any{
					"type":        "string",
					"description": "Brief explanation of why these sub-questions were selected",
				},
			},
			"required": []string{"complexity", "sub_questions", "reasoning"},
		},
	},
}

// LLMPlanner decomposes questions through the completion provider. Any
// provider error or malformed output surfaces as an error; callers fall
// back to the original question as the sole sub-question.
type LLMPlanner struct {
	model llms.Model
	log   logger.Logger
}

func New(model llms.Model, log logger.Logger) *LLMPlanner {
	return &LLMPlanner{model: model, log: log}
}

func (p *LLMPlanner) Plan(ctx context.Context, question string) (*domain.Decomposition, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, fmt.Sprintf("Analyze this question: %q", question)),
	}
	resp, err := p.model.GenerateContent(ctx, messages,
		llms.WithTools([]llms.Tool{planTool}),
		llms.WithToolChoice(map[string]any{
			"type":     "function",
			"function": map[string]any{"name": toolName},
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("plan question: %w", err)
	}
	decomposition, err := parseToolCall(resp)
	if err != nil {
		return nil, err
	}
	if len(decomposition.SubQuestions) > MaxSubQuestions {
		p.log.Debug("capping sub-questions",
			"returned", len(decomposition.SubQuestions), "cap", MaxSubQuestions)
		decomposition.SubQuestions = decomposition.SubQuestions[:MaxSubQuestions]
	}
	return decomposition, nil
}

func parseToolCall(resp *llms.ContentResponse) (*domain.Decomposition, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return nil, errors.New("plan question: empty response")
	}
	for _, call := range resp.Choices[0].ToolCalls {
		if call.FunctionCall == nil || call.FunctionCall.Name != toolName {
			continue
		}
		var decomposition domain.Decomposition
		if err := json.Unmarshal([]byte(call.FunctionCall.Arguments), &decomposition); err != nil {
			return nil, fmt.Errorf("plan question: malformed arguments: %w", err)
		}
		decomposition.SubQuestions = pruneEmpty(decomposition.SubQuestions)
		if len(decomposition.SubQuestions) == 0 {
			return nil, errors.New("plan question: no sub-questions returned")
		}
		return &decomposition, nil
	}
	return nil, errors.New("plan question: no tool call returned")
}

func pruneEmpty(questions []string) []string {
	out := questions[:0]
	for _, q := range questions {
		if strings.TrimSpace(q) != "" {
			out = append(out, q)
		}
	}
	return out
}
