package planner

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	"docchat/internal/logger"
)

type fakeModel struct {
	resp *llms.ContentResponse
	err  error
}

func (f *fakeModel) GenerateContent(context.Context, []llms.MessageContent, ...llms.CallOption) (*llms.ContentResponse, error) {
	return f.resp, f.err
}

func (f *fakeModel) Call(context.Context, string, ...llms.CallOption) (string, error) {
	return "", errors.New("not implemented")
}

func toolResponse(arguments string) *llms.ContentResponse {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{
			ToolCalls: []llms.ToolCall{{
				ID: "call_1",
				FunctionCall: &llms.FunctionCall{
					Name:      toolName,
					Arguments: arguments,
				},
			}},
		}},
	}
}

func TestLLMPlanner(t *testing.T) {
	ctx := context.Background()

	t.Run("ShouldParseStructuredDecomposition", func(t *testing.T) {
		model := &fakeModel{resp: toolResponse(
			`{"complexity":"medium","sub_questions":["Who appoints ambassadors?","Is Senate approval required?"],"reasoning":"two distinct aspects"}`,
		)}
		p := New(model, logger.Nop())
		decomposition, err := p.Plan(ctx, "Who appoints ambassadors and how?")
		require.NoError(t, err)
		assert.Equal(t, "medium", decomposition.Complexity)
		assert.Len(t, decomposition.SubQuestions, 2)
		assert.NotEmpty(t, decomposition.Reasoning)
	})

	t.Run("ShouldCapSubQuestionsAtSix", func(t *testing.T) {
		questions := `["q1","q2","q3","q4","q5","q6","q7","q8"]`
		model := &fakeModel{resp: toolResponse(
			fmt.Sprintf(`{"complexity":"complex","sub_questions":%s,"reasoning":"r"}`, questions),
		)}
		p := New(model, logger.Nop())
		decomposition, err := p.Plan(ctx, "a very broad question")
		require.NoError(t, err)
		assert.Len(t, decomposition.SubQuestions, MaxSubQuestions)
		assert.Equal(t, "q1", decomposition.SubQuestions[0])
	})

	t.Run("ShouldFailOnProviderError", func(t *testing.T) {
		p := New(&fakeModel{err: errors.New("timeout")}, logger.Nop())
		_, err := p.Plan(ctx, "question")
		assert.Error(t, err)
	})

	t.Run("ShouldFailWhenNoToolCallReturned", func(t *testing.T) {
		model := &fakeModel{resp: &llms.ContentResponse{
			Choices: []*llms.ContentChoice{{Content: "prose instead of a tool call"}},
		}}
		p := New(model, logger.Nop())
		_, err := p.Plan(ctx, "question")
		assert.Error(t, err)
	})

	t.Run("ShouldFailOnMalformedArguments", func(t *testing.T) {
		p := New(&fakeModel{resp: toolResponse(`{"complexity":`)}, logger.Nop())
		_, err := p.Plan(ctx, "question")
		assert.Error(t, err)
	})

	t.Run("ShouldFailWhenSubQuestionsEmpty", func(t *testing.T) {
		p := New(&fakeModel{resp: toolResponse(`{"complexity":"simple","sub_questions":["  "],"reasoning":"r"}`)}, logger.Nop())
		_, err := p.Plan(ctx, "question")
		assert.Error(t, err)
	})
}
