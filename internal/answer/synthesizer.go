package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"docchat/internal/domain"
	"docchat/internal/logger"
)

const previewLimit = 200

const systemPrompt = "You are a helpful assistant that answers questions based on provided " +
	"context. Always be accurate and cite specific information when possible. Follow the " +
	"exact format requested."

// Synthesizer prompts the completion provider with ranked context and
// binds the returned quotes to their source chunks. Quotes are matched
// positionally: the i-th quote line is attributed to the i-th candidate.
type Synthesizer struct {
	model llms.Model
	log   logger.Logger
}

func NewSynthesizer(model llms.Model, log logger.Logger) *Synthesizer {
	return &Synthesizer{model: model, log: log}
}

// Synthesize produces an answer plus one citation per candidate. On
// provider failure the answer describes the error and the citations keep
// their provenance with empty exact quotes, so the caller never loses
// the source trail; the returned error marks the result as degraded and
// not worth caching.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, candidates []domain.RetrievalCandidate) (string, []domain.Citation, error) {
	citations := buildCitations(candidates)
	prompt := buildPrompt(question, candidates)

	resp, err := s.model.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, prompt),
	}, llms.WithTemperature(0.1), llms.WithMaxTokens(1000))
	if err != nil {
		s.log.Warn("answer generation failed, returning citations without quotes", "error", err)
		return fmt.Sprintf("Error generating answer: %v", err), citations, fmt.Errorf("generate answer: %w", err)
	}
	if len(resp.Choices) == 0 {
		s.log.Warn("answer generation returned no choices")
		return "Error generating answer: empty response", citations, errors.New("generate answer: empty response")
	}

	answerText, quotes := parseResponse(strings.TrimSpace(resp.Choices[0].Content))
	for i, quote := range quotes {
		if i >= len(citations) {
			break
		}
		citations[i].ExactText = quote
	}
	return answerText, citations, nil
}

// buildCitations derives provenance records from the candidates before
// the provider is consulted, so they survive a failed call.
func buildCitations(candidates []domain.RetrievalCandidate) []domain.Citation {
	citations := make([]domain.Citation, 0, len(candidates))
	for _, candidate := range candidates {
		searchPages := []int{candidate.PageStart}
		if candidate.PageEnd != candidate.PageStart {
			searchPages = append(searchPages, candidate.PageEnd)
		}
		citations = append(citations, domain.Citation{
			Text:        preview(candidate.Text),
			PageStart:   candidate.PageStart,
			PageEnd:     candidate.PageEnd,
			ChunkID:     candidate.ChunkID,
			SearchPages: searchPages,
		})
	}
	return citations
}

func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewLimit {
		return text
	}
	return string(runes[:previewLimit]) + "..."
}

func buildPrompt(question string, candidates []domain.RetrievalCandidate) string {
	var blocks strings.Builder
	for i, candidate := range candidates {
		if i > 0 {
			blocks.WriteString("\n\n")
		}
		fmt.Fprintf(&blocks, "[Context %d]\n%s", i+1, candidate.Text)
	}
	return fmt.Sprintf(`You are an expert at answering questions based on provided context.

Question: %s

Context:
%s

Instructions:
1. Answer the question based ONLY on the information provided in the context above.
2. If the context doesn't contain enough information to answer the question, say "I cannot find sufficient information to answer this question."
3. Be precise and cite specific details from the context.
4. Use clear, professional language.
5. If the question has multiple parts, address each part systematically.
6. IMPORTANT: For each key claim in your answer, identify the exact quote from the context that supports it.

Format your response as:
ANSWER: [Your complete answer here]

CITATIONS: [List each exact quote that supports your answer, one per line]

Answer:`, question, blocks.String())
}
