package chunker

import (
	"regexp"
	"strconv"
	"strings"

	"docchat/internal/domain"
	"docchat/internal/tokens"
)

// TokenChunker splits marker-annotated text into token-bounded chunks with
// a token-suffix overlap between consecutive chunks. Sentences are the
// segmentation unit and are never split across chunks; a single sentence
// longer than the target budget is emitted standalone.
type TokenChunker struct {
	targetTokens  int
	overlapTokens int
	enc           *tokens.Encoder
	marker        *regexp.Regexp
	sentenceEnd   *regexp.Regexp
}

// NewTokenChunker builds a chunker over the given encoder. Non-positive
// arguments fall back to the defaults (900 target, 150 overlap).
func NewTokenChunker(enc *tokens.Encoder, targetTokens, overlapTokens int) *TokenChunker {
	if targetTokens <= 0 {
		targetTokens = 900
	}
	if overlapTokens < 0 {
		overlapTokens = 0
	}
	return &TokenChunker{
		targetTokens:  targetTokens,
		overlapTokens: overlapTokens,
		enc:           enc,
		marker:        regexp.MustCompile(`\[PAGE:(\d+)\]`),
		sentenceEnd:   regexp.MustCompile(`([.!?])\s+`),
	}
}

type sentence struct {
	text string
	page int
}

// Split produces ordered chunk pieces from text annotated with inline
// [PAGE:<n>] markers. A marker sets the current page for all following
// text until the next marker. Each piece carries the min and max page
// observed among its sentences; because the overlap suffix is seeded on
// the page that was active when the previous chunk closed, a suffix that
// spans a page boundary can slightly overstate the new chunk's range.
// Accepted approximation.
func (c *TokenChunker) Split(text string) []domain.ChunkPiece {
	sentences := c.segment(text)
	if len(sentences) == 0 {
		return nil
	}

	var pieces []domain.ChunkPiece
	var current strings.Builder
	currentTokens := 0
	pageStart, pageEnd := sentences[0].page, sentences[0].page
	ordinal := 0

	for _, s := range sentences {
		sTokens := c.enc.Count(s.text)
		if currentTokens+sTokens > c.targetTokens && current.Len() > 0 {
			closed := strings.TrimSpace(current.String())
			pieces = append(pieces, domain.ChunkPiece{
				Ordinal:    ordinal,
				Text:       closed,
				TokenCount: currentTokens,
				PageStart:  pageStart,
				PageEnd:    pageEnd,
			})
			ordinal++

			// Seed the next chunk with the trailing overlap tokens of the
			// chunk just closed, on the page active at that moment.
			overlap := c.enc.Tail(closed, c.overlapTokens)
			current.Reset()
			current.WriteString(overlap)
			current.WriteString(" ")
			current.WriteString(s.text)
			currentTokens = c.enc.Count(current.String())
			pageStart = pageEnd
			if s.page < pageStart {
				pageStart = s.page
			}
			if s.page > pageEnd {
				pageEnd = s.page
			}
			continue
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		} else {
			pageStart, pageEnd = s.page, s.page
		}
		current.WriteString(s.text)
		currentTokens += sTokens
		if s.page < pageStart {
			pageStart = s.page
		}
		if s.page > pageEnd {
			pageEnd = s.page
		}
	}

	if current.Len() > 0 {
		pieces = append(pieces, domain.ChunkPiece{
			Ordinal:    ordinal,
			Text:       strings.TrimSpace(current.String()),
			TokenCount: currentTokens,
			PageStart:  pageStart,
			PageEnd:    pageEnd,
		})
	}
	return pieces
}

// segment walks the page markers and splits the text between them into
// page-tagged sentences. Text before the first marker belongs to page 1.
func (c *TokenChunker) segment(text string) []sentence {
	var out []sentence
	page := 1
	markers := c.marker.FindAllStringSubmatchIndex(text, -1)
	prev := 0
	for _, m := range markers {
		out = append(out, c.splitSentences(text[prev:m[0]], page)...)
		if n, err := strconv.Atoi(text[m[2]:m[3]]); err == nil {
			page = n
		}
		prev = m[1]
	}
	out = append(out, c.splitSentences(text[prev:], page)...)
	return out
}

// splitSentences splits on terminal punctuation followed by whitespace,
// keeping the punctuation with its sentence. A trailing fragment without
// terminal punctuation is kept as its own sentence.
func (c *TokenChunker) splitSentences(text string, page int) []sentence {
	var out []sentence
	prev := 0
	for _, m := range c.sentenceEnd.FindAllStringIndex(text, -1) {
		s := strings.TrimSpace(text[prev : m[0]+1])
		if s != "" {
			out = append(out, sentence{text: s, page: page})
		}
		prev = m[1]
	}
	if tail := strings.TrimSpace(text[prev:]); tail != "" {
		out = append(out, sentence{text: tail, page: page})
	}
	return out
}
