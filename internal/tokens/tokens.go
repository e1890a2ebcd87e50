package tokens

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// DefaultEncoding matches the tokenizer family of the OpenAI embedding and
// completion models the service talks to, so chunk budgets are
// provider-accurate.
const DefaultEncoding = "cl100k_base"

// Encoder wraps a tiktoken encoding for counting and for decoding token
// suffixes back to text.
type Encoder struct {
	tke *tiktoken.Tiktoken
}

// NewEncoder builds an encoder for the named encoding, defaulting to
// cl100k_base.
func NewEncoder(encoding string) (*Encoder, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	tke, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("get encoding %q: %w", encoding, err)
	}
	return &Encoder{tke: tke}, nil
}

// Count returns the number of tokens in text.
func (e *Encoder) Count(text string) int {
	return len(e.tke.Encode(text, nil, nil))
}

// Tail returns the text of the trailing n tokens. When text holds n tokens
// or fewer, the whole text is returned unchanged.
func (e *Encoder) Tail(text string, n int) string {
	ids := e.tke.Encode(text, nil, nil)
	if len(ids) <= n {
		return text
	}
	return e.tke.Decode(ids[len(ids)-n:])
}
