package answer

import "strings"

const (
	answerMarker    = "ANSWER:"
	citationsMarker = "CITATIONS:"
)

// parseResponse splits provider output into the answer section and the
// exact quotes, one per line. This is a literal two-marker split, not a
// grammar: the provider is instructed to emit ANSWER: followed by
// CITATIONS:. Output missing either marker is treated as a whole answer
// with no quotes.
func parseResponse(text string) (string, []string) {
	if !strings.Contains(text, answerMarker) || !strings.Contains(text, citationsMarker) {
		return text, nil
	}
	parts := strings.SplitN(text, citationsMarker, 2)
	answerPart := strings.TrimSpace(strings.Replace(parts[0], answerMarker, "", 1))

	var quotes []string
	for _, line := range strings.Split(parts[1], "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		quote := strings.Trim(line, `"'`)
		quote = strings.TrimSpace(quote)
		if quote != "" {
			quotes = append(quotes, quote)
		}
	}
	return answerPart, quotes
}
