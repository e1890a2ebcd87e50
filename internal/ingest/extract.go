package ingest

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ExtractPages pulls plain text out of a PDF and annotates it with
// inline [PAGE:<n>] markers, the form the chunker tracks pages by. A
// marker means all following text belongs to that page until the next
// marker. Empty pages are skipped but still counted.
func ExtractPages(content []byte) (string, int, error) {
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", 0, fmt.Errorf("read pdf: %w", err)
	}
	pages := reader.NumPage()
	var text strings.Builder
	for num := 1; num <= pages; num++ {
		page := reader.Page(num)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			// A single unreadable page should not sink the document.
			continue
		}
		if strings.TrimSpace(pageText) == "" {
			continue
		}
		fmt.Fprintf(&text, "[PAGE:%d] %s\n\n", num, pageText)
	}
	return text.String(), pages, nil
}
