package render

import (
	"strings"

	"github.com/stocklens/stocklens/internal/ailink/content"
)

// Link is one renderable citation.
type Link struct {
	// Index is the 1-based position of the citation in the source list,
	// so skipped citations leave gaps.
	Index int    `json:"index"`
	URI   string `json:"uri"`
	Label string `json:"label"`
}

// Links returns the citations that can be rendered. Citations without a URI
// are skipped; a missing title falls back to the URI.
func Links(sources []content.GroundingChunk) []Link {
	links := make([]Link, 0, len(sources))
	for i, chunk := range sources {
		src := chunk.Source()
		if src == nil {
			continue
		}
		uri := strings.TrimSpace(src.URI)
		if uri == "" {
			continue
		}
		label := strings.TrimSpace(src.Title)
		if label == "" {
			label = uri
		}
		links = append(links, Link{Index: i + 1, URI: uri, Label: label})
	}
	return links
}
