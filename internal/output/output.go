package output

import (
	"fmt"
	"strings"

	"github.com/stocklens/stocklens/internal/ailink/content"
	"github.com/stocklens/stocklens/internal/render"
)

// Format represents an output format.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
	FormatJSON     Format = "json"
	FormatTable    Format = "table"
)

// Result is one gateway answer ready for display.
type Result struct {
	Operation string                   `json:"operation"`
	Prompt    string                   `json:"prompt"`
	Text      string                   `json:"text"`
	Sources   []content.GroundingChunk `json:"sources,omitempty"`
}

// Links returns the renderable citations of the result.
func (r *Result) Links() []render.Link {
	if r == nil {
		return nil
	}
	return render.Links(r.Sources)
}

// Formatter renders analysis results.
type Formatter interface {
	Format(result *Result) (string, error)
}

// ParseFormat validates and normalizes a format string.
func ParseFormat(value string) (Format, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	switch normalized {
	case "", string(FormatMarkdown), "md":
		return FormatMarkdown, nil
	case string(FormatHTML):
		return FormatHTML, nil
	case string(FormatJSON):
		return FormatJSON, nil
	case string(FormatTable):
		return FormatTable, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", value)
	}
}

// NewFormatter returns a formatter for the requested format.
func NewFormatter(format Format) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatHTML:
		return &HTMLFormatter{}
	case FormatTable:
		return &TableFormatter{}
	default:
		return &MarkdownFormatter{}
	}
}
