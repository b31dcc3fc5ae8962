package output

import (
	"fmt"
	"strings"
)

// MarkdownFormatter renders the model text verbatim followed by a numbered
// source list.
type MarkdownFormatter struct{}

// Format renders a result as Markdown.
func (f *MarkdownFormatter) Format(result *Result) (string, error) {
	if result == nil {
		return "", nil
	}

	var sb strings.Builder
	sb.WriteString(strings.TrimRight(result.Text, "\n"))
	sb.WriteString("\n")

	links := result.Links()
	if len(links) > 0 {
		sb.WriteString("\n### 출처\n\n")
		for _, link := range links {
			sb.WriteString(fmt.Sprintf("%d. [%s](%s)\n", link.Index, escapeMarkdownLabel(link.Label), link.URI))
		}
	}
	return sb.String(), nil
}

func escapeMarkdownLabel(value string) string {
	value = strings.ReplaceAll(value, "\n", " ")
	value = strings.ReplaceAll(value, "[", "\\[")
	return strings.ReplaceAll(value, "]", "\\]")
}
