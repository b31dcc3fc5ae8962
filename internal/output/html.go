package output

import (
	"fmt"
	"html"
	"strings"

	"github.com/stocklens/stocklens/internal/render"
)

// HTMLFormatter renders results as a sanitized HTML fragment.
type HTMLFormatter struct{}

// Format renders a result as HTML.
func (f *HTMLFormatter) Format(result *Result) (string, error) {
	if result == nil {
		return "", nil
	}

	body, err := render.Markdown(result.Text)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(string(body))

	links := result.Links()
	if len(links) > 0 {
		sb.WriteString("<h3>출처</h3>\n<ol>\n")
		for _, link := range links {
			sb.WriteString(fmt.Sprintf("<li value=\"%d\"><a href=\"%s\" target=\"_blank\" rel=\"noopener noreferrer\">%s</a></li>\n",
				link.Index, html.EscapeString(link.URI), html.EscapeString(link.Label)))
		}
		sb.WriteString("</ol>\n")
	}
	return string(render.Sanitize(sb.String())), nil
}
