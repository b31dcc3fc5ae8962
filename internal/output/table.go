package output

import (
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// TableFormatter renders the answer followed by an ASCII table of sources.
type TableFormatter struct{}

// Format renders a result as text plus a sources table.
func (f *TableFormatter) Format(result *Result) (string, error) {
	if result == nil {
		return "", nil
	}

	rendered := strings.TrimRight(result.Text, "\n") + "\n"

	links := result.Links()
	if len(links) == 0 {
		return rendered, nil
	}

	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.Style().Format.Header = text.FormatDefault
	t.AppendHeader(table.Row{"#", "Source", "URL"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, WidthMax: 40},
		{Number: 3, WidthMax: 80},
	})
	for _, link := range links {
		t.AppendRow(table.Row{link.Index, link.Label, link.URI})
	}

	return rendered + "\n" + t.Render() + "\n", nil
}
