// Package render turns model output into display-safe forms.
package render

import (
	"bytes"
	"fmt"
	"html/template"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	markdown = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithHardWraps()),
	)

	policyOnce sync.Once
	policy     *bluemonday.Policy
)

func sanitizer() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = bluemonday.UGCPolicy()
		policy.RequireNoReferrerOnFullyQualifiedLinks(true)
		policy.AddTargetBlankToFullyQualifiedLinks(true)
	})
	return policy
}

// Markdown renders text as sanitized HTML safe to embed in a page.
func Markdown(text string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(text), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	// #nosec G203 -- output has passed the UGC sanitizer
	return template.HTML(sanitizer().SanitizeBytes(buf.Bytes())), nil
}

// Sanitize strips script-executing constructs from an HTML fragment.
func Sanitize(fragment string) template.HTML {
	// #nosec G203 -- output has passed the UGC sanitizer
	return template.HTML(sanitizer().Sanitize(fragment))
}
