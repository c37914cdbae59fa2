// Package textutil holds text cleaning and rendering helpers for user and catalog content.
package textutil

import (
	"bytes"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

var (
	markdown = goldmark.New(
		goldmark.WithExtensions(extension.Strikethrough, extension.Linkify),
		goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
	)
	strictPolicy = bluemonday.StrictPolicy()
	htmlPolicy   = newContentHTMLPolicy()
)

func newContentHTMLPolicy() *bluemonday.Policy {
	policy := bluemonday.UGCPolicy()
	policy.AllowElements("del")
	policy.RequireNoFollowOnLinks(true)
	policy.AddTargetBlankToFullyQualifiedLinks(true)
	return policy
}

// StripTags removes every HTML tag, leaving escaped plain text, and trims the result.
func StripTags(value string) string {
	return strings.TrimSpace(strictPolicy.Sanitize(value))
}

// PlainText strips every HTML tag and returns unescaped text, suitable for storing user input that
// is escaped again at render time.
func PlainText(value string) string {
	return html.UnescapeString(StripTags(value))
}

// RenderMarkdown converts user or catalog markdown into sanitised HTML. Empty input renders "".
func RenderMarkdown(source string) (string, error) {
	if strings.TrimSpace(source) == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(source), &buf); err != nil {
		return "", err
	}
	return strings.TrimSpace(htmlPolicy.Sanitize(buf.String())), nil
}
