package utils

import (
	"bytes"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	mdParser = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithXHTML(),
		),
	)
	policy = bluemonday.UGCPolicy()
)

func init() {
	policy.AllowImages()
	policy.AddTargetBlankToFullyQualifiedLinks(true)
	policy.RequireNoReferrerOnLinks(true)
}

func renderSanitized(source string) ([]byte, bool) {
	var buf bytes.Buffer
	if err := mdParser.Convert([]byte(source), &buf); err != nil {
		return nil, false
	}
	return policy.SanitizeBytes(buf.Bytes()), true
}

// RenderMarkdown 渲染并清洗用户输入，用于展示
func RenderMarkdown(source string) template.HTML {
	sanitized, ok := renderSanitized(source)
	if !ok {
		return template.HTML(template.HTMLEscapeString(source))
	}
	return EnhanceHTMLContent(string(sanitized))
}

// PlainText 去掉 Markdown 和 HTML 标记，只保留送去分析的文字
func PlainText(source string) string {
	sanitized, ok := renderSanitized(source)
	if !ok {
		return strings.TrimSpace(source)
	}
	text := ExtractText(string(sanitized))
	if text == "" {
		return strings.TrimSpace(source)
	}
	return text
}
