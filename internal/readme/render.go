package readme

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"text/template"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Format is a readme rendering requested by clients
type Format string

const (
	FormatRaw   Format = "raw"
	FormatMD    Format = "md"
	FormatMDX   Format = "mdx"
	FormatTXT   Format = "txt"
	FormatHTML  Format = "html"
	FormatIPYNB Format = "ipynb"
)

// ContentType returns the HTTP content type for the format
func (f Format) ContentType() string {
	switch f {
	case FormatHTML:
		return "text/html; charset=utf-8"
	case FormatIPYNB:
		return "application/json"
	default:
		return "text/markdown; charset=utf-8"
	}
}

// ParseFormat validates a format name
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatRaw, FormatMD, FormatMDX, FormatTXT, FormatHTML, FormatIPYNB:
		return f, nil
	}
	return "", fmt.Errorf("invalid readme format: %s", s)
}

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(html.WithUnsafe()),
)

// Render produces the requested rendering of a readme. Frontmatter is stripped
// unless keepFrontmatter is set; notebooks are returned as-is.
func Render(content string, format Format, keepFrontmatter bool) (string, error) {
	if format == FormatIPYNB {
		return content, nil
	}

	body := content
	if !keepFrontmatter {
		_, b, err := ParseFrontmatter(content)
		if err != nil {
			return "", err
		}
		body = b
	}

	if format != FormatHTML {
		return body, nil
	}
	return ToHTML(body)
}

// ToHTML converts markdown to HTML
func ToHTML(markdownText string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(markdownText), &buf); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return buf.String(), nil
}

var externalTemplate = template.Must(template.New("external").Parse(`# {{ .Title }}

{{ .Description }}

This {{ .Kind }} is hosted outside of our repositories.

[Open {{ .Kind }}]({{ .URL }})
`))

// ExternalData feeds the readme generated for externally hosted assets
type ExternalData struct {
	Title       string
	Description string
	Kind        string
	URL         string
}

// RenderExternal builds the readme for an asset without a canonical repository
func RenderExternal(data ExternalData) (string, error) {
	var buf bytes.Buffer
	if err := externalTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render external readme: %w", err)
	}
	return buf.String(), nil
}

var (
	absoluteURL = regexp.MustCompile(`^https?://`)
	loomEmbed   = regexp.MustCompile(`(https?://www\.loom\.com/)embed(/.+)`)
)

// VideoURL turns a bare YouTube id into a watch URL and Loom embeds into share links
func VideoURL(videoID string) string {
	if !absoluteURL.MatchString(videoID) {
		return "https://www.youtube.com/watch?v=" + videoID
	}
	return loomEmbed.ReplaceAllString(videoID, "${1}share${2}")
}
