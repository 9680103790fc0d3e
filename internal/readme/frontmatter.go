package readme

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const frontmatterDelimiter = "---"

// ParseFrontmatter splits a leading YAML block delimited by "---" lines from the
// markdown body. A document without frontmatter yields an empty map and the
// unchanged content.
func ParseFrontmatter(content string) (map[string]any, string, error) {
	meta := map[string]any{}

	normalized := strings.ReplaceAll(content, "\r\n", "\n")
	trimmed := strings.TrimLeft(normalized, "\n")
	if !strings.HasPrefix(trimmed, frontmatterDelimiter+"\n") {
		return meta, content, nil
	}

	rest := trimmed[len(frontmatterDelimiter)+1:]
	end := strings.Index(rest, "\n"+frontmatterDelimiter)
	if end < 0 {
		return meta, content, nil
	}

	block := rest[:end]
	body := rest[end+len(frontmatterDelimiter)+1:]
	body = strings.TrimPrefix(body, "\n")

	if err := yaml.Unmarshal([]byte(block), &meta); err != nil {
		return nil, "", fmt.Errorf("invalid frontmatter: %w", err)
	}
	if meta == nil {
		meta = map[string]any{}
	}
	return meta, body, nil
}

// StringField returns a non-empty string value from frontmatter
func StringField(meta map[string]any, key string) (string, bool) {
	v, ok := meta[key]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// StringList returns a list field; a single string is treated as a one-item list
func StringList(meta map[string]any, key string) ([]string, bool) {
	switch v := meta[key].(type) {
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out, true
	case []string:
		return v, true
	case string:
		if v == "" {
			return nil, false
		}
		return []string{v}, true
	}
	return nil, false
}
