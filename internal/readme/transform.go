// Package readme holds the pure text transforms applied to asset markdown
package readme

import (
	"errors"
	"path"
	"regexp"
	"slices"
	"strings"
)

// ErrUnbalancedHide is returned when hide/endhide markers do not pair up
var ErrUnbalancedHide = errors.New("readme has an unbalanced number of <!-- hide --> comments")

var (
	hideMarker       = regexp.MustCompile(`<!--\s+(?:end)?hide\s+-->`)
	relativeLink     = regexp.MustCompile(`(?:\.\.?/)+[^)"']+`)
	leadingHeading   = regexp.MustCompile("^\\s?#\\s[`\\-_\\p{L}\\p{M}\\p{N}]+[`\\-_\\p{L}\\p{M}\\p{N}\\s]*\\n")
	imageExtensions  = []string{".png", ".jpg", ".jpeg", ".svg", ".gif"}
	linkOpeningChars = "(\"'"
)

// Clean runs the transforms in their fixed order: hide comments, relative images,
// leading heading. readmeURL is the blob URL the document was fetched from.
func Clean(content, readmeURL string) (string, error) {
	out, err := StripHideComments(content)
	if err != nil {
		return "", err
	}
	out = RewriteRelativeImages(out, readmeURL)
	return RemoveLeadingHeading(out), nil
}

// StripHideComments removes every <!-- hide --> ... <!-- endhide --> block, markers
// included. Markers pair up in document order.
func StripHideComments(content string) (string, error) {
	markers := hideMarker.FindAllStringIndex(content, -1)
	if len(markers)%2 != 0 {
		return "", ErrUnbalancedHide
	}

	var b strings.Builder
	start := 0
	for i := 0; i < len(markers); i += 2 {
		b.WriteString(content[start:markers[i][0]])
		start = markers[i+1][1]
	}
	b.WriteString(content[start:])
	return b.String(), nil
}

// RewriteRelativeImages turns relative image references such as (./img/x.png) into
// absolute links under the readme's directory with a ?raw=true suffix. Only links
// opened by '(', '"' or '\'' with an image extension are rewritten.
func RewriteRelativeImages(content, readmeURL string) string {
	baseURL := readmeURL
	if i := strings.LastIndex(readmeURL, "/"); i >= 0 {
		baseURL = readmeURL[:i]
	}

	var b strings.Builder
	last := 0
	for _, loc := range relativeLink.FindAllStringIndex(content, -1) {
		start, end := loc[0], loc[1]
		if start == 0 || !strings.ContainsRune(linkOpeningChars, rune(content[start-1])) {
			continue
		}

		found := strings.TrimSuffix(content[start:end], "\\")
		found = strings.TrimRight(found, " \t\r\n")
		if !slices.Contains(imageExtensions, strings.ToLower(path.Ext(found))) {
			continue
		}

		b.WriteString(content[last:start])
		b.WriteString(baseURL + "/" + found + "?raw=true")
		last = start + len(found)
	}
	b.WriteString(content[last:])
	return b.String()
}

// RemoveLeadingHeading drops the first line when it is a level-1 heading. The
// document is trimmed of surrounding whitespace first.
func RemoveLeadingHeading(content string) string {
	content = strings.TrimSpace(content)
	newline := strings.IndexByte(content, '\n')
	if newline < 0 {
		return content
	}

	if leadingHeading.MatchString(content[:newline+1]) {
		return strings.TrimSpace(content[newline+1:])
	}
	return content
}
