package chunk

import (
	"regexp"
	"strings"
)

var tocHeaderRe = regexp.MustCompile(`(?m)^(#{1,6})\s+(.+)$`)

// ExtractTOC renders the document's header outline as an indented bullet
// list, two spaces per level beyond the first. Fenced code blocks are
// removed first so comment lines inside them never show up as headers.
func ExtractTOC(content string) string {
	stripped := codeFenceRe.ReplaceAllString(content, "")

	matches := tocHeaderRe.FindAllStringSubmatch(stripped, -1)
	if len(matches) == 0 {
		return ""
	}

	var b strings.Builder
	for i, m := range matches {
		if i > 0 {
			b.WriteByte('\n')
		}
		level := len(m[1])
		b.WriteString(strings.Repeat("  ", level-1))
		b.WriteString("- ")
		b.WriteString(strings.TrimSpace(m[2]))
	}
	return b.String()
}
