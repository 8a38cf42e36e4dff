package loader

import (
	"fmt"
	"regexp"
	"strings"
)

// Word-exported Markdown arrives full of inline HTML: nested styled spans,
// <br> line breaks, and data-ccp-props attributes. Sanitize strips that
// noise while leaving fenced code blocks byte-for-byte intact.
var (
	fenceRe     = regexp.MustCompile("(?s)```.*?```")
	spanPairRe  = regexp.MustCompile(`<span[^>]*>([^<]*)</span>`)
	emptySpanRe = regexp.MustCompile(`<span[^>]*>\s*</span>`)
	openSpanRe  = regexp.MustCompile(`<span[^>]*>`)
	brRe        = regexp.MustCompile(`<br\s*/?>`)
	ccpPropsRe  = regexp.MustCompile(`\s*data-ccp-props="[^"]*"`)
	styleRe     = regexp.MustCompile(`\s*style="[^"]*"`)
	classRe     = regexp.MustCompile(`\s*class="[^"]*"`)
	blankRunRe  = regexp.MustCompile(`\n{3,}`)
	spaceRunRe  = regexp.MustCompile(` {2,}`)
)

// Sanitize cleans HTML noise out of Markdown content. Fenced code blocks
// are stashed before any rewriting and restored verbatim at the end; images
// and links pass through untouched.
func Sanitize(content string) string {
	var blocks []string
	content = fenceRe.ReplaceAllStringFunc(content, func(block string) string {
		blocks = append(blocks, block)
		return fmt.Sprintf("__CODE_BLOCK_%d__", len(blocks)-1)
	})

	// Unwrap spans, innermost first. Nesting deeper than five levels does
	// not occur in Word exports.
	content = spanPairRe.ReplaceAllString(content, "$1")
	for i := 0; i < 5; i++ {
		prev := content
		content = spanPairRe.ReplaceAllString(content, "$1")
		if content == prev {
			break
		}
	}

	content = emptySpanRe.ReplaceAllString(content, "")
	content = openSpanRe.ReplaceAllString(content, "")
	content = strings.ReplaceAll(content, "</span>", "")

	content = brRe.ReplaceAllString(content, "\n")

	content = ccpPropsRe.ReplaceAllString(content, "")
	content = styleRe.ReplaceAllString(content, "")
	content = classRe.ReplaceAllString(content, "")

	content = blankRunRe.ReplaceAllString(content, "\n\n")
	content = spaceRunRe.ReplaceAllString(content, " ")

	for i, block := range blocks {
		content = strings.Replace(content, fmt.Sprintf("__CODE_BLOCK_%d__", i), block, 1)
	}

	return strings.TrimSpace(content)
}
