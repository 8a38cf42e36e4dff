package chunk

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Header-line patterns shared by the strategies. The \s+ requirement after
// the hash run keeps deeper headers from matching a shallower pattern.
var (
	h1HeaderRe   = regexp.MustCompile(`(?m)^#\s+.+$`)
	h2HeaderRe   = regexp.MustCompile(`(?m)^#{2}\s+.+$`)
	h3HeaderRe   = regexp.MustCompile(`(?m)^#{3}\s+.+$`)
	h2h3HeaderRe = regexp.MustCompile(`(?m)^#{2,3}\s+.+$`)

	codeFenceRe = regexp.MustCompile("(?s)```.*?```")
)

// splitter carries the size limits and shared primitives used by every
// strategy. Sizes are in bytes.
type splitter struct {
	chunkSize    int
	minChunkSize int
}

// splitByHeaders splits content at header lines matching headerRe. The
// header line stays as the first line of the section that follows it, and
// text before the first header becomes its own section. Sections are
// trimmed; blank ones are dropped. Content without a matching header comes
// back as a single section.
func (s splitter) splitByHeaders(content string, headerRe *regexp.Regexp) []string {
	locs := headerRe.FindAllStringIndex(content, -1)
	if len(locs) == 0 {
		return []string{content}
	}

	var sections []string
	add := func(text string) {
		if t := strings.TrimSpace(text); t != "" {
			sections = append(sections, t)
		}
	}

	add(content[:locs[0][0]])
	for i, loc := range locs {
		end := len(content)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		add(content[loc[0]:end])
	}

	if len(sections) == 0 {
		return []string{content}
	}
	return sections
}

// splitProtected splits text to the chunk budget without ever cutting
// inside a fenced code block. A code block may stretch the current chunk
// to 1.5x the budget before forcing a flush; blocks beyond 3x the budget
// are exploded by splitCodeBlock first. Plain text is cut at the best
// break point below the budget. A trailing fragment below the minimum size
// is dropped.
func (s splitter) splitProtected(text string) []string {
	if len(text) <= s.chunkSize {
		return []string{text}
	}

	type segment struct {
		text   string
		isCode bool
	}
	var segments []segment
	pos := 0
	for _, loc := range codeFenceRe.FindAllStringIndex(text, -1) {
		if pos < loc[0] {
			segments = append(segments, segment{text[pos:loc[0]], false})
		}
		segments = append(segments, segment{text[loc[0]:loc[1]], true})
		pos = loc[1]
	}
	if pos < len(text) {
		segments = append(segments, segment{text[pos:], false})
	}

	var chunks []string
	cur := ""
	flush := func() {
		if t := strings.TrimSpace(cur); t != "" {
			chunks = append(chunks, t)
		}
		cur = ""
	}

	for _, seg := range segments {
		if seg.isCode {
			pieces := []string{seg.text}
			if len(seg.text) > s.chunkSize*3 {
				pieces = s.splitCodeBlock(seg.text)
			}
			for _, piece := range pieces {
				switch {
				case cur == "":
					cur = piece
				case len(cur)+len(piece) <= s.chunkSize*3/2:
					cur += piece
				default:
					flush()
					cur = piece
				}
			}
			continue
		}

		if len(cur)+len(seg.text) <= s.chunkSize {
			cur += seg.text
			continue
		}

		remaining := seg.text
		for remaining != "" {
			spaceLeft := s.chunkSize - len(cur)
			if spaceLeft <= 0 {
				flush()
				continue
			}
			if len(remaining) <= spaceLeft {
				cur += remaining
				break
			}
			cut := s.findBreakPoint(remaining, spaceLeft)
			cur += remaining[:cut]
			flush()
			remaining = remaining[cut:]
		}
	}

	if t := strings.TrimSpace(cur); t != "" && len(t) >= s.minChunkSize {
		chunks = append(chunks, t)
	}

	if len(chunks) == 0 {
		return []string{text}
	}
	return chunks
}

// breakSeps in priority order. The ASCII period only counts when followed
// by whitespace or end-of-text, so dots inside URLs and qualified names
// are skipped.
var breakSeps = []string{"\n\n", "\n", "。", "."}

// findBreakPoint returns the byte offset to cut text at, at most maxPos.
// Each separator is searched backwards from maxPos and accepted only past
// half the budget; when none qualifies the cut lands on the budget itself,
// moved left to a rune boundary.
func (s splitter) findBreakPoint(text string, maxPos int) int {
	if maxPos >= len(text) {
		return len(text)
	}
	for _, sep := range breakSeps {
		pos := strings.LastIndex(text[:maxPos], sep)
		for pos > maxPos/2 {
			if sep != "." || periodEndsSentence(text, pos) {
				return pos + len(sep)
			}
			pos = strings.LastIndex(text[:pos], sep)
		}
	}
	return snapToRuneStart(text, maxPos)
}

// periodEndsSentence reports whether the period at pos is followed by
// whitespace or ends the text.
func periodEndsSentence(text string, pos int) bool {
	if pos+1 >= len(text) {
		return true
	}
	next := text[pos+1]
	return next == ' ' || next == '\n' || next == '\t' || next == '\r'
}

// snapToRuneStart moves pos left to the nearest UTF-8 boundary. When that
// reaches zero the first rune is taken whole so callers always progress.
func snapToRuneStart(text string, pos int) int {
	for pos > 0 && !utf8.RuneStart(text[pos]) {
		pos--
	}
	if pos == 0 {
		_, w := utf8.DecodeRuneInString(text)
		return w
	}
	return pos
}

// splitCodeBlock explodes an oversized fenced block into budget-sized
// blocks, each re-wrapped in the original fence. Blank-line groups are the
// preferred unit; a block without blank lines falls back to single lines,
// and a single line beyond the budget (minified or base64 content) is
// hard-sliced.
func (s splitter) splitCodeBlock(block string) []string {
	inner := block
	fence := "```"

	if idx := strings.Index(block, "\n"); idx >= 0 {
		fence = block[:idx]
		inner = block[idx+1:]
	}
	inner = strings.TrimSuffix(inner, "```")
	inner = strings.TrimRight(inner, "\n")

	units := strings.Split(inner, "\n\n")
	joiner := "\n\n"
	if len(units) == 1 {
		units = strings.Split(inner, "\n")
		joiner = "\n"
	}

	// Hard-slice any single unit past the budget.
	var sized []string
	for _, u := range units {
		for len(u) > s.chunkSize {
			cut := snapToRuneStart(u, s.chunkSize)
			sized = append(sized, u[:cut])
			u = u[cut:]
		}
		sized = append(sized, u)
	}

	var blocks []string
	var group []string
	groupLen := 0
	flush := func() {
		if len(group) == 0 {
			return
		}
		body := strings.Join(group, joiner)
		blocks = append(blocks, fence+"\n"+body+"\n```")
		group = nil
		groupLen = 0
	}

	for _, u := range sized {
		if groupLen > 0 && groupLen+len(joiner)+len(u) > s.chunkSize {
			flush()
		}
		group = append(group, u)
		groupLen += len(u)
		if len(group) > 1 {
			groupLen += len(joiner)
		}
	}
	flush()

	if len(blocks) == 0 {
		return []string{block}
	}
	return blocks
}

// headerLevel returns the hash count of a header line, or 0 when line is
// not a header.
func headerLevel(line string) int {
	trimmed := strings.TrimSpace(line)
	i := 0
	for i < len(trimmed) && trimmed[i] == '#' {
		i++
	}
	if i == 0 || i > 6 || i >= len(trimmed) || (trimmed[i] != ' ' && trimmed[i] != '\t') {
		return 0
	}
	return i
}

// headerTitle strips the hash run and surrounding space from a header
// line. Returns "" when line is not a header.
func headerTitle(line string) string {
	trimmed := strings.TrimSpace(line)
	level := headerLevel(line)
	if level == 0 {
		return ""
	}
	return strings.TrimSpace(trimmed[level:])
}

// titleIfLevel returns the header title only when line is a header of
// exactly the wanted level.
func titleIfLevel(line string, want int) string {
	if headerLevel(line) != want {
		return ""
	}
	return headerTitle(line)
}

// firstLine returns the first line of text.
func firstLine(text string) string {
	if idx := strings.Index(text, "\n"); idx >= 0 {
		return text[:idx]
	}
	return text
}
