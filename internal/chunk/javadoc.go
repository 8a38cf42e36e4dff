package chunk

import (
	"regexp"
	"strings"

	"github.com/grapecity-cn/docsmcp/internal/loader"
)

// Method headers in converted JavaDoc pages, sometimes carried inside a
// list bullet.
var javadocMethodRe = regexp.MustCompile(`(?m)^\s*\+?\s*###\s+\w+`)

const (
	// The summary marker normally appears within the first few dozen
	// lines; pages longer than headerScanMin lines without one still get
	// a best-effort header.
	headerScanLines     = 31
	headerScanMin       = 30
	headerFallbackLines = 15
)

// javadocStrategy handles converted JavaDoc references. API pages carry
// the class header into every chunk of grouped method details; other
// categories behave like the TypeDoc strategy.
type javadocStrategy struct {
	splitter
}

func (j *javadocStrategy) split(doc loader.Document) []piece {
	if len(doc.Content) <= j.chunkSize {
		return []piece{{content: doc.Content}}
	}

	switch doc.Category {
	case "api":
		return j.splitAPI(doc)
	case "demo":
		td := typedocStrategy{splitter: j.splitter}
		return td.splitDemo(doc)
	default:
		md := markdownStrategy{splitter: j.splitter}
		return md.split(doc)
	}
}

func (j *javadocStrategy) splitAPI(doc loader.Document) []piece {
	content := doc.Content
	header := j.classHeader(content)

	var path []string
	if loc := h1HeaderRe.FindStringIndex(content); loc != nil {
		path = sectionPath(headerTitle(content[loc[0]:loc[1]]))
	}

	detailStart := -1
	for _, marker := range []string{"## Method Details", "## Method Detail"} {
		if idx := strings.Index(content, marker); idx >= 0 {
			detailStart = idx
			break
		}
	}
	if detailStart < 0 {
		return j.fallback(content, path)
	}

	details := content[detailStart:]
	locs := javadocMethodRe.FindAllStringIndex(details, -1)
	if len(locs) < 3 {
		return j.fallback(content, path)
	}

	var methods []string
	for i, loc := range locs {
		end := len(details)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		if m := strings.TrimSpace(details[loc[0]:end]); m != "" {
			methods = append(methods, m)
		}
	}

	budget := j.chunkSize
	if header != "" {
		budget = j.chunkSize - len(header) - 10
		if budget < j.minChunkSize {
			budget = j.minChunkSize
		}
	}

	var pieces []piece
	var group []string
	groupLen := 0
	flush := func() {
		if len(group) == 0 {
			return
		}
		body := strings.Join(group, "\n\n")
		if header != "" {
			body = header + "\n\n---\n\n" + body
		}
		pieces = append(pieces, piece{content: body, sectionPath: path})
		group = nil
		groupLen = 0
	}

	sub := splitter{chunkSize: budget, minChunkSize: j.minChunkSize}
	for _, m := range methods {
		if len(m) > budget {
			flush()
			for _, part := range sub.splitProtected(m) {
				group = []string{part}
				groupLen = len(part)
				flush()
			}
			continue
		}
		add := len(m)
		if groupLen > 0 {
			add += 2
		}
		if groupLen+add > budget {
			flush()
			add = len(m)
		}
		group = append(group, m)
		groupLen += add
	}
	flush()

	if len(pieces) == 0 {
		return j.fallback(content, path)
	}
	return pieces
}

// classHeader finds the page header: everything above the method or field
// summary marker. Long pages without a marker keep their first lines so
// chunks still name the class; short ones go without.
func (j *javadocStrategy) classHeader(content string) string {
	lines := strings.Split(content, "\n")
	limit := len(lines)
	if limit > headerScanLines {
		limit = headerScanLines
	}
	for i := 0; i < limit; i++ {
		switch strings.TrimSpace(lines[i]) {
		case "## Method Summary", "## Field Summary":
			return strings.TrimSpace(strings.Join(lines[:i], "\n"))
		}
	}
	if len(lines) > headerScanMin {
		return strings.TrimSpace(strings.Join(lines[:headerFallbackLines], "\n"))
	}
	return ""
}

func (j *javadocStrategy) fallback(content string, path []string) []piece {
	var pieces []piece
	for _, part := range j.splitProtected(content) {
		pieces = append(pieces, piece{content: part, sectionPath: path})
	}
	return pieces
}
