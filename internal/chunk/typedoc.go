package chunk

import (
	"strings"

	"github.com/grapecity-cn/docsmcp/internal/loader"
)

// typedocSkipSections are boilerplate h2 titles that precede the member
// listing on TypeDoc class pages.
var typedocSkipSections = map[string]bool{
	"Content":           true,
	"Table of contents": true,
	"Hierarchy":         true,
}

// typedocStrategy handles TypeDoc-generated references. API pages group
// class members under the class header so a member never appears without
// the class it belongs to; demo pages carry the page title into
// continuation chunks; everything else splits as plain Markdown.
type typedocStrategy struct {
	splitter
}

func (t *typedocStrategy) split(doc loader.Document) []piece {
	if len(doc.Content) <= t.chunkSize {
		return []piece{{content: doc.Content}}
	}

	switch doc.Category {
	case "api":
		return t.splitAPI(doc)
	case "demo":
		return t.splitDemo(doc)
	default:
		md := markdownStrategy{splitter: t.splitter}
		return md.split(doc)
	}
}

func (t *typedocStrategy) splitAPI(doc loader.Document) []piece {
	content := doc.Content

	classHeader := ""
	if loc := h1HeaderRe.FindStringIndex(content); loc != nil {
		classHeader = strings.TrimSpace(content[loc[0]:loc[1]])
	}
	memberStart := t.memberStart(content)
	if classHeader == "" || memberStart < 0 {
		md := markdownStrategy{splitter: t.splitter}
		return md.split(doc)
	}

	path := sectionPath(headerTitle(classHeader))

	var members []string
	for _, section := range t.splitByHeaders(content[memberStart:], h2h3HeaderRe) {
		if len(section) < t.minChunkSize {
			continue
		}
		members = append(members, section)
	}
	if len(members) == 0 {
		return []piece{{content: content, sectionPath: path}}
	}

	// Every chunk repeats the class header, so the member budget reserves
	// room for it and the separator.
	budget := t.chunkSize - len(classHeader) - 10
	if budget < t.minChunkSize {
		budget = t.minChunkSize
	}

	var pieces []piece
	var group []string
	groupLen := 0
	flush := func() {
		if len(group) == 0 {
			return
		}
		body := classHeader + "\n\n---\n\n" + strings.Join(group, "\n\n")
		pieces = append(pieces, piece{content: body, sectionPath: path})
		group = nil
		groupLen = 0
	}

	sub := splitter{chunkSize: budget, minChunkSize: t.minChunkSize}
	for _, m := range members {
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

	return pieces
}

// memberStart returns the offset of the first h2 past the boilerplate
// sections, or -1 when the page has none.
func (t *typedocStrategy) memberStart(content string) int {
	for _, loc := range h2HeaderRe.FindAllStringIndex(content, -1) {
		if !typedocSkipSections[headerTitle(content[loc[0]:loc[1]])] {
			return loc[0]
		}
	}
	return -1
}

// splitDemo splits like Markdown, then prepends the page title to every
// chunk after the first.
func (t *typedocStrategy) splitDemo(doc loader.Document) []piece {
	md := markdownStrategy{splitter: t.splitter}
	pieces := md.split(doc)
	if len(pieces) <= 1 {
		return pieces
	}

	title := ""
	if loc := h1HeaderRe.FindStringIndex(doc.Content); loc != nil {
		title = strings.TrimSpace(doc.Content[loc[0]:loc[1]])
	}
	if title == "" {
		return pieces
	}
	for i := 1; i < len(pieces); i++ {
		pieces[i].content = title + "\n\n" + pieces[i].content
	}
	return pieces
}
