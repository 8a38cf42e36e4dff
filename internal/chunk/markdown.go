package chunk

import "github.com/grapecity-cn/docsmcp/internal/loader"

// markdownStrategy splits general documentation at section headers: h2
// sections first, oversized ones again at h3. Continuation chunks of an h3
// subsection get the h3 header line re-prepended so the chunk still names
// its section when read alone.
type markdownStrategy struct {
	splitter
}

func (m *markdownStrategy) split(doc loader.Document) []piece {
	content := doc.Content
	if len(content) <= m.chunkSize {
		return []piece{{content: content}}
	}

	var pieces []piece
	for _, section := range m.splitByHeaders(content, h2HeaderRe) {
		h2 := titleIfLevel(firstLine(section), 2)
		if len(section) <= m.chunkSize {
			pieces = append(pieces, piece{content: section, sectionPath: sectionPath(h2)})
			continue
		}

		for _, sub := range m.splitByHeaders(section, h3HeaderRe) {
			h3 := titleIfLevel(firstLine(sub), 3)
			path := sectionPath(h2, h3)
			for i, part := range m.splitProtected(sub) {
				if i > 0 && h3 != "" {
					part = "### " + h3 + "\n\n" + part
				}
				pieces = append(pieces, piece{content: part, sectionPath: path})
			}
		}
	}
	return pieces
}

// sectionPath builds a header trail, dropping empty components.
func sectionPath(titles ...string) []string {
	var path []string
	for _, t := range titles {
		if t != "" {
			path = append(path, t)
		}
	}
	return path
}
