package chunk

import (
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grapecity-cn/docsmcp/internal/loader"
)

func assertChunkInvariants(t *testing.T, docID string, chunks []Chunk) {
	t.Helper()
	for i, ch := range chunks {
		assert.Equal(t, i, ch.Index)
		assert.Equal(t, fmt.Sprintf("%s_chunk%d", docID, i), ch.ID)
		assert.Equal(t, docID, ch.DocID)
		assert.NotEmpty(t, strings.TrimSpace(ch.Content))
		assert.Equal(t, len(chunks), ch.Meta.TotalChunks)
		assert.True(t, utf8.ValidString(ch.Content), "chunk %d is not valid UTF-8", i)
	}
}

func TestChunker_SmallDocumentSingleChunk(t *testing.T) {
	c, err := New(StrategyMarkdown, Options{})
	require.NoError(t, err)

	doc := loader.Document{
		ID:       "guide_intro",
		Content:  "# Intro\n\nHello world content.",
		Category: "doc",
		FileName: "intro.md",
	}
	chunks := c.ChunkDocument(doc)

	require.Len(t, chunks, 1)
	assert.Equal(t, "guide_intro_chunk0", chunks[0].ID)
	assert.Equal(t, doc.Content, chunks[0].Content)
	assert.Empty(t, chunks[0].Meta.SectionPath)
	assert.Equal(t, "- Intro", chunks[0].Meta.DocTOC)
	assert.Equal(t, 1, chunks[0].Meta.TotalChunks)
	assertChunkInvariants(t, "guide_intro", chunks)
}

func TestChunker_UnknownStrategy(t *testing.T) {
	_, err := New("prose", Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prose")
}

func TestMarkdown_SplitsAtSecondLevelHeaders(t *testing.T) {
	c, err := New(StrategyMarkdown, Options{ChunkSize: 120, MinChunkSize: 10})
	require.NoError(t, err)

	body := strings.Repeat("alpha beta gamma. ", 5)
	content := "Lead-in text describing the page.\n\n" +
		"## First\n\n" + body + "\n\n" +
		"## Second\n\n" + body
	doc := loader.Document{ID: "doc", Content: content}

	chunks := c.ChunkDocument(doc)
	require.Len(t, chunks, 3)

	assert.Empty(t, chunks[0].Meta.SectionPath)
	assert.Equal(t, "Lead-in text describing the page.", chunks[0].Content)

	assert.True(t, strings.HasPrefix(chunks[1].Content, "## First"))
	assert.Equal(t, []string{"First"}, chunks[1].Meta.SectionPath)

	assert.True(t, strings.HasPrefix(chunks[2].Content, "## Second"))
	assert.Equal(t, []string{"Second"}, chunks[2].Meta.SectionPath)

	assertChunkInvariants(t, "doc", chunks)
}

func TestMarkdown_OversizedSectionSplitsAtThirdLevel(t *testing.T) {
	c, err := New(StrategyMarkdown, Options{ChunkSize: 100, MinChunkSize: 10})
	require.NoError(t, err)

	long := strings.Repeat("alpha bravo charlie delta echo. ", 8)
	content := "## Top\n\nIntro paragraph under top.\n\n" +
		"### SubA\n\n" + long + "\n\n" +
		"### SubB\n\nShort body for the second part."
	doc := loader.Document{ID: "doc", Content: content}

	chunks := c.ChunkDocument(doc)
	require.Greater(t, len(chunks), 3)

	var subA, subB int
	for _, ch := range chunks {
		switch {
		case len(ch.Meta.SectionPath) == 2 && ch.Meta.SectionPath[1] == "SubA":
			subA++
			assert.True(t, strings.HasPrefix(ch.Content, "### SubA"),
				"continuation chunk must restate its section header")
			assert.Equal(t, "Top", ch.Meta.SectionPath[0])
		case len(ch.Meta.SectionPath) == 2 && ch.Meta.SectionPath[1] == "SubB":
			subB++
			assert.True(t, strings.HasPrefix(ch.Content, "### SubB"))
		}
	}
	assert.GreaterOrEqual(t, subA, 2, "the long subsection must split")
	assert.Equal(t, 1, subB)
	assertChunkInvariants(t, "doc", chunks)
}

func TestChunker_DropsShortPiecesUnlessAlone(t *testing.T) {
	c, err := New(StrategyMarkdown, Options{ChunkSize: 150, MinChunkSize: 50})
	require.NoError(t, err)

	body := strings.Repeat("some words here. ", 7)
	content := "## A\n\n" + body + "\n\n## Tiny\n\nok\n\n## B\n\n" + body
	doc := loader.Document{ID: "doc", Content: content}

	chunks := c.ChunkDocument(doc)
	require.Len(t, chunks, 2)
	assert.NotContains(t, chunks[0].Content, "Tiny")
	assert.NotContains(t, chunks[1].Content, "Tiny")
	assertChunkInvariants(t, "doc", chunks)

	// A document producing only one short piece keeps it.
	shortDoc := loader.Document{ID: "short", Content: "tiny"}
	shortChunks := c.ChunkDocument(shortDoc)
	require.Len(t, shortChunks, 1)
	assert.Equal(t, "tiny", shortChunks[0].Content)
}

func TestFindBreakPoint_PrefersSentenceEnd(t *testing.T) {
	s := splitter{chunkSize: 100, minChunkSize: 10}

	text := "Visit https://pkg.go.dev/std today. Then read more lines of text."
	cut := s.findBreakPoint(text, 40)
	assert.Equal(t, 35, cut)
	assert.True(t, strings.HasSuffix(text[:cut], "today."))
}

func TestFindBreakPoint_SkipsDotsInsideURLs(t *testing.T) {
	s := splitter{chunkSize: 100, minChunkSize: 10}

	text := "See https://example.com/docs/api.html plus other words"
	cut := s.findBreakPoint(text, 45)
	assert.Equal(t, 45, cut, "URL-internal dots must not become break points")
}

func TestFindBreakPoint_CJKSentenceEnd(t *testing.T) {
	s := splitter{chunkSize: 100, minChunkSize: 10}

	text := strings.Repeat("これは文章です。", 6)
	cut := s.findBreakPoint(text, 100)
	assert.Equal(t, 96, cut)
	assert.True(t, strings.HasSuffix(text[:cut], "。"))
}

func TestFindBreakPoint_HardCutStaysOnRuneBoundary(t *testing.T) {
	s := splitter{chunkSize: 100, minChunkSize: 10}

	text := strings.Repeat("漢", 50)
	cut := s.findBreakPoint(text, 100)
	assert.Equal(t, 99, cut)
	assert.True(t, utf8.ValidString(text[:cut]))
}

func TestSplitProtected_KeepsCodeBlocksIntact(t *testing.T) {
	s := splitter{chunkSize: 80, minChunkSize: 10}

	code := "```js\n" + strings.Repeat("let x = 1;\n", 8) + "```"
	text := strings.Repeat("Intro sentence here. ", 3) + "\n\n" + code + "\n\n" +
		strings.Repeat("Tail sentence here. ", 3)

	chunks := s.splitProtected(text)
	require.Greater(t, len(chunks), 1)

	found := false
	for _, ch := range chunks {
		assert.Equal(t, 0, strings.Count(ch, "```")%2, "unbalanced fence in %q", ch)
		if ch == code {
			found = true
		}
	}
	assert.True(t, found, "the code block must survive as one piece")
}

func TestSplitCodeBlock_ExplodesGiantBlocks(t *testing.T) {
	s := splitter{chunkSize: 50, minChunkSize: 5}

	var lines []string
	for i := 0; i < 40; i++ {
		lines = append(lines, fmt.Sprintf("line%02d();", i))
	}
	code := "```go\n" + strings.Join(lines, "\n") + "\n```"

	chunks := s.splitProtected(code)
	require.Greater(t, len(chunks), 1)

	var got []string
	for _, ch := range chunks {
		assert.True(t, strings.HasPrefix(ch, "```go\n"), "fence language must be preserved")
		assert.True(t, strings.HasSuffix(ch, "```"))
		inner := strings.TrimSuffix(strings.TrimPrefix(ch, "```go\n"), "\n```")
		got = append(got, strings.Split(inner, "\n")...)
	}
	assert.Equal(t, lines, got, "exploding a code block must not lose lines")
}

func TestTypeDoc_GroupsMembersUnderClassHeader(t *testing.T) {
	c, err := New(StrategyTypeDoc, Options{})
	require.NoError(t, err)

	var b strings.Builder
	b.WriteString("# Class: Workbook\n\n")
	b.WriteString("## Table of contents\n\n- getSheet\n- setValue\n\n")
	b.WriteString("## Methods\n\n")
	var names []string
	for i := 0; i < 12; i++ {
		name := fmt.Sprintf("method%02d", i)
		names = append(names, name)
		fmt.Fprintf(&b, "### %s\n\n%s\n\n", name, strings.Repeat("Sets the value. ", 80))
	}
	doc := loader.Document{ID: "apis_workbook", Content: b.String(), Category: "api"}

	chunks := c.ChunkDocument(doc)
	require.Len(t, chunks, 6)

	var seen []string
	for _, ch := range chunks {
		assert.True(t, strings.HasPrefix(ch.Content, "# Class: Workbook\n\n---\n\n"),
			"every chunk repeats the class header")
		assert.Equal(t, []string{"Class: Workbook"}, ch.Meta.SectionPath)
		assert.LessOrEqual(t, len(ch.Content), DefaultChunkSize)
		for _, name := range names {
			if strings.Contains(ch.Content, "### "+name) {
				seen = append(seen, name)
			}
		}
	}
	assert.Equal(t, names, seen, "members must appear once each, in order")
	assertChunkInvariants(t, "apis_workbook", chunks)
}

func TestTypeDoc_DemoCarriesTitleIntoContinuations(t *testing.T) {
	c, err := New(StrategyTypeDoc, Options{ChunkSize: 120, MinChunkSize: 10})
	require.NoError(t, err)

	body := strings.Repeat("step detail here. ", 5)
	content := "# Demo Page\n\nThe intro paragraph.\n\n" +
		"## Step One\n\n" + body + "\n\n" +
		"## Step Two\n\n" + body
	doc := loader.Document{ID: "demos_cells", Content: content, Category: "demo"}

	chunks := c.ChunkDocument(doc)
	require.Len(t, chunks, 3)

	assert.True(t, strings.HasPrefix(chunks[0].Content, "# Demo Page\n\nThe intro"))
	assert.True(t, strings.HasPrefix(chunks[1].Content, "# Demo Page\n\n## Step One"))
	assert.True(t, strings.HasPrefix(chunks[2].Content, "# Demo Page\n\n## Step Two"))
	assertChunkInvariants(t, "demos_cells", chunks)
}

func TestTypeDoc_NonAPIFallsBackToMarkdown(t *testing.T) {
	c, err := New(StrategyTypeDoc, Options{ChunkSize: 120, MinChunkSize: 10})
	require.NoError(t, err)

	body := strings.Repeat("guide sentence. ", 6)
	content := "## Setup\n\n" + body + "\n\n## Usage\n\n" + body
	doc := loader.Document{ID: "docs_guide", Content: content, Category: "doc"}

	chunks := c.ChunkDocument(doc)
	require.Len(t, chunks, 2)
	assert.Equal(t, []string{"Setup"}, chunks[0].Meta.SectionPath)
	assert.Equal(t, []string{"Usage"}, chunks[1].Meta.SectionPath)
}

func TestJavaDoc_GroupsMethodDetails(t *testing.T) {
	c, err := New(StrategyJavaDoc, Options{ChunkSize: 1000, MinChunkSize: 50})
	require.NoError(t, err)

	var b strings.Builder
	b.WriteString("# Class Workbook\n\n")
	b.WriteString("Package: com.grapecity.documents.excel\n\n")
	b.WriteString("## Method Summary\n\n| Method | Description |\n|---|---|\n\n")
	b.WriteString("## Method Details\n\n")
	for _, name := range []string{"open", "save", "closeAll", "printOut"} {
		fmt.Fprintf(&b, "### %s\n\n%s\n\n", name, strings.Repeat("Does the work. ", 26))
	}
	doc := loader.Document{ID: "apis_Workbook", Content: b.String(), Category: "api"}

	chunks := c.ChunkDocument(doc)
	require.Len(t, chunks, 2)

	for _, ch := range chunks {
		assert.True(t, strings.HasPrefix(ch.Content, "# Class Workbook"))
		assert.Contains(t, ch.Content, "\n\n---\n\n")
		assert.Equal(t, []string{"Class Workbook"}, ch.Meta.SectionPath)
	}
	assert.Contains(t, chunks[0].Content, "### open")
	assert.Contains(t, chunks[0].Content, "### save")
	assert.Contains(t, chunks[1].Content, "### closeAll")
	assert.Contains(t, chunks[1].Content, "### printOut")
	assertChunkInvariants(t, "apis_Workbook", chunks)
}

func TestJavaDoc_FewMethodsFallsBack(t *testing.T) {
	c, err := New(StrategyJavaDoc, Options{ChunkSize: 200, MinChunkSize: 10})
	require.NoError(t, err)

	content := "# Class Range\n\n## Method Details\n\n### getValue\n\n" +
		strings.Repeat("Returns the cell value. ", 12)
	doc := loader.Document{ID: "apis_Range", Content: content, Category: "api"}

	chunks := c.ChunkDocument(doc)
	require.NotEmpty(t, chunks)
	assert.True(t, strings.HasPrefix(chunks[0].Content, "# Class Range"))
	for _, ch := range chunks {
		assert.NotContains(t, ch.Content, "\n\n---\n\n")
	}
}

func TestExtractTOC(t *testing.T) {
	content := "# Title\n\nIntro\n\n## Setup\n\ntext\n\n" +
		"```bash\n# not a header\necho hi\n```\n\n" +
		"### Detail\n\nmore\n\n## Usage\n\nend"

	toc := ExtractTOC(content)
	assert.Equal(t, "- Title\n  - Setup\n    - Detail\n  - Usage", toc)
}

func TestExtractTOC_NoHeaders(t *testing.T) {
	assert.Empty(t, ExtractTOC("plain text without any headers"))
}

func TestSplitByHeaders_PreambleAndSections(t *testing.T) {
	s := splitter{chunkSize: 100, minChunkSize: 10}

	content := "before\n\n## One\n\nalpha\n\n## Two\n\nbeta"
	sections := s.splitByHeaders(content, h2HeaderRe)
	require.Len(t, sections, 3)
	assert.Equal(t, "before", sections[0])
	assert.Equal(t, "## One\n\nalpha", sections[1])
	assert.Equal(t, "## Two\n\nbeta", sections[2])
}

func TestSplitByHeaders_NoMatch(t *testing.T) {
	s := splitter{chunkSize: 100, minChunkSize: 10}
	sections := s.splitByHeaders("no headers at all", h2HeaderRe)
	assert.Equal(t, []string{"no headers at all"}, sections)
}

func TestSplitProtected_CJKContentStaysValid(t *testing.T) {
	s := splitter{chunkSize: 90, minChunkSize: 10}

	text := strings.Repeat("これはスプレッドシートの説明文です。", 12)
	chunks := s.splitProtected(text)
	require.Greater(t, len(chunks), 1)
	for _, ch := range chunks {
		assert.True(t, utf8.ValidString(ch))
	}
}
