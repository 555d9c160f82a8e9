package chunking

import (
	"testing"

	"github.com/poiesic/docindex/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitSections_NoHeadings(t *testing.T) {
	sections := SplitSections("just some text\n\nwith two paragraphs\n")
	require.Len(t, sections, 1)
	assert.Empty(t, sections[0].Headings)
	assert.Equal(t, "just some text\n\nwith two paragraphs", sections[0].Content)
}

func TestSplitSections_EmptyDocument(t *testing.T) {
	sections := SplitSections("")
	require.Len(t, sections, 1)
	assert.Equal(t, "", sections[0].Content)
}

func TestSplitSections_Lineage(t *testing.T) {
	src := `intro line

# Title

title body

## Part A

a body

### Detail

detail body

## Part B

b body

# Appendix
appendix body
`
	sections := SplitSections(src)

	want := []core.Section{
		{Content: "intro line"},
		{Headings: []core.Heading{{Level: 1, Text: "Title"}}, Content: "title body"},
		{Headings: []core.Heading{{Level: 1, Text: "Title"}, {Level: 2, Text: "Part A"}}, Content: "a body"},
		{Headings: []core.Heading{{Level: 1, Text: "Title"}, {Level: 2, Text: "Part A"}, {Level: 3, Text: "Detail"}}, Content: "detail body"},
		{Headings: []core.Heading{{Level: 1, Text: "Title"}, {Level: 2, Text: "Part B"}}, Content: "b body"},
		{Headings: []core.Heading{{Level: 1, Text: "Appendix"}}, Content: "appendix body"},
	}
	assert.Equal(t, want, sections)
}

func TestSplitSections_SkippedLevel(t *testing.T) {
	sections := SplitSections("# Top\n\n### Deep\n\ntext\n\n## Mid\n\nmore\n")
	require.Len(t, sections, 3)
	assert.Equal(t, []core.Heading{{Level: 1, Text: "Top"}, {Level: 3, Text: "Deep"}}, sections[1].Headings)
	assert.Equal(t, []core.Heading{{Level: 1, Text: "Top"}, {Level: 2, Text: "Mid"}}, sections[2].Headings)
}

func TestSplitSections_DeepHeadingsStayInContent(t *testing.T) {
	sections := SplitSections("# Top\n\n#### Minor\n\nbody\n")
	require.Len(t, sections, 1)
	assert.Equal(t, "#### Minor\n\nbody", sections[0].Content)
}

func TestSplitSections_IgnoresCodeFences(t *testing.T) {
	src := "# Real\n\n```\n# not a heading\n```\n\nafter\n"
	sections := SplitSections(src)
	require.Len(t, sections, 1)
	assert.Equal(t, []core.Heading{{Level: 1, Text: "Real"}}, sections[0].Headings)
	assert.Contains(t, sections[0].Content, "# not a heading")
	assert.Contains(t, sections[0].Content, "after")
}

func TestSplitSections_SetextIsBodyText(t *testing.T) {
	sections := SplitSections("Title\n=====\n\nbody\n")
	require.Len(t, sections, 1)
	assert.Empty(t, sections[0].Headings)
	assert.Contains(t, sections[0].Content, "Title")
}

func TestSplitSections_EmptyHeadingSectionKept(t *testing.T) {
	sections := SplitSections("# One\n# Two\ncontent\n")
	require.Len(t, sections, 2)
	assert.Equal(t, "", sections[0].Content)
	assert.Equal(t, []core.Heading{{Level: 1, Text: "Two"}}, sections[1].Headings)
	assert.Equal(t, "content", sections[1].Content)
}

func TestSplitSections_ClosingHashesAndIndent(t *testing.T) {
	sections := SplitSections("  ## Spaced ##  \nbody\n")
	require.Len(t, sections, 1)
	assert.Equal(t, []core.Heading{{Level: 2, Text: "Spaced"}}, sections[0].Headings)
	assert.Equal(t, "body", sections[0].Content)
}

func TestSplitSections_BlankPreambleDropped(t *testing.T) {
	sections := SplitSections("\n\n   \n# H\nx\n")
	require.Len(t, sections, 1)
	assert.Equal(t, "x", sections[0].Content)
}
