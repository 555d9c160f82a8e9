package chunking

import (
	"bytes"
	"strings"

	"github.com/poiesic/docindex/core"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MaxHeadingLevel is the deepest heading level that opens a section.
const MaxHeadingLevel = 3

// headingMark is the position of a recognized heading in the source.
type headingMark struct {
	heading   core.Heading
	lineStart int
	lineEnd   int
}

var markdownParser = goldmark.New().Parser()

// SplitSections splits text at ATX headings of level 1 to MaxHeadingLevel.
//
// Text before the first heading becomes a section with no lineage, and is
// dropped when blank. Every heading opens a section whose content runs until
// the next recognized heading; such sections are kept even when empty. A text
// without headings yields exactly one section.
func SplitSections(src string) []core.Section {
	marks := findHeadings([]byte(src))
	if len(marks) == 0 {
		return []core.Section{{Content: strings.TrimSpace(src)}}
	}

	var sections []core.Section
	if pre := strings.TrimSpace(src[:marks[0].lineStart]); pre != "" {
		sections = append(sections, core.Section{Content: pre})
	}

	var lineage []core.Heading
	for i, m := range marks {
		// Pop entries of equal or deeper level.
		for len(lineage) > 0 && lineage[len(lineage)-1].Level >= m.heading.Level {
			lineage = lineage[:len(lineage)-1]
		}
		lineage = append(lineage, m.heading)

		end := len(src)
		if i+1 < len(marks) {
			end = marks[i+1].lineStart
		}
		content := ""
		if m.lineEnd < end {
			content = strings.TrimSpace(src[m.lineEnd:end])
		}

		headings := make([]core.Heading, len(lineage))
		copy(headings, lineage)
		sections = append(sections, core.Section{Headings: headings, Content: content})
	}
	return sections
}

func findHeadings(src []byte) []headingMark {
	doc := markdownParser.Parse(text.NewReader(src))

	var marks []headingMark
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		h, ok := n.(*ast.Heading)
		if !ok || h.Level > MaxHeadingLevel || h.Lines().Len() == 0 {
			continue
		}
		seg := h.Lines().At(0)
		lineStart := bytes.LastIndexByte(src[:seg.Start], '\n') + 1
		if !isATX(src[lineStart:seg.Start]) {
			continue
		}
		lineEnd := len(src)
		if i := bytes.IndexByte(src[seg.Stop:], '\n'); i >= 0 {
			lineEnd = seg.Stop + i + 1
		}
		marks = append(marks, headingMark{
			heading: core.Heading{
				Level: h.Level,
				Text:  strings.TrimSpace(string(h.Lines().Value(src))),
			},
			lineStart: lineStart,
			lineEnd:   lineEnd,
		})
	}
	return marks
}

// isATX reports whether the line prefix before a heading's text is an ATX
// marker. Setext headings are treated as body text.
func isATX(prefix []byte) bool {
	return bytes.HasPrefix(bytes.TrimLeft(prefix, " "), []byte("#"))
}
