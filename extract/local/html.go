package local

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/net/html"
)

func extractHTML(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	doc, err := html.Parse(f)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	root := findElement(doc, "body")
	if root == nil {
		root = doc
	}
	w := &htmlWalker{}
	w.walk(root)
	w.flush()
	return joinBlocks(w.blocks), nil
}

// htmlWalker splits a document into blocks. Text outside block elements,
// such as bare body text or a div's own text, is gathered into runs that
// end at the next block boundary.
type htmlWalker struct {
	blocks []string
	run    strings.Builder
}

func (w *htmlWalker) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		w.run.WriteString(n.Data)
		w.run.WriteByte(' ')
		return
	case html.ElementNode:
		if level := htmlHeadingLevel(n.Data); level > 0 {
			w.flush()
			if text := textContent(n); text != "" {
				w.blocks = append(w.blocks, atxHeading(level, text))
			}
			return
		}
		switch n.Data {
		case "script", "style", "nav", "noscript", "template", "head":
			return
		case "p", "li", "td", "th", "blockquote", "pre":
			w.flush()
			w.blocks = append(w.blocks, textContent(n))
			return
		}
		if !inlineElements[n.Data] {
			w.flush()
			defer w.flush()
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
}

// flush ends the current text run.
func (w *htmlWalker) flush() {
	if text := strings.Join(strings.Fields(w.run.String()), " "); text != "" {
		w.blocks = append(w.blocks, text)
	}
	w.run.Reset()
}

var inlineElements = map[string]bool{
	"a": true, "abbr": true, "b": true, "bdi": true, "bdo": true, "br": true,
	"cite": true, "code": true, "data": true, "dfn": true, "em": true,
	"i": true, "kbd": true, "label": true, "mark": true, "q": true,
	"s": true, "samp": true, "small": true, "span": true, "strong": true,
	"sub": true, "sup": true, "time": true, "u": true, "var": true, "wbr": true,
}

func htmlHeadingLevel(tag string) int {
	if len(tag) == 2 && tag[0] == 'h' && tag[1] >= '1' && tag[1] <= '6' {
		return int(tag[1] - '0')
	}
	return 0
}

// textContent concatenates descendant text nodes, collapsing whitespace.
func textContent(n *html.Node) string {
	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
			buf.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(buf.String()), " ")
}

func findElement(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}
