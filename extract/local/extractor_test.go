package local

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/fumiama/go-docx"
	"github.com/poiesic/docindex/core"
	"github.com/poiesic/docindex/extract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestExtract_Plain(t *testing.T) {
	e, err := New()
	require.NoError(t, err)

	for _, name := range []string{"notes.md", "notes.txt", "data.csv", "NOTES.MD"} {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, name, "# Title\n\nbody text")
			text, err := e.Extract(context.Background(), path, core.EndpointCredential{})
			require.NoError(t, err)
			assert.Equal(t, "# Title\n\nbody text", text)
		})
	}
}

func TestExtract_HTML(t *testing.T) {
	e, err := New()
	require.NoError(t, err)

	page := `<html><head><title>ignored</title><style>p{}</style></head>
<body>
<nav><p>menu</p></nav>
<h1>Guide</h1>
<p>Intro   paragraph.</p>
<h2>Install</h2>
<ul><li>step one</li><li>step two</li></ul>
<h4>Deep</h4>
<p>deep text</p>
<script>var x = 1;</script>
</body></html>`
	path := writeFile(t, "guide.html", page)

	text, err := e.Extract(context.Background(), path, core.EndpointCredential{})
	require.NoError(t, err)
	assert.Equal(t, "# Guide\n\nIntro paragraph.\n\n## Install\n\nstep one\n\nstep two\n\n### Deep\n\ndeep text", text)
}

func TestExtract_DOCX(t *testing.T) {
	e, err := New()
	require.NoError(t, err)

	doc := docx.New().WithDefaultTheme()
	doc.AddParagraph().Style("Heading1").AddText("Overview")
	doc.AddParagraph().AddText("First paragraph.")
	doc.AddParagraph().Style("Heading2").AddText("Details")
	doc.AddParagraph().AddText("Second paragraph.")

	path := filepath.Join(t.TempDir(), "report.docx")
	f, err := os.Create(path)
	require.NoError(t, err)
	_, err = doc.WriteTo(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	text, err := e.Extract(context.Background(), path, core.EndpointCredential{})
	require.NoError(t, err)
	assert.Contains(t, text, "# Overview")
	assert.Contains(t, text, "## Details")
	assert.Contains(t, text, "Second paragraph.")
}

func TestExtract_Unsupported(t *testing.T) {
	e, err := New()
	require.NoError(t, err)

	path := writeFile(t, "image.png", "not really a png")
	_, err = e.Extract(context.Background(), path, core.EndpointCredential{})
	require.Error(t, err)
	assert.ErrorIs(t, err, extract.ErrUnsupportedFormat)
	assert.True(t, core.IsPermanent(err))
	assert.False(t, e.Supports(path))
}

func TestExtract_MissingFile(t *testing.T) {
	e, err := New()
	require.NoError(t, err)

	_, err = e.Extract(context.Background(), filepath.Join(t.TempDir(), "gone.txt"), core.EndpointCredential{})
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.True(t, core.IsPermanent(err))
}

func TestExtract_CorruptPDF(t *testing.T) {
	e, err := New()
	require.NoError(t, err)

	path := writeFile(t, "broken.pdf", "%PDF-garbage")
	_, err = e.Extract(context.Background(), path, core.EndpointCredential{})
	require.Error(t, err)
	assert.True(t, core.IsPermanent(err))
}

func TestAtxHeading(t *testing.T) {
	assert.Equal(t, "# a", atxHeading(1, "a"))
	assert.Equal(t, "### a", atxHeading(3, "a"))
	assert.Equal(t, "### a", atxHeading(6, "a"))
}

func TestExtract_HTMLStrayText(t *testing.T) {
	e, err := New()
	require.NoError(t, err)

	page := `<html><body>
Loose <b>body</b> text
<div>Inside a div</div>
<div>outer <span>inline</span><p>nested para</p>after para</div>
<section><h2>Title</h2>section text</section>
</body></html>`
	path := writeFile(t, "stray.html", page)

	text, err := e.Extract(context.Background(), path, core.EndpointCredential{})
	require.NoError(t, err)
	assert.Equal(t, "Loose body text\n\nInside a div\n\nouter inline\n\nnested para\n\nafter para\n\n## Title\n\nsection text", text)
}
