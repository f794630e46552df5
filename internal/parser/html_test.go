package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextBlocks(t *testing.T) {
	p := NewHTMLText()

	text, err := p.Text("<html><body><p>first line</p><p>second line</p></body></html>")
	require.NoError(t, err)
	assert.Equal(t, "first line\nsecond line", text)
}

func TestTextStripsNonContent(t *testing.T) {
	p := NewHTMLText()

	html := `<html><head><title>t</title><style>p{color:red}</style></head>` +
		`<body><script>alert(1)</script><div>visible</div></body></html>`
	text, err := p.Text(html)
	require.NoError(t, err)
	assert.Equal(t, "visible", text)
}

func TestTextCollapsesWhitespace(t *testing.T) {
	p := NewHTMLText()

	text, err := p.Text("<p>a    b</p><br><br><br><p>c</p>")
	require.NoError(t, err)
	assert.Equal(t, "a b\nc", text)
}

func TestTextEmpty(t *testing.T) {
	p := NewHTMLText()

	text, err := p.Text("")
	require.NoError(t, err)
	assert.Empty(t, text)
}
