package document

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSample(t *testing.T) {
	doc, err := ParseString(SampleOfficeSVG)
	require.NoError(t, err)

	root := doc.FindFirst("svg")
	require.NotNil(t, root)
	vb, ok := root.Attr("viewBox")
	assert.True(t, ok)
	assert.Equal(t, "0 0 800 500", vb)

	paths := doc.Descendants("path")
	assert.Len(t, paths, 17)

	id, ok := paths[0].Attr("id")
	assert.True(t, ok)
	assert.Equal(t, "wall_outline", id)

	_, ok = paths[3].Attr("id")
	assert.False(t, ok, "anonymous path has no id")

	desks := doc.FindFirst("g")
	require.NotNil(t, desks)
	assert.Equal(t, "walls", mustAttr(t, desks, "id"))
}

func TestElementDescendantsScopedToSubtree(t *testing.T) {
	doc, err := ParseString(`<svg><g id="a"><path id="p1"/><g><path id="p2"/></g></g><path id="p3"/></svg>`)
	require.NoError(t, err)

	group := doc.FindFirst("g")
	require.NotNil(t, group)

	var ids []string
	for _, el := range group.Descendants("path") {
		ids = append(ids, mustAttr(t, el, "id"))
	}
	assert.Equal(t, []string{"p1", "p2"}, ids)
	assert.Len(t, doc.Descendants("path"), 3)
	assert.Len(t, doc.Descendants("svg"), 1, "descendants include the root")
}

func TestParseCharset(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString(`<?xml version="1.0" encoding="ISO-8859-1"?><svg viewBox="0 0 1 1"><path id="caf`)
	buf.WriteByte(0xe9) // é in Latin-1
	buf.WriteString(`" d="M0 0"/></svg>`)

	doc, err := ParseBytes(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "café", mustAttr(t, doc.FindFirst("path"), "id"))
}

func TestParseHTMLEntities(t *testing.T) {
	doc, err := ParseString(`<svg><path id="a&nbsp;b" d="M0 0"/></svg>`)
	require.NoError(t, err)
	assert.Equal(t, "a b", mustAttr(t, doc.FindFirst("path"), "id"))
}

func TestParseErrors(t *testing.T) {
	_, err := ParseString("")
	assert.ErrorIs(t, err, ErrEmptyDocument)

	_, err = ParseString("just text")
	assert.ErrorIs(t, err, ErrEmptyDocument)
}

func TestFindFirstMissing(t *testing.T) {
	doc, err := ParseString(`<svg/>`)
	require.NoError(t, err)
	assert.Nil(t, doc.FindFirst("path"))

	var empty *Document
	assert.Nil(t, empty.FindFirst("svg"))
	assert.Nil(t, empty.Descendants("path"))
}

func TestSampleStatesReferenceSampleShapes(t *testing.T) {
	doc, err := ParseString(SampleOfficeSVG)
	require.NoError(t, err)

	ids := map[string]bool{}
	for _, el := range doc.Descendants("path") {
		if id, ok := el.Attr("id"); ok {
			ids[id] = true
		}
	}
	for id, state := range SampleStates() {
		assert.True(t, ids[id], "state for unknown shape %s", id)
		_, ok := SampleStyles()[state]
		assert.True(t, ok, "no style for state %d", state)
	}
}

func mustAttr(t *testing.T, el *Element, name string) string {
	t.Helper()
	v, ok := el.Attr(name)
	require.True(t, ok, "missing attribute %s", name)
	return v
}
