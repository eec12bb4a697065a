package emitter

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okapi-tools/okapi/internal/apidoc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectedKeepsDocumentOrder(t *testing.T) {
	d := apidoc.New("sel", "1")
	for _, ref := range []apidoc.EndpointRef{
		{Method: apidoc.MethodGet, URI: "/b"},
		{Method: apidoc.MethodPost, URI: "/a"},
		{Method: apidoc.MethodGet, URI: "/a"},
	} {
		require.NoError(t, d.AddEndpoint(ref.Method, ref.URI, apidoc.NewEndpoint("")))
	}

	all, err := Selected(d, nil)
	require.NoError(t, err)
	assert.Equal(t, d.EndpointRefs(), all)

	sub, err := Selected(d, []apidoc.EndpointRef{
		{Method: apidoc.MethodPost, URI: "/a"},
		{Method: apidoc.MethodGet, URI: "/a"},
	})
	require.NoError(t, err)
	assert.Equal(t, []apidoc.EndpointRef{
		{Method: apidoc.MethodGet, URI: "/a"},
		{Method: apidoc.MethodPost, URI: "/a"},
	}, sub)

	_, err = Selected(d, []apidoc.EndpointRef{{Method: apidoc.MethodDelete, URI: "/a"}})
	assert.ErrorIs(t, err, ErrUnknownEndpoint)
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap("   ", 10))
	assert.Equal(t, []string{"the quick", "brown fox", "jumps"}, Wrap("the quick brown fox\njumps", 10))
	assert.Equal(t, []string{"a", "incomprehensibilities", "b"}, Wrap("a incomprehensibilities b", 5))
	assert.Equal(t, "  // one two\n  // three\n", WrapIndent("one two three", "  // ", 7))
}

func TestTable(t *testing.T) {
	tbl := NewTable("  ", "Name", "Type", "Info").Floor(6)
	tbl.Add("id", "integer")
	tbl.Add("description", "string", "free text")
	got := tbl.String()
	want := "" +
		"  Name          Type      Info\n" +
		"  ---------------------------------\n" +
		"  id            integer\n" +
		"  description   string    free text\n"
	assert.Equal(t, want, got)
	assert.Equal(t, 2, tbl.Len())
	for _, l := range strings.Split(got, "\n") {
		assert.Equal(t, strings.TrimRight(l, " "), l)
	}
}

func TestWriteFiles(t *testing.T) {
	dir := t.TempDir()
	files := map[string][]byte{
		"proj/b.txt": []byte("b"),
		"proj/a.txt": []byte("aa"),
		"top.txt":    []byte(""),
	}
	planned, err := WriteFiles(dir, files)
	require.NoError(t, err)
	require.Len(t, planned, 3)
	assert.Equal(t, "proj/a.txt", planned[0].RelPath)
	assert.Equal(t, 2, planned[0].Size)
	assert.Equal(t, "top.txt", planned[2].RelPath)

	got, err := os.ReadFile(filepath.Join(dir, "proj", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "aa", string(got))

	entries, err := os.ReadDir(filepath.Join(dir, "proj"))
	require.NoError(t, err)
	assert.Len(t, entries, 2, "no temp files left behind")
}

func TestWriteFilesReportsPath(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "blocker"), []byte("x"), 0o644))
	_, err := WriteFiles(dir, map[string][]byte{"blocker/inner.txt": []byte("y")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inner.txt")
}
