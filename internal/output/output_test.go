package output

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Smackface/go-listing-scraper/internal/listing"
)

func TestCandidate(t *testing.T) {
	assert.Equal(t, filepath.Join("data", "extracted_data.json"), Candidate("data", "extracted_data.json", 0))
	assert.Equal(t, filepath.Join("data", "extracted_data(1).json"), Candidate("data", "extracted_data.json", 1))
	assert.Equal(t, filepath.Join("data", "extracted_data(12).json"), Candidate("data", "extracted_data.json", 12))
	assert.Equal(t, filepath.Join("data", "noext(2)"), Candidate("data", "noext", 2))
	assert.Equal(t, filepath.Join("data", "page.min(1).html"), Candidate("data", "page.min.html", 1))
}

func TestWriteJSON_DedupNaming(t *testing.T) {
	dir := t.TempDir()
	first := []listing.Record{{IDURL: "1", Title: "first"}}

	path, err := WriteJSON(first, dir, "out.json")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "out.json"), path)

	want := []string{"out(1).json", "out(2).json", "out(3).json"}
	for _, name := range want {
		path, err := WriteJSON([]listing.Record{{IDURL: "x", Title: name}}, dir, "out.json")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, name), path)
	}

	// the first file is never rewritten
	var got []listing.Record
	raw, err := os.ReadFile(filepath.Join(dir, "out.json"))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, first, got)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, len(want)+1, "temp files must not be left behind")
}

func TestWriteJSON_Format(t *testing.T) {
	dir := t.TempDir()
	records := []listing.Record{
		{IDURL: "https://example.com/offre?id=1&src=a", Title: "Maçon <chef>"},
		{IDURL: "2", Title: "Électricien"},
	}

	path, err := WriteJSON(records, dir, "extracted_data.json")
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(raw)

	assert.True(t, strings.HasPrefix(text, "[\n    {\n        \"id_url\""), text)
	assert.Contains(t, text, "Maçon <chef>")
	assert.Contains(t, text, "Électricien")
	assert.Contains(t, text, "id=1&src=a")
	assert.False(t, strings.HasSuffix(text, "\n"))

	var got []listing.Record
	require.NoError(t, json.Unmarshal(raw, &got))
	assert.Equal(t, records, got)
}

func TestWriteJSON_EmptyRecords(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteJSON(nil, dir, "empty.json")
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(raw))
}

func TestWriteJSON_CreatesFolder(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data", "raw")

	path, err := WriteJSON([]listing.Record{{IDURL: "1", Title: "a"}}, dir, "extracted_data.json")
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestWriteJSON_Errors(t *testing.T) {
	parent := t.TempDir()
	blocker := filepath.Join(parent, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	_, err := WriteJSON(nil, blocker, "out.json")
	assert.ErrorIs(t, err, ErrWrite)

	_, err = WriteJSON(nil, parent, "")
	assert.ErrorIs(t, err, ErrWrite)

	_, err = WriteJSON(nil, parent, filepath.Join("..", "escape.json"))
	assert.ErrorIs(t, err, ErrWrite)
}

func TestWriteSnapshot(t *testing.T) {
	dir := t.TempDir()
	src := "<html>\n  <head><title>Offres</title></head>\n  <body>\n    <!-- comment -->\n    <h2 data-intitule-offre=\"1\">  Plombier  </h2>\n  </body>\n</html>"

	path, err := WriteSnapshot(src, dir, "page.html")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "page.html"), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(raw)
	assert.NotContains(t, out, "comment")
	assert.Contains(t, out, `data-intitule-offre="1"`)
	assert.Contains(t, out, "</h2>")
	assert.Less(t, len(out), len(src))

	path, err = WriteSnapshot(src, dir, "page.html")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "page(1).html"), path)
}
