// Package output persists scrape results without ever overwriting an
// existing file.
package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/Smackface/go-listing-scraper/internal/listing"
)

// ErrWrite wraps every failure to persist a file.
var ErrWrite = errors.New("output: write failed")

// maxCandidates bounds the probing of name(n).ext paths.
const maxCandidates = 100000

// Candidate returns the n-th path tried for filename in folder: the name
// itself for n == 0, then "base(n).ext".
func Candidate(folder, filename string, n int) string {
	if n == 0 {
		return filepath.Join(folder, filename)
	}
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)
	return filepath.Join(folder, fmt.Sprintf("%s(%d)%s", base, n, ext))
}

// WriteJSON encodes records as an indented JSON array and stores it in
// folder under the first free name derived from filename. It returns the
// path written.
func WriteJSON(records []listing.Record, folder, filename string) (string, error) {
	if records == nil {
		records = []listing.Record{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(records); err != nil {
		return "", fmt.Errorf("%w: encode records: %v", ErrWrite, err)
	}
	return WriteFile(bytes.TrimRight(buf.Bytes(), "\n"), folder, filename)
}

// WriteFile stores data in folder under the first free name derived from
// filename. The file appears complete or not at all.
func WriteFile(data []byte, folder, filename string) (string, error) {
	if filename == "" || filepath.Base(filename) != filename {
		return "", fmt.Errorf("%w: invalid file name %q", ErrWrite, filename)
	}
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return "", fmt.Errorf("%w: create folder: %v", ErrWrite, err)
	}

	tmp, err := os.CreateTemp(folder, ".tmp-"+filename+"-*")
	if err != nil {
		return "", fmt.Errorf("%w: create temp file: %v", ErrWrite, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("%w: write temp file: %v", ErrWrite, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("%w: sync temp file: %v", ErrWrite, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("%w: close temp file: %v", ErrWrite, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return "", fmt.Errorf("%w: chmod temp file: %v", ErrWrite, err)
	}

	for n := 0; n < maxCandidates; n++ {
		path := Candidate(folder, filename, n)
		err := os.Link(tmpName, path)
		if err == nil {
			return path, nil
		}
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		return "", fmt.Errorf("%w: link %s: %v", ErrWrite, path, err)
	}
	return "", fmt.Errorf("%w: no free name for %s in %s", ErrWrite, filename, folder)
}
