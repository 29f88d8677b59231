// Package mimetype loads a mime.types-style text file into a table sorted
// by extension, for binary-search lookup from a served file path.
package mimetype

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// DefaultMediaType is returned by Lookup when a path has no extension or
// the extension is not present in the table.
const DefaultMediaType = "text/plain"

// Entry is a single (media type, extension) pair.
type Entry struct {
	MediaType string
	Ext       string
}

// Table is a content-type table sorted ascending by extension.
type Table struct {
	entries []Entry
}

// Load reads a mime.types-format file at path and returns a Table sorted
// by extension. Blank lines and lines beginning with '#' are skipped.
// Each remaining line must have at least two whitespace-separated tokens
// (a media type and one or more extensions); a line with fewer is a
// load-time error.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mimetype: open %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads the mime.types format from r. See Load for the format.
func Parse(r io.Reader) (*Table, error) {
	var entries []Entry
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, fmt.Errorf("mimetype: line %d: expected \"<media-type> <ext>...\", got %q", lineNo, line)
		}
		media := fields[0]
		for _, ext := range fields[1:] {
			entries = append(entries, Entry{MediaType: media, Ext: ext})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("mimetype: read: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Ext < entries[j].Ext })
	return &Table{entries: entries}, nil
}

// Lookup returns the media type for path, based on the suffix following
// the last '.' in path. Returns DefaultMediaType on a miss or when path
// has no extension.
func (t *Table) Lookup(path string) string {
	ext := extOf(path)
	if ext == "" {
		return DefaultMediaType
	}
	i := sort.Search(len(t.entries), func(i int) bool { return t.entries[i].Ext >= ext })
	if i < len(t.entries) && t.entries[i].Ext == ext {
		return t.entries[i].MediaType
	}
	return DefaultMediaType
}

func extOf(path string) string {
	i := strings.LastIndexByte(path, '.')
	if i < 0 || i == len(path)-1 {
		return ""
	}
	return path[i+1:]
}

// Len returns the number of entries in the table.
func (t *Table) Len() int { return len(t.entries) }
