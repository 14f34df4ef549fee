// Package parsers reads user-supplied reference libraries. Every parser
// produces transient article records with the same field shape as stored
// articles; any subset of the fields may be empty.
package parsers

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"scholarfeed/models"
)

// ErrUnsupportedFormat signals a file extension no parser handles.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Parse reads a reference file, choosing the parser by file extension.
func Parse(r io.Reader, filename string) ([]*models.Article, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".bib":
		return ParseBibTeX(r)
	case ".ris":
		return ParseRIS(r)
	case ".xml":
		return ParseEndNoteXML(r)
	default:
		return nil, ErrUnsupportedFormat
	}
}

// ParseFile opens and parses a reference file from disk.
func ParseFile(path string) ([]*models.Article, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f, path)
}

// ParseIdentifierList splits a pasted block of text into one identifier per
// non-empty line.
func ParseIdentifierList(text string) []string {
	var ids []string
	for _, line := range strings.Split(text, "\n") {
		if id := strings.TrimSpace(line); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
