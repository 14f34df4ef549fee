package parsers

import (
	"fmt"
	"io"
	"strings"

	"scholarfeed/models"
)

// ParseBibTeX reads a BibTeX file (.bib) and returns the articles found in
// it. The parser is deliberately tolerant: unknown entry types and fields
// are ignored, only a malformed overall structure is an error.
func ParseBibTeX(r io.Reader) ([]*models.Article, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	text := string(data)

	var articles []*models.Article
	for pos := 0; pos < len(text); {
		at := strings.IndexByte(text[pos:], '@')
		if at < 0 {
			break
		}
		pos += at + 1

		open := strings.IndexByte(text[pos:], '{')
		if open < 0 {
			return nil, fmt.Errorf("bibtex: entry without opening brace at offset %d", pos)
		}
		bodyStart := pos + open + 1

		end, err := matchBrace(text, bodyStart)
		if err != nil {
			return nil, err
		}

		entryType := strings.ToLower(strings.TrimSpace(text[pos : pos+open]))
		if entryType != "comment" && entryType != "string" && entryType != "preamble" {
			articles = append(articles, bibtexEntryToArticle(text[bodyStart:end]))
		}
		pos = end + 1
	}
	return articles, nil
}

// matchBrace returns the index of the brace closing the one right before
// start.
func matchBrace(text string, start int) (int, error) {
	depth := 1
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, nil
			}
		}
	}
	return 0, fmt.Errorf("bibtex: unbalanced braces")
}

// bibtexEntryToArticle extracts the fields we care about from one entry body
// (everything between the entry's outer braces, citation key included).
func bibtexEntryToArticle(body string) *models.Article {
	a := &models.Article{}
	for _, field := range splitFields(body) {
		eq := strings.IndexByte(field, '=')
		if eq < 0 {
			continue // the citation key
		}
		name := strings.ToLower(strings.TrimSpace(field[:eq]))
		value := cleanValue(field[eq+1:])
		switch name {
		case "title":
			a.Title = value
		case "abstract":
			a.Abstract = value
		case "journal":
			a.Journal = value
		case "author":
			a.SetAuthorsList(strings.Split(value, " and "))
		}
	}
	return a
}

// splitFields splits an entry body on commas that sit outside braces and
// quotes.
func splitFields(body string) []string {
	var fields []string
	depth := 0
	inQuote := false
	last := 0
	for i := 0; i < len(body); i++ {
		switch body[i] {
		case '{':
			depth++
		case '}':
			depth--
		case '"':
			if depth == 0 {
				inQuote = !inQuote
			}
		case ',':
			if depth == 0 && !inQuote {
				fields = append(fields, body[last:i])
				last = i + 1
			}
		}
	}
	fields = append(fields, body[last:])
	return fields
}

// cleanValue strips the surrounding braces or quotes from a field value and
// collapses internal whitespace.
func cleanValue(v string) string {
	v = strings.TrimSpace(v)
	for len(v) >= 2 {
		if (v[0] == '{' && v[len(v)-1] == '}') || (v[0] == '"' && v[len(v)-1] == '"') {
			v = strings.TrimSpace(v[1 : len(v)-1])
			continue
		}
		break
	}
	v = strings.ReplaceAll(v, "{", "")
	v = strings.ReplaceAll(v, "}", "")
	return strings.Join(strings.Fields(v), " ")
}
