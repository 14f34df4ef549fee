package parsers

import (
	"bufio"
	"io"
	"strings"

	"scholarfeed/models"
)

// ParseRIS reads a RIS file (.ris) and returns the articles found in it.
// Records start with a TY tag and end with ER.
func ParseRIS(r io.Reader) ([]*models.Article, error) {
	var articles []*models.Article
	var current *models.Article
	var authors []string

	flush := func() {
		if current != nil {
			current.SetAuthorsList(authors)
			articles = append(articles, current)
		}
		current = nil
		authors = nil
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		// Tags look like "TI  - value". Some exporters drop the trailing
		// space after the dash on empty tags like ER.
		if len(line) < 5 || line[2:5] != "  -" {
			continue
		}
		tag := line[:2]
		value := strings.TrimSpace(line[5:])

		switch tag {
		case "TY":
			flush()
			current = &models.Article{}
		case "ER":
			flush()
		}
		if current == nil {
			continue
		}

		switch tag {
		case "TI", "T1":
			if current.Title == "" {
				current.Title = value
			}
		case "AB", "N2":
			if current.Abstract == "" {
				current.Abstract = value
			}
		case "JO", "JF", "T2":
			if current.Journal == "" {
				current.Journal = value
			}
		case "AU", "A1":
			authors = append(authors, value)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()
	return articles, nil
}
