package parsers

import (
	"encoding/xml"
	"io"
	"strings"

	"scholarfeed/models"
)

// EndNote XML varies across exporters. Some store the title in
// <title>, others in <titles><title> or <titles><full-title>, and any text
// may be wrapped in an extra <style> tag. The field accessors below try the
// variants in order.

type endnoteValue struct {
	Text  string `xml:",chardata"`
	Style string `xml:"style"`
}

func (v endnoteValue) value() string {
	if t := strings.TrimSpace(v.Text); t != "" {
		return t
	}
	return strings.TrimSpace(v.Style)
}

type endnoteRecord struct {
	Title  endnoteValue `xml:"title"`
	Titles struct {
		Title     endnoteValue `xml:"title"`
		FullTitle endnoteValue `xml:"full-title"`
	} `xml:"titles"`
	Periodical struct {
		Title     endnoteValue `xml:"title"`
		FullTitle endnoteValue `xml:"full-title"`
	} `xml:"periodical"`
	Abstract     endnoteValue `xml:"abstract"`
	Contributors struct {
		Authors struct {
			Author []endnoteValue `xml:"author"`
		} `xml:"authors"`
	} `xml:"contributors"`
}

type endnoteFile struct {
	Records []endnoteRecord `xml:"records>record"`
}

// ParseEndNoteXML reads an EndNote XML export and returns the articles found
// in it.
func ParseEndNoteXML(r io.Reader) ([]*models.Article, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var file endnoteFile
	if err := xml.Unmarshal(data, &file); err != nil {
		return nil, err
	}

	articles := make([]*models.Article, 0, len(file.Records))
	for _, record := range file.Records {
		a := &models.Article{
			Title:    firstNonEmpty(record.Title.value(), record.Titles.Title.value(), record.Titles.FullTitle.value()),
			Journal:  firstNonEmpty(record.Periodical.Title.value(), record.Periodical.FullTitle.value()),
			Abstract: record.Abstract.value(),
		}
		var authors []string
		for _, author := range record.Contributors.Authors.Author {
			if name := author.value(); name != "" {
				authors = append(authors, name)
			}
		}
		a.SetAuthorsList(authors)
		articles = append(articles, a)
	}
	return articles, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
