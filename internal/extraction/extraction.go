package extraction

import (
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DefaultTitleSelector picks the document title
const DefaultTitleSelector = "head > title, title"

// Extractor pulls diagnostic text out of HTML pages
type Extractor struct {
	Selector string
}

// NewExtractor creates a new title extractor
func NewExtractor() *Extractor {
	return &Extractor{
		Selector: DefaultTitleSelector,
	}
}

// Title returns the whitespace-collapsed text of the first selector match
func (e *Extractor) Title(doc *goquery.Document) string {
	text := doc.Find(e.Selector).First().Text()
	return strings.Join(strings.Fields(text), " ")
}

// TitleFromReader parses r as HTML and returns its title
func (e *Extractor) TitleFromReader(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", err
	}
	return e.Title(doc), nil
}
