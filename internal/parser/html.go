package parser

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DefaultSummaryLength maximum length of a response summary in characters
const DefaultSummaryLength = 300

// HTMLParser reduces HTML documents to short plain text
type HTMLParser struct {
	whitespaceRegex *regexp.Regexp
	invisibleRegex  *regexp.Regexp
}

// NewHTMLParser creates a new HTML parser
func NewHTMLParser() *HTMLParser {
	return &HTMLParser{
		whitespaceRegex: regexp.MustCompile(`\s+`),
		// Zero-width spaces, BOM and similar
		invisibleRegex: regexp.MustCompile(`[\x{200B}-\x{200D}\x{FEFF}\x{00AD}\x{2060}-\x{2064}]+`),
	}
}

// Parse converts HTML to a single line of text, title first
func (p *HTMLParser) Parse(html string) (string, error) {
	if html == "" {
		return "", nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}

	title := p.clean(doc.Find("title").First().Text())

	doc.Find("script, style, head, meta, link, noscript").Remove()
	doc.Find("p, div, br, h1, h2, h3, h4, h5, h6, li, tr, pre").Each(func(i int, s *goquery.Selection) {
		s.PrependHtml(" ")
	})
	text := p.clean(doc.Text())

	switch {
	case title == "":
		return text, nil
	case text == "" || strings.HasPrefix(text, title):
		return title, nil
	default:
		return title + ": " + text, nil
	}
}

func (p *HTMLParser) clean(s string) string {
	s = p.invisibleRegex.ReplaceAllString(s, "")
	s = p.whitespaceRegex.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// SummarizeResponse turns an HTTP error body into a short single line.
// HTML pages (by content type or leading markup) are reduced to their text.
func (p *HTMLParser) SummarizeResponse(contentType string, body []byte, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultSummaryLength
	}

	var text string
	if isHTML(contentType, body) {
		parsed, err := p.Parse(string(body))
		if err == nil {
			text = parsed
		}
	}
	if text == "" {
		text = p.clean(string(body))
	}
	return truncate(text, maxLen)
}

func isHTML(contentType string, body []byte) bool {
	if strings.Contains(strings.ToLower(contentType), "html") {
		return true
	}
	head := bytes.ToLower(bytes.TrimSpace(body))
	return bytes.HasPrefix(head, []byte("<!doctype html")) || bytes.HasPrefix(head, []byte("<html"))
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
