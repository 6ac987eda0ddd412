package fetch

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const maxContentLength = 10000

var (
	contentClassRe = regexp.MustCompile(`content|main|post`)
	spaceRunRe     = regexp.MustCompile(`\s+`)
)

// Title returns the page title, falling back to the first H1.
func (d *Document) Title() string {
	doc, err := d.HTML()
	if err != nil {
		return ""
	}
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}
	return strings.TrimSpace(doc.Find("h1").First().Text())
}

// Description returns the meta description, falling back to og:description.
func (d *Document) Description() string {
	doc, err := d.HTML()
	if err != nil {
		return ""
	}
	if desc, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok && strings.TrimSpace(desc) != "" {
		return strings.TrimSpace(desc)
	}
	if desc, ok := doc.Find(`meta[property="og:description"]`).Attr("content"); ok {
		return strings.TrimSpace(desc)
	}
	return ""
}

// Content extracts the main textual content of the page: boilerplate tags
// are stripped, a main-content container is preferred over the full body,
// whitespace is collapsed and the result capped at 10000 characters.
func (d *Document) Content() string {
	doc, err := d.HTML()
	if err != nil {
		return ""
	}

	clone := goquery.CloneDocument(doc)
	clone.Find("script, style, nav, footer, header").Remove()

	var text string
	if main := clone.Find("main").First(); main.Length() > 0 {
		text = main.Text()
	} else if article := clone.Find("article").First(); article.Length() > 0 {
		text = article.Text()
	} else {
		div := clone.Find("div").FilterFunction(func(_ int, s *goquery.Selection) bool {
			class, _ := s.Attr("class")
			return contentClassRe.MatchString(class)
		}).First()
		if div.Length() > 0 {
			text = div.Text()
		} else {
			text = clone.Find("body").Text()
			if text == "" {
				text = clone.Text()
			}
		}
	}

	text = strings.TrimSpace(spaceRunRe.ReplaceAllString(text, " "))
	if len(text) > maxContentLength {
		if r := []rune(text); len(r) > maxContentLength {
			text = string(r[:maxContentLength])
		}
	}
	return text
}
