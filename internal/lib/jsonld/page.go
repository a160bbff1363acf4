// Package jsonld извлекает данные объявлений из HTML-страниц по разметке schema.org.
package jsonld

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Page — результат разбора страницы объявления.
type Page struct {
	// Title — содержимое <title> или og:title
	Title string
	// Listings — найденные объявления в порядке появления на странице
	Listings []Listing
	// Images — og:image, если разметка schema.org их не содержит
	Images []string
	// Text — видимый текст страницы для извлечения через LLM
	Text string
}

// Parse разбирает HTML-страницу объявления.
func Parse(r io.Reader) (*Page, error) {
	const op = "jsonld.Parse"

	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	p := &Page{}
	var text strings.Builder

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script:
				if strings.EqualFold(attr(n, "type"), "application/ld+json") {
					for _, node := range decodeNodes([]byte(innerText(n))) {
						if l, ok := toListing(node); ok {
							p.Listings = append(p.Listings, l)
						}
					}
				}
				return
			case atom.Style, atom.Noscript, atom.Template, atom.Svg:
				return
			case atom.Title:
				if p.Title == "" {
					p.Title = strings.TrimSpace(innerText(n))
				}
				return
			case atom.Meta:
				switch attr(n, "property") {
				case "og:title":
					if v := strings.TrimSpace(attr(n, "content")); v != "" {
						p.Title = v
					}
				case "og:image":
					if v := strings.TrimSpace(attr(n, "content")); v != "" {
						p.Images = append(p.Images, v)
					}
				}
			}
		}

		if n.Type == html.TextNode {
			if s := strings.Join(strings.Fields(n.Data), " "); s != "" {
				if text.Len() > 0 {
					text.WriteByte('\n')
				}
				text.WriteString(s)
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	p.Text = text.String()
	return p, nil
}

// Best возвращает наиболее полное объявление страницы.
func (p *Page) Best() (Listing, bool) {
	if len(p.Listings) == 0 {
		return Listing{}, false
	}
	best, bestScore := p.Listings[0], -1
	for _, l := range p.Listings {
		if s := l.filled(); s > bestScore {
			best, bestScore = l, s
		}
	}
	return best, true
}

func (l Listing) filled() int {
	n := 0
	for _, ok := range []bool{
		l.Name != "", l.Address != "", l.Price != nil, l.FloorSize != nil,
		l.Bedrooms != nil || l.Rooms != nil, l.Bathrooms != nil, len(l.Images) > 0,
	} {
		if ok {
			n++
		}
	}
	return n
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}
	return ""
}

func innerText(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}
