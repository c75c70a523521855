package ingest

import (
	"fmt"
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/ppiankov/gpuscout/internal/model"
)

// ParseHTML extracts listings from a marketplace result page. An item is any
// element carrying one of the item classes; fields are looked up inside it by
// class, trying alternatives in order. Relative links resolve against base,
// which may be nil.
func ParseHTML(r io.Reader, sel model.Selectors, marketplace string, base *url.URL) ([]model.RawListing, error) {
	if strings.TrimSpace(sel.Item) == "" || strings.TrimSpace(sel.Title) == "" {
		return nil, fmt.Errorf("selectors for %q need item and title classes", marketplace)
	}

	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	itemClasses := strings.Fields(sel.Item)
	var listings []model.RawListing
	var walk func(*html.Node)

	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && hasAnyClass(n, itemClasses) {
			if l, ok := parseItem(n, sel, marketplace, base); ok {
				listings = append(listings, l)
			}
			return // items do not nest
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return listings, nil
}

func parseItem(item *html.Node, sel model.Selectors, marketplace string, base *url.URL) (model.RawListing, bool) {
	titleNode := findFirst(item, sel.Title)
	if titleNode == nil {
		return model.RawListing{}, false
	}
	title := nodeText(titleNode)
	if title == "" || isPromotion(title) {
		return model.RawListing{}, false
	}

	l := model.RawListing{
		Title:         title,
		PriceText:     textOf(item, sel.Price),
		ConditionText: textOf(item, sel.Condition),
		Location:      textOf(item, sel.Location),
		Marketplace:   marketplace,
	}

	linkNode := findFirst(item, sel.Link)
	if linkNode == nil {
		linkNode = titleNode
	}
	if href := anchorHref(linkNode); href != "" {
		l.URL = resolveURL(base, href)
	}
	return l, true
}

// isPromotion reports eBay's "Shop on eBay" placeholder tiles
func isPromotion(title string) bool {
	return strings.HasPrefix(strings.ToLower(title), "shop on ebay")
}

func textOf(item *html.Node, classes string) string {
	if n := findFirst(item, classes); n != nil {
		return nodeText(n)
	}
	return ""
}

// findFirst returns the first descendant carrying a class, trying each
// space-separated alternative in turn
func findFirst(root *html.Node, classes string) *html.Node {
	for _, class := range strings.Fields(classes) {
		if n := findClass(root, class); n != nil {
			return n
		}
	}
	return nil
}

func findClass(n *html.Node, class string) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && hasAnyClass(c, []string{class}) {
			return c
		}
		if found := findClass(c, class); found != nil {
			return found
		}
	}
	return nil
}

func hasAnyClass(n *html.Node, classes []string) bool {
	for _, attr := range n.Attr {
		if attr.Key != "class" {
			continue
		}
		for _, have := range strings.Fields(attr.Val) {
			for _, want := range classes {
				if have == want {
					return true
				}
			}
		}
	}
	return false
}

// nodeText concatenates descendant text with whitespace collapsed
func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

// anchorHref returns the href of n when it is a link, else of its first link
// descendant
func anchorHref(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "a" {
		for _, attr := range n.Attr {
			if attr.Key == "href" {
				return strings.TrimSpace(attr.Val)
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if href := anchorHref(c); href != "" {
			return href
		}
	}
	return ""
}

// resolveURL resolves a relative URL against a base URL
func resolveURL(base *url.URL, href string) string {
	if strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
		return ""
	}

	parsed, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base != nil {
		parsed = base.ResolveReference(parsed)
	}

	// Only keep http/https URLs
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return ""
	}
	return parsed.String()
}
