// Package dom wraps goquery parsing and text extraction shared by the extractors.
package dom

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/JakeFAU/receptionist-onboarding/internal/textnorm"
)

var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true, "br": true,
	"dd": true, "div": true, "dl": true, "dt": true, "footer": true, "form": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"header": true, "hr": true, "li": true, "main": true, "nav": true, "ol": true,
	"p": true, "section": true, "table": true, "td": true, "th": true, "tr": true, "ul": true,
}

var skipElements = map[string]bool{
	"script": true, "style": true, "noscript": true, "template": true, "svg": true, "iframe": true,
}

// Parse builds a goquery document from raw HTML.
func Parse(rawHTML string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// Text returns the cleaned text of sel with block elements on their own lines.
func Text(sel *goquery.Selection) string {
	var b strings.Builder
	for _, n := range sel.Nodes {
		writeText(&b, n)
	}
	return textnorm.Clean(b.String())
}

// Line returns the text of sel collapsed onto a single line.
func Line(sel *goquery.Selection) string {
	return textnorm.Line(Text(sel))
}

func writeText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		if skipElements[n.Data] {
			return
		}
	case html.CommentNode:
		return
	}
	block := n.Type == html.ElementNode && blockElements[n.Data]
	if block {
		b.WriteByte('\n')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c)
	}
	if block {
		b.WriteByte('\n')
	}
}

// BodyText returns the visible-ish text of the whole document.
func BodyText(doc *goquery.Document) string {
	body := doc.Find("body")
	if body.Length() == 0 {
		return Text(doc.Selection)
	}
	return Text(body)
}
