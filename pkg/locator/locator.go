// Package locator derives human-readable pointers (CSS selector, XPath and a
// short text snippet) for a node in a parsed document.
package locator

import (
	"fmt"
	"slices"
	"strings"

	"golang.org/x/net/html"

	"github.com/dtnitsch/content-qa/models"
	"github.com/dtnitsch/content-qa/pkg/parser"
)

const (
	maxSelectorSegments = 5
	maxXPathSegments    = 8
	maxContextRunes     = 100

	// NoContent marks an element that exists but holds no text.
	NoContent = "[No text content]"
)

// Locate materializes an ElementInfo for n. The result keeps no reference to
// the tree. A nil or non-element node yields nil.
func Locate(n *html.Node) *models.ElementInfo {
	if !isElement(n) {
		return nil
	}
	return &models.ElementInfo{
		Tag:         n.Data,
		CSSSelector: CSSSelector(n),
		XPath:       XPath(n),
		Context:     Context(n),
	}
}

// CSSSelector walks up from n building "tag.class:nth-of-type(i)" segments.
// An ancestor with an id ends the walk.
func CSSSelector(n *html.Node) string {
	var parts []string
	for cur := n; isElement(cur); cur = cur.Parent {
		if id, ok := parser.Attr(cur, "id"); ok && id != "" {
			parts = append(parts, "#"+id)
			break
		}

		seg := cur.Data
		if class, ok := parser.Attr(cur, "class"); ok {
			if classes := strings.Fields(class); len(classes) > 0 {
				seg += "." + strings.Join(classes, ".")
			}
		}
		if idx, total := siblingIndex(cur); total > 1 {
			seg += fmt.Sprintf(":nth-of-type(%d)", idx)
		}
		parts = append(parts, seg)

		if len(parts) >= maxSelectorSegments {
			break
		}
	}
	slices.Reverse(parts)
	return strings.Join(parts, " > ")
}

// XPath returns a root-anchored path of tag[index] segments, indexed only
// where same-tag siblings exist.
func XPath(n *html.Node) string {
	var parts []string
	for cur := n; isElement(cur); cur = cur.Parent {
		seg := cur.Data
		if idx, total := siblingIndex(cur); total > 1 {
			seg = fmt.Sprintf("%s[%d]", cur.Data, idx)
		}
		parts = append(parts, seg)

		if len(parts) >= maxXPathSegments {
			break
		}
	}
	if len(parts) == 0 {
		return ""
	}
	slices.Reverse(parts)
	return "/" + strings.Join(parts, "/")
}

// Context returns the node's collapsed text, truncated with "..." past 100
// characters, or NoContent when it has none.
func Context(n *html.Node) string {
	if !isElement(n) {
		return ""
	}
	text := parser.NormalizeText(parser.NodeText(n))
	if text == "" {
		return NoContent
	}
	if r := []rune(text); len(r) > maxContextRunes {
		return string(r[:maxContextRunes]) + "..."
	}
	return text
}

func isElement(n *html.Node) bool {
	return n != nil && n.Type == html.ElementNode
}

// siblingIndex returns the 1-based position of n among its parent's children
// with the same tag, and how many such children there are.
func siblingIndex(n *html.Node) (idx, total int) {
	if n.Parent == nil {
		return 1, 1
	}
	for s := n.Parent.FirstChild; s != nil; s = s.NextSibling {
		if s.Type != html.ElementNode || s.Data != n.Data {
			continue
		}
		total++
		if s == n {
			idx = total
		}
	}
	return idx, total
}
