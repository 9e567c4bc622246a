package locator

import (
	"strings"
	"testing"

	"golang.org/x/net/html"

	"github.com/dtnitsch/content-qa/pkg/parser"
)

const page = `<html><body>
<div class="wrap  main"><ul><li>One</li><li class="x">Two</li></ul></div>
<section id="hero"><h1>  Welcome
   Home </h1></section>
<p></p>
</body></html>`

func mustFirst(t *testing.T, src, selector string) *html.Node {
	t.Helper()
	doc, err := parser.Parse([]byte(src))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	n, ok := parser.First(doc, selector)
	if !ok {
		t.Fatalf("selector %q not found", selector)
	}
	return n
}

func TestLocate(t *testing.T) {
	tests := []struct {
		name     string
		selector string
		wantCSS  string
		wantPath string
		wantCtx  string
	}{
		{
			name:     "positional with classes",
			selector: "li.x",
			wantCSS:  "html > body > div.wrap.main > ul > li.x:nth-of-type(2)",
			wantPath: "/html/body/div/ul/li[2]",
			wantCtx:  "Two",
		},
		{
			name:     "id ends selector walk",
			selector: "h1",
			wantCSS:  "#hero > h1",
			wantPath: "/html/body/section/h1",
			wantCtx:  "Welcome Home",
		},
		{
			name:     "empty element",
			selector: "p",
			wantCSS:  "html > body > p",
			wantPath: "/html/body/p",
			wantCtx:  NoContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := Locate(mustFirst(t, page, tt.selector))
			if info == nil {
				t.Fatal("Locate() = nil")
			}
			if info.CSSSelector != tt.wantCSS {
				t.Errorf("CSSSelector = %q, want %q", info.CSSSelector, tt.wantCSS)
			}
			if info.XPath != tt.wantPath {
				t.Errorf("XPath = %q, want %q", info.XPath, tt.wantPath)
			}
			if info.Context != tt.wantCtx {
				t.Errorf("Context = %q, want %q", info.Context, tt.wantCtx)
			}
		})
	}
}

func TestLocate_NonElement(t *testing.T) {
	if Locate(nil) != nil {
		t.Error("Locate(nil) != nil")
	}

	li := mustFirst(t, page, "li")
	text := li.FirstChild
	if text == nil || text.Type != html.TextNode {
		t.Fatal("expected text child")
	}
	if Locate(text) != nil {
		t.Error("Locate(text node) != nil")
	}
	if got := CSSSelector(text); got != "" {
		t.Errorf("CSSSelector(text) = %q, want empty", got)
	}
	if got := XPath(text); got != "" {
		t.Errorf("XPath(text) = %q, want empty", got)
	}
	if got := Context(text); got != "" {
		t.Errorf("Context(text) = %q, want empty", got)
	}
}

func TestLocate_SegmentCaps(t *testing.T) {
	depth := 30
	src := "<html><body>" + strings.Repeat("<div>", depth) + "<span>deep</span>" + strings.Repeat("</div>", depth) + "</body></html>"
	n := mustFirst(t, src, "span")

	css := CSSSelector(n)
	if got := len(strings.Split(css, " > ")); got > maxSelectorSegments {
		t.Errorf("selector has %d segments, cap %d: %s", got, maxSelectorSegments, css)
	}
	if !strings.HasSuffix(css, "span") {
		t.Errorf("selector %q does not end at the node", css)
	}

	xp := XPath(n)
	if got := len(strings.Split(strings.TrimPrefix(xp, "/"), "/")); got > maxXPathSegments {
		t.Errorf("xpath has %d segments, cap %d: %s", got, maxXPathSegments, xp)
	}
	if !strings.HasPrefix(xp, "/") || !strings.HasSuffix(xp, "/span") {
		t.Errorf("xpath = %q", xp)
	}
}

func TestContext_Truncates(t *testing.T) {
	long := strings.Repeat("é", 150)
	n := mustFirst(t, "<p>"+long+"</p>", "p")
	got := Context(n)
	want := strings.Repeat("é", 100) + "..."
	if got != want {
		t.Errorf("Context() = %q (len %d), want 100 runes plus ellipsis", got, len([]rune(got)))
	}
}
