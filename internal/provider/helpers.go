package provider

import (
	"encoding/json"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/net/html"
)

// stableID keeps a provider-native id when there is one. Otherwise it derives
// a UUIDv5 from the url, or from title and source when the url is empty, so
// the same article maps to the same id on every refresh.
func stableID(provider, nativeID, url, title, source string) string {
	if nativeID = strings.TrimSpace(nativeID); nativeID != "" {
		return provider + ":" + nativeID
	}
	key := strings.TrimSpace(url)
	if key == "" {
		key = strings.ToLower(strings.TrimSpace(title)) + "|" + strings.ToLower(strings.TrimSpace(source))
	}
	return provider + ":" + uuid.NewSHA1(uuid.NameSpaceURL, []byte(key)).String()
}

// sanitizeText collapses whitespace and caps the result at maxLen bytes,
// cutting on a rune boundary.
func sanitizeText(in string, maxLen int) string {
	in = strings.Join(strings.Fields(in), " ")
	if maxLen > 0 && len(in) > maxLen {
		cut := maxLen
		for cut > 0 && !utf8.RuneStart(in[cut]) {
			cut--
		}
		in = strings.TrimSpace(in[:cut])
	}
	return in
}

// htmlStrip returns the visible text of an HTML fragment with entities
// decoded. Block elements are separated by a space.
func htmlStrip(in string) string {
	if strings.TrimSpace(in) == "" {
		return ""
	}
	doc, err := html.Parse(strings.NewReader(in))
	if err != nil {
		return strings.Join(strings.Fields(in), " ")
	}

	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			return
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "noscript":
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && blockElements[n.Data] {
			b.WriteByte(' ')
		}
	}
	walk(doc)
	return strings.Join(strings.Fields(b.String()), " ")
}

var blockElements = map[string]bool{
	"br": true, "p": true, "div": true, "li": true, "ul": true, "ol": true,
	"tr": true, "td": true, "blockquote": true, "figure": true, "figcaption": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

func asInt(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0
		}
		return i
	default:
		return 0
	}
}

// rawID accepts ids sent either as JSON numbers or strings.
func rawID(raw json.RawMessage) string {
	v := strings.TrimSpace(string(raw))
	if v == "null" {
		return ""
	}
	return strings.Trim(v, `"`)
}
