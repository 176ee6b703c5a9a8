package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Some sites render scores, rankings and point totals client-side and leave
// only a punctuation shell such as "()" or "-" in the static HTML. The
// repair pass recovers the value from the element's own or inherited
// data-*/aria-label/title attributes. Best-effort enrichment: a non-empty
// visible value is never overwritten.

var (
	numericValueExpr = regexp.MustCompile(`\d+(?:[.,]\d+)?`)
	shellExpr        = regexp.MustCompile(`^[\s()\[\]+\-#.]+$`)
)

// repairNumericShells walks likely stat-bearing leaves and substitutes an
// attribute-derived number into empty punctuation shells. A second pass
// consults the parent paragraph when the element itself has nothing.
func repairNumericShells(container *goquery.Selection) int {
	repaired := 0

	container.Find("span, strong, b, td, li, em").Each(func(_ int, el *goquery.Selection) {
		if el.Children().Length() > 0 {
			return
		}
		text := el.Text()
		trimmed := strings.TrimSpace(text)
		if trimmed == "" || !shellExpr.MatchString(trimmed) {
			return
		}

		token := numericFromAttrs(el)
		if token == "" {
			if parent := el.ParentsFiltered("p, div, li").First(); parent.Length() > 0 {
				token = numericFromAttrs(parent)
			}
		}
		if token == "" {
			return
		}

		el.SetText(fillShell(trimmed, token))
		repaired++
	})

	return repaired
}

// numericFromAttrs returns the first numeric token found among the node's
// data-* attributes, aria-label, and title.
func numericFromAttrs(sel *goquery.Selection) string {
	node := sel.Get(0)
	if node == nil {
		return ""
	}

	for _, attr := range node.Attr {
		if !strings.HasPrefix(attr.Key, "data-") {
			continue
		}
		if tok := numericValueExpr.FindString(attr.Val); tok != "" {
			return tok
		}
	}
	for _, key := range []string{"aria-label", "title"} {
		if v, ok := sel.Attr(key); ok {
			if tok := numericValueExpr.FindString(v); tok != "" {
				return tok
			}
		}
	}
	return ""
}

// fillShell substitutes the token into the punctuation shell, keeping any
// sign or wrapping already present.
func fillShell(shell, token string) string {
	s := strings.TrimSpace(shell)
	switch {
	case strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")"):
		return "(" + token + ")"
	case strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]"):
		return "[" + token + "]"
	case s == "-" || s == "+":
		return s + token
	case strings.HasPrefix(s, "#"):
		return "#" + token
	default:
		return token
	}
}
