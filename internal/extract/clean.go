package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"tenniswire/internal/canonical"
	"tenniswire/internal/domain"
)

// baseNoiseSelectors are stripped from every article container regardless of
// site. Site extractors add their own promotional-block selectors on top.
var baseNoiseSelectors = []string{
	"script",
	"style",
	"noscript",
	"template",
	"nav",
	"form",
	"header",
	"footer",
	"aside",
	"button",
	"input",
	"[class*='newsletter']",
	"[class*='related-']",
	"[class*='share']",
	"[class*='social-bar']",
	"[class*='advert']",
	"[id*='taboola']",
	"[class*='cookie']",
}

// removeNoise strips scripts, chrome and promotional blocks from a cloned
// container. Callers pass a clone; the fetched document is never mutated.
func removeNoise(container *goquery.Selection, extra []string) {
	for _, sel := range baseNoiseSelectors {
		container.Find(sel).Remove()
	}
	for _, sel := range extra {
		container.Find(sel).Remove()
	}

	// Empty shells left behind by client-side widgets render as blank
	// paragraphs; drop any block with neither text nor media.
	container.Find("p, div, section, figure").Each(func(_ int, s *goquery.Selection) {
		if strings.TrimSpace(s.Text()) != "" {
			return
		}
		if s.Find("img, iframe, video").Length() > 0 {
			return
		}
		if s.Is("figure") || s.Children().Length() == 0 {
			s.Remove()
		}
	})
}

// absolutizeURLs rewrites relative image sources and anchor targets against
// the article URL. Lazy-loaded images carried in data attributes are promoted
// into src so serialization keeps them.
func absolutizeURLs(container *goquery.Selection, baseURL string) {
	container.Find("img").Each(func(_ int, img *goquery.Selection) {
		src, _ := img.Attr("src")
		if src == "" {
			for _, attr := range []string{"data-src", "data-lazy-src", "data-original"} {
				if v, ok := img.Attr(attr); ok && v != "" {
					src = v
					break
				}
			}
		}
		if src == "" {
			return
		}
		img.SetAttr("src", canonical.Resolve(baseURL, src))
	})

	container.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}
		a.SetAttr("href", canonical.Resolve(baseURL, href))
	})
}

var (
	entityReplacer = strings.NewReplacer(
		"‘", "'",
		"’", "'",
		"“", `"`,
		"”", `"`,
		"–", "-",
		"—", "-",
		" ", " ",
		"&#8216;", "'",
		"&#8217;", "'",
		"&#8220;", `"`,
		"&#8221;", `"`,
		"&#8211;", "-",
		"&#8212;", "-",
		"&nbsp;", " ",
	)

	emojiExpr = regexp.MustCompile(`[\x{1F300}-\x{1FAFF}\x{2600}-\x{27BF}\x{FE0F}\x{200D}]`)

	shortenerExpr = regexp.MustCompile(`(?i)\b(?:t\.co|bit\.ly|ow\.ly|tinyurl\.com)/\S+`)
	handleExpr    = regexp.MustCompile(`@[A-Za-z0-9_]{2,}`)
	hashtagExpr   = regexp.MustCompile(`#[A-Za-z0-9_]{2,}`)

	multiSpaceExpr = regexp.MustCompile(`[ \t]{2,}`)
)

// normalizeText folds smart quotes and dashes to plain characters and strips
// emoji and sponsor-name noise from a paragraph.
func normalizeText(text string, sponsors []string) string {
	text = entityReplacer.Replace(text)
	text = emojiExpr.ReplaceAllString(text, "")
	for _, sponsor := range sponsors {
		text = strings.ReplaceAll(text, sponsor, "")
	}
	return strings.TrimSpace(multiSpaceExpr.ReplaceAllString(text, " "))
}

const maxQuoteBlockLen = 420

// isQuoteBlock reports whether an entire trimmed paragraph is wrapped in
// matching quotation marks and short enough to be a pulled quote.
func isQuoteBlock(text string) bool {
	text = strings.TrimSpace(text)
	if len(text) < 8 || len(text) > maxQuoteBlockLen {
		return false
	}
	pairs := [][2]string{{`"`, `"`}, {"“", "”"}, {"'", "'"}, {"‘", "’"}}
	for _, p := range pairs {
		if strings.HasPrefix(text, p[0]) && strings.HasSuffix(text, p[1]) {
			return true
		}
	}
	return false
}

// isSocialInsert reports whether a paragraph reads like pasted social-media
// text: an @-handle together with a hashtag or a link-shortener URL.
func isSocialInsert(text string) bool {
	if !handleExpr.MatchString(text) {
		return false
	}
	return hashtagExpr.MatchString(text) || shortenerExpr.MatchString(text)
}

// classifyParagraphs normalizes each remaining paragraph and wraps quote
// blocks and social-style inserts; plain paragraphs keep their tag.
func classifyParagraphs(container *goquery.Selection, sponsors []string) {
	container.Find("p").Each(func(_ int, p *goquery.Selection) {
		text := normalizeText(p.Text(), sponsors)
		if text == "" {
			if p.Find("img, iframe").Length() == 0 {
				p.Remove()
			}
			return
		}

		switch {
		case isQuoteBlock(text):
			inner, _ := p.Html()
			p.ReplaceWithHtml("<blockquote><p>" + inner + "</p></blockquote>")
		case isSocialInsert(text):
			inner, _ := p.Html()
			p.ReplaceWithHtml(`<div class="social-insert"><p>` + inner + `</p></div>`)
		}
	})
}

// collectLinks harvests anchor text/URL pairs that must survive rewriting.
func collectLinks(container *goquery.Selection, baseURL string) []domain.LinkReference {
	var links []domain.LinkReference
	seen := map[string]bool{}

	container.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		text := strings.TrimSpace(a.Text())
		href, _ := a.Attr("href")
		href = canonical.Resolve(baseURL, href)
		if text == "" || len(text) > 80 || !strings.HasPrefix(href, "http") {
			return
		}
		key := text + "|" + href
		if seen[key] {
			return
		}
		seen[key] = true
		links = append(links, domain.LinkReference{Text: text, URL: href})
	})

	return links
}
