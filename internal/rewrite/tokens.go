package rewrite

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"tenniswire/internal/domain"
)

// tokenExpr matches any media placeholder, resolved or leftover.
var tokenExpr = regexp.MustCompile(`\[\[(?:IMG|VID|EMB):\d+\]\]`)

// numericExpr picks up scores, rankings and years: "6-4", "7:5", "2024", "2".
var numericExpr = regexp.MustCompile(`\d+(?:[-:]\d+)*(?:\.\d+)?`)

// emptyShellExpr removes block shells left behind after token substitution.
var emptyShellExpr = regexp.MustCompile(`<(p|div|figure|blockquote)>\s*</(p|div|figure|blockquote)>`)

const maxNumericTokens = 40

// TokenizedBody is the model-facing form of an article body: plain paragraphs
// with every figure, video and embed replaced by an opaque token.
type TokenizedBody struct {
	Text  string
	Media []domain.MediaReference
}

// HarvestMedia parses the structured body and swaps each media element for a
// token, keeping the original markup on the reference for later resolution.
// Tokens are produced once, before any model call, and never regenerated.
func HarvestMedia(bodyHTML string) (TokenizedBody, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(bodyHTML))
	if err != nil {
		return TokenizedBody{}, fmt.Errorf("parse body: %w", err)
	}

	var media []domain.MediaReference
	counts := map[domain.MediaType]int{}

	take := func(sel *goquery.Selection, mediaType domain.MediaType, ref domain.MediaReference) {
		counts[mediaType]++
		ref.Type = mediaType
		ref.Token = mediaToken(mediaType, counts[mediaType])
		if html, err := goquery.OuterHtml(sel); err == nil {
			ref.HTML = html
		}
		media = append(media, ref)
		sel.ReplaceWithHtml("<p>" + ref.Token + "</p>")
	}

	doc.Find("figure").Each(func(_ int, fig *goquery.Selection) {
		if iframe := fig.Find("iframe").First(); iframe.Length() > 0 {
			src, _ := iframe.Attr("src")
			take(fig, embedKind(src), domain.MediaReference{
				URL:     src,
				Caption: strings.TrimSpace(fig.Find("figcaption").Text()),
			})
			return
		}
		if img := fig.Find("img").First(); img.Length() > 0 {
			src, _ := img.Attr("src")
			alt, _ := img.Attr("alt")
			take(fig, domain.MediaImage, domain.MediaReference{
				URL:         src,
				Caption:     strings.TrimSpace(fig.Find("figcaption").Text()),
				Description: strings.TrimSpace(alt),
			})
		}
	})

	// Bare elements outside figures.
	doc.Find("iframe").Each(func(_ int, iframe *goquery.Selection) {
		src, _ := iframe.Attr("src")
		take(iframe, embedKind(src), domain.MediaReference{URL: src})
	})
	doc.Find("img").Each(func(_ int, img *goquery.Selection) {
		src, _ := img.Attr("src")
		alt, _ := img.Attr("alt")
		take(img, domain.MediaImage, domain.MediaReference{URL: src, Description: strings.TrimSpace(alt)})
	})

	return TokenizedBody{Text: blockText(doc), Media: media}, nil
}

func mediaToken(mediaType domain.MediaType, n int) string {
	switch mediaType {
	case domain.MediaVideo:
		return fmt.Sprintf("[[VID:%d]]", n)
	case domain.MediaEmbed:
		return fmt.Sprintf("[[EMB:%d]]", n)
	default:
		return fmt.Sprintf("[[IMG:%d]]", n)
	}
}

// embedKind separates video-player iframes from other embeds.
func embedKind(src string) domain.MediaType {
	lower := strings.ToLower(src)
	for _, host := range []string{"youtube", "vimeo", "brightcove"} {
		if strings.Contains(lower, host) {
			return domain.MediaVideo
		}
	}
	return domain.MediaEmbed
}

// blockText renders the document as paragraph-separated plain text.
func blockText(doc *goquery.Document) string {
	var blocks []string
	doc.Find("body").Children().Each(func(_ int, block *goquery.Selection) {
		if text := strings.TrimSpace(block.Text()); text != "" {
			blocks = append(blocks, text)
		}
	})
	return strings.Join(blocks, "\n\n")
}

// ExtractNumericTokens lists the distinct numeric tokens of a body in order
// of first appearance, bounded so the prompt stays a reasonable size.
func ExtractNumericTokens(text string) []string {
	seen := map[string]bool{}
	var tokens []string
	for _, match := range numericExpr.FindAllString(text, -1) {
		if seen[match] {
			continue
		}
		seen[match] = true
		tokens = append(tokens, match)
		if len(tokens) == maxNumericTokens {
			break
		}
	}
	return tokens
}

// FinalizeDraft deterministically resolves a generated body: each media token
// becomes its original markup exactly once, leftover tokens are dropped,
// mentioned link anchors become real hyperlinks, and emptied shells are
// removed. No model call happens here.
func FinalizeDraft(body string, media []domain.MediaReference, links []domain.LinkReference) string {
	for _, ref := range media {
		if !strings.Contains(body, ref.Token) {
			continue
		}
		// First occurrence resolves; duplicates would double the markup.
		body = strings.Replace(body, ref.Token, ref.HTML, 1)
		body = strings.ReplaceAll(body, ref.Token, "")
	}

	body = tokenExpr.ReplaceAllString(body, "")
	body = insertLinks(body, links)
	body = emptyShellExpr.ReplaceAllString(body, "")

	return strings.TrimSpace(body)
}

// insertLinks hyperlinks the first mention of each reference's anchor text
// when the model did not already add one. Best effort on the serialized body;
// text inside existing anchors or tags is left alone.
func insertLinks(body string, links []domain.LinkReference) string {
	for _, link := range links {
		if link.Text == "" || link.URL == "" {
			continue
		}
		if strings.Contains(body, link.URL) {
			continue
		}
		if idx := plainMentionIndex(body, link.Text); idx >= 0 {
			anchor := `<a href="` + link.URL + `">` + link.Text + `</a>`
			body = body[:idx] + anchor + body[idx+len(link.Text):]
		}
	}
	return body
}

// plainMentionIndex finds the first occurrence of text that sits outside any
// tag markup, or -1.
func plainMentionIndex(body, text string) int {
	from := 0
	for {
		idx := strings.Index(body[from:], text)
		if idx < 0 {
			return -1
		}
		idx += from
		if !insideTag(body, idx) {
			return idx
		}
		from = idx + len(text)
	}
}

// insideTag reports whether position i falls between an unclosed '<' and its
// '>', i.e. inside tag markup rather than visible text.
func insideTag(body string, i int) bool {
	open := strings.LastIndexByte(body[:i], '<')
	if open < 0 {
		return false
	}
	return strings.LastIndexByte(body[:i], '>') < open
}
