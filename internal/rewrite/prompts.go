package rewrite

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"tenniswire/internal/domain"
)

const rewriteSystemPrompt = `You are an experienced tennis news editor. You rewrite wire articles in your own words for a tennis news site. You never invent facts, scores, rankings or quotes. Respond with JSON only.`

// variantsPrompt builds the single structured call requesting count
// independent rewrites with every preservation rule embedded.
func variantsPrompt(input Input, count int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Rewrite the following article %d times, each version independent in structure and wording.\n\n", count)
	fmt.Fprintf(&b, "%s\nOriginal title: %s\n", input.Context, input.Title)
	if input.Excerpt != "" {
		fmt.Fprintf(&b, "Original excerpt: %s\n", input.Excerpt)
	}
	fmt.Fprintf(&b, "\nArticle:\n%s\n", input.Body)

	writeRules(&b, input)

	fmt.Fprintf(&b, "\nRespond with JSON: {\"variants\": [{\"title\": string, \"excerpt\": string, \"body\": string} x %d]}. Body paragraphs use <p> tags.", count)
	return b.String()
}

// synthesisPrompt merges the variants into one best article.
func synthesisPrompt(input Input, variants []domain.DraftVariant) string {
	var b strings.Builder

	b.WriteString("Merge the following rewrites of one article into a single best version, taking the strongest elements of each.\n")
	fmt.Fprintf(&b, "%s\n", input.Context)
	for i, variant := range variants {
		fmt.Fprintf(&b, "\n--- Version %d: %s ---\n%s\n", i+1, variant.Title, variant.Body)
	}

	writeRules(&b, input)

	b.WriteString("\nRespond with JSON: {\"title\": string, \"excerpt\": string, \"body\": string}. Body paragraphs use <p> tags.")
	return b.String()
}

// expandPrompt deepens one short variant toward the length floor.
func expandPrompt(input Input, variant domain.DraftVariant, floor int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Expand and deepen the following article to at least %d characters. Add context and flow, never invented facts.\n", floor)
	fmt.Fprintf(&b, "%s\n\nTitle: %s\n\n%s\n", input.Context, variant.Title, variant.Body)

	writeRules(&b, input)

	b.WriteString("\nRespond with JSON: {\"title\": string, \"excerpt\": string, \"body\": string}.")
	return b.String()
}

// writeRules embeds the token-preservation contract shared by every call.
func writeRules(b *strings.Builder, input Input) {
	b.WriteString("\nRules:\n")
	if len(input.Numerics) > 0 {
		fmt.Fprintf(b, "- Keep these numbers exactly as written, at least once each: %s.\n", strings.Join(input.Numerics, ", "))
	}
	if len(input.Media) > 0 {
		tokens := make([]string, len(input.Media))
		for i, ref := range input.Media {
			tokens[i] = ref.Token
		}
		fmt.Fprintf(b, "- Each placeholder must appear exactly once, unmodified, on its own line: %s. Never describe or paraphrase what a placeholder contains.\n", strings.Join(tokens, ", "))
	}
	if len(input.Links) > 0 {
		b.WriteString("- When you mention these subjects, use the exact anchor text so it can be linked:\n")
		for _, link := range input.Links {
			fmt.Fprintf(b, "  - %q -> %s\n", link.Text, link.URL)
		}
	}
	b.WriteString("- Never invent scores, rankings, dates or quotes that are not in the source.\n")
}

// harvestLinks collects anchor text/URL pairs from the original body markup.
func harvestLinks(bodyHTML string) []domain.LinkReference {
	if strings.TrimSpace(bodyHTML) == "" {
		return nil
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(bodyHTML))
	if err != nil {
		return nil
	}

	seen := map[string]bool{}
	var links []domain.LinkReference
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		text := strings.TrimSpace(a.Text())
		if text == "" || href == "" || !strings.HasPrefix(href, "http") || seen[href] {
			return
		}
		seen[href] = true
		links = append(links, domain.LinkReference{Text: text, URL: href})
	})
	return links
}
