package extract

import (
	"log/slog"

	"github.com/PuerkitoBio/goquery"
)

// NewWTATennis builds the extractor for the WTA site. Article bodies are in
// the static HTML, so the plain loader runs first; the rendered loader only
// serves as a fallback when the container comes back empty.
func NewWTATennis(plain, rendered Loader, logger *slog.Logger) *siteExtractor {
	return newSiteExtractor(siteProfile{
		name: "wtatennis",
		containerSelectors: []string{
			"div.article__body",
			"div.article-detail__content",
			"div[class*='article-content']",
		},
		noiseSelectors: []string{
			"div.article__recommended",
			"div[class*='gallery-promo']",
			"div[class*='matchup']",
			"div[class*='live-scores']",
			"div[class*='watch-promo']",
		},
		headlineSelectors: []string{
			"h1.article__title",
			"h1[class*='headline']",
			"h1",
		},
		bylineSelectors: []string{
			"div.article__author-name",
			"[class*='author-name']",
		},
		timestampSelectors: []string{
			"time.article__date",
			"[class*='article-meta'] time",
			"time",
		},
		creditsSelectors: []string{
			"figcaption span[class*='credit']",
		},
		sponsors: []string{
			"Hologic WTA Tour",
		},
		numericRepair: true,
		prepare:       wtaPrepare,
	}, plain, rendered, logger)
}

// wtaPrepare unwraps the lazy photo viewers the WTA site nests two divs deep
// so the shared image pass can see the real img tags.
func wtaPrepare(doc *goquery.Document) {
	doc.Find("div.js-lazy-image").Each(func(_ int, wrapper *goquery.Selection) {
		if img := wrapper.Find("img").First(); img.Length() > 0 {
			if src, ok := wrapper.Attr("data-src"); ok && src != "" {
				img.SetAttr("src", src)
			}
		}
	})
	doc.Find("div[class*='score-centre']").Remove()
}
