package extract

import (
	"log/slog"

	"github.com/PuerkitoBio/goquery"
)

// NewATPTour builds the extractor for the ATP tour site. The site renders
// match statistics and head-to-head widgets through client script, so the
// rendered loader is preferred and the numeric-repair pass is on.
func NewATPTour(plain, rendered Loader, logger *slog.Logger) *siteExtractor {
	return newSiteExtractor(siteProfile{
		name: "atptour",
		containerSelectors: []string{
			"div.atp_article-body",
			"div.news-article__content",
			"div[class*='article-body']",
		},
		noiseSelectors: []string{
			"div.atp_head-to-head",
			"div[class*='h2h']",
			"div[class*='stats-widget']",
			"div[class*='scores-ticker']",
			"div[class*='read-more']",
			"div[class*='app-promo']",
		},
		headlineSelectors: []string{
			"h1.atp_article-title",
			"h1[class*='article']",
			"h1",
		},
		bylineSelectors: []string{
			"span.atp_article-author",
			"[class*='byline']",
		},
		timestampSelectors: []string{
			"span.atp_article-date",
			"[class*='article-date']",
			"time",
		},
		creditsSelectors: []string{
			"figcaption [class*='credit']",
			"[class*='photo-credit']",
		},
		sponsors: []string{
			"presented by Infosys",
			"Infosys ATP Stats",
		},
		numericRepair:  true,
		preferRendered: true,
		prepare:        atpPrepare,
	}, plain, rendered, logger)
}

// atpPrepare drops ranking-movement tables that ship as empty scaffolding;
// their cells only fill via script and survive cleanup as stray punctuation.
func atpPrepare(doc *goquery.Document) {
	doc.Find("table[class*='rankings-movement']").Remove()
	doc.Find("div[class*='player-card-stub']").Remove()
}
