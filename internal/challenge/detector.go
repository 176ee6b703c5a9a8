// Package challenge classifies fetched HTML as a bot-interception page or
// genuine content. Every fetch path routes its raw payload through Detect
// before any parsing.
package challenge

import (
	"regexp"
	"strings"

	"tenniswire/internal/domain"
)

type signature struct {
	pattern    *regexp.Regexp
	typ        domain.ChallengeType
	indicator  string
	reason     string
	confidence float64
}

// Ordered: first match wins. CDN interstitials carry distinctive markers in
// raw HTML; generic block pages only give away a phrase.
var signatures = []signature{
	{
		pattern:    regexp.MustCompile(`(?i)<title[^>]*>\s*Just a moment\.\.\.`),
		typ:        domain.ChallengeCloudflare,
		indicator:  "just-a-moment-title",
		reason:     "Cloudflare challenge page title",
		confidence: 0.95,
	},
	{
		pattern:    regexp.MustCompile(`cdn-cgi/challenge-platform`),
		typ:        domain.ChallengeCloudflare,
		indicator:  "challenge-platform-script",
		reason:     "Cloudflare challenge script",
		confidence: 0.95,
	},
	{
		pattern:    regexp.MustCompile(`cf_chl_opt|__cf_chl_rt_tk`),
		typ:        domain.ChallengeCloudflare,
		indicator:  "cf-chl-token",
		reason:     "Cloudflare challenge token",
		confidence: 0.9,
	},
	{
		pattern:    regexp.MustCompile(`(?i)class="[^"]*cf-turnstile|challenges\.cloudflare\.com/turnstile`),
		typ:        domain.ChallengeCloudflare,
		indicator:  "turnstile-widget",
		reason:     "Cloudflare Turnstile widget",
		confidence: 0.9,
	},
	{
		pattern:    regexp.MustCompile(`(?i)Ray ID:?\s*(<[^>]+>\s*)?[0-9a-f]{8,}`),
		typ:        domain.ChallengeCloudflare,
		indicator:  "ray-id-footer",
		reason:     "Cloudflare Ray ID footer",
		confidence: 0.9,
	},
	{
		pattern:    regexp.MustCompile(`(?i)<title[^>]*>\s*Access Denied`),
		typ:        domain.ChallengeBotBlock,
		indicator:  "access-denied-title",
		reason:     "generic access denied page",
		confidence: 0.7,
	},
	{
		pattern:    regexp.MustCompile(`(?i)Request denied by`),
		typ:        domain.ChallengeBotBlock,
		indicator:  "request-denied-phrase",
		reason:     "generic request denied page",
		confidence: 0.7,
	},
}

var tagExpr = regexp.MustCompile(`(?s)<[^>]*>`)

// Detect classifies html, returning nil when the payload looks like genuine
// content. It is a pure function.
func Detect(html string) *domain.ChallengeDetection {
	if html == "" {
		return nil
	}

	for _, sig := range signatures {
		if sig.pattern.MatchString(html) {
			return &domain.ChallengeDetection{
				Type:       sig.typ,
				Indicator:  sig.indicator,
				Reason:     sig.reason,
				Confidence: sig.confidence,
			}
		}
	}

	// Fallback for pages that strip the usual markers: co-occurring phrases
	// in the tag-stripped text still identify the vendor.
	text := strings.ToLower(tagExpr.ReplaceAllString(html, " "))
	switch {
	case strings.Contains(text, "verify you are human") && strings.Contains(text, "cloudflare"):
		return &domain.ChallengeDetection{
			Type:       domain.ChallengeCloudflare,
			Indicator:  "verify-human-text",
			Reason:     "Cloudflare verification text",
			Confidence: 0.9,
		}
	case strings.Contains(text, "access denied") && strings.Contains(text, "request id"):
		return &domain.ChallengeDetection{
			Type:       domain.ChallengeAkamai,
			Indicator:  "access-denied-request-id",
			Reason:     "Akamai style denial with request id",
			Confidence: 0.6,
		}
	}

	return nil
}
