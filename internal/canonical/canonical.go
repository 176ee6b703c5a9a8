// Package canonical derives the stable identity of an article from its URL.
// Every store keyed by article identity (ledger, drafts, published documents)
// goes through this package so refetches of the same article converge.
package canonical

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"
)

// trackingParams are query parameters that vary per click, not per article.
var trackingParams = map[string]bool{
	"fbclid":       true,
	"gclid":        true,
	"igshid":       true,
	"mc_cid":       true,
	"mc_eid":       true,
	"ref":          true,
	"s":            false, // meaningful on some CMSes, keep
	"spm":          true,
	"twclid":       true,
	"yclid":        true,
	"_ga":          true,
	"_hsenc":       true,
	"_hsmi":        true,
	"cmpid":        true,
	"ncid":         true,
	"ocid":         true,
	"sourceid":     true,
	"share_id":     true,
	"mkt_tok":      true,
	"msclkid":      true,
	"vero_conv":    true,
	"vero_id":      true,
	"wt_mc":        true,
	"pk_campaign":  true,
	"pk_kwd":       true,
	"pk_source":    true,
	"pk_medium":    true,
	"pk_content":   true,
	"icid":         true,
	"smid":         true,
	"smtyp":        true,
	"sh_itm":       true,
	"at_medium":    true,
	"at_campaign":  true,
	"srsltid":      true,
	"partner":      true,
	"affiliate_id": true,
}

var utmPrefix = regexp.MustCompile(`^utm_`)

// URL normalizes raw into its canonical form: lowercase scheme/host, default
// ports and trailing slashes dropped, tracking parameters stripped, remaining
// query sorted, fragment removed. Invalid input is returned trimmed so callers
// still get a deterministic key.
func URL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""

	switch {
	case u.Scheme == "http" && strings.HasSuffix(u.Host, ":80"):
		u.Host = strings.TrimSuffix(u.Host, ":80")
	case u.Scheme == "https" && strings.HasSuffix(u.Host, ":443"):
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}

	if u.Path != "/" {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}
	if u.Path == "/" {
		u.Path = ""
	}

	q := u.Query()
	kept := url.Values{}
	for key, vals := range q {
		lower := strings.ToLower(key)
		if utmPrefix.MatchString(lower) || trackingParams[lower] {
			continue
		}
		for _, v := range vals {
			kept.Add(key, v)
		}
	}
	u.RawQuery = encodeSorted(kept)

	return u.String()
}

func encodeSorted(v url.Values) string {
	if len(v) == 0 {
		return ""
	}
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		vals := append([]string(nil), v[k]...)
		sort.Strings(vals)
		for _, val := range vals {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(val))
		}
	}
	return b.String()
}

// Key hashes the canonical form of raw into the external identifier used by
// the ledger and for deterministic document identities.
func Key(raw string) string {
	sum := sha256.Sum256([]byte(URL(raw)))
	return hex.EncodeToString(sum[:])[:24]
}

// DraftID returns the deterministic draft document identity for a URL, so
// re-ingestion of the same article is idempotent even without the ledger.
func DraftID(raw string) string {
	return fmt.Sprintf("article-%s", Key(raw))
}

// PublishedID returns the published counterpart identity for a draft ID.
func PublishedID(draftID string) string {
	return "published-" + strings.TrimPrefix(draftID, "article-")
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slug builds a URL-safe slug from a title, bounded to maxLen runes.
func Slug(title string, maxLen int) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = nonSlug.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if maxLen > 0 && len(s) > maxLen {
		s = s[:maxLen]
		if i := strings.LastIndexByte(s, '-'); i > 0 {
			s = s[:i]
		}
	}
	return s
}

// Resolve makes href absolute against base. Already-absolute and special
// scheme links pass through unchanged.
func Resolve(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "data:") || strings.HasPrefix(href, "mailto:") {
		return href
	}
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	h, err := url.Parse(href)
	if err != nil {
		return href
	}
	return b.ResolveReference(h).String()
}
