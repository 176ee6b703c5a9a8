package extract

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"tenniswire/internal/canonical"
	"tenniswire/internal/domain"
)

// embedAllowList holds the only hosts whose iframes survive cleanup. Anything
// else is dropped rather than shipped to readers.
var embedAllowList = []string{
	"www.youtube.com",
	"www.youtube-nocookie.com",
	"youtube.com",
	"player.vimeo.com",
	"players.brightcove.net",
	"www.instagram.com",
	"platform.twitter.com",
	"open.spotify.com",
}

func embedAllowed(src string) bool {
	u, err := url.Parse(src)
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Host)
	for _, allowed := range embedAllowList {
		if host == allowed {
			return true
		}
	}
	return false
}

// normalizeMedia resolves image and embed markup inside the container:
// image sources made absolute and de-duplicated, known video patterns folded
// into a canonical iframe, and off-list iframes removed. Returns the distinct
// images and videos found.
func normalizeMedia(container *goquery.Selection, baseURL string) ([]string, []domain.VideoRef) {
	var (
		images []string
		videos []domain.VideoRef
	)
	seenImages := map[string]bool{}
	seenVideos := map[string]bool{}

	container.Find("img").Each(func(_ int, img *goquery.Selection) {
		src, _ := img.Attr("src")
		if src == "" {
			img.Remove()
			return
		}
		key := canonical.URL(src)
		if seenImages[key] {
			img.Remove()
			return
		}
		seenImages[key] = true
		images = append(images, src)
	})

	// Brightcove players ship as a div carrying account/video ids and render
	// only through client script; fold them into the canonical iframe form.
	container.Find("[data-video-id][data-account]").Each(func(_ int, el *goquery.Selection) {
		videoID, _ := el.Attr("data-video-id")
		account, _ := el.Attr("data-account")
		player, ok := el.Attr("data-player")
		if !ok || player == "" {
			player = "default"
		}
		title, _ := el.Attr("data-title")

		embed := fmt.Sprintf(
			"https://players.brightcove.net/%s/%s_default/index.html?videoId=%s",
			account, player, videoID,
		)
		el.ReplaceWithHtml(canonicalIframe(embed))
		if !seenVideos[embed] {
			seenVideos[embed] = true
			videos = append(videos, domain.VideoRef{Title: title, EmbedURL: embed})
		}
	})

	// Generic host links to watch pages become embeds.
	container.Find("a[href*='youtube.com/watch']").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		embed := youtubeEmbedURL(href)
		if embed == "" {
			return
		}
		title := strings.TrimSpace(a.Text())
		a.ReplaceWithHtml(canonicalIframe(embed))
		if !seenVideos[embed] {
			seenVideos[embed] = true
			videos = append(videos, domain.VideoRef{Title: title, URL: href, EmbedURL: embed})
		}
	})

	container.Find("iframe").Each(func(_ int, frame *goquery.Selection) {
		src, _ := frame.Attr("src")
		src = canonical.Resolve(baseURL, src)
		if !embedAllowed(src) {
			frame.Remove()
			return
		}
		frame.SetAttr("src", src)
		if !seenVideos[src] {
			seenVideos[src] = true
			title, _ := frame.Attr("title")
			videos = append(videos, domain.VideoRef{Title: title, EmbedURL: src})
		}
	})

	return images, videos
}

func canonicalIframe(embedURL string) string {
	return fmt.Sprintf(
		`<iframe src="%s" loading="lazy" allowfullscreen frameborder="0"></iframe>`,
		embedURL,
	)
}

func youtubeEmbedURL(watchURL string) string {
	u, err := url.Parse(watchURL)
	if err != nil {
		return ""
	}
	id := u.Query().Get("v")
	if id == "" {
		return ""
	}
	return "https://www.youtube.com/embed/" + id
}
