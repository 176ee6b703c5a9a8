package canonical

import "testing"

func TestURLStripsTrackingParams(t *testing.T) {
	t.Parallel()

	got := URL("https://www.atptour.com/en/news/alcaraz-wins?utm_source=twitter&utm_medium=social&fbclid=abc123")
	want := "https://www.atptour.com/en/news/alcaraz-wins"
	if got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}

func TestURLSortsQueryAndDropsSlash(t *testing.T) {
	t.Parallel()

	a := URL("https://example.com/news/article/?b=2&a=1")
	b := URL("https://example.com/news/article?a=1&b=2")
	if a != b {
		t.Fatalf("variants diverge: %s vs %s", a, b)
	}
}

func TestURLLowercasesHost(t *testing.T) {
	t.Parallel()

	if URL("HTTPS://Example.COM/News") != "https://example.com/News" {
		t.Fatalf("unexpected: %s", URL("HTTPS://Example.COM/News"))
	}
}

func TestKeyStableAcrossVariants(t *testing.T) {
	t.Parallel()

	k1 := Key("https://example.com/match-report/?utm_campaign=x")
	k2 := Key("https://example.com/match-report")
	if k1 != k2 {
		t.Fatalf("keys diverge: %s vs %s", k1, k2)
	}
	if len(k1) != 24 {
		t.Fatalf("unexpected key length: %d", len(k1))
	}
}

func TestDraftAndPublishedIDs(t *testing.T) {
	t.Parallel()

	draftID := DraftID("https://example.com/story")
	pubID := PublishedID(draftID)

	if draftID == pubID {
		t.Fatal("draft and published ids must differ")
	}
	if PublishedID(draftID) != pubID {
		t.Fatal("published id must be deterministic")
	}
}

func TestSlug(t *testing.T) {
	t.Parallel()

	got := Slug("Alcaraz wins 6-4, 7-5 — a Classic!", 96)
	if got != "alcaraz-wins-6-4-7-5-a-classic" {
		t.Fatalf("unexpected slug: %s", got)
	}
}

func TestResolve(t *testing.T) {
	t.Parallel()

	got := Resolve("https://www.wtatennis.com/news/latest", "/photos/match.jpg")
	if got != "https://www.wtatennis.com/photos/match.jpg" {
		t.Fatalf("unexpected: %s", got)
	}
	if Resolve("https://a.com", "https://b.com/x") != "https://b.com/x" {
		t.Fatal("absolute URLs must pass through")
	}
}
