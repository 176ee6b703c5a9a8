package extract

import (
	"strings"
	"testing"
)

func TestRepairNumericShellsFromOwnAttributes(t *testing.T) {
	t.Parallel()

	doc := docFrom(t, `<div id="c">
		<p>Seeded <span data-seed="3">()</span> this week.</p>
	</div>`)

	container := doc.Find("#c")
	if got := repairNumericShells(container); got != 1 {
		t.Fatalf("expected 1 repair, got %d", got)
	}
	if text := container.Find("span").Text(); text != "(3)" {
		t.Fatalf("expected (3), got %q", text)
	}
}

func TestRepairNumericShellsParentFallback(t *testing.T) {
	t.Parallel()

	doc := docFrom(t, `<div id="c">
		<p aria-label="ranking points 1500"><strong>-</strong> points gained</p>
	</div>`)

	container := doc.Find("#c")
	repairNumericShells(container)

	if text := container.Find("strong").Text(); text != "-1500" {
		t.Fatalf("expected sign preserved with parent value, got %q", text)
	}
}

func TestRepairNumericShellsLeavesRealTextAlone(t *testing.T) {
	t.Parallel()

	doc := docFrom(t, `<div id="c">
		<p><span data-rank="12" title="rank 12">No. 4</span></p>
	</div>`)

	container := doc.Find("#c")
	if got := repairNumericShells(container); got != 0 {
		t.Fatalf("expected no repairs, got %d", got)
	}
	if text := container.Find("span").Text(); text != "No. 4" {
		t.Fatalf("visible value must never be overwritten, got %q", text)
	}
}

func TestRepairNumericShellsNoAttributeData(t *testing.T) {
	t.Parallel()

	doc := docFrom(t, `<div id="c"><p><span>()</span></p></div>`)

	container := doc.Find("#c")
	if got := repairNumericShells(container); got != 0 {
		t.Fatalf("expected no repairs without attribute data, got %d", got)
	}
	if !strings.Contains(container.Find("span").Text(), "()") {
		t.Fatal("shell should remain untouched")
	}
}

func TestFillShell(t *testing.T) {
	t.Parallel()

	cases := []struct{ shell, token, want string }{
		{"()", "5", "(5)"},
		{"-", "120", "-120"},
		{"+", "40", "+40"},
		{"#", "2", "#2"},
		{"[]", "8", "[8]"},
		{"  ", "9", "9"},
	}
	for _, tc := range cases {
		if got := fillShell(tc.shell, tc.token); got != tc.want {
			t.Fatalf("fillShell(%q, %q) = %q, want %q", tc.shell, tc.token, got, tc.want)
		}
	}
}
