package token

import (
	"strings"
	"testing"
)

func TestEstimateEmpty(t *testing.T) {
	if got := Estimate(""); got != 0 {
		t.Fatalf("expected 0 for empty text, got %d", got)
	}
}

func TestEstimateRoundsUp(t *testing.T) {
	if got := Estimate("ab"); got != 1 {
		t.Fatalf("expected 1 for two bytes, got %d", got)
	}
	if got := Estimate("abcde"); got != 2 {
		t.Fatalf("expected 2 for five bytes, got %d", got)
	}
}

func TestEstimateMonotonic(t *testing.T) {
	prev := 0
	text := ""
	for i := 0; i < 64; i++ {
		text += "word "
		cur := Estimate(text)
		if cur < prev {
			t.Fatalf("estimate decreased from %d to %d at length %d", prev, cur, len(text))
		}
		prev = cur
	}
}

func TestEstimateDeterministic(t *testing.T) {
	s := strings.Repeat("the quick brown fox ", 10)
	if Estimate(s) != Estimate(s) {
		t.Fatal("estimate is not deterministic")
	}
}

func TestEstimateAll(t *testing.T) {
	parts := []string{"aaaa", "bbbb", "cc"}
	want := Estimate("aaaa") + Estimate("bbbb") + Estimate("cc")
	if got := EstimateAll(parts); got != want {
		t.Fatalf("expected %d, got %d", want, got)
	}
}
