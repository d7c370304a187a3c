package chunk

import (
	"strings"
	"testing"
)

func TestSingleChunkIdentity(t *testing.T) {
	got := Split("short message", 2000)
	if len(got) != 1 || got[0] != "short message" {
		t.Fatalf("expected input returned unchanged, got %q", got)
	}
}

func TestRoundTrip(t *testing.T) {
	cases := []struct {
		text   string
		maxLen int
	}{
		{"", 10},
		{"abc", 1},
		{strings.Repeat("x", 100), 7},
		{strings.Repeat("paragraph one\n\n", 50), 64},
		{strings.Repeat("héllo wörld ", 40), 13},
	}
	for _, tc := range cases {
		chunks := Split(tc.text, tc.maxLen)
		if strings.Join(chunks, "") != tc.text {
			t.Fatalf("round trip failed for maxLen %d", tc.maxLen)
		}
		if len(chunks) == 0 {
			t.Fatal("chunk list must never be empty")
		}
		for i, c := range chunks {
			n := len([]rune(c))
			if i < len(chunks)-1 && n != tc.maxLen {
				t.Fatalf("chunk %d has length %d, expected exactly %d", i, n, tc.maxLen)
			}
			if i == len(chunks)-1 && len(tc.text) > 0 && (n < 1 || n > tc.maxLen) {
				t.Fatalf("final chunk has length %d, expected within [1, %d]", n, tc.maxLen)
			}
		}
	}
}

func TestExactMultiple(t *testing.T) {
	got := Split(strings.Repeat("a", 20), 10)
	if len(got) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(got))
	}
}

func TestUnicodeBoundaries(t *testing.T) {
	text := strings.Repeat("日本語テキスト", 10)
	chunks := Split(text, 7)
	if strings.Join(chunks, "") != text {
		t.Fatal("multibyte round trip failed")
	}
	for i, c := range chunks[:len(chunks)-1] {
		if n := len([]rune(c)); n != 7 {
			t.Fatalf("chunk %d split on a byte boundary: %d runes", i, n)
		}
	}
}

func TestNonPositiveMaxLenFallsBack(t *testing.T) {
	text := strings.Repeat("z", DefaultMaxLen+1)
	chunks := Split(text, 0)
	if len(chunks) != 2 {
		t.Fatalf("expected fallback to default length, got %d chunks", len(chunks))
	}
}
