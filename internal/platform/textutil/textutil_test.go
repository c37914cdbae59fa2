package textutil

import (
	"reflect"
	"strings"
	"testing"
)

func TestSplitList(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"Great battery, Fast charging , ,Bright screen", []string{"Great battery", "Fast charging", "Bright screen"}},
		{"  ", nil},
		{",,", nil},
		{"single", []string{"single"}},
	}
	for _, tc := range cases {
		if got := SplitList(tc.in); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("SplitList(%q): expected %#v got %#v", tc.in, tc.want, got)
		}
	}
}

func TestStripTags(t *testing.T) {
	got := StripTags(`  <b>Loved it</b><script>alert(1)</script> `)
	if got != "Loved it" {
		t.Fatalf("expected tags stripped, got %q", got)
	}
}

func TestRenderMarkdown(t *testing.T) {
	html, err := RenderMarkdown("**Solid** phone\n<script>alert(1)</script>\n[shop](https://example.com)")
	if err != nil {
		t.Fatalf("RenderMarkdown: %v", err)
	}
	if !strings.Contains(html, "<strong>Solid</strong>") {
		t.Fatalf("expected bold markup, got %q", html)
	}
	if strings.Contains(html, "<script") {
		t.Fatalf("expected script to be removed, got %q", html)
	}
	if !strings.Contains(html, `rel="nofollow`) {
		t.Fatalf("expected nofollow link, got %q", html)
	}

	empty, err := RenderMarkdown("   ")
	if err != nil || empty != "" {
		t.Fatalf("expected empty render, got %q, %v", empty, err)
	}
}

func TestPlainText(t *testing.T) {
	got := PlainText(`Tom & Jerry <i>approve</i> "a lot"`)
	if got != `Tom & Jerry approve "a lot"` {
		t.Fatalf("expected unescaped plain text, got %q", got)
	}
}
