package chart

import (
	"testing"
	"time"
)

var zeroTime time.Time

func TestShorten(t *testing.T) {
	cases := map[Amount]string{
		0:        "",
		500:      "500",
		60000:    "60K",
		-60000:   "-60K",
		36500:    "36.5K",
		1250000:  "1.25M",
		80000:    "80K",
		1000000:  "1M",
		-1234567: "-1.23M",
	}
	for in, want := range cases {
		if got := Shorten(in); got != want {
			t.Errorf("Shorten(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestColorFor_Cycles(t *testing.T) {
	p := Palette()
	if len(p) != 6 {
		t.Fatalf("len(palette) = %d, want 6", len(p))
	}
	for i := 0; i < 12; i++ {
		if ColorFor(i) != p[i%6] {
			t.Errorf("ColorFor(%d) = %q, want %q", i, ColorFor(i), p[i%6])
		}
	}
}

func TestParseColor(t *testing.T) {
	if c, ok := ParseColor("sky"); !ok || c != Sky {
		t.Errorf("ParseColor(sky) = %q, %v", c, ok)
	}
	if c, ok := ParseColor(""); !ok || c != "" {
		t.Errorf("ParseColor(\"\") = %q, %v", c, ok)
	}
	if _, ok := ParseColor("teal"); ok {
		t.Error("teal should not parse")
	}
}

func TestColor_CSSClass(t *testing.T) {
	if Red.CSSClass() != "bg-red-500" {
		t.Errorf("RED class = %q", Red.CSSClass())
	}
	if Color("BOGUS").CSSClass() != "bg-gray-500" {
		t.Errorf("unknown class = %q", Color("BOGUS").CSSClass())
	}
}
