package checksum

import "testing"

func TestSum_Stable(t *testing.T) {
	a := Sum([]byte("savings: 200000\n"))
	b := Sum([]byte("savings: 200000\n"))
	if a != b || len(a) != 64 {
		t.Errorf("Sum = %q / %q", a, b)
	}
	if Sum([]byte("savings: 1\n")) == a {
		t.Error("different content should not collide")
	}
}

func TestIfMatchRoundTrip(t *testing.T) {
	sum := Sum([]byte("x"))
	for _, in := range []string{sum, ETag(sum), "W/" + ETag(sum), " " + ETag(sum) + " "} {
		if got := FromIfMatch(in); got != sum {
			t.Errorf("FromIfMatch(%q) = %q, want %q", in, got, sum)
		}
	}
}
