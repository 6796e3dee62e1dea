package logger

import "testing"

func TestEventSamplerCountsPerEvent(t *testing.T) {
	s := newEventSampler(1, 3)
	var passed int
	for i := 0; i < 6; i++ {
		if s.Allow("cache.hit") {
			passed++
		}
	}
	if passed != 2 {
		t.Fatalf("expected 2 of 6 hits to pass, got %d", passed)
	}
	if !s.Allow("waiter.timeout") {
		t.Fatal("first record of another event must pass")
	}
}

func TestEventSamplerDisabled(t *testing.T) {
	s := newEventSampler(0, 0)
	for i := 0; i < 5; i++ {
		if !s.Allow("x") {
			t.Fatal("disabled sampler must allow everything")
		}
	}
}

func TestParseRatioSpec(t *testing.T) {
	cases := []struct {
		in       string
		num, den int
	}{
		{"1/10", 1, 10},
		{"25", 1, 25},
		{"0", 0, 0},
		{"a/b", 0, 0},
		{"", 0, 0},
	}
	for _, tc := range cases {
		num, den := parseRatioSpec(tc.in)
		if num != tc.num || den != tc.den {
			t.Fatalf("parseRatioSpec(%q) = %d/%d, want %d/%d", tc.in, num, den, tc.num, tc.den)
		}
	}
}
