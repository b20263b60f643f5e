package game

import (
	"testing"
	"time"
)

func TestScoreIncorrectIsZero(t *testing.T) {
	for _, responseTime := range []time.Duration{0, time.Second, ScoringWindow, 2 * ScoringWindow} {
		if got := Score(false, responseTime, ScoringWindow, 1000); got != 0 {
			t.Fatalf("incorrect answer at %v should score 0, got %d", responseTime, got)
		}
	}
}

func TestScoreExactValues(t *testing.T) {
	cases := []struct {
		responseTime time.Duration
		want         int
	}{
		{0, 1000},
		{15 * time.Second, 750},
		{30 * time.Second, 500},
		{45 * time.Second, 500}, // past the window still floors at 50%
		{2 * time.Minute, 500},
	}
	for _, c := range cases {
		if got := Score(true, c.responseTime, ScoringWindow, 1000); got != c.want {
			t.Fatalf("Score(true, %v) = %d, want %d", c.responseTime, got, c.want)
		}
	}
}

func TestScoreBounds(t *testing.T) {
	maxPoints := 1000
	for responseTime := time.Duration(0); responseTime <= 2*ScoringWindow; responseTime += time.Second {
		got := Score(true, responseTime, ScoringWindow, maxPoints)
		if got < maxPoints/2 {
			t.Fatalf("correct answer at %v scored %d, below half of max", responseTime, got)
		}
		if got > maxPoints {
			t.Fatalf("correct answer at %v scored %d, above max", responseTime, got)
		}
	}
}

func TestScoreMonotonicInResponseTime(t *testing.T) {
	prev := Score(true, 0, ScoringWindow, 1000)
	for responseTime := time.Second; responseTime <= 2*ScoringWindow; responseTime += time.Second {
		got := Score(true, responseTime, ScoringWindow, 1000)
		if got > prev {
			t.Fatalf("score increased from %d to %d at %v", prev, got, responseTime)
		}
		prev = got
	}
}
