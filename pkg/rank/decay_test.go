package rank

import (
	"math"
	"testing"
	"time"
)

func TestDecayFreshItem(t *testing.T) {
	now := time.Now()
	if got := Decay(now, now, 24); got != 1 {
		t.Errorf("decay at age 0 should be 1.0, got %.4f", got)
	}
}

func TestDecayShape(t *testing.T) {
	now := time.Now()

	day := Decay(now.Add(-24*time.Hour), now, 24)
	if math.Abs(day-math.Exp(-1)) > 1e-9 {
		t.Errorf("decay at 24h should be e^-1, got %.4f", day)
	}

	prev := 1.0
	for hours := 1; hours <= 96; hours *= 2 {
		got := Decay(now.Add(-time.Duration(hours)*time.Hour), now, 24)
		if got >= prev {
			t.Fatalf("decay must strictly decrease with age: %.4f at %dh after %.4f", got, hours, prev)
		}
		if got <= 0 {
			t.Fatalf("decay must stay positive, got %.6f at %dh", got, hours)
		}
		prev = got
	}

	ancient := Decay(now.Add(-365*24*time.Hour), now, 24)
	if ancient > 1e-9 {
		t.Errorf("decay should approach zero for ancient items, got %g", ancient)
	}
}

func TestDecayFutureTimestampClamps(t *testing.T) {
	now := time.Now()
	if got := Decay(now.Add(time.Hour), now, 24); got != 1 {
		t.Errorf("future timestamps should clamp to 1.0, got %.4f", got)
	}
}

func TestDecayHalfLifeFallback(t *testing.T) {
	now := time.Now()
	a := Decay(now.Add(-12*time.Hour), now, 0)
	b := Decay(now.Add(-12*time.Hour), now, DefaultHalfLifeHours)
	if a != b {
		t.Errorf("non-positive half-life should use the default: %.4f vs %.4f", a, b)
	}
}
