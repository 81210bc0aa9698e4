package rank

import (
	"math"
	"testing"
)

func TestEngagementNilCounts(t *testing.T) {
	s := NewScorer(0, 0, 0, 0)
	if got := s.Engagement(nil); got != 0 {
		t.Errorf("nil counts should score 0, got %.2f", got)
	}
}

func TestEngagementWeights(t *testing.T) {
	s := NewScorer(0, 0, 0, 0)

	cases := []struct {
		name string
		c    Counts
		want float64
	}{
		{"one like", Counts{Views: 1, Likes: 1}, 100},
		{"one comment", Counts{Views: 1, Comments: 1}, 200},
		{"one repost", Counts{Views: 1, Reposts: 1}, 300},
		{"one share", Counts{Views: 1, Shares: 1}, 200},
		{"mixed", Counts{Views: 10, Likes: 2, Comments: 1, Reposts: 1, Shares: 1}, 90},
	}
	for _, tc := range cases {
		if got := s.Engagement(&tc.c); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("%s: got %.2f, want %.2f", tc.name, got, tc.want)
		}
	}
}

func TestEngagementViewFloor(t *testing.T) {
	s := NewScorer(0, 0, 0, 0)

	zero := s.Engagement(&Counts{Views: 0, Likes: 3})
	one := s.Engagement(&Counts{Views: 1, Likes: 3})
	if zero != one {
		t.Errorf("views=0 should score like views=1: got %.2f vs %.2f", zero, one)
	}
	if math.IsInf(zero, 0) || math.IsNaN(zero) {
		t.Errorf("score must stay finite, got %v", zero)
	}
}

func TestEngagementMonotonicInReposts(t *testing.T) {
	s := NewScorer(0, 0, 0, 0)

	prev := s.Engagement(&Counts{Views: 10})
	for reposts := 1; reposts <= 5; reposts++ {
		got := s.Engagement(&Counts{Views: 10, Reposts: reposts})
		if got <= prev {
			t.Fatalf("score must strictly increase with reposts: %.2f then %.2f", prev, got)
		}
		prev = got
	}

	// One repost moves the score three times as much as one like.
	base := s.Engagement(&Counts{Views: 10})
	likeDelta := s.Engagement(&Counts{Views: 10, Likes: 1}) - base
	repostDelta := s.Engagement(&Counts{Views: 10, Reposts: 1}) - base
	if math.Abs(repostDelta-3*likeDelta) > 1e-9 {
		t.Errorf("repost delta %.2f should be 3x like delta %.2f", repostDelta, likeDelta)
	}
}

func TestNewScorerDefaults(t *testing.T) {
	s := NewScorer(0, 0, 0, 0)
	want := Scorer{Like: 1, Comment: 2, Repost: 3, Share: 2}
	if s != want {
		t.Errorf("all-zero weights should fall back to defaults, got %+v", s)
	}

	custom := NewScorer(1, 1, 1, 1)
	if custom.Repost != 1 {
		t.Errorf("explicit weights should be kept, got %+v", custom)
	}
}
