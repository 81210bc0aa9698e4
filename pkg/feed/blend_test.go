package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dailybase/feedrank/pkg/rank"
)

// fakeSource serves fixed post lists, honoring limit/offset the way the
// real store queries do.
type fakeSource struct {
	following int
	followed  []rank.Post
	trending  []rank.Post
	liked     []rank.Post
	commented []rank.Post
	authored  []rank.Post
	err       error
}

func (f *fakeSource) FollowingCount(ctx context.Context, userID string) (int, error) {
	return f.following, f.err
}

func (f *fakeSource) FollowedPosts(ctx context.Context, userID string, limit, offset int) ([]rank.Post, error) {
	return slicePage(f.followed, limit, offset), f.err
}

func (f *fakeSource) TrendingPosts(ctx context.Context, since time.Time, limit, offset int) ([]rank.Post, error) {
	return slicePage(f.trending, limit, offset), f.err
}

func (f *fakeSource) LikedPosts(ctx context.Context, userID string) ([]rank.Post, error) {
	return f.liked, f.err
}

func (f *fakeSource) CommentedPosts(ctx context.Context, userID string) ([]rank.Post, error) {
	return f.commented, f.err
}

func (f *fakeSource) AuthoredPosts(ctx context.Context, userID string) ([]rank.Post, error) {
	return f.authored, f.err
}

func slicePage(posts []rank.Post, limit, offset int) []rank.Post {
	if offset >= len(posts) {
		return nil
	}
	end := offset + limit
	if end > len(posts) {
		end = len(posts)
	}
	return posts[offset:end]
}

func fixedClock() (time.Time, func() time.Time) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	return now, func() time.Time { return now }
}

func post(id string, age time.Duration, now time.Time, tags ...string) rank.Post {
	return rank.Post{ID: id, CreatedAt: now.Add(-age), Tags: tags}
}

func TestHybridDeduplicates(t *testing.T) {
	now, clock := fixedClock()
	shared := post("shared", time.Hour, now, "defi")

	src := &fakeSource{
		following: 1,
		followed:  []rank.Post{shared, post("f1", 2*time.Hour, now)},
		trending:  []rank.Post{shared, post("t1", 3*time.Hour, now)},
	}

	out, err := NewWithClock(src, clock).Blend(context.Background(), "u1", ModeHybrid, 20, 0)
	if err != nil {
		t.Fatal(err)
	}

	seen := make(map[string]int)
	for _, p := range out {
		seen[p.ID]++
	}
	if seen["shared"] != 1 {
		t.Errorf("duplicated candidate must appear exactly once, got %d", seen["shared"])
	}
	if len(out) != 3 {
		t.Errorf("expected 3 distinct posts, got %d", len(out))
	}
}

func TestFollowingFallsBackToTrending(t *testing.T) {
	now, clock := fixedClock()
	src := &fakeSource{
		following: 0,
		trending: []rank.Post{
			post("t1", time.Hour, now),
			post("t2", 2*time.Hour, now),
		},
	}
	b := NewWithClock(src, clock)

	followingOut, err := b.Blend(context.Background(), "u1", ModeFollowing, 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	trendingOut, err := b.Blend(context.Background(), "u1", ModeTrending, 10, 0)
	if err != nil {
		t.Fatal(err)
	}

	if len(followingOut) != len(trendingOut) {
		t.Fatalf("fallback output length differs: %d vs %d", len(followingOut), len(trendingOut))
	}
	for i := range followingOut {
		if followingOut[i].ID != trendingOut[i].ID {
			t.Errorf("fallback ordering differs at %d: %s vs %s",
				i, followingOut[i].ID, trendingOut[i].ID)
		}
	}
}

func TestFollowingModeUsesFollowedPosts(t *testing.T) {
	now, clock := fixedClock()
	src := &fakeSource{
		following: 2,
		followed:  []rank.Post{post("f1", time.Hour, now), post("f2", 2*time.Hour, now)},
		trending:  []rank.Post{post("t1", time.Hour, now)},
	}

	out, err := NewWithClock(src, clock).Blend(context.Background(), "u1", ModeFollowing, 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 || out[0].ID != "f1" || out[1].ID != "f2" {
		t.Fatalf("following mode should keep accessor order, got %+v", out)
	}
}

func TestHybridPaginationIsAPureSlice(t *testing.T) {
	// Fewer posts than any fetch size, so every call sees the same
	// candidate set and offset/limit act as a slice over one stable
	// sorted sequence.
	now, clock := fixedClock()
	src := &fakeSource{
		following: 1,
		followed: []rank.Post{
			post("f1", 1*time.Hour, now, "defi"),
			post("f2", 5*time.Hour, now),
			post("f3", 9*time.Hour, now, "defi"),
		},
		trending: []rank.Post{
			post("t1", 2*time.Hour, now),
			post("t2", 7*time.Hour, now),
		},
		liked: []rank.Post{post("x", time.Hour, now, "defi")},
	}
	b := NewWithClock(src, clock)
	ctx := context.Background()

	const L = 5
	page1, err := b.Blend(ctx, "u1", ModeHybrid, L, 0)
	if err != nil {
		t.Fatal(err)
	}
	page2, err := b.Blend(ctx, "u1", ModeHybrid, L, L)
	if err != nil {
		t.Fatal(err)
	}
	full, err := b.Blend(ctx, "u1", ModeHybrid, 2*L, 0)
	if err != nil {
		t.Fatal(err)
	}

	got := append(append([]ScoredPost{}, page1...), page2...)
	if len(got) != len(full) {
		t.Fatalf("page concatenation length %d differs from full blend %d", len(got), len(full))
	}
	for i := range got {
		if got[i].ID != full[i].ID {
			t.Errorf("pages diverge from full blend at %d: %s vs %s", i, got[i].ID, full[i].ID)
		}
	}
}

func TestHybridTagAffinityBoost(t *testing.T) {
	now, clock := fixedClock()
	src := &fakeSource{
		following: 1,
		followed: []rank.Post{
			post("plain", time.Hour, now),
			post("matched", time.Hour, now, "defi"),
		},
		liked: []rank.Post{post("x", time.Hour, now, "defi")},
	}

	out, err := NewWithClock(src, clock).Blend(context.Background(), "u1", ModeHybrid, 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if out[0].ID != "matched" {
		t.Fatalf("preferred-tag overlap should outrank an otherwise identical post, got %s", out[0].ID)
	}
	if out[0].PersonalizationScore-out[1].PersonalizationScore < 9.9 {
		t.Errorf("tag overlap should add 10: %.2f vs %.2f",
			out[0].PersonalizationScore, out[1].PersonalizationScore)
	}
}

func TestHybridEngagementRateBoost(t *testing.T) {
	now, clock := fixedClock()
	hot := post("hot", time.Hour, now)
	hot.Counts = &rank.Counts{EngagementRate: 4}

	src := &fakeSource{
		following: 1,
		followed:  []rank.Post{post("cold", time.Hour, now), hot},
	}

	out, err := NewWithClock(src, clock).Blend(context.Background(), "u1", ModeHybrid, 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if out[0].ID != "hot" {
		t.Fatalf("stored engagement rate should boost the score, got %s first", out[0].ID)
	}
	delta := out[0].PersonalizationScore - out[1].PersonalizationScore
	if delta < 19.9 || delta > 20.1 {
		t.Errorf("rate 4 at weight 5 should add 20, got delta %.2f", delta)
	}
}

func TestHybridRecencyBonus(t *testing.T) {
	now, clock := fixedClock()
	src := &fakeSource{
		following: 1,
		followed: []rank.Post{
			post("old", 48*time.Hour, now),
			post("new", time.Hour, now),
		},
	}

	out, err := NewWithClock(src, clock).Blend(context.Background(), "u1", ModeHybrid, 10, 0)
	if err != nil {
		t.Fatal(err)
	}
	if out[0].ID != "new" {
		t.Fatalf("recency bonus should favor the newer post, got %s", out[0].ID)
	}
}

func TestBlendOffsetPastEnd(t *testing.T) {
	now, clock := fixedClock()
	src := &fakeSource{
		following: 1,
		followed:  []rank.Post{post("f1", time.Hour, now)},
	}

	out, err := NewWithClock(src, clock).Blend(context.Background(), "u1", ModeHybrid, 10, 50)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 0 {
		t.Errorf("offset past the end should yield an empty page, got %d posts", len(out))
	}
}

func TestBlendPropagatesSourceErrors(t *testing.T) {
	_, clock := fixedClock()
	src := &fakeSource{err: errors.New("db down")}

	_, err := NewWithClock(src, clock).Blend(context.Background(), "u1", ModeHybrid, 10, 0)
	if err == nil || !errors.Is(err, src.err) {
		t.Errorf("accessor errors must propagate, got %v", err)
	}
}

func TestParseMode(t *testing.T) {
	if m, err := ParseMode(""); err != nil || m != ModeHybrid {
		t.Errorf("empty mode should default to hybrid, got %v, %v", m, err)
	}
	for _, s := range []string{"following", "trending", "hybrid"} {
		if m, err := ParseMode(s); err != nil || string(m) != s {
			t.Errorf("ParseMode(%q) = %v, %v", s, m, err)
		}
	}
	if _, err := ParseMode("chrono"); err == nil {
		t.Error("unknown mode should error")
	}
}
