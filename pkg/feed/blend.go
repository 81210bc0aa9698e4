package feed

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dailybase/feedrank/pkg/rank"
)

// Mode selects the feed assembly strategy.
type Mode string

const (
	ModeFollowing Mode = "following"
	ModeTrending  Mode = "trending"
	ModeHybrid    Mode = "hybrid"
)

// ParseMode validates a mode string. Empty defaults to hybrid.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "":
		return ModeHybrid, nil
	case ModeFollowing, ModeTrending, ModeHybrid:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown feed mode %q (want following, trending or hybrid)", s)
}

const (
	// Hybrid candidate split: share of the requested page drawn from
	// followed accounts vs. global trending, in percent.
	followSharePct = 60
	trendSharePct  = 40

	// Personalization weights.
	tagBonus      = 10 // per tag overlapping the user's preferred tags
	rateWeight    = 5  // multiplier on the stored engagement rate
	recencyWeight = 20 // multiplier on the recency decay factor

	// TrendingWindow is the lookback for trending-sourced candidates.
	TrendingWindow = 7 * 24 * time.Hour

	// DefaultLimit is the page size when the caller supplies none.
	DefaultLimit = 20
)

// Source supplies pre-fetched candidate posts. It is the persistence
// collaborator; the blender itself performs no I/O beyond these accessors,
// and accessor errors propagate to the caller unmodified apart from
// context wrapping.
type Source interface {
	// FollowingCount reports how many accounts userID follows.
	FollowingCount(ctx context.Context, userID string) (int, error)

	// FollowedPosts returns public, non-hidden posts authored by accounts
	// userID follows, newest first.
	FollowedPosts(ctx context.Context, userID string, limit, offset int) ([]rank.Post, error)

	// TrendingPosts returns public, non-hidden posts created since the
	// given instant, ordered by raw like count then recency.
	TrendingPosts(ctx context.Context, since time.Time, limit, offset int) ([]rank.Post, error)

	// LikedPosts, CommentedPosts and AuthoredPosts return the posts a user
	// has liked, commented on, and written. Used only for profile building.
	LikedPosts(ctx context.Context, userID string) ([]rank.Post, error)
	CommentedPosts(ctx context.Context, userID string) ([]rank.Post, error)
	AuthoredPosts(ctx context.Context, userID string) ([]rank.Post, error)
}

// ScoredPost annotates a post with its personalization score. Posts from
// the following and trending modes keep their accessor ordering and carry
// a zero score.
type ScoredPost struct {
	rank.Post
	PersonalizationScore float64 `json:"personalization_score"`
}

// Blender assembles personalized feed pages. It holds no per-request state;
// every Blend call recomputes the full blend from its accessors.
type Blender struct {
	src Source
	now func() time.Time
}

// New creates a blender over the given source.
func New(src Source) *Blender {
	return &Blender{src: src, now: time.Now}
}

// NewWithClock creates a blender with an injected clock.
func NewWithClock(src Source, now func() time.Time) *Blender {
	return &Blender{src: src, now: now}
}

// Blend returns one deduplicated, ranked feed page for userID. Validating
// that userID is present and well-formed is the route layer's job.
func (b *Blender) Blend(ctx context.Context, userID string, mode Mode, limit, offset int) ([]ScoredPost, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if offset < 0 {
		offset = 0
	}

	switch mode {
	case ModeFollowing:
		return b.following(ctx, userID, limit, offset)
	case ModeTrending:
		return b.trending(ctx, limit, offset)
	default:
		return b.hybrid(ctx, userID, limit, offset)
	}
}

// following returns followed-account posts newest first. A user who follows
// nobody falls back entirely to trending, with identical ordering.
func (b *Blender) following(ctx context.Context, userID string, limit, offset int) ([]ScoredPost, error) {
	n, err := b.src.FollowingCount(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count following for %s: %w", userID, err)
	}
	if n == 0 {
		return b.trending(ctx, limit, offset)
	}

	posts, err := b.src.FollowedPosts(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("followed posts for %s: %w", userID, err)
	}
	return annotate(posts), nil
}

func (b *Blender) trending(ctx context.Context, limit, offset int) ([]ScoredPost, error) {
	since := b.now().Add(-TrendingWindow)
	posts, err := b.src.TrendingPosts(ctx, since, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("trending posts: %w", err)
	}
	return annotate(posts), nil
}

// hybrid blends followed and trending candidates, boosted by the user's tag
// affinity. Both candidate fetches start at offset zero: the blend is
// recomputed in full on every page request and the caller's offset applies
// as a slice over the final sorted, deduplicated sequence.
func (b *Blender) hybrid(ctx context.Context, userID string, limit, offset int) ([]ScoredPost, error) {
	profile, err := b.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}
	preferred := profile.tagSet()

	followed, err := b.src.FollowedPosts(ctx, userID, limit*followSharePct/100, 0)
	if err != nil {
		return nil, fmt.Errorf("followed posts for %s: %w", userID, err)
	}

	now := b.now()
	trending, err := b.src.TrendingPosts(ctx, now.Add(-TrendingWindow), limit*trendSharePct/100, 0)
	if err != nil {
		return nil, fmt.Errorf("trending posts: %w", err)
	}

	candidates := make([]rank.Post, 0, len(followed)+len(trending))
	candidates = append(candidates, followed...)
	candidates = append(candidates, trending...)

	scored := make([]ScoredPost, 0, len(candidates))
	for _, p := range candidates {
		scored = append(scored, ScoredPost{
			Post:                 p,
			PersonalizationScore: personalization(p, preferred, now),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].PersonalizationScore != scored[j].PersonalizationScore {
			return scored[i].PersonalizationScore > scored[j].PersonalizationScore
		}
		if !scored[i].CreatedAt.Equal(scored[j].CreatedAt) {
			return scored[i].CreatedAt.After(scored[j].CreatedAt)
		}
		return scored[i].ID < scored[j].ID
	})

	return paginate(dedupe(scored), limit, offset), nil
}

// personalization scores one candidate: +10 per preferred-tag overlap, the
// stored engagement rate times 5 when analytics exist, and a recency bonus
// of decay times 20.
func personalization(p rank.Post, preferred map[string]bool, now time.Time) float64 {
	score := 0.0
	for _, t := range p.Tags {
		if preferred[t] {
			score += tagBonus
		}
	}
	if p.Counts != nil {
		score += p.Counts.EngagementRate * rateWeight
	}
	score += rank.Decay(p.CreatedAt, now, rank.DefaultHalfLifeHours) * recencyWeight
	return score
}

// dedupe drops repeated post IDs, keeping the first (highest-scored)
// occurrence.
func dedupe(posts []ScoredPost) []ScoredPost {
	seen := make(map[string]bool, len(posts))
	out := posts[:0]
	for _, p := range posts {
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true
		out = append(out, p)
	}
	return out
}

func paginate(posts []ScoredPost, limit, offset int) []ScoredPost {
	if offset >= len(posts) {
		return []ScoredPost{}
	}
	end := offset + limit
	if end > len(posts) {
		end = len(posts)
	}
	return posts[offset:end]
}

func annotate(posts []rank.Post) []ScoredPost {
	out := make([]ScoredPost, len(posts))
	for i, p := range posts {
		out[i] = ScoredPost{Post: p}
	}
	return out
}
