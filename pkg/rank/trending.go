package rank

import (
	"math"
	"sort"
	"time"
)

// Post is the ranking core's view of one journal entry: identity, age, tags
// and its (possibly absent) engagement counters. Posts are read-only inputs;
// the core never mutates or persists them.
type Post struct {
	ID        string    `json:"id"`
	AuthorID  string    `json:"author_id"`
	CreatedAt time.Time `json:"created_at"`
	Tags      []string  `json:"tags,omitempty"`
	Counts    *Counts   `json:"analytics,omitempty"`
}

// ScoredPost annotates a post with its trending score. The annotation is
// computed fresh per call and never stored.
type ScoredPost struct {
	Post
	TrendingScore float64 `json:"trending_score"`
}

// TagScore aggregates the engagement of every post a tag appears on.
type TagScore struct {
	Tag   string  `json:"tag"`
	Score float64 `json:"score"`
	Count int     `json:"count"`
}

// UserStats carries a user's window-scoped activity counts plus follower
// count and stored engagement rate. The caller restricts the counts to the
// lookback window before handing them over.
type UserStats struct {
	ID             string  `json:"id"`
	Posts          int     `json:"posts"`
	Likes          int     `json:"likes"`
	Comments       int     `json:"comments"`
	Reposts        int     `json:"reposts"`
	Followers      int     `json:"followers"`
	EngagementRate float64 `json:"engagement_rate"`
}

// ScoredUser annotates user stats with a trending score.
type ScoredUser struct {
	UserStats
	TrendingScore float64 `json:"trending_score"`
}

// Ranker orders posts, tags and users by engagement-weighted recency.
// It holds only weights; every ranking call is a pure function of its
// inputs and the supplied clock instant.
type Ranker struct {
	scorer   Scorer
	halfLife float64
}

// NewRanker creates a ranker. A non-positive half-life falls back to the
// 24h default.
func NewRanker(scorer Scorer, halfLifeHours float64) *Ranker {
	if halfLifeHours <= 0 {
		halfLifeHours = DefaultHalfLifeHours
	}
	return &Ranker{scorer: scorer, halfLife: halfLifeHours}
}

// Posts filters candidates to the period window (and optional tag), scores
// each as decay * engagement, and returns them sorted descending, truncated
// to limit after sorting. Equal scores order newest-first, then by ID.
func (r *Ranker) Posts(posts []Post, period Period, limit int, tag string, now time.Time) []ScoredPost {
	cutoff := now.Add(-period.Duration())

	scored := make([]ScoredPost, 0, len(posts))
	for _, p := range posts {
		if p.CreatedAt.Before(cutoff) {
			continue
		}
		if tag != "" && !hasTag(p.Tags, tag) {
			continue
		}
		score := Decay(p.CreatedAt, now, r.halfLife) * r.scorer.Engagement(p.Counts)
		scored = append(scored, ScoredPost{Post: p, TrendingScore: score})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].TrendingScore != scored[j].TrendingScore {
			return scored[i].TrendingScore > scored[j].TrendingScore
		}
		if !scored[i].CreatedAt.Equal(scored[j].CreatedAt) {
			return scored[i].CreatedAt.After(scored[j].CreatedAt)
		}
		return scored[i].ID < scored[j].ID
	})

	return truncatePosts(scored, limit)
}

// Tags accumulates each tag's owning-post engagement across the candidate
// set (the caller supplies posts already restricted to the window) and
// returns tags sorted by total score descending. Ties order by post count,
// then tag string.
func (r *Ranker) Tags(posts []Post, limit int) []TagScore {
	totals := make(map[string]*TagScore)
	for _, p := range posts {
		engagement := r.scorer.Engagement(p.Counts)
		for _, tag := range p.Tags {
			ts, ok := totals[tag]
			if !ok {
				ts = &TagScore{Tag: tag}
				totals[tag] = ts
			}
			ts.Score += engagement
			ts.Count++
		}
	}

	out := make([]TagScore, 0, len(totals))
	for _, ts := range totals {
		out = append(out, *ts)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag < out[j].Tag
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Users scores each user as activity + follower score + stored engagement
// rate and returns them sorted descending. Activity reuses the engagement
// weights for likes/comments/reposts, with authored posts counting ten
// each. The follower term is logarithmic so a single mega-followed account
// cannot dominate.
func (r *Ranker) Users(stats []UserStats, limit int) []ScoredUser {
	scored := make([]ScoredUser, 0, len(stats))
	for _, s := range stats {
		activity := float64(s.Posts)*10 +
			float64(s.Likes)*r.scorer.Like +
			float64(s.Comments)*r.scorer.Comment +
			float64(s.Reposts)*r.scorer.Repost
		followers := math.Log(float64(s.Followers)+1) * 10
		scored = append(scored, ScoredUser{
			UserStats:     s,
			TrendingScore: activity + followers + s.EngagementRate,
		})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].TrendingScore != scored[j].TrendingScore {
			return scored[i].TrendingScore > scored[j].TrendingScore
		}
		return scored[i].ID < scored[j].ID
	})

	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

func truncatePosts(posts []ScoredPost, limit int) []ScoredPost {
	if limit > 0 && len(posts) > limit {
		return posts[:limit]
	}
	return posts
}

func hasTag(tags []string, want string) bool {
	for _, t := range tags {
		if t == want {
			return true
		}
	}
	return false
}
