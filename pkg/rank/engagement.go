package rank

// Counts holds the raw engagement counters recorded for one content item,
// plus the engagement rate previously computed by the analytics pipeline
// (carried through as-is; it may lag the counters).
type Counts struct {
	Views          int     `json:"views"`
	Likes          int     `json:"likes"`
	Comments       int     `json:"comments"`
	Reposts        int     `json:"reposts"`
	Shares         int     `json:"shares"`
	EngagementRate float64 `json:"engagement_rate"`
}

// Scorer converts raw counters into a single view-normalized engagement
// score. Reposts carry the highest weight (amplification is the strongest
// endorsement); comments and shares signal more effort than passive likes.
type Scorer struct {
	Like    float64
	Comment float64
	Repost  float64
	Share   float64
}

// NewScorer creates a scorer with the given weights. All-zero weights fall
// back to the defaults (like=1, comment=2, repost=3, share=2).
func NewScorer(like, comment, repost, share float64) Scorer {
	if like+comment+repost+share == 0 {
		return Scorer{Like: 1, Comment: 2, Repost: 3, Share: 2}
	}
	return Scorer{Like: like, Comment: comment, Repost: repost, Share: share}
}

// Engagement returns the engagement score for c. A nil record (no analytics
// row yet) scores zero. The view divisor is floored at 1, so the result is
// always finite and non-negative.
func (s Scorer) Engagement(c *Counts) float64 {
	if c == nil {
		return 0
	}
	views := c.Views
	if views < 1 {
		views = 1
	}
	weighted := float64(c.Likes)*s.Like +
		float64(c.Comments)*s.Comment +
		float64(c.Reposts)*s.Repost +
		float64(c.Shares)*s.Share
	return weighted / float64(views) * 100
}
