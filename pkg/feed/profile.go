package feed

import (
	"context"
	"fmt"
	"sort"

	"github.com/dailybase/feedrank/pkg/rank"
)

// profileTagCap bounds the preferred-tag list.
const profileTagCap = 10

// Profile is a user's derived tag affinity: the most frequent tags across
// the posts they liked, commented on, and authored, plus raw interaction
// totals for diagnostic display. It is computed fresh per request and never
// persisted.
type Profile struct {
	Tags     []string `json:"tags"`
	Likes    int      `json:"likes"`
	Comments int      `json:"comments"`
	Posts    int      `json:"posts"`
}

// Profile builds the preference profile for userID. A user with no history
// gets an empty tag list; the hybrid blend then leans entirely on recency
// and engagement.
func (b *Blender) Profile(ctx context.Context, userID string) (Profile, error) {
	liked, err := b.src.LikedPosts(ctx, userID)
	if err != nil {
		return Profile{}, fmt.Errorf("liked posts for %s: %w", userID, err)
	}
	commented, err := b.src.CommentedPosts(ctx, userID)
	if err != nil {
		return Profile{}, fmt.Errorf("commented posts for %s: %w", userID, err)
	}
	authored, err := b.src.AuthoredPosts(ctx, userID)
	if err != nil {
		return Profile{}, fmt.Errorf("authored posts for %s: %w", userID, err)
	}

	freq := make(map[string]int)
	for _, posts := range [][]rank.Post{liked, commented, authored} {
		for _, p := range posts {
			for _, t := range p.Tags {
				freq[t]++
			}
		}
	}

	tags := make([]string, 0, len(freq))
	for t := range freq {
		tags = append(tags, t)
	}
	sort.Slice(tags, func(i, j int) bool {
		if freq[tags[i]] != freq[tags[j]] {
			return freq[tags[i]] > freq[tags[j]]
		}
		return tags[i] < tags[j]
	})
	if len(tags) > profileTagCap {
		tags = tags[:profileTagCap]
	}

	return Profile{
		Tags:     tags,
		Likes:    len(liked),
		Comments: len(commented),
		Posts:    len(authored),
	}, nil
}

func (p Profile) tagSet() map[string]bool {
	set := make(map[string]bool, len(p.Tags))
	for _, t := range p.Tags {
		set[t] = true
	}
	return set
}
