package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/dailybase/feedrank/internal/store"
)

var seedTags = []string{
	"defi", "base", "nft", "gm", "onchain", "daily",
	"web3", "eth", "builder", "airdrop", "dao", "mint",
}

var seedHandles = []string{
	"satoshi", "vitalik", "degen", "anon", "builder", "hodler",
	"gmfren", "wagmi", "pixel", "oracle", "nomad", "shipper",
}

// runSeed fills the database with demo data so trending and feed commands
// return something out of the box.
func runSeed(userCount, postCount, days int, seed int64) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	if userCount <= 0 {
		userCount = 25
	}
	if postCount <= 0 {
		postCount = 200
	}
	if days <= 0 {
		days = 1
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	ctx := context.Background()
	now := time.Now().UTC()

	// Users with generated wallet addresses.
	users := make([]store.User, userCount)
	for i := range users {
		id := uuid.NewString()
		users[i] = store.User{
			ID:          id,
			Wallet:      "0x" + uuid.NewString()[:8] + uuid.NewString()[:8],
			Handle:      fmt.Sprintf("%s%d", seedHandles[i%len(seedHandles)], i),
			DisplayName: seedHandles[i%len(seedHandles)],
			CreatedAt:   now.AddDate(0, 0, -days-rng.Intn(30)),
		}
		if err := db.UpsertUser(ctx, &users[i]); err != nil {
			return err
		}
	}

	// Follows: each user follows a handful of others.
	for _, u := range users {
		for n := rng.Intn(6); n > 0; n-- {
			other := users[rng.Intn(len(users))]
			if other.ID == u.ID {
				continue
			}
			if err := db.AddFollow(ctx, u.ID, other.ID, now.AddDate(0, 0, -rng.Intn(days))); err != nil {
				return err
			}
		}
	}

	// Posts spread over the window, most with analytics.
	posts := make([]store.Post, postCount)
	for i := range posts {
		author := users[rng.Intn(len(users))]
		age := time.Duration(rng.Intn(days*24)) * time.Hour
		tags := pickTags(rng)
		posts[i] = store.Post{
			ID:        uuid.NewString(),
			AuthorID:  author.ID,
			Body:      fmt.Sprintf("day %d onchain. %s", i, tags[0]),
			Tags:      tags,
			CreatedAt: now.Add(-age),
		}
		if err := db.UpsertPost(ctx, &posts[i]); err != nil {
			return err
		}

		if rng.Float64() < 0.85 {
			views := 1 + rng.Intn(500)
			likes := rng.Intn(views/2 + 1)
			comments := rng.Intn(likes + 1)
			reposts := rng.Intn(comments + 1)
			shares := rng.Intn(comments + 1)
			a := store.Analytics{
				PostID:         posts[i].ID,
				Views:          views,
				Likes:          likes,
				Comments:       comments,
				Reposts:        reposts,
				Shares:         shares,
				EngagementRate: float64(likes+comments*2+reposts*3+shares*2) / float64(views) * 100,
			}
			if err := db.UpsertAnalytics(ctx, &a); err != nil {
				return err
			}
		}
	}

	// Interaction rows so preference profiles and activity rankings have
	// something to chew on.
	interactions := 0
	for _, u := range users {
		for n := rng.Intn(10); n > 0; n-- {
			p := posts[rng.Intn(len(posts))]
			at := now.Add(-time.Duration(rng.Intn(days*24)) * time.Hour)
			switch rng.Intn(3) {
			case 0:
				err = db.AddLike(ctx, u.ID, p.ID, at)
			case 1:
				err = db.AddComment(ctx, uuid.NewString(), u.ID, p.ID, "gm", at)
			default:
				err = db.AddRepost(ctx, u.ID, p.ID, at)
			}
			if err != nil {
				return err
			}
			interactions++
		}
	}

	fmt.Fprintf(os.Stderr, "seeded %d users, %d posts, %d interactions (seed %d)\n",
		len(users), len(posts), interactions, seed)
	return nil
}

func pickTags(rng *rand.Rand) []string {
	n := 1 + rng.Intn(3)
	tags := make([]string, 0, n)
	seen := make(map[string]bool)
	for len(tags) < n {
		t := seedTags[rng.Intn(len(seedTags))]
		if seen[t] {
			continue
		}
		seen[t] = true
		tags = append(tags, t)
	}
	return tags
}
