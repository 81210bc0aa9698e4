package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/dailybase/feedrank/internal/cache"
	"github.com/dailybase/feedrank/internal/config"
	"github.com/dailybase/feedrank/internal/scheduler"
	"github.com/dailybase/feedrank/internal/store"
	"github.com/dailybase/feedrank/pkg/feed"
	"github.com/dailybase/feedrank/pkg/rank"
	"github.com/dailybase/feedrank/pkg/server"
)

func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func buildRanker(cfg *config.Config) *rank.Ranker {
	scorer := rank.NewScorer(
		cfg.Ranking.LikeWeight,
		cfg.Ranking.CommentWeight,
		cfg.Ranking.RepostWeight,
		cfg.Ranking.ShareWeight,
	)
	return rank.NewRanker(scorer, cfg.Ranking.HalfLifeHours)
}

func buildServer(cfg *config.Config, db store.Store, port int) *server.Server {
	if port == 0 {
		port = cfg.Server.Port
	}
	return server.New(db, buildRanker(cfg), feed.New(db), cache.New(), server.Options{
		Port:        port,
		TrendingTTL: cfg.Cache.ParseTrendingTTL(),
		RateRPS:     cfg.Server.RateRPS,
		RateBurst:   cfg.Server.RateBurst,
	})
}

func runServe(port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	return buildServer(cfg, db, port).ListenAndServe()
}

func runDaemon(port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	srv := buildServer(cfg, db, port)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sched := scheduler.New(srv, cfg.Schedule.ParseRefreshInterval())
	go func() {
		if err := sched.Run(ctx); err != nil && ctx.Err() == nil {
			fmt.Fprintf(os.Stderr, "scheduler error: %v\n", err)
		}
	}()

	go func() {
		<-ctx.Done()
		fmt.Fprintln(os.Stderr, "\nshutting down...")
	}()

	return srv.ListenAndServe()
}

func runTrending(kind, periodStr, tag string, limit int, jsonOutput bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	period, err := rank.ParsePeriod(periodStr)
	if err != nil {
		return err
	}

	ranker := buildRanker(cfg)
	ctx := context.Background()
	now := time.Now()

	switch strings.ToLower(kind) {
	case "posts":
		candidates, err := db.CandidatePosts(ctx, now.Add(-period.Duration()), 1000)
		if err != nil {
			return err
		}
		return printTrendingPosts(ranker.Posts(candidates, period, limit, tag, now), jsonOutput)
	case "tags":
		candidates, err := db.CandidatePosts(ctx, now.Add(-period.Duration()), 1000)
		if err != nil {
			return err
		}
		return printTrendingTags(ranker.Tags(candidates, limit), jsonOutput)
	case "users":
		stats, err := db.UserActivity(ctx, now.Add(-period.Duration()), 1000)
		if err != nil {
			return err
		}
		return printTrendingUsers(ranker.Users(stats, limit), jsonOutput)
	}
	return fmt.Errorf("unknown kind %q (want posts, tags or users)", kind)
}

func printTrendingPosts(posts []rank.ScoredPost, jsonOutput bool) error {
	if jsonOutput {
		return printJSON(posts)
	}
	if len(posts) == 0 {
		fmt.Println("no trending posts (try seeding data first: feedrank seed)")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SCORE\tPOST\tAUTHOR\tTAGS\tCREATED")
	for _, p := range posts {
		fmt.Fprintf(w, "%.1f\t%s\t%s\t%s\t%s\n",
			p.TrendingScore, p.ID, p.AuthorID,
			strings.Join(p.Tags, ","),
			p.CreatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

func printTrendingTags(tags []rank.TagScore, jsonOutput bool) error {
	if jsonOutput {
		return printJSON(tags)
	}
	if len(tags) == 0 {
		fmt.Println("no trending tags")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SCORE\tPOSTS\tTAG")
	for _, t := range tags {
		fmt.Fprintf(w, "%.1f\t%d\t%s\n", t.Score, t.Count, t.Tag)
	}
	return w.Flush()
}

func printTrendingUsers(users []rank.ScoredUser, jsonOutput bool) error {
	if jsonOutput {
		return printJSON(users)
	}
	if len(users) == 0 {
		fmt.Println("no trending users")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SCORE\tUSER\tPOSTS\tFOLLOWERS")
	for _, u := range users {
		fmt.Fprintf(w, "%.1f\t%s\t%d\t%d\n", u.TrendingScore, u.ID, u.Posts, u.Followers)
	}
	return w.Flush()
}

func runFeed(user, modeStr string, limit, offset int, jsonOutput bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	mode, err := feed.ParseMode(modeStr)
	if err != nil {
		return err
	}

	posts, err := feed.New(db).Blend(context.Background(), user, mode, limit, offset)
	if err != nil {
		return fmt.Errorf("blend feed: %w", err)
	}

	if jsonOutput {
		return printJSON(posts)
	}
	if len(posts) == 0 {
		fmt.Println("feed is empty")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SCORE\tPOST\tAUTHOR\tTAGS\tCREATED")
	for _, p := range posts {
		fmt.Fprintf(w, "%.1f\t%s\t%s\t%s\t%s\n",
			p.PersonalizationScore, p.ID, p.AuthorID,
			strings.Join(p.Tags, ","),
			p.CreatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
