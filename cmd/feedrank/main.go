package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "feedrank",
		Short: "Trending and personalized feed ranking for DailyBase",
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")

	root.AddCommand(serveCmd())
	root.AddCommand(runCmd())
	root.AddCommand(trendingCmd())
	root.AddCommand(feedCmd())
	root.AddCommand(seedCmd())

	return root
}

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}

func runCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start daemon with trending refresh scheduler and HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}

func trendingCmd() *cobra.Command {
	var (
		kind       string
		period     string
		tag        string
		limit      int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "trending",
		Short: "Show trending posts, tags or users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrending(kind, period, tag, limit, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "posts", "what to rank: posts, tags or users")
	cmd.Flags().StringVar(&period, "period", "24h", "lookback window: 1h, 24h, 7d or 30d")
	cmd.Flags().StringVar(&tag, "tag", "", "restrict posts to one tag")
	cmd.Flags().IntVar(&limit, "limit", 20, "max results to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}

func feedCmd() *cobra.Command {
	var (
		user       string
		mode       string
		limit      int
		offset     int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Show a user's personalized feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFeed(user, mode, limit, offset, jsonOutput)
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "user ID (required)")
	cmd.Flags().StringVar(&mode, "mode", "hybrid", "feed mode: following, trending or hybrid")
	cmd.Flags().IntVar(&limit, "limit", 20, "page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "page offset")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func seedCmd() *cobra.Command {
	var (
		users int
		posts int
		days  int
		seed  int64
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Populate the database with demo users, posts and engagement",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(users, posts, days, seed)
		},
	}

	cmd.Flags().IntVar(&users, "users", 25, "number of users")
	cmd.Flags().IntVar(&posts, "posts", 200, "number of posts")
	cmd.Flags().IntVar(&days, "days", 14, "spread posts over this many days")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed (0 = time-based)")
	return cmd
}
