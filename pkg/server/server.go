package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/dailybase/feedrank/internal/cache"
	"github.com/dailybase/feedrank/internal/metrics"
	"github.com/dailybase/feedrank/internal/store"
	"github.com/dailybase/feedrank/pkg/feed"
	"github.com/dailybase/feedrank/pkg/rank"
)

const (
	defaultPostLimit = 50
	defaultTagLimit  = 20
	defaultUserLimit = 50
	maxLimit         = 100
	candidateCap     = 1000
)

// Server provides the HTTP API over the ranking core.
type Server struct {
	store   store.Store
	ranker  *rank.Ranker
	blender *feed.Blender
	cache   *cache.Cache
	limiter *rate.Limiter
	ttl     time.Duration
	port    int
	now     func() time.Time
}

// Options configures a Server.
type Options struct {
	Port        int
	TrendingTTL time.Duration
	RateRPS     float64
	RateBurst   int
}

// New creates a new HTTP server.
func New(s store.Store, ranker *rank.Ranker, blender *feed.Blender, c *cache.Cache, opts Options) *Server {
	if opts.Port == 0 {
		opts.Port = 8080
	}
	if opts.TrendingTTL <= 0 {
		opts.TrendingTTL = time.Minute
	}
	if opts.RateRPS <= 0 {
		opts.RateRPS = 50
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = 100
	}
	return &Server{
		store:   s,
		ranker:  ranker,
		blender: blender,
		cache:   c,
		limiter: rate.NewLimiter(rate.Limit(opts.RateRPS), opts.RateBurst),
		ttl:     opts.TrendingTTL,
		port:    opts.Port,
		now:     time.Now,
	}
}

// Handler returns the API mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/api/v1/trending/posts", s.limited(s.handleTrendingPosts))
	mux.HandleFunc("/api/v1/trending/tags", s.limited(s.handleTrendingTags))
	mux.HandleFunc("/api/v1/trending/users", s.limited(s.handleTrendingUsers))
	mux.HandleFunc("/api/v1/feed", s.limited(s.handleFeed))
	return mux
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf(":%d", s.port)
	fmt.Printf("feedrank server listening on %s\n", addr)
	return http.ListenAndServe(addr, s.Handler())
}

func (s *Server) limited(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			metrics.RateLimited.Inc()
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
			return
		}
		h(w, r)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleTrendingPosts(w http.ResponseWriter, r *http.Request) {
	defer metrics.ObserveRequest("trending_posts", s.now())
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	metrics.TrendingRequests.WithLabelValues("posts").Inc()

	period, err := rank.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	limit := limitParam(r, defaultPostLimit)
	tag := r.URL.Query().Get("tag")

	key := fmt.Sprintf("trending:posts:%s:%s:%d", period, tag, limit)
	if v, ok := s.cache.Get(key); ok {
		metrics.CacheHits.Inc()
		writeList(w, v.([]rank.ScoredPost), len(v.([]rank.ScoredPost)))
		return
	}
	metrics.CacheMisses.Inc()

	posts, err := s.trendingPosts(r.Context(), period, limit, tag)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	s.cache.Set(key, posts, s.ttl)
	writeList(w, posts, len(posts))
}

func (s *Server) handleTrendingTags(w http.ResponseWriter, r *http.Request) {
	defer metrics.ObserveRequest("trending_tags", s.now())
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	metrics.TrendingRequests.WithLabelValues("tags").Inc()

	period, err := rank.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	limit := limitParam(r, defaultTagLimit)

	key := fmt.Sprintf("trending:tags:%s:%d", period, limit)
	if v, ok := s.cache.Get(key); ok {
		metrics.CacheHits.Inc()
		writeList(w, v.([]rank.TagScore), len(v.([]rank.TagScore)))
		return
	}
	metrics.CacheMisses.Inc()

	tags, err := s.trendingTags(r.Context(), period, limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	s.cache.Set(key, tags, s.ttl)
	writeList(w, tags, len(tags))
}

func (s *Server) handleTrendingUsers(w http.ResponseWriter, r *http.Request) {
	defer metrics.ObserveRequest("trending_users", s.now())
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}
	metrics.TrendingRequests.WithLabelValues("users").Inc()

	period, err := rank.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	limit := limitParam(r, defaultUserLimit)

	key := fmt.Sprintf("trending:users:%s:%d", period, limit)
	if v, ok := s.cache.Get(key); ok {
		metrics.CacheHits.Inc()
		writeList(w, v.([]rank.ScoredUser), len(v.([]rank.ScoredUser)))
		return
	}
	metrics.CacheMisses.Inc()

	users, err := s.trendingUsers(r.Context(), period, limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	s.cache.Set(key, users, s.ttl)
	writeList(w, users, len(users))
}

func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	defer metrics.ObserveRequest("feed", s.now())
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	userID := r.URL.Query().Get("user")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user is required"})
		return
	}

	mode, err := feed.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	metrics.FeedRequests.WithLabelValues(string(mode)).Inc()

	limit := limitParam(r, feed.DefaultLimit)
	offset := offsetParam(r)

	posts, err := s.blender.Blend(r.Context(), userID, mode, limit, offset)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeList(w, posts, len(posts))
}

func (s *Server) trendingPosts(ctx context.Context, period rank.Period, limit int, tag string) ([]rank.ScoredPost, error) {
	now := s.now()
	candidates, err := s.store.CandidatePosts(ctx, now.Add(-period.Duration()), candidateCap)
	if err != nil {
		return nil, err
	}
	return s.ranker.Posts(candidates, period, limit, tag, now), nil
}

func (s *Server) trendingTags(ctx context.Context, period rank.Period, limit int) ([]rank.TagScore, error) {
	candidates, err := s.store.CandidatePosts(ctx, s.now().Add(-period.Duration()), candidateCap)
	if err != nil {
		return nil, err
	}
	return s.ranker.Tags(candidates, limit), nil
}

func (s *Server) trendingUsers(ctx context.Context, period rank.Period, limit int) ([]rank.ScoredUser, error) {
	stats, err := s.store.UserActivity(ctx, s.now().Add(-period.Duration()), candidateCap)
	if err != nil {
		return nil, err
	}
	return s.ranker.Users(stats, limit), nil
}

// RefreshTrending recomputes the default trending views into the cache.
// Used by the scheduler so interactive requests hit warm entries.
func (s *Server) RefreshTrending(ctx context.Context) error {
	for _, period := range []rank.Period{rank.PeriodDay, rank.PeriodWeek} {
		posts, err := s.trendingPosts(ctx, period, defaultPostLimit, "")
		if err != nil {
			return fmt.Errorf("refresh trending posts %s: %w", period, err)
		}
		s.cache.Set(fmt.Sprintf("trending:posts:%s::%d", period, defaultPostLimit), posts, s.ttl)
	}

	tags, err := s.trendingTags(ctx, rank.PeriodDay, defaultTagLimit)
	if err != nil {
		return fmt.Errorf("refresh trending tags: %w", err)
	}
	s.cache.Set(fmt.Sprintf("trending:tags:%s:%d", rank.PeriodDay, defaultTagLimit), tags, s.ttl)

	users, err := s.trendingUsers(ctx, rank.PeriodWeek, defaultUserLimit)
	if err != nil {
		return fmt.Errorf("refresh trending users: %w", err)
	}
	s.cache.Set(fmt.Sprintf("trending:users:%s:%d", rank.PeriodWeek, defaultUserLimit), users, s.ttl)

	return nil
}

func limitParam(r *http.Request, def int) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n <= 0 || n > maxLimit {
		return def
	}
	return n
}

func offsetParam(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("offset"))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func writeList(w http.ResponseWriter, data any, count int) {
	writeJSON(w, http.StatusOK, map[string]any{
		"data":  data,
		"count": count,
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
