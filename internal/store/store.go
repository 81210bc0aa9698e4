package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/dailybase/feedrank/pkg/rank"
)

// User is an account row. Users connect with a wallet; the handle and
// display name come from their profile.
type User struct {
	ID          string    `db:"id" json:"id"`
	Wallet      string    `db:"wallet" json:"wallet"`
	Handle      string    `db:"handle" json:"handle"`
	DisplayName string    `db:"display_name" json:"display_name"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Post is a journal entry row.
type Post struct {
	ID         string    `db:"id" json:"id"`
	AuthorID   string    `db:"author_id" json:"author_id"`
	Body       string    `db:"body" json:"body"`
	Tags       []string  `db:"-" json:"tags"`
	TagsJSON   string    `db:"tags" json:"-"`
	Visibility string    `db:"visibility" json:"visibility"`
	Hidden     bool      `db:"hidden" json:"hidden"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Analytics is the denormalized engagement counter row for one post.
type Analytics struct {
	PostID         string  `db:"post_id" json:"post_id"`
	Views          int     `db:"views" json:"views"`
	Likes          int     `db:"likes" json:"likes"`
	Comments       int     `db:"comments" json:"comments"`
	Reposts        int     `db:"reposts" json:"reposts"`
	Shares         int     `db:"shares" json:"shares"`
	EngagementRate float64 `db:"engagement_rate" json:"engagement_rate"`
}

// Store is the persistence interface. The ranking packages never touch it
// directly; the server and CLI fetch candidates here and hand them to the
// pure scoring code.
type Store interface {
	UpsertUser(ctx context.Context, u *User) error
	UpsertPost(ctx context.Context, p *Post) error
	UpsertAnalytics(ctx context.Context, a *Analytics) error
	AddLike(ctx context.Context, userID, postID string, at time.Time) error
	AddComment(ctx context.Context, id, userID, postID, body string, at time.Time) error
	AddRepost(ctx context.Context, userID, postID string, at time.Time) error
	AddFollow(ctx context.Context, followerID, followeeID string, at time.Time) error

	// CandidatePosts returns public, non-hidden posts created since the
	// given instant, newest first, with analytics attached where present.
	CandidatePosts(ctx context.Context, since time.Time, limit int) ([]rank.Post, error)

	// UserActivity returns per-user activity counts restricted to the
	// window, plus follower counts and the mean stored engagement rate of
	// each user's posts.
	UserActivity(ctx context.Context, since time.Time, limit int) ([]rank.UserStats, error)

	// Feed accessors (feed.Source).
	FollowingCount(ctx context.Context, userID string) (int, error)
	FollowedPosts(ctx context.Context, userID string, limit, offset int) ([]rank.Post, error)
	TrendingPosts(ctx context.Context, since time.Time, limit, offset int) ([]rank.Post, error)
	LikedPosts(ctx context.Context, userID string) ([]rank.Post, error)
	CommentedPosts(ctx context.Context, userID string) ([]rank.Post, error)
	AuthoredPosts(ctx context.Context, userID string) ([]rank.Post, error)

	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

// New opens a SQLite database and runs migrations.
func New(path string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) UpsertUser(ctx context.Context, u *User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, wallet, handle, display_name, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			handle = excluded.handle,
			display_name = excluded.display_name
	`, u.ID, u.Wallet, u.Handle, u.DisplayName, u.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert user %s: %w", u.ID, err)
	}
	return nil
}

func (s *SQLiteStore) UpsertPost(ctx context.Context, p *Post) error {
	tagsJSON, _ := json.Marshal(p.Tags)
	visibility := p.Visibility
	if visibility == "" {
		visibility = "public"
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO posts (id, author_id, body, tags, visibility, hidden, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			body = excluded.body,
			tags = excluded.tags,
			visibility = excluded.visibility,
			hidden = excluded.hidden
	`, p.ID, p.AuthorID, p.Body, string(tagsJSON), visibility, p.Hidden, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert post %s: %w", p.ID, err)
	}
	return nil
}

func (s *SQLiteStore) UpsertAnalytics(ctx context.Context, a *Analytics) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO post_analytics (post_id, views, likes, comments, reposts, shares, engagement_rate)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(post_id) DO UPDATE SET
			views = excluded.views,
			likes = excluded.likes,
			comments = excluded.comments,
			reposts = excluded.reposts,
			shares = excluded.shares,
			engagement_rate = excluded.engagement_rate
	`, a.PostID, a.Views, a.Likes, a.Comments, a.Reposts, a.Shares, a.EngagementRate)
	if err != nil {
		return fmt.Errorf("upsert analytics %s: %w", a.PostID, err)
	}
	return nil
}

func (s *SQLiteStore) AddLike(ctx context.Context, userID, postID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO likes (user_id, post_id, created_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id, post_id) DO NOTHING
	`, userID, postID, at)
	if err != nil {
		return fmt.Errorf("add like %s/%s: %w", userID, postID, err)
	}
	return nil
}

func (s *SQLiteStore) AddComment(ctx context.Context, id, userID, postID, body string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO comments (id, user_id, post_id, body, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, id, userID, postID, body, at)
	if err != nil {
		return fmt.Errorf("add comment %s: %w", id, err)
	}
	return nil
}

func (s *SQLiteStore) AddRepost(ctx context.Context, userID, postID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reposts (user_id, post_id, created_at) VALUES (?, ?, ?)
		ON CONFLICT(user_id, post_id) DO NOTHING
	`, userID, postID, at)
	if err != nil {
		return fmt.Errorf("add repost %s/%s: %w", userID, postID, err)
	}
	return nil
}

func (s *SQLiteStore) AddFollow(ctx context.Context, followerID, followeeID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO follows (follower_id, followee_id, created_at) VALUES (?, ?, ?)
		ON CONFLICT(follower_id, followee_id) DO NOTHING
	`, followerID, followeeID, at)
	if err != nil {
		return fmt.Errorf("add follow %s -> %s: %w", followerID, followeeID, err)
	}
	return nil
}

// postRow is a post joined with its (possibly missing) analytics row.
type postRow struct {
	ID          string          `db:"id"`
	AuthorID    string          `db:"author_id"`
	TagsJSON    string          `db:"tags"`
	CreatedAt   time.Time       `db:"created_at"`
	AnalyticsID sql.NullString  `db:"analytics_id"`
	Views       sql.NullInt64   `db:"views"`
	Likes       sql.NullInt64   `db:"likes"`
	Comments    sql.NullInt64   `db:"comments"`
	Reposts     sql.NullInt64   `db:"reposts"`
	Shares      sql.NullInt64   `db:"shares"`
	Rate        sql.NullFloat64 `db:"engagement_rate"`
}

func (r postRow) toPost() rank.Post {
	p := rank.Post{
		ID:        r.ID,
		AuthorID:  r.AuthorID,
		CreatedAt: r.CreatedAt,
	}
	json.Unmarshal([]byte(r.TagsJSON), &p.Tags)
	if r.AnalyticsID.Valid {
		p.Counts = &rank.Counts{
			Views:          int(r.Views.Int64),
			Likes:          int(r.Likes.Int64),
			Comments:       int(r.Comments.Int64),
			Reposts:        int(r.Reposts.Int64),
			Shares:         int(r.Shares.Int64),
			EngagementRate: r.Rate.Float64,
		}
	}
	return p
}

const postColumns = `
	p.id, p.author_id, p.tags, p.created_at,
	a.post_id AS analytics_id, a.views, a.likes, a.comments, a.reposts, a.shares, a.engagement_rate
`

func (s *SQLiteStore) selectPosts(ctx context.Context, query string, args ...any) ([]rank.Post, error) {
	var rows []postRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	posts := make([]rank.Post, len(rows))
	for i, r := range rows {
		posts[i] = r.toPost()
	}
	return posts, nil
}

func (s *SQLiteStore) CandidatePosts(ctx context.Context, since time.Time, limit int) ([]rank.Post, error) {
	if limit <= 0 {
		limit = 1000
	}
	posts, err := s.selectPosts(ctx, `
		SELECT `+postColumns+`
		FROM posts p
		LEFT JOIN post_analytics a ON a.post_id = p.id
		WHERE p.visibility = 'public' AND p.hidden = 0 AND p.created_at >= ?
		ORDER BY p.created_at DESC
		LIMIT ?
	`, since, limit)
	if err != nil {
		return nil, fmt.Errorf("candidate posts: %w", err)
	}
	return posts, nil
}

func (s *SQLiteStore) UserActivity(ctx context.Context, since time.Time, limit int) ([]rank.UserStats, error) {
	if limit <= 0 {
		limit = 1000
	}

	type row struct {
		ID        string  `db:"id"`
		Posts     int     `db:"posts"`
		Likes     int     `db:"likes"`
		Comments  int     `db:"comments"`
		Reposts   int     `db:"reposts"`
		Followers int     `db:"followers"`
		Rate      float64 `db:"engagement_rate"`
	}

	var rows []row
	err := s.db.SelectContext(ctx, &rows, `
		SELECT u.id,
			(SELECT COUNT(*) FROM posts p WHERE p.author_id = u.id AND p.created_at >= ?) AS posts,
			(SELECT COUNT(*) FROM likes l WHERE l.user_id = u.id AND l.created_at >= ?) AS likes,
			(SELECT COUNT(*) FROM comments c WHERE c.user_id = u.id AND c.created_at >= ?) AS comments,
			(SELECT COUNT(*) FROM reposts r WHERE r.user_id = u.id AND r.created_at >= ?) AS reposts,
			(SELECT COUNT(*) FROM follows f WHERE f.followee_id = u.id) AS followers,
			COALESCE((
				SELECT AVG(a.engagement_rate)
				FROM post_analytics a
				JOIN posts p2 ON p2.id = a.post_id
				WHERE p2.author_id = u.id
			), 0) AS engagement_rate
		FROM users u
		LIMIT ?
	`, since, since, since, since, limit)
	if err != nil {
		return nil, fmt.Errorf("user activity: %w", err)
	}

	stats := make([]rank.UserStats, len(rows))
	for i, r := range rows {
		stats[i] = rank.UserStats{
			ID:             r.ID,
			Posts:          r.Posts,
			Likes:          r.Likes,
			Comments:       r.Comments,
			Reposts:        r.Reposts,
			Followers:      r.Followers,
			EngagementRate: r.Rate,
		}
	}
	return stats, nil
}

func (s *SQLiteStore) FollowingCount(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n,
		"SELECT COUNT(*) FROM follows WHERE follower_id = ?", userID)
	if err != nil {
		return 0, fmt.Errorf("following count %s: %w", userID, err)
	}
	return n, nil
}

func (s *SQLiteStore) FollowedPosts(ctx context.Context, userID string, limit, offset int) ([]rank.Post, error) {
	if limit < 0 {
		limit = 0
	}
	posts, err := s.selectPosts(ctx, `
		SELECT `+postColumns+`
		FROM posts p
		JOIN follows f ON f.followee_id = p.author_id AND f.follower_id = ?
		LEFT JOIN post_analytics a ON a.post_id = p.id
		WHERE p.visibility = 'public' AND p.hidden = 0
		ORDER BY p.created_at DESC
		LIMIT ? OFFSET ?
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("followed posts %s: %w", userID, err)
	}
	return posts, nil
}

func (s *SQLiteStore) TrendingPosts(ctx context.Context, since time.Time, limit, offset int) ([]rank.Post, error) {
	if limit < 0 {
		limit = 0
	}
	posts, err := s.selectPosts(ctx, `
		SELECT `+postColumns+`
		FROM posts p
		LEFT JOIN post_analytics a ON a.post_id = p.id
		WHERE p.visibility = 'public' AND p.hidden = 0 AND p.created_at >= ?
		ORDER BY COALESCE(a.likes, 0) DESC, p.created_at DESC
		LIMIT ? OFFSET ?
	`, since, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("trending posts: %w", err)
	}
	return posts, nil
}

func (s *SQLiteStore) LikedPosts(ctx context.Context, userID string) ([]rank.Post, error) {
	posts, err := s.selectPosts(ctx, `
		SELECT `+postColumns+`
		FROM posts p
		LEFT JOIN post_analytics a ON a.post_id = p.id
		WHERE p.id IN (SELECT post_id FROM likes WHERE user_id = ?)
		ORDER BY p.created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("liked posts %s: %w", userID, err)
	}
	return posts, nil
}

func (s *SQLiteStore) CommentedPosts(ctx context.Context, userID string) ([]rank.Post, error) {
	posts, err := s.selectPosts(ctx, `
		SELECT `+postColumns+`
		FROM posts p
		LEFT JOIN post_analytics a ON a.post_id = p.id
		WHERE p.id IN (SELECT post_id FROM comments WHERE user_id = ?)
		ORDER BY p.created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("commented posts %s: %w", userID, err)
	}
	return posts, nil
}

func (s *SQLiteStore) AuthoredPosts(ctx context.Context, userID string) ([]rank.Post, error) {
	posts, err := s.selectPosts(ctx, `
		SELECT `+postColumns+`
		FROM posts p
		LEFT JOIN post_analytics a ON a.post_id = p.id
		WHERE p.author_id = ?
		ORDER BY p.created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("authored posts %s: %w", userID, err)
	}
	return posts, nil
}
