package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/emilyfeng/viralscope/pkg/engine"
)

// PostRow is a post as persisted, tagged with the dataset it belongs to.
type PostRow struct {
	ID          string    `db:"id"`
	Dataset     string    `db:"dataset"`
	CollectedAt time.Time `db:"collected_at"`
	engine.Post
}

// LabelRun records one labeling batch and its parameters.
type LabelRun struct {
	ID         string    `db:"id" json:"id"`
	Dataset    string    `db:"dataset" json:"dataset"`
	Window     int       `db:"window" json:"window"`
	Multiplier float64   `db:"multiplier" json:"multiplier"`
	MaxPosts   int       `db:"max_posts" json:"max_posts"`
	MinPosts   int       `db:"min_posts" json:"min_posts"`
	Total      int       `db:"total" json:"total"`
	ViralCount int       `db:"viral_count" json:"viral_count"`
	StartedAt  time.Time `db:"started_at" json:"started_at"`
	FinishedAt time.Time `db:"finished_at" json:"finished_at"`
}

// ThresholdRow is a persisted calibration result.
type ThresholdRow struct {
	ID         int64     `db:"id" json:"id"`
	Dataset    string    `db:"dataset" json:"dataset"`
	Metric     string    `db:"metric" json:"metric"`
	Fraction   float64   `db:"fraction" json:"fraction"`
	Value      float64   `db:"value" json:"value"`
	SampleSize int       `db:"sample_size" json:"sample_size"`
	ComputedAt time.Time `db:"computed_at" json:"computed_at"`
}

// ListOpts controls post listing.
type ListOpts struct {
	Dataset string
	Account string
	Viral   *bool
	Limit   int
}

// Store is the persistence interface.
type Store interface {
	UpsertPosts(ctx context.Context, dataset string, posts []engine.Post) error
	ListPosts(ctx context.Context, opts ListOpts) ([]PostRow, error)
	SaveLabels(ctx context.Context, dataset string, posts []engine.Post) error
	CountByAccount(ctx context.Context, dataset string) (map[string]int, error)

	RecordRun(ctx context.Context, run *LabelRun) error
	ListRuns(ctx context.Context, limit int) ([]LabelRun, error)

	SaveThreshold(ctx context.Context, t *ThresholdRow) error
	ListThresholds(ctx context.Context, dataset string) ([]ThresholdRow, error)
	LatestThreshold(ctx context.Context, dataset, metric string) (*ThresholdRow, error)

	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

// New opens a SQLite database and runs migrations. Use ":memory:" for
// tests.
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

// postKey builds a stable primary key. Scrapes occasionally omit the
// post id, so the account and timestamp stand in.
func postKey(dataset string, p *engine.Post) string {
	if p.PostID != "" {
		return fmt.Sprintf("%s:%s", dataset, p.PostID)
	}
	return fmt.Sprintf("%s:%s:%d", dataset, p.AccountID, p.PostedAt.UnixNano())
}

func (s *SQLiteStore) UpsertPosts(ctx context.Context, dataset string, posts []engine.Post) error {
	now := time.Now().UTC()
	for i := range posts {
		p := &posts[i]
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO posts (id, dataset, account_id, post_id, url, caption, posted_at, likes, views, comments, duration, collected_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				likes = excluded.likes,
				views = excluded.views,
				comments = excluded.comments,
				duration = excluded.duration,
				caption = excluded.caption,
				collected_at = excluded.collected_at
		`, postKey(dataset, p), dataset, p.AccountID, p.PostID, p.URL, p.Caption,
			p.PostedAt, p.Likes, p.Views, p.Comments, p.Duration, now)
		if err != nil {
			return fmt.Errorf("upsert post %s: %w", p.PostID, err)
		}
	}
	return nil
}

// SaveLabels writes the label columns of a fresh labeling batch. Labels
// of posts the batch no longer covers (filtered or truncated accounts)
// are reset first, so stale verdicts never survive a rerun.
func (s *SQLiteStore) SaveLabels(ctx context.Context, dataset string, posts []engine.Post) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin label update: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"UPDATE posts SET post_number = 0, avg_last_50 = NULL, viral = 0 WHERE dataset = ?", dataset); err != nil {
		return fmt.Errorf("reset labels: %w", err)
	}

	for i := range posts {
		p := &posts[i]
		var avg any
		if p.AvgLast50 != nil {
			avg = *p.AvgLast50
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE posts SET post_number = ?, avg_last_50 = ?, viral = ? WHERE id = ?
		`, p.PostNumber, avg, p.Viral, postKey(dataset, p)); err != nil {
			return fmt.Errorf("save label %s: %w", p.PostID, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) ListPosts(ctx context.Context, opts ListOpts) ([]PostRow, error) {
	query := "SELECT * FROM posts WHERE 1=1"
	var args []any

	if opts.Dataset != "" {
		query += " AND dataset = ?"
		args = append(args, opts.Dataset)
	}
	if opts.Account != "" {
		query += " AND account_id = ?"
		args = append(args, opts.Account)
	}
	if opts.Viral != nil {
		query += " AND viral = ?"
		args = append(args, *opts.Viral)
	}

	query += " ORDER BY account_id, posted_at DESC"

	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	var rows []PostRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return rows, nil
}

func (s *SQLiteStore) CountByAccount(ctx context.Context, dataset string) (map[string]int, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT account_id, COUNT(*) as cnt FROM posts WHERE dataset = ? GROUP BY account_id", dataset)
	if err != nil {
		return nil, fmt.Errorf("count posts by account: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var account string
		var cnt int
		if err := rows.Scan(&account, &cnt); err != nil {
			return nil, err
		}
		counts[account] = cnt
	}
	return counts, rows.Err()
}

func (s *SQLiteStore) RecordRun(ctx context.Context, run *LabelRun) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO label_runs (id, dataset, "window", multiplier, max_posts, min_posts, total, viral_count, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Dataset, run.Window, run.Multiplier, run.MaxPosts, run.MinPosts,
		run.Total, run.ViralCount, run.StartedAt, run.FinishedAt)
	if err != nil {
		return fmt.Errorf("record run %s: %w", run.ID, err)
	}
	return nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]LabelRun, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []LabelRun
	err := s.db.SelectContext(ctx, &runs,
		"SELECT * FROM label_runs ORDER BY started_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

func (s *SQLiteStore) SaveThreshold(ctx context.Context, t *ThresholdRow) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO thresholds (dataset, metric, fraction, value, sample_size, computed_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, t.Dataset, t.Metric, t.Fraction, t.Value, t.SampleSize, t.ComputedAt)
	if err != nil {
		return fmt.Errorf("save threshold %s/%s: %w", t.Dataset, t.Metric, err)
	}
	t.ID, _ = res.LastInsertId()
	return nil
}

func (s *SQLiteStore) ListThresholds(ctx context.Context, dataset string) ([]ThresholdRow, error) {
	query := "SELECT * FROM thresholds"
	var args []any
	if dataset != "" {
		query += " WHERE dataset = ?"
		args = append(args, dataset)
	}
	query += " ORDER BY computed_at DESC"

	var rows []ThresholdRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list thresholds: %w", err)
	}
	return rows, nil
}

// LatestThreshold returns the newest calibration for a dataset and
// metric, or nil when none has been computed yet.
func (s *SQLiteStore) LatestThreshold(ctx context.Context, dataset, metric string) (*ThresholdRow, error) {
	var row ThresholdRow
	err := s.db.GetContext(ctx, &row, `
		SELECT * FROM thresholds WHERE dataset = ? AND metric = ?
		ORDER BY computed_at DESC LIMIT 1
	`, dataset, metric)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest threshold %s/%s: %w", dataset, metric, err)
	}
	return &row, nil
}
