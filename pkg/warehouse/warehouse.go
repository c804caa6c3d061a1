// Package warehouse exports labeled batches to a Postgres warehouse for
// downstream content analysis.
package warehouse

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/emilyfeng/viralscope/pkg/engine"
)

// Uploader writes labeled posts into a warehouse table.
type Uploader struct {
	db    *sqlx.DB
	table string
}

// New connects to the warehouse. The table name is interpolated into
// DDL/DML, so it must come from configuration, never request input.
func New(dsn, table string) (*Uploader, error) {
	if table == "" {
		table = "labeled_posts"
	}
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect warehouse: %w", err)
	}
	return &Uploader{db: db, table: table}, nil
}

func (u *Uploader) Close() error {
	return u.db.Close()
}

// EnsureTable creates the warehouse table if missing.
func (u *Uploader) EnsureTable(ctx context.Context) error {
	ddl := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			run_id      TEXT NOT NULL,
			dataset     TEXT NOT NULL,
			account_id  TEXT NOT NULL,
			post_id     TEXT NOT NULL DEFAULT '',
			url         TEXT NOT NULL DEFAULT '',
			posted_at   TIMESTAMP,
			likes       DOUBLE PRECISION NOT NULL DEFAULT 0,
			views       DOUBLE PRECISION NOT NULL DEFAULT 0,
			comments    DOUBLE PRECISION NOT NULL DEFAULT 0,
			duration    DOUBLE PRECISION NOT NULL DEFAULT 0,
			post_number INTEGER NOT NULL,
			avg_last_50 DOUBLE PRECISION,
			viral       BOOLEAN NOT NULL,
			PRIMARY KEY (run_id, dataset, account_id, post_id, posted_at)
		)`, u.table)
	if _, err := u.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure warehouse table %s: %w", u.table, err)
	}
	return nil
}

// UploadRun inserts one labeled batch under a run id. The whole batch
// commits or rolls back as a unit.
func (u *Uploader) UploadRun(ctx context.Context, runID, dataset string, posts []engine.Post) error {
	if len(posts) == 0 {
		return nil
	}

	tx, err := u.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin warehouse upload: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (run_id, dataset, account_id, post_id, url, posted_at, likes, views, comments, duration, post_number, avg_last_50, viral)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT DO NOTHING
	`, u.table))
	if err != nil {
		return fmt.Errorf("prepare warehouse insert: %w", err)
	}
	defer stmt.Close()

	for i := range posts {
		p := &posts[i]
		var avg any
		if p.AvgLast50 != nil {
			avg = *p.AvgLast50
		}
		if _, err := stmt.ExecContext(ctx, runID, dataset, p.AccountID, p.PostID, p.URL,
			p.PostedAt, p.Likes, p.Views, p.Comments, p.Duration,
			p.PostNumber, avg, p.Viral); err != nil {
			return fmt.Errorf("upload post %s: %w", p.PostID, err)
		}
	}
	return tx.Commit()
}
