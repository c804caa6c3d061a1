package store

const schema = `
CREATE TABLE IF NOT EXISTS posts (
    id           TEXT PRIMARY KEY,
    dataset      TEXT NOT NULL,
    account_id   TEXT NOT NULL,
    post_id      TEXT NOT NULL DEFAULT '',
    url          TEXT NOT NULL DEFAULT '',
    caption      TEXT NOT NULL DEFAULT '',
    posted_at    DATETIME NOT NULL,
    likes        REAL NOT NULL DEFAULT 0,
    views        REAL NOT NULL DEFAULT 0,
    comments     REAL NOT NULL DEFAULT 0,
    duration     REAL NOT NULL DEFAULT 0,
    post_number  INTEGER NOT NULL DEFAULT 0,
    avg_last_50  REAL,
    viral        BOOLEAN NOT NULL DEFAULT 0,
    collected_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_posts_dataset ON posts(dataset);
CREATE INDEX IF NOT EXISTS idx_posts_account ON posts(account_id);
CREATE INDEX IF NOT EXISTS idx_posts_posted_at ON posts(posted_at);
CREATE INDEX IF NOT EXISTS idx_posts_viral ON posts(viral);

CREATE TABLE IF NOT EXISTS label_runs (
    id          TEXT PRIMARY KEY,
    dataset     TEXT NOT NULL,
    "window"    INTEGER NOT NULL,
    multiplier  REAL NOT NULL,
    max_posts   INTEGER NOT NULL,
    min_posts   INTEGER NOT NULL,
    total       INTEGER NOT NULL DEFAULT 0,
    viral_count INTEGER NOT NULL DEFAULT 0,
    started_at  DATETIME NOT NULL,
    finished_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_started ON label_runs(started_at);

CREATE TABLE IF NOT EXISTS thresholds (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    dataset     TEXT NOT NULL,
    metric      TEXT NOT NULL,
    fraction    REAL NOT NULL,
    value       REAL NOT NULL,
    sample_size INTEGER NOT NULL,
    computed_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_thresholds_dataset ON thresholds(dataset, metric);
`
