// Package state persists collected tweets, follow graphs and built edges in
// a sqlite database shared by the collect, build and render binaries.
package state

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rusni-pyzda/twitter-cascades/twitter"
)

type Store struct {
	db *sql.DB
}

// New opens (or creates) the database at path and migrates the schema.
func New(path string) (*Store, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(60000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id       TEXT PRIMARY KEY,
		username TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tweets (
		id         TEXT PRIMARY KEY,
		created_at TEXT NOT NULL,
		author_id  TEXT NOT NULL,
		retweet_of TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_tweets_retweet_of ON tweets(retweet_of, created_at);

	CREATE TABLE IF NOT EXISTS following (
		user_id           TEXT NOT NULL,
		position          INTEGER NOT NULL,
		followee_id       TEXT NOT NULL,
		followee_username TEXT NOT NULL,
		PRIMARY KEY (user_id, position)
	);

	CREATE TABLE IF NOT EXISTS cursors (
		scope TEXT NOT NULL,
		key   TEXT NOT NULL,
		token TEXT NOT NULL DEFAULT '',
		done  INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (scope, key)
	);

	CREATE TABLE IF NOT EXISTS edges (
		cascade_id     INTEGER NOT NULL,
		seq            INTEGER NOT NULL,
		source         TEXT NOT NULL,
		target         TEXT NOT NULL,
		time           TEXT NOT NULL,
		content_id     TEXT NOT NULL,
		retweet_id     TEXT NOT NULL,
		ref_user       TEXT NOT NULL,
		seen           TEXT NOT NULL,
		ranked         TEXT NOT NULL,
		follow_ordered TEXT NOT NULL,
		PRIMARY KEY (cascade_id, seq)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// timeLayout is fixed width so stored times sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func upsertUsers(ctx context.Context, ex execer, users []twitter.TwitterUser) error {
	for _, u := range users {
		if u.ID == "" || u.Username == "" {
			continue
		}
		_, err := ex.ExecContext(ctx,
			`INSERT INTO users (id, username) VALUES (?, ?)
			 ON CONFLICT(id) DO UPDATE SET username = excluded.username`,
			u.ID, u.Username)
		if err != nil {
			return fmt.Errorf("upserting user %s: %w", u.ID, err)
		}
	}
	return nil
}

func insertTweets(ctx context.Context, ex execer, tweets []twitter.Tweet) error {
	for _, t := range tweets {
		_, err := ex.ExecContext(ctx,
			`INSERT OR IGNORE INTO tweets (id, created_at, author_id, retweet_of) VALUES (?, ?, ?, ?)`,
			t.ID, formatTime(t.CreatedAt), t.AuthorID, t.RetweetOf())
		if err != nil {
			return fmt.Errorf("inserting tweet %s: %w", t.ID, err)
		}
	}
	return nil
}

// UpsertUsers records id to username mappings, newest username winning.
func (s *Store) UpsertUsers(ctx context.Context, users []twitter.TwitterUser) error {
	return s.inTx(ctx, func(tx *sql.Tx) error { return upsertUsers(ctx, tx, users) })
}

// InsertTweets stores tweets; tweets already present are left untouched.
func (s *Store) InsertTweets(ctx context.Context, tweets []twitter.Tweet) error {
	return s.inTx(ctx, func(tx *sql.Tx) error { return insertTweets(ctx, tx, tweets) })
}

// SaveSearchPage stores a page of search results and advances the search
// cursor in one transaction, so an interrupted collection resumes at the
// first page not stored.
func (s *Store) SaveSearchPage(ctx context.Context, key string, page twitter.SearchPage) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := upsertUsers(ctx, tx, page.Users()); err != nil {
			return err
		}
		if err := insertTweets(ctx, tx, page.AllTweets()); err != nil {
			return err
		}
		return setCursor(ctx, tx, ScopeSearch, key, page.NextToken)
	})
}

// Retweeters returns the ids of every author of a stored retweet.
func (s *Store) Retweeters(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT author_id FROM tweets WHERE retweet_of != ''
		 ORDER BY length(author_id), author_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var r []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		r = append(r, id)
	}
	return r, rows.Err()
}
