package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rusni-pyzda/twitter-cascades/cascade"
	"github.com/rusni-pyzda/twitter-cascades/twitter"
)

// Cursor scopes.
const (
	ScopeSearch    = "search"
	ScopeFollowing = "following"
)

func setCursor(ctx context.Context, ex execer, scope, key, token string) error {
	done := 0
	if token == "" {
		done = 1
	}
	_, err := ex.ExecContext(ctx,
		`INSERT INTO cursors (scope, key, token, done) VALUES (?, ?, ?, ?)
		 ON CONFLICT(scope, key) DO UPDATE SET token = excluded.token, done = excluded.done`,
		scope, key, token, done)
	if err != nil {
		return fmt.Errorf("saving %s cursor for %q: %w", scope, key, err)
	}
	return nil
}

// Cursor returns the pagination token to resume scope/key from, and
// whether pagination already reached the last page. An unknown key has an
// empty token and is not done.
func (s *Store) Cursor(ctx context.Context, scope, key string) (token string, done bool, err error) {
	err = s.db.QueryRowContext(ctx,
		`SELECT token, done FROM cursors WHERE scope = ? AND key = ?`, scope, key,
	).Scan(&token, &done)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	return token, done, err
}

// AppendFollowingPage appends a page of followees to userID's list and
// advances the user's following cursor in one transaction. An empty
// nextToken marks the list complete.
func (s *Store) AppendFollowingPage(ctx context.Context, userID string, page twitter.FollowingPage) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		var next int
		if err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(position) + 1, 0) FROM following WHERE user_id = ?`, userID,
		).Scan(&next); err != nil {
			return fmt.Errorf("reading following position of %s: %w", userID, err)
		}
		for i, u := range page.Users {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO following (user_id, position, followee_id, followee_username) VALUES (?, ?, ?, ?)`,
				userID, next+i, u.ID, u.Username)
			if err != nil {
				return fmt.Errorf("appending followee of %s: %w", userID, err)
			}
		}
		if err := upsertUsers(ctx, tx, page.Users); err != nil {
			return err
		}
		return setCursor(ctx, tx, ScopeFollowing, userID, page.NextToken)
	})
}

// FollowingIndex loads every stored following list, keyed by username, in
// retrieval order. Users whose username is unknown are left out.
func (s *Store) FollowingIndex(ctx context.Context) (*cascade.FollowingIndex, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT u.username, f.followee_username
		 FROM following f JOIN users u ON u.id = f.user_id
		 ORDER BY f.user_id, f.position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ix := cascade.NewFollowingIndex()
	for rows.Next() {
		var user, followee string
		if err := rows.Scan(&user, &followee); err != nil {
			return nil, err
		}
		ix.Add(user, followee)
	}
	return ix, rows.Err()
}
