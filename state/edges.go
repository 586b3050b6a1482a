package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rusni-pyzda/twitter-cascades/cascade"
)

var _ cascade.Sink = (*Store)(nil)

func encodeUsers(us []cascade.User) (string, error) {
	if us == nil {
		us = []cascade.User{}
	}
	b, err := json.Marshal(us)
	return string(b), err
}

func decodeUsers(s string) ([]cascade.User, error) {
	var us []cascade.User
	if err := json.Unmarshal([]byte(s), &us); err != nil {
		return nil, err
	}
	return us, nil
}

func insertEdges(ctx context.Context, ex execer, cascadeID int, edges []cascade.Edge) error {
	for seq, e := range edges {
		seen, err := encodeUsers(e.Seen)
		if err != nil {
			return err
		}
		ranked, err := encodeUsers(e.Ranked)
		if err != nil {
			return err
		}
		followOrdered, err := encodeUsers(e.FollowOrdered)
		if err != nil {
			return err
		}
		_, err = ex.ExecContext(ctx,
			`INSERT OR REPLACE INTO edges
			 (cascade_id, seq, source, target, time, content_id, retweet_id, ref_user, seen, ranked, follow_ordered)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			cascadeID, seq, string(e.Source), string(e.Target), formatTime(e.Time),
			e.ContentID, e.RetweetID, string(e.RefUser), seen, ranked, followOrdered)
		if err != nil {
			return fmt.Errorf("inserting edge %d/%d: %w", cascadeID, seq, err)
		}
	}
	return nil
}

// WriteCascade stores the edges of one cascade, replacing any earlier
// edges with the same cascade id and position.
func (s *Store) WriteCascade(ctx context.Context, cascadeID int, edges []cascade.Edge) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		return insertEdges(ctx, tx, cascadeID, edges)
	})
}

type rebuildSink struct {
	tx *sql.Tx
}

func (r rebuildSink) WriteCascade(ctx context.Context, cascadeID int, edges []cascade.Edge) error {
	return insertEdges(ctx, r.tx, cascadeID, edges)
}

// RebuildEdges replaces the stored edges with the ones fn writes to the sink
// it is handed. Nothing changes unless fn returns nil and the commit
// succeeds. The sink must not be used after fn returns.
func (s *Store) RebuildEdges(ctx context.Context, fn func(cascade.Sink) error) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM edges`); err != nil {
			return fmt.Errorf("clearing edges: %w", err)
		}
		return fn(rebuildSink{tx: tx})
	})
}

// EachEdge calls fn for every stored edge in cascade order, stopping at the
// first error.
func (s *Store) EachEdge(ctx context.Context, fn func(cascade.Edge) error) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT cascade_id, source, target, time, content_id, retweet_id, ref_user, seen, ranked, follow_ordered
		 FROM edges ORDER BY cascade_id, seq`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			e                           cascade.Edge
			source, target, ref, ts     string
			seen, ranked, followOrdered string
		)
		if err := rows.Scan(&e.CascadeID, &source, &target, &ts, &e.ContentID, &e.RetweetID, &ref, &seen, &ranked, &followOrdered); err != nil {
			return err
		}
		e.Source, e.Target, e.RefUser = cascade.User(source), cascade.User(target), cascade.User(ref)
		if e.Time, err = time.Parse(timeLayout, ts); err != nil {
			return fmt.Errorf("parsing edge time: %w", err)
		}
		if e.Seen, err = decodeUsers(seen); err != nil {
			return fmt.Errorf("decoding seen chain: %w", err)
		}
		if e.Ranked, err = decodeUsers(ranked); err != nil {
			return fmt.Errorf("decoding ranked candidates: %w", err)
		}
		if e.FollowOrdered, err = decodeUsers(followOrdered); err != nil {
			return fmt.Errorf("decoding follow-ordered candidates: %w", err)
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return rows.Err()
}
