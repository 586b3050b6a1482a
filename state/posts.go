package state

import (
	"context"
	"fmt"
	"time"

	"github.com/rusni-pyzda/twitter-cascades/cascade"
)

// Posts groups the stored retweets by the post they retweet. Retweets of
// posts that were never stored are out of scope and dropped. Retweeters
// are named by username, falling back to their id; an original poster
// without a known username is left empty so the builder reports the post.
// Posts come ordered by numeric id, retweets by time.
func (s *Store) Posts(ctx context.Context) ([]cascade.Post, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.retweet_of, r.id, r.created_at,
		       COALESCE(ru.username, r.author_id),
		       COALESCE(ou.username, '')
		FROM tweets r
		JOIN tweets o ON o.id = r.retweet_of
		LEFT JOIN users ru ON ru.id = r.author_id
		LEFT JOIN users ou ON ou.id = o.author_id
		WHERE r.retweet_of != ''
		ORDER BY length(r.retweet_of), r.retweet_of, r.created_at, length(r.id), r.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []cascade.Post
	for rows.Next() {
		var contentID, id, created, user, ref string
		if err := rows.Scan(&contentID, &id, &created, &user, &ref); err != nil {
			return nil, err
		}
		ts, err := time.Parse(timeLayout, created)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at of tweet %s: %w", id, err)
		}
		if len(posts) == 0 || posts[len(posts)-1].ContentID != contentID {
			posts = append(posts, cascade.Post{ContentID: contentID, RefUser: cascade.Normalize(ref)})
		}
		p := &posts[len(posts)-1]
		p.Retweets = append(p.Retweets, cascade.Retweet{
			User: cascade.Normalize(user),
			Time: ts,
			ID:   id,
		})
	}
	return posts, rows.Err()
}
