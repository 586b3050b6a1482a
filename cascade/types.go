// Package cascade reconstructs diffusion cascades from retweet logs.
//
// For every retweet of an original post the builder infers the account the
// retweeter most plausibly saw the content through. Candidates are the
// original poster and everyone who retweeted earlier (the earlybirds),
// filtered down to the accounts the retweeter follows. When no candidate
// survives the filter the retweeter is assumed to have seen the original
// post directly.
package cascade

import (
	"sort"
	"time"
)

// Retweet is one retweet event of a post.
type Retweet struct {
	User User
	Time time.Time
	ID   string
}

// Post is an original post together with its retweets.
type Post struct {
	ContentID string
	RefUser   User
	Retweets  []Retweet
}

func (p Post) validate() error {
	if len(p.Retweets) == 0 {
		return ErrNoRetweeters
	}
	if Normalize(string(p.RefUser)) == "" {
		return ErrMissingRefUser
	}
	return nil
}

func (p Post) inTimeOrder() bool {
	for i := 1; i < len(p.Retweets); i++ {
		if p.Retweets[i].Time.Before(p.Retweets[i-1].Time) {
			return false
		}
	}
	return true
}

// sortedByTime returns a copy of p with retweets stable-sorted by time.
func (p Post) sortedByTime() Post {
	rts := make([]Retweet, len(p.Retweets))
	copy(rts, p.Retweets)
	sort.SliceStable(rts, func(i, j int) bool {
		return rts[i].Time.Before(rts[j].Time)
	})
	p.Retweets = rts
	return p
}

// Edge is an inferred exposure: Source was likely exposed to the content
// of ContentID through Target.
type Edge struct {
	Source    User
	Target    User
	Time      time.Time
	ContentID string
	CascadeID int
	RetweetID string
	RefUser   User

	// Seen is Ranked with everything up to and including the original
	// poster removed.
	Seen []User
	// Ranked holds the earlybirds the source follows, in retweet order.
	Ranked []User
	// FollowOrdered holds the same accounts in the source's following
	// order, most recently followed first.
	FollowOrdered []User
}

// Direct reports whether the edge points at the original poster.
func (e Edge) Direct() bool { return e.Target == e.RefUser }
