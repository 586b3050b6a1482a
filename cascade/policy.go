package cascade

import "fmt"

// Candidates is everything a TargetPolicy may look at when choosing the
// upstream account of one retweet.
type Candidates struct {
	Ref           User
	Earlybird     []User
	Ranked        []User
	FollowOrdered []User
}

// TargetPolicy picks the inferred exposer of a retweet. Implementations
// must return Ref or a member of Earlybird.
type TargetPolicy func(c Candidates) User

// LastEarlybird picks the latest earlybird the retweeter follows, falling
// back to the original poster.
func LastEarlybird(c Candidates) User {
	if len(c.Ranked) == 0 {
		return c.Ref
	}
	return c.Ranked[len(c.Ranked)-1]
}

// MostRecentFollow picks the earlybird the retweeter started following
// most recently, falling back to the original poster.
func MostRecentFollow(c Candidates) User {
	if len(c.FollowOrdered) == 0 {
		return c.Ref
	}
	return c.FollowOrdered[0]
}

const (
	PolicyEarlybird    = "earlybird"
	PolicyRecentFollow = "recent-follow"
)

// PolicyByName resolves a configured policy name. The empty name selects
// LastEarlybird.
func PolicyByName(name string) (TargetPolicy, error) {
	switch name {
	case "", PolicyEarlybird:
		return LastEarlybird, nil
	case PolicyRecentFollow:
		return MostRecentFollow, nil
	}
	return nil, fmt.Errorf("unknown target policy %q", name)
}
