package cascade

// Resolver assigns an upstream exposer to every retweet of a post.
type Resolver struct {
	index  *FollowingIndex
	policy TargetPolicy
}

// NewResolver returns a Resolver reading index. A nil policy selects
// LastEarlybird.
func NewResolver(index *FollowingIndex, policy TargetPolicy) *Resolver {
	if index == nil {
		index = NewFollowingIndex()
	}
	if policy == nil {
		policy = LastEarlybird
	}
	return &Resolver{index: index, policy: policy}
}

// Resolve returns one edge per retweet of post, in retweet order. The
// retweets must already be sorted by time.
func (r *Resolver) Resolve(post Post, cascadeID int) []Edge {
	ref := Normalize(string(post.RefUser))
	users := make([]User, len(post.Retweets))
	for i, rt := range post.Retweets {
		users[i] = Normalize(string(rt.User))
	}
	earlybirds := NewEarlybirds(ref, users)
	// Grows alongside the earlybird views: always the set of At(i).
	seen := Set{ref: {}}

	edges := make([]Edge, 0, len(users))
	for i, u := range users {
		seen.Add(u)
		candidates := earlybirds.At(i)
		following := r.index.Ordered(u)

		c := Candidates{
			Ref:           ref,
			Earlybird:     candidates,
			Ranked:        Intersect(candidates, NewSet(following)),
			FollowOrdered: Intersect(following, seen),
		}
		rt := post.Retweets[i]
		edges = append(edges, Edge{
			Source:        u,
			Target:        r.policy(c),
			Time:          rt.Time,
			ContentID:     post.ContentID,
			CascadeID:     cascadeID,
			RetweetID:     rt.ID,
			RefUser:       ref,
			Seen:          SeenChain(c.Ranked, ref),
			Ranked:        c.Ranked,
			FollowOrdered: c.FollowOrdered,
		})
	}
	return edges
}

// SeenChain trims ranked to the part after the first occurrence of ref.
// When ref does not occur, ranked is returned unchanged.
func SeenChain(ranked []User, ref User) []User {
	for i, u := range ranked {
		if u == ref {
			return ranked[i+1:]
		}
	}
	return ranked
}
