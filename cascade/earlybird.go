package cascade

// Earlybirds holds the exposure candidates of every retweet of one post:
// the original poster followed by the retweeters in time order. The
// candidates of retweet i are the first i+2 entries, a view into a single
// backing slice.
type Earlybirds struct {
	seq []User
}

func NewEarlybirds(ref User, users []User) Earlybirds {
	seq := make([]User, 0, len(users)+1)
	seq = append(seq, ref)
	seq = append(seq, users...)
	return Earlybirds{seq: seq}
}

// Len returns the number of retweets covered.
func (e Earlybirds) Len() int { return len(e.seq) - 1 }

// At returns the candidates of retweet i: the original poster and the
// retweeters at positions 0..i. The view has its capacity clipped so an
// append by the caller cannot write into later candidates.
func (e Earlybirds) At(i int) []User {
	return e.seq[: i+2 : i+2]
}
