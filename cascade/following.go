package cascade

// FollowingIndex maps each user to the accounts they follow, in the order
// the follow graph was retrieved. It is filled once with Add and is
// read-only afterwards, so lookups are safe from concurrent workers.
type FollowingIndex struct {
	following map[User][]User
}

func NewFollowingIndex() *FollowingIndex {
	return &FollowingIndex{following: map[User][]User{}}
}

// Add appends following to the list of user. Both sides are normalized, so
// spellings that differ only by case land on the same entry.
func (ix *FollowingIndex) Add(user string, following ...string) {
	u := Normalize(user)
	ix.following[u] = append(ix.following[u], NormalizeAll(following)...)
}

// Len returns the number of users with a following list.
func (ix *FollowingIndex) Len() int { return len(ix.following) }

// Ordered returns the accounts u follows with the most recently followed
// first. A user missing from the index follows nobody.
func (ix *FollowingIndex) Ordered(u User) []User {
	f := ix.following[Normalize(string(u))]
	r := make([]User, len(f))
	for i, v := range f {
		r[len(f)-1-i] = v
	}
	return r
}
