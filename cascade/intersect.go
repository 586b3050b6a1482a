package cascade

// Intersect returns the elements of a that are members of b, in the order
// they appear in a. Duplicates in a are kept.
func Intersect(a []User, b Set) []User {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	var r []User
	for _, u := range a {
		if b.Has(u) {
			r = append(r, u)
		}
	}
	return r
}
