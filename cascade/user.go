package cascade

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// User is a canonical account identifier: a trimmed, lowercased username.
type User string

// Normalize maps a raw username onto its canonical User.
func Normalize(s string) User {
	// Casers keep state between calls, so one is built per call to stay
	// safe under the assembler's worker pool.
	return User(cases.Lower(language.Und).String(strings.TrimSpace(s)))
}

// NormalizeAll normalizes every entry of s, preserving order.
func NormalizeAll(s []string) []User {
	r := make([]User, 0, len(s))
	for _, v := range s {
		r = append(r, Normalize(v))
	}
	return r
}

// Set is a membership set of users.
type Set map[User]struct{}

func NewSet(users []User) Set {
	s := make(Set, len(users))
	for _, u := range users {
		s[u] = struct{}{}
	}
	return s
}

func (s Set) Has(u User) bool {
	_, ok := s[u]
	return ok
}

func (s Set) Add(u User) { s[u] = struct{}{} }
