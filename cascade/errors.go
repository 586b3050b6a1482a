package cascade

import (
	"errors"
	"fmt"
)

var (
	ErrNoRetweeters   = errors.New("post has no retweets")
	ErrMissingRefUser = errors.New("post has no original poster")
	ErrOutOfOrder     = errors.New("retweets are not in timestamp order")
)

// PostError reports a problem with a single post.
type PostError struct {
	ContentID string
	CascadeID int
	Err       error
}

func (e *PostError) Error() string {
	return fmt.Sprintf("post %q (cascade %d): %s", e.ContentID, e.CascadeID, e.Err)
}

func (e *PostError) Unwrap() error { return e.Err }
