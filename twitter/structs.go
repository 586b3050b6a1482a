package twitter

import "time"

type ReferencedTweet struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type TwitterUser struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

type TweetIncludes struct {
	Users  []TwitterUser `json:"users,omitempty"`
	Tweets []Tweet       `json:"tweets,omitempty"`
}

type Tweet struct {
	ID               string            `json:"id"`
	Text             string            `json:"text"`
	CreatedAt        time.Time         `json:"created_at"`
	AuthorID         string            `json:"author_id"`
	ReferencedTweets []ReferencedTweet `json:"referenced_tweets,omitempty"`
}

// RetweetOf returns the id of the retweeted post, or "" if t is not a retweet.
func (t *Tweet) RetweetOf() string {
	for _, ref := range t.ReferencedTweets {
		if ref.Type == "retweeted" {
			return ref.ID
		}
	}
	return ""
}

type Meta struct {
	ResultCount int    `json:"result_count"`
	NextToken   string `json:"next_token"`
}

// SearchPage is one page of full-archive search results.
type SearchPage struct {
	Tweets    []Tweet
	Includes  TweetIncludes
	NextToken string
}

// Users returns the authors included with the page.
func (p SearchPage) Users() []TwitterUser { return p.Includes.Users }

// AllTweets returns the matched tweets followed by the referenced tweets
// included with them.
func (p SearchPage) AllTweets() []Tweet {
	r := make([]Tweet, 0, len(p.Tweets)+len(p.Includes.Tweets))
	r = append(r, p.Tweets...)
	return append(r, p.Includes.Tweets...)
}

// FollowingPage is one page of the accounts a user follows, in the order
// the API returned them.
type FollowingPage struct {
	Users     []TwitterUser
	NextToken string
}
