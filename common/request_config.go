package common

import (
	"net/url"
	"strconv"
	"strings"
)

type RequestConfig struct {
	Expansions  []string `yaml:"expansions,omitempty" json:",omitempty"`
	TweetFields []string `yaml:"tweet_fields,omitempty" json:",omitempty"`
	UserFields  []string `yaml:"user_fields,omitempty" json:",omitempty"`
}

// QueryParams encodes the field selection, plus max_results when positive.
func (c RequestConfig) QueryParams(maxResults int) url.Values {
	params := url.Values{}
	if len(c.Expansions) > 0 {
		params.Set("expansions", strings.Join(c.Expansions, ","))
	}
	if len(c.TweetFields) > 0 {
		params.Set("tweet.fields", strings.Join(c.TweetFields, ","))
	}
	if len(c.UserFields) > 0 {
		params.Set("user.fields", strings.Join(c.UserFields, ","))
	}
	if maxResults > 0 {
		params.Set("max_results", strconv.Itoa(maxResults))
	}
	return params
}

// UsersOnly drops everything but the user fields, for endpoints that
// return users rather than tweets.
func (c RequestConfig) UsersOnly() RequestConfig {
	return RequestConfig{UserFields: c.UserFields}
}
