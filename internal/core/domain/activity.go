package domain

import (
	"errors"
	"strings"
)

// Verb is a normalized activity verb.
type Verb string

const (
	VerbPost     Verb = "post"
	VerbFollow   Verb = "follow"
	VerbUnfollow Verb = "unfollow"
)

// Known verb URIs and their normalized forms.
var verbURIs = map[string]Verb{
	"http://activitystrea.ms/schema/1.0/post":     VerbPost,
	"http://activitystrea.ms/schema/1.0/follow":   VerbFollow,
	"http://activitystrea.ms/schema/1.0/unfollow": VerbUnfollow,
	"http://ostatus.org/schema/1.0/unfollow":      VerbUnfollow,
}

// ParseVerb normalizes an activity:verb value. Full URIs and bare names are
// accepted. An empty verb is a post. Unknown verbs are returned unchanged.
func ParseVerb(s string) Verb {
	s = strings.TrimSpace(s)
	if s == "" {
		return VerbPost
	}
	if v, ok := verbURIs[s]; ok {
		return v
	}
	switch v := Verb(strings.ToLower(s)); v {
	case VerbPost, VerbFollow, VerbUnfollow:
		return v
	}
	return Verb(s)
}

// Feed is a local feed that accepts salmon.
type Feed struct {
	ID    string `json:"id" yaml:"id"`
	Owner string `json:"owner" yaml:"owner"`
	URL   string `json:"url,omitempty" yaml:"url,omitempty"`
}

// Validate checks that the feed has an ID usable as a path segment and an
// owner URI.
func (f Feed) Validate() error {
	if f.ID == "" {
		return errors.New("feed id is required")
	}
	if strings.ContainsAny(f.ID, "/?#") {
		return errors.New("feed id must be a single path segment")
	}
	if f.Owner == "" {
		return errors.New("feed owner is required")
	}
	return nil
}

// Author describes the author of an inbound Atom entry.
type Author struct {
	URI         string
	Name        string
	Email       string
	DisplayName string
	Bio         string
	AvatarURL   string
}

// Activity is an Atom entry carried in a verified salmon payload.
type Activity struct {
	ID        string
	URL       string
	Title     string
	Content   string
	Verb      Verb
	InReplyTo string
	Author    Author
}

// RemoteAuthor is what key discovery knows about a remote author.
type RemoteAuthor struct {
	Handle    string
	URI       string
	PublicKey string
	FeedURL   string
}

// Handle returns the acct handle "<name>@<host>" for an author URI and
// username, or "" when the URI has no host.
func Handle(authorURI, username string) string {
	rest := authorURI
	if i := strings.Index(rest, "://"); i >= 0 {
		rest = rest[i+3:]
	} else {
		return ""
	}
	host := rest
	if i := strings.IndexAny(rest, "/?#"); i >= 0 {
		host = rest[:i]
	}
	if host == "" || username == "" {
		return ""
	}
	return username + "@" + host
}
