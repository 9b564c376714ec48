// Package atom parses the Atom entries carried in salmon payloads.
package atom

import (
	"strings"

	"github.com/beevik/etree"

	"github.com/philiph/caddy-salmon/internal/core/domain"
	"github.com/philiph/caddy-salmon/internal/core/ports"
)

// XML namespaces used by OStatus entries.
const (
	NamespaceAtom     = "http://www.w3.org/2005/Atom"
	NamespaceActivity = "http://activitystrea.ms/spec/1.0/"
	NamespacePoco     = "http://portablecontacts.net/spec/1.0"
	NamespaceThread   = "http://purl.org/syndication/thread/1.0"
)

// Parser reads an Atom entry into a domain.Activity.
type Parser struct{}

// NewParser creates a new Parser.
func NewParser() *Parser {
	return &Parser{}
}

// Parse reads payload as a single Atom entry. The entry must name an
// author URI, which is what key discovery and dispatch are keyed on.
func (p *Parser) Parse(payload []byte) (*domain.Activity, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(payload); err != nil {
		return nil, &domain.AppError{
			Code:    domain.ErrCodeBadRequest,
			Message: "failed to parse Atom entry",
			Cause:   err,
		}
	}

	entry := doc.Root()
	if entry == nil || !is(entry, NamespaceAtom, "entry") {
		return nil, domain.BadRequestError("payload is not an Atom entry")
	}

	activity := &domain.Activity{
		ID:      text(find(entry, NamespaceAtom, "id")),
		Title:   text(find(entry, NamespaceAtom, "title")),
		Content: text(find(entry, NamespaceAtom, "content")),
		Verb:    domain.ParseVerb(text(find(entry, NamespaceActivity, "verb"))),
		URL:     linkHref(entry, "alternate"),
	}

	if reply := find(entry, NamespaceThread, "in-reply-to"); reply != nil {
		activity.InReplyTo = reply.SelectAttrValue("href", "")
		if activity.InReplyTo == "" {
			activity.InReplyTo = reply.SelectAttrValue("ref", "")
		}
	}

	author := find(entry, NamespaceAtom, "author")
	if author == nil {
		return nil, domain.BadRequestError("Atom entry has no author")
	}
	activity.Author = domain.Author{
		URI:         text(find(author, NamespaceAtom, "uri")),
		Name:        text(find(author, NamespaceAtom, "name")),
		Email:       text(find(author, NamespaceAtom, "email")),
		DisplayName: text(find(author, NamespacePoco, "displayName")),
		Bio:         text(find(author, NamespacePoco, "note")),
		AvatarURL:   linkHref(author, "avatar"),
	}
	if activity.Author.URI == "" {
		return nil, domain.BadRequestError("Atom author has no URI")
	}

	return activity, nil
}

func is(el *etree.Element, space, tag string) bool {
	return el.Tag == tag && el.NamespaceURI() == space
}

// find returns the first child of el with the given namespace and local name.
func find(el *etree.Element, space, tag string) *etree.Element {
	for _, c := range el.ChildElements() {
		if is(c, space, tag) {
			return c
		}
	}
	return nil
}

// text returns the trimmed text of el, or "" for a nil element.
func text(el *etree.Element) string {
	if el == nil {
		return ""
	}
	return strings.TrimSpace(el.Text())
}

// linkHref returns the href of the first atom:link child with rel
// (compared case-insensitively). A link without rel counts as "alternate".
func linkHref(el *etree.Element, rel string) string {
	for _, c := range el.ChildElements() {
		if !is(c, NamespaceAtom, "link") {
			continue
		}
		r := c.SelectAttrValue("rel", "alternate")
		if strings.EqualFold(r, rel) {
			return c.SelectAttrValue("href", "")
		}
	}
	return ""
}

// Ensure Parser satisfies the port interface
var _ ports.ActivityParser = (*Parser)(nil)
