package webfinger

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// document is the subset of a JRD or XRD document the resolver reads.
type document struct {
	Subject string   `json:"subject"`
	Aliases []string `json:"aliases,omitempty"`
	Links   []link   `json:"links"`
}

type link struct {
	Rel  string `json:"rel"`
	Type string `json:"type,omitempty"`
	Href string `json:"href,omitempty"`
}

// link returns the first link with the given relation, or nil.
func (d *document) link(rel string) *link {
	for i := range d.Links {
		if d.Links[i].Rel == rel {
			return &d.Links[i]
		}
	}
	return nil
}

// parseDocument decodes a WebFinger response. XML bodies are read as XRD,
// everything else as JRD.
func parseDocument(contentType string, body []byte) (*document, error) {
	trimmed := strings.TrimSpace(string(body))
	if strings.Contains(contentType, "xml") || strings.HasPrefix(trimmed, "<") {
		return parseXRD(body)
	}

	var doc document
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("parse JRD: %w", err)
	}
	return &doc, nil
}

// parseXRD reads Subject, Alias and Link elements from an XRD document.
func parseXRD(body []byte) (*document, error) {
	xrd := etree.NewDocument()
	if err := xrd.ReadFromBytes(body); err != nil {
		return nil, fmt.Errorf("parse XRD: %w", err)
	}
	root := xrd.Root()
	if root == nil || root.Tag != "XRD" {
		return nil, fmt.Errorf("parse XRD: root element is not XRD")
	}

	doc := &document{}
	for _, el := range root.ChildElements() {
		switch el.Tag {
		case "Subject":
			doc.Subject = strings.TrimSpace(el.Text())
		case "Alias":
			doc.Aliases = append(doc.Aliases, strings.TrimSpace(el.Text()))
		case "Link":
			doc.Links = append(doc.Links, link{
				Rel:  el.SelectAttrValue("rel", ""),
				Type: el.SelectAttrValue("type", ""),
				Href: el.SelectAttrValue("href", ""),
			})
		}
	}
	return doc, nil
}
