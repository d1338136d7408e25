// Package corpus loads the medicine dataset. Row order defines the dense
// document IDs used by every index and log downstream.
package corpus

import (
	"strings"
)

// Document is one medicine record. Only Text is ranked; the remaining
// fields are returned to callers for display and relevance judging.
type Document struct {
	ID          int    `json:"id"`
	Text        string `json:"-"`
	Name        string `json:"name"`
	Uses        string `json:"uses"`
	Composition string `json:"composition,omitempty"`
	SideEffects string `json:"side_effects,omitempty"`
	Description string `json:"description,omitempty"`
}

// UsesTerms returns the lower-cased whitespace split of Uses.
func (d Document) UsesTerms() []string {
	return strings.Fields(strings.ToLower(d.Uses))
}

// Corpus is an ordered, immutable set of documents with IDs [0, Len()).
type Corpus struct {
	docs     []Document
	usesSets []map[string]struct{}
}

// New assigns dense IDs by position and precomputes uses-term sets.
func New(docs []Document) *Corpus {
	c := &Corpus{
		docs:     make([]Document, len(docs)),
		usesSets: make([]map[string]struct{}, len(docs)),
	}
	for i, d := range docs {
		d.ID = i
		c.docs[i] = d
		terms := d.UsesTerms()
		set := make(map[string]struct{}, len(terms))
		for _, t := range terms {
			set[t] = struct{}{}
		}
		c.usesSets[i] = set
	}
	return c
}

func (c *Corpus) Len() int {
	return len(c.docs)
}

// Get returns the document with the given ID.
func (c *Corpus) Get(id int) (Document, bool) {
	if id < 0 || id >= len(c.docs) {
		return Document{}, false
	}
	return c.docs[id], true
}

// Documents returns the backing slice. Callers must not modify it.
func (c *Corpus) Documents() []Document {
	return c.docs
}

// UsesSet returns the precomputed uses-term set of document id, or nil when
// id is out of range.
func (c *Corpus) UsesSet(id int) map[string]struct{} {
	if id < 0 || id >= len(c.usesSets) {
		return nil
	}
	return c.usesSets[id]
}
