// Package index builds in-memory inverted index fragments. A fragment
// maps each term to the postings of the documents folded into it so far;
// fragments merge cheaply and spill to disk once they grow past a size
// limit.
package index

import (
	"sort"

	"github.com/textpipe/indexer/internal/tokenizer"
)

// DefaultSizeLimit is the spill threshold applied when none is configured.
const DefaultSizeLimit int64 = 64 << 20

// InMemoryIndex is an inverted index fragment. It is owned by exactly one
// goroutine at a time: assignment transfers the underlying storage, so
// after handing a fragment off (through a channel or a merge) the sender
// must replace its copy with a fresh one rather than keep using it.
//
// The zero value is an empty fragment with the default size limit.
type InMemoryIndex struct {
	terms    map[string]PostingList
	docCount int
	size     int64
	limit    int64
}

// New returns an empty fragment with the default size limit.
func New() InMemoryIndex {
	return NewWithLimit(DefaultSizeLimit)
}

// NewWithLimit returns an empty fragment that reports IsLarge once its
// approximate in-memory size reaches limit bytes. Non-positive limits
// select DefaultSizeLimit.
func NewWithLimit(limit int64) InMemoryIndex {
	if limit <= 0 {
		limit = DefaultSizeLimit
	}
	return InMemoryIndex{
		terms: make(map[string]PostingList),
		limit: limit,
	}
}

// FromSingleDocument tokenizes text and builds a fragment holding exactly
// one document.
func FromSingleDocument(docID int, text string) InMemoryIndex {
	tokens := tokenizer.Tokenize(text)
	x := New()
	for _, token := range tokens {
		postings := x.terms[token.Term]
		if len(postings) == 0 {
			x.terms[token.Term] = PostingList{{
				DocID:     docID,
				Frequency: 1,
				Positions: []int{token.Position},
			}}
			x.size += int64(len(token.Term) + 8 + 8 + 64)
			continue
		}
		p := &postings[len(postings)-1]
		p.Frequency++
		p.Positions = append(p.Positions, token.Position)
		x.size += 8
	}
	x.docCount = 1
	return x
}

// Merge folds other into x, concatenating postings for shared terms in
// arrival order. other is consumed and must not be used afterwards.
func (x *InMemoryIndex) Merge(other InMemoryIndex) {
	if x.terms == nil {
		x.terms = make(map[string]PostingList)
	}
	for term, postings := range other.terms {
		x.terms[term] = append(x.terms[term], postings...)
	}
	x.docCount += other.docCount
	x.size += other.size
}

// IsLarge reports whether the fragment has reached its spill threshold.
func (x InMemoryIndex) IsLarge() bool {
	limit := x.limit
	if limit <= 0 {
		limit = DefaultSizeLimit
	}
	return x.size >= limit
}

// IsEmpty reports whether the fragment holds no terms.
func (x InMemoryIndex) IsEmpty() bool {
	return len(x.terms) == 0
}

// Size returns the approximate in-memory size in bytes.
func (x InMemoryIndex) Size() int64 {
	return x.size
}

// DocCount returns the number of documents folded into the fragment.
func (x InMemoryIndex) DocCount() int {
	return x.docCount
}

// TermCount returns the number of distinct terms.
func (x InMemoryIndex) TermCount() int {
	return len(x.terms)
}

// Snapshot returns the fragment's contents as term entries sorted by
// term, with each posting list sorted by document id. The returned
// slices are copies; mutating them does not touch the fragment.
func (x InMemoryIndex) Snapshot() []TermEntry {
	entries := make([]TermEntry, 0, len(x.terms))
	for term, postings := range x.terms {
		copied := make(PostingList, len(postings))
		copy(copied, postings)
		sort.Slice(copied, func(i, j int) bool {
			return copied[i].DocID < copied[j].DocID
		})
		entries = append(entries, TermEntry{
			Term:     term,
			Postings: copied,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Term < entries[j].Term
	})
	return entries
}
