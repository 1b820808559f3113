package index

// Posting records every occurrence of one term in one document.
type Posting struct {
	DocID     int
	Frequency int
	Positions []int
}

type PostingList []Posting

// TermEntry pairs a term with its postings, ordered by document id.
type TermEntry struct {
	Term     string
	Postings PostingList
}
