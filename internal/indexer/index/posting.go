package index

// Posting records how often a term occurs in one document.
type Posting struct {
	DocID     int
	Frequency int
}

// PostingList is ordered by ascending DocID.
type PostingList []Posting

// TermEntry pairs a term with its postings, as returned by Snapshot.
type TermEntry struct {
	Term     string
	Postings PostingList
}
