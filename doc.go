// Package stdreason implements a retrieval-augmented question-answering
// engine over a corpus of technical standards documents. It chunks
// ingested pages into citation-addressable units, indexes them for hybrid
// dense/lexical retrieval, and answers questions only when the evidence it
// retrieves fully grounds every sentence of the answer.
package stdreason

// Doc identifies a single ingested document. DocID is opaque and supplied
// by the caller (e.g. derived from the source path); it is never inferred.
type Doc struct {
	DocID      string
	SourcePath string
	NumPages   int
}

// Page is one page of a document as produced by an external parser
// (raw_text) and, after cleaning, the normalized prose stdreason indexes
// (clean_text). Pages are immutable once built.
type Page struct {
	DocID      string
	PageNumber int // 1-based
	RawText    string
	CleanText  string
}
