package indexer

// Chunk is one piece of a document ready to be embedded.
type Chunk struct {
	Text           string
	Page           *int // 1-based PDF page, nil for page-less formats
	PageChunkIndex int  // Index within the page (or document when page-less)
	Section        string
}

// segment is a contiguous run of extracted text sharing a page and section.
type segment struct {
	page    *int
	section string
	text    string
}
