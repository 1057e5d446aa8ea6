package search

// Result is a single search hit returned to the caller.
type Result struct {
	ID       string `json:"id"`
	Headline string `json:"headline"`
	Slugline string `json:"slugline"`
	Snippet  string `json:"snippet"`
	Profile  string `json:"profile"`
	State    string `json:"state"`
	Type     string `json:"type"`
}

// Query describes a search request.
type Query struct {
	Text          string
	FilterProfile string
	FilterState   string
	Limit         int
	Offset        int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// ArticleRecord is the data we index for an article. BodyText carries the
// plain-text rendition of the body so that markup never matches a query.
type ArticleRecord struct {
	ID       string `json:"id"`
	Headline string `json:"headline"`
	Slugline string `json:"slugline"`
	BodyText string `json:"bodyText"`
	Profile  string `json:"profile"`
	State    string `json:"state"`
	Type     string `json:"type"`
	Language string `json:"language"`
}
