package models

// SearchResults is the normalized response of a web search backend.
type SearchResults struct {
	Query   string          `json:"query"`
	Organic []OrganicResult `json:"organic"`
}

type OrganicResult struct {
	Title    string `json:"title,omitempty"`
	Link     string `json:"link,omitempty"`
	Snippet  string `json:"snippet,omitempty"`
	Position int    `json:"position,omitempty"`
}

// Snippets returns the snippet of every organic result, in rank order.
func (r *SearchResults) Snippets() []string {
	if r == nil {
		return nil
	}
	out := make([]string, len(r.Organic))
	for i, o := range r.Organic {
		out[i] = o.Snippet
	}
	return out
}
