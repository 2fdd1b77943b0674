package model

// Entity is a span of text tagged by a token classification model.
type Entity struct {
	Group string  `json:"entity_group"` // label without B-/I- prefix, e.g. EMAIL
	Score float64 `json:"score"`        // mean token probability
	Word  string  `json:"word"`         // covered text
	Start int     `json:"start"`        // byte offset into the classified text
	End   int     `json:"end"`
}
