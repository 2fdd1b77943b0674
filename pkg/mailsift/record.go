package mailsift

import "strings"

// Field is one selected header value.
type Field struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Entity is a tagged span of the body.
type Entity struct {
	Group string  `json:"entity_group"` // e.g. EMAIL, PHONE, NAME
	Score float64 `json:"score"`
	Word  string  `json:"word"`
	Start int     `json:"start"` // byte offsets into Record.Body
	End   int     `json:"end"`
}

// Record is a parsed, normalized email.
// This is the stable public type; internal representations may evolve
// independently without breaking consumers.
type Record struct {
	File     string   `json:"file"`
	Headers  string   `json:"headers"`           // verbatim block or "Key: value | ..." projection
	Fields   []Field  `json:"fields"`            // selected headers, in request order
	Subject  string   `json:"subject,omitempty"` // thread key: Re:/Fw:/Fwd: stripped
	Body     string   `json:"body"`
	Entities []Entity `json:"pii_entities,omitempty"`
}

// Get returns the value of a selected field (case-insensitive), or "".
func (r Record) Get(key string) string {
	for _, f := range r.Fields {
		if strings.EqualFold(f.Key, key) {
			return f.Value
		}
	}
	return ""
}
