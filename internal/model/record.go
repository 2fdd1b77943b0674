package model

import "strings"

// RawRecord is the intermediate type produced by sources and consumed by the engine.
type RawRecord struct {
	File    string // identifier, usually the mailbox-relative path
	Message string // raw headers + body, any line-ending style
}

// Field is one selected header value.
type Field struct {
	Key   string
	Value string
}

// Fields is an ordered set of selected header values, in the order they
// were requested.
type Fields []Field

// Get returns the value for key (case-insensitive), or "" if absent.
func (f Fields) Get(key string) string {
	for _, fld := range f {
		if strings.EqualFold(fld.Key, key) {
			return fld.Value
		}
	}
	return ""
}

// Has reports whether key was selected.
func (f Fields) Has(key string) bool {
	for _, fld := range f {
		if strings.EqualFold(fld.Key, key) {
			return true
		}
	}
	return false
}

// Project renders the fields as "Key: value | Key: value".
func (f Fields) Project() string {
	parts := make([]string, len(f))
	for i, fld := range f {
		parts[i] = fld.Key + ": " + fld.Value
	}
	return strings.Join(parts, " | ")
}

// NormalizedRecord is mailsift's output type — one parsed, cleaned email.
type NormalizedRecord struct {
	File     string   `json:"file"`
	Headers  string   `json:"headers"`
	Fields   Fields   `json:"-"`
	Subject  string   `json:"subject,omitempty"` // thread key, reply/forward prefixes stripped
	Body     string   `json:"body"`
	Entities []Entity `json:"pii_entities,omitempty"` // nil unless tagging ran
}

// Value resolves a column or selected field name against the record.
// "Subject" yields the normalized thread key rather than the raw header.
func (r NormalizedRecord) Value(name string) string {
	switch strings.ToLower(name) {
	case "file", "identifier":
		return r.File
	case "headers":
		return r.Headers
	case "body":
		return r.Body
	case "subject":
		return r.Subject
	default:
		return r.Fields.Get(name)
	}
}
