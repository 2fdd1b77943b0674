package output

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/crimson-sun/mailsift/internal/model"
)

// ColumnMode controls how selected header fields are laid out.
type ColumnMode int

const (
	Combined ColumnMode = iota // a single Headers column
	PerField                   // one column per selected key
)

// ParseColumnMode maps "headers" / "fields" to a ColumnMode.
func ParseColumnMode(s string) ColumnMode {
	if strings.EqualFold(s, "fields") {
		return PerField
	}
	return Combined
}

// Layout describes the tabular shape of a normalized record:
//
//	file, X-Folder?, Headers | <key>..., Subject?, Body, pii_entities?
//
// X-Folder and Subject appear only when selected. Subject carries the
// normalized thread key.
type Layout struct {
	Keys     []string
	Mode     ColumnMode
	Entities bool
}

type colKind int

const (
	colFile colKind = iota
	colField
	colHeaders
	colSubject
	colBody
	colEntities
)

type column struct {
	name string
	kind colKind
}

func (l Layout) columns() []column {
	cols := []column{{"file", colFile}}
	if hasKey(l.Keys, "X-Folder") {
		cols = append(cols, column{"X-Folder", colField})
	}
	if l.Mode == PerField {
		for _, k := range l.Keys {
			if strings.EqualFold(k, "X-Folder") || strings.EqualFold(k, "Subject") {
				continue
			}
			cols = append(cols, column{k, colField})
		}
	} else {
		cols = append(cols, column{"Headers", colHeaders})
	}
	if hasKey(l.Keys, "Subject") {
		cols = append(cols, column{"Subject", colSubject})
	}
	cols = append(cols, column{"Body", colBody})
	if l.Entities {
		cols = append(cols, column{"pii_entities", colEntities})
	}
	return cols
}

// Columns returns the column names in order.
func (l Layout) Columns() []string {
	cols := l.columns()
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.name
	}
	return names
}

// Row renders rec as one string per column. Entities are JSON encoded.
func (l Layout) Row(rec model.NormalizedRecord) ([]string, error) {
	cols := l.columns()
	row := make([]string, len(cols))
	for i, c := range cols {
		if c.kind == colEntities {
			data, err := entitiesJSON(rec.Entities)
			if err != nil {
				return nil, err
			}
			row[i] = string(data)
			continue
		}
		row[i] = value(rec, c)
	}
	return row, nil
}

// JSON renders rec as one JSON object with keys in column order.
func (l Layout) JSON(rec model.NormalizedRecord) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range l.columns() {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeString(&buf, c.name); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if c.kind == colEntities {
			data, err := entitiesJSON(rec.Entities)
			if err != nil {
				return nil, err
			}
			buf.Write(data)
			continue
		}
		if err := writeString(&buf, value(rec, c)); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func value(rec model.NormalizedRecord, c column) string {
	switch c.kind {
	case colFile:
		return rec.File
	case colHeaders:
		return rec.Headers
	case colSubject:
		return rec.Subject
	case colBody:
		return rec.Body
	default:
		return rec.Fields.Get(c.name)
	}
}

// entitiesJSON encodes entities; a nil slice renders as [].
func entitiesJSON(entities []model.Entity) ([]byte, error) {
	if entities == nil {
		entities = []model.Entity{}
	}
	return json.Marshal(entities)
}

// writeString appends s as a JSON string without HTML escaping, so
// Message-IDs like <1.JavaMail> stay readable.
func writeString(buf *bytes.Buffer, s string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return err
	}
	buf.Truncate(buf.Len() - 1) // Encode appends '\n'
	return nil
}

func hasKey(keys []string, key string) bool {
	for _, k := range keys {
		if strings.EqualFold(k, key) {
			return true
		}
	}
	return false
}
