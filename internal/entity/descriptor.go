// Package entity defines the record-type descriptors that parameterize the
// generic repository and dispatch layers. A descriptor carries everything
// the rest of the system needs to know about one table: its name, its typed
// column list, and the create/update validation rules.
package entity

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

// Kind is the logical type of a column value as seen in JSON payloads.
type Kind int

const (
	KindString Kind = iota
	KindText
	KindBool
	KindInt
	KindFloat
	KindTime
	KindJSON
)

// Column describes one table column.
type Column struct {
	Name      string
	Kind      Kind
	Required  bool   // must be present on create
	Sensitive bool   // never serialized in responses
	Pattern   string // optional regexp for string values

	pattern *regexp.Regexp
}

// Descriptor describes one entity table. Descriptors are registered once at
// startup; lookups and column references are validated against them so no
// request-supplied string ever reaches query building unchecked.
type Descriptor struct {
	Name    string
	Table   string
	Columns []Column

	byName map[string]*Column
}

// ErrUnknownColumn is returned when a payload or query references a column
// the descriptor does not declare.
var ErrUnknownColumn = errors.New("unknown column")

// FieldError describes a single validation failure.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("field %q: %s", e.Field, e.Reason)
}

func newDescriptor(name string, columns ...Column) *Descriptor {
	d := &Descriptor{
		Name:    name,
		Table:   name,
		Columns: append(columns, auditColumns()...),
	}
	d.byName = make(map[string]*Column, len(d.Columns))
	for i := range d.Columns {
		c := &d.Columns[i]
		if _, dup := d.byName[c.Name]; dup {
			panic(fmt.Sprintf("entity %s: duplicate column %s", name, c.Name))
		}
		if c.Pattern != "" {
			c.pattern = regexp.MustCompile(c.Pattern)
		}
		d.byName[c.Name] = c
	}
	return d
}

// auditColumns are the common soft-delete and attribution columns shared by
// every entity. A record is live iff deleted_by is null.
func auditColumns() []Column {
	return []Column{
		{Name: "attributes", Kind: KindJSON},
		{Name: "created_at", Kind: KindTime},
		{Name: "created_by", Kind: KindString},
		{Name: "modified_at", Kind: KindTime},
		{Name: "modified_by", Kind: KindString},
		{Name: "deleted_at", Kind: KindTime},
		{Name: "deleted_by", Kind: KindString},
	}
}

// PrimaryKey returns the entity's key column name, always "<name>_id".
func (d *Descriptor) PrimaryKey() string {
	return d.Name + "_id"
}

// HasColumn reports whether name is a declared column.
func (d *Descriptor) HasColumn(name string) bool {
	_, ok := d.byName[name]
	return ok
}

// ColumnNames returns the declared column names in order.
func (d *Descriptor) ColumnNames() []string {
	names := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		names[i] = c.Name
	}
	return names
}

// Scrub returns a copy of rec with sensitive columns removed. Used on every
// record before it is placed in a response envelope.
func (d *Descriptor) Scrub(rec map[string]any) map[string]any {
	out := make(map[string]any, len(rec))
	for k, v := range rec {
		if col, ok := d.byName[k]; ok && col.Sensitive {
			continue
		}
		out[k] = v
	}
	return out
}

// BuildRecord validates obj against the descriptor and returns a normalized
// record. Create mode additionally enforces required columns. Unknown keys,
// type mismatches, and pattern mismatches are rejected.
func (d *Descriptor) BuildRecord(obj map[string]any, create bool) (map[string]any, error) {
	rec := make(map[string]any, len(obj))
	for key, value := range obj {
		col, ok := d.byName[key]
		if !ok {
			return nil, &FieldError{Field: key, Reason: "not a declared column"}
		}
		if value == nil {
			rec[key] = nil
			continue
		}
		normalized, err := col.normalize(value)
		if err != nil {
			return nil, err
		}
		rec[key] = normalized
	}
	if create {
		for i := range d.Columns {
			c := &d.Columns[i]
			if !c.Required {
				continue
			}
			if v, ok := rec[c.Name]; !ok || v == nil || v == "" {
				return nil, &FieldError{Field: c.Name, Reason: "required"}
			}
		}
	}
	return rec, nil
}

// normalize coerces a decoded JSON value into the column's Go representation.
func (c *Column) normalize(value any) (any, error) {
	switch c.Kind {
	case KindString, KindText:
		s, ok := value.(string)
		if !ok {
			return nil, &FieldError{Field: c.Name, Reason: "expected a string"}
		}
		if c.pattern != nil && !c.pattern.MatchString(s) {
			return nil, &FieldError{Field: c.Name, Reason: "does not match expected format"}
		}
		return s, nil
	case KindBool:
		b, ok := value.(bool)
		if !ok {
			return nil, &FieldError{Field: c.Name, Reason: "expected a boolean"}
		}
		return b, nil
	case KindInt:
		switch n := value.(type) {
		case float64:
			if n != float64(int64(n)) {
				return nil, &FieldError{Field: c.Name, Reason: "expected an integer"}
			}
			return int64(n), nil
		case int:
			return int64(n), nil
		case int64:
			return n, nil
		default:
			return nil, &FieldError{Field: c.Name, Reason: "expected an integer"}
		}
	case KindFloat:
		switch n := value.(type) {
		case float64:
			return n, nil
		case int:
			return float64(n), nil
		case int64:
			return float64(n), nil
		default:
			return nil, &FieldError{Field: c.Name, Reason: "expected a number"}
		}
	case KindTime:
		switch t := value.(type) {
		case time.Time:
			return t, nil
		case string:
			parsed, err := time.Parse(time.RFC3339, t)
			if err != nil {
				return nil, &FieldError{Field: c.Name, Reason: "expected an RFC3339 timestamp"}
			}
			return parsed, nil
		default:
			return nil, &FieldError{Field: c.Name, Reason: "expected a timestamp"}
		}
	case KindJSON:
		m, ok := value.(map[string]any)
		if !ok {
			return nil, &FieldError{Field: c.Name, Reason: "expected an object"}
		}
		return m, nil
	default:
		return nil, &FieldError{Field: c.Name, Reason: "unsupported column kind"}
	}
}
