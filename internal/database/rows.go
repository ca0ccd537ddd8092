package database

import (
	"bytes"
	"database/sql"
	"fmt"

	"github.com/goccy/go-json"
)

// Column is one named value of a result row.
type Column struct {
	Name  string
	Value any
}

// Row keeps the columns of a result row in select order. Text columns are
// strings, SQL NULL is nil.
type Row []Column

// Get returns the value of the named column.
func (r Row) Get(name string) (any, bool) {
	for _, c := range r {
		if c.Name == name {
			return c.Value, true
		}
	}
	return nil, false
}

// MarshalJSON renders the row as an object whose keys keep select order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(c.Name)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(c.Value)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", c.Name, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ScanRows drains rows into ordered column/value rows. It is meant for
// report style queries whose shape is decided by the SQL; typed reads scan
// into their model structs instead. rows is closed on return.
func ScanRows(rows *sql.Rows) ([]Row, error) {
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	out := []Row{}
	for rows.Next() {
		vals := make([]any, len(names))
		ptrs := make([]any, len(names))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(Row, len(names))
		for i, name := range names {
			v := vals[i]
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			row[i] = Column{Name: name, Value: v}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, Classify(err)
	}
	return out, nil
}
