// Package tabledef holds the Table Definition data model: an immutable
// descriptor created once at query-compile time and never mutated
// afterwards. It is a plain structural descriptor — the textual schema DSL
// and the streaming query compiler that would produce one are out of scope
// for this package.
package tabledef

import (
	"fmt"

	"github.com/cepruntime/tablestore/internal/coltype"
	"github.com/cepruntime/tablestore/pkg"
)

// ColumnDefinition is one column of a Table Definition: a name and its
// semantic type. Column order is significant — CompiledCondition terms
// reference columns by index.
type ColumnDefinition struct {
	Name string
	Type coltype.ColumnType
}

// Definition is the immutable table descriptor. Build one with New; it is
// never mutated after construction.
type Definition struct {
	id      string
	columns []ColumnDefinition
	index   *pkg.InsertSortMap[string, int]
}

// New validates the column list and builds a Definition. Column names must
// be non-empty and unique; types must be one of coltype.Valid. This is a
// compile-time check — once New returns without error, every subsequent
// lookup on the Definition is infallible.
func New(id string, columns []ColumnDefinition) (*Definition, error) {
	if id == "" {
		return nil, fmt.Errorf("table definition: id must not be empty")
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("table definition %q: must have at least one column", id)
	}

	index := pkg.NewInsertSortMap[string, int]()
	for i, col := range columns {
		if col.Name == "" {
			return nil, fmt.Errorf("table definition %q: column %d has empty name", id, i)
		}
		if !col.Type.IsValid() {
			return nil, fmt.Errorf("table definition %q: column %q has unknown type %q", id, col.Name, col.Type)
		}
		if index.Has(col.Name) {
			return nil, fmt.Errorf("table definition %q: duplicate column %q", id, col.Name)
		}
		index.Push(col.Name, i)
	}

	cols := make([]ColumnDefinition, len(columns))
	copy(cols, columns)

	return &Definition{id: id, columns: cols, index: index}, nil
}

func (d *Definition) ID() string { return d.id }

// Columns returns the ordered column list. Callers must not mutate the
// returned slice.
func (d *Definition) Columns() []ColumnDefinition { return d.columns }

// IndexOf returns the column's position and whether it exists.
func (d *Definition) IndexOf(name string) (int, bool) {
	if !d.index.Has(name) {
		return 0, false
	}
	return d.index.Get(name), true
}

// Column returns the column definition at the given name, if any.
func (d *Definition) Column(name string) (ColumnDefinition, bool) {
	if !d.index.Has(name) {
		return ColumnDefinition{}, false
	}
	return d.columns[d.index.Get(name)], true
}
