package tabledef_test

import (
	"testing"

	"gotest.tools/assert"

	"github.com/cepruntime/tablestore/internal/coltype"
	"github.com/cepruntime/tablestore/internal/tabledef"
)

func TestNewRejectsEmptyID(t *testing.T) {
	_, err := tabledef.New("", []tabledef.ColumnDefinition{{Name: "a", Type: coltype.Int}})
	assert.ErrorContains(t, err, "id must not be empty")
}

func TestNewRejectsNoColumns(t *testing.T) {
	_, err := tabledef.New("t", nil)
	assert.ErrorContains(t, err, "at least one column")
}

func TestNewRejectsDuplicateColumnNames(t *testing.T) {
	_, err := tabledef.New("t", []tabledef.ColumnDefinition{
		{Name: "a", Type: coltype.Int},
		{Name: "a", Type: coltype.String},
	})
	assert.ErrorContains(t, err, "duplicate column")
}

func TestNewRejectsUnknownType(t *testing.T) {
	_, err := tabledef.New("t", []tabledef.ColumnDefinition{{Name: "a", Type: coltype.ColumnType("Weird")}})
	assert.ErrorContains(t, err, "unknown type")
}

func TestIndexOfAndColumn(t *testing.T) {
	def, err := tabledef.New("t", []tabledef.ColumnDefinition{
		{Name: "a", Type: coltype.Int},
		{Name: "b", Type: coltype.String},
	})
	assert.NilError(t, err)

	idx, ok := def.IndexOf("b")
	assert.Assert(t, ok)
	assert.Equal(t, idx, 1)

	_, ok = def.IndexOf("missing")
	assert.Assert(t, !ok)

	col, ok := def.Column("a")
	assert.Assert(t, ok)
	assert.Equal(t, col.Type, coltype.Int)
}
