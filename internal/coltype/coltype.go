// Package coltype defines the semantic column types a Table Definition's
// columns carry, narrowed to the scalar kinds the Table subsystem's
// compiled artifacts need to reason about.
package coltype

import "github.com/cepruntime/tablestore/pkg"

var Valid = []ColumnType{
	Int, Long, Float, Double, String, Bool, Object,
}

type ColumnType string

const (
	Int    ColumnType = "Int"
	Long   ColumnType = "Long"
	Float  ColumnType = "Float"
	Double ColumnType = "Double"
	String ColumnType = "String"
	Bool   ColumnType = "Bool"
	Object ColumnType = "Object"
)

func (t ColumnType) IsValid() bool {
	for _, v := range Valid {
		if v == t {
			return true
		}
	}
	return false
}

// Coerce converts value into this column's declared Go representation,
// handling the one case that matters in practice: a value that arrived
// through encoding/json, where every number decodes as float64 regardless
// of the column's declared width. Used by wire-based adapters (e.g.
// internal/backendremote) to restore int/int64 columns after a JSON
// round trip; values already in the right shape pass through unchanged.
func (t ColumnType) Coerce(value any) any {
	if value == nil {
		return nil
	}
	f, isFloat := value.(float64)
	switch t {
	case Int:
		if isFloat {
			return pkg.NumToInt(value)
		}
	case Long:
		if isFloat {
			return int64(f)
		}
	case Float:
		if isFloat {
			return float32(f)
		}
	}
	return value
}

// CompatibleWith reports whether a runtime value of Go type `any` can be
// assigned to a column of this type. Used once, at compile time, by
// CompiledUpdateSet construction to check literal values — never on the
// hot path.
func (t ColumnType) CompatibleWith(value any) bool {
	if value == nil {
		return true
	}
	switch t {
	case Int:
		_, ok := value.(int)
		return ok
	case Long:
		_, ok := value.(int64)
		return ok
	case Float:
		_, ok := value.(float32)
		return ok
	case Double:
		_, ok := value.(float64)
		return ok
	case String:
		_, ok := value.(string)
		return ok
	case Bool:
		_, ok := value.(bool)
		return ok
	case Object:
		return true
	}
	return false
}
