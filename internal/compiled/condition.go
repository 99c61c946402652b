// Package compiled implements the compiled artifacts CompiledCondition and
// CompiledUpdateSet. Both are opaque, immutable values produced once — at
// query-compile time — and evaluated many times at event arrival, keeping
// the hot path allocation-light and branch-stable.
//
// A full predicate/expression AST would come from a streaming query
// compiler, out of scope here. In its place this package exposes a small,
// explicit comparison vocabulary — Op plus Term — so a caller can still
// build and exercise a real CompiledCondition without a full expression
// compiler attached.
package compiled

import (
	"fmt"
	"strings"

	"github.com/cepruntime/tablestore/internal/coltype"
	"github.com/cepruntime/tablestore/internal/event"
	"github.com/cepruntime/tablestore/internal/tabledef"
)

// Op is a comparison operator between a table column and a value drawn from
// the matching event.
type Op string

const (
	OpEqual          Op = "eq"
	OpNotEqual       Op = "ne"
	OpGreater        Op = "gt"
	OpLess           Op = "lt"
	OpGreaterOrEqual Op = "gte"
	OpLessOrEqual    Op = "lte"
	OpContains       Op = "contains"
	OpStartsWith     Op = "startsWith"
	OpEndsWith       Op = "endsWith"
)

// Operand identifies where a comparison's right-hand value comes from: a
// field correlated onto the StateEvent by a join, or the state event's own
// stream row.
type Operand struct {
	Correlated string
	FromStream string
}

// Term is one leaf comparison: table column `Column` `Op` the value
// identified by `Operand`.
type Term struct {
	Column  string
	Op      Op
	Operand Operand
}

// ConditionSpec is the compile-time input to CompileCondition: a predicate
// expressed as a conjunction of Terms. All Terms must hold for the
// condition to match (AND semantics) — the shape a real AST compiler would
// lower a simple equi-join predicate into.
type ConditionSpec struct {
	Terms []Term
}

// CompiledCondition is a predicate bound to exactly one table definition
// and one matching-meta-info shape. Constructing one validates every column
// and correlated-field reference up front; Evaluate never fails once
// compilation has succeeded.
type CompiledCondition struct {
	tableID  string
	evaluate func(row event.Row, matching event.StateEvent) bool
}

// TableID reports which table definition this condition is bound to, so a
// facade can refuse to evaluate it against the wrong table.
func (c *CompiledCondition) TableID() string { return c.tableID }

func (c *CompiledCondition) Evaluate(row event.Row, matching event.StateEvent) bool {
	return c.evaluate(row, matching)
}

// CompileCondition produces a CompiledCondition, validating every column
// and operand reference against tableDef/matchingMeta. Mismatched column
// names, unknown correlated fields, an operand with no source, or a string
// operator on a non-String column all fail here — never at evaluation time.
// The type of a correlated or stream operand is not compared with the
// column's type; a comparison between mismatched types evaluates to false.
func CompileCondition(tableDef *tabledef.Definition, matchingMeta MatchingMetaInfo, spec ConditionSpec) (*CompiledCondition, error) {
	if len(spec.Terms) == 0 {
		return nil, fmt.Errorf("compile condition: table %q: must have at least one term", tableDef.ID())
	}

	type resolved struct {
		colIndex int
		colType  coltype.ColumnType
		op       Op
		operand  Operand
	}

	terms := make([]resolved, 0, len(spec.Terms))
	for _, t := range spec.Terms {
		idx, ok := tableDef.IndexOf(t.Column)
		if !ok {
			return nil, fmt.Errorf("compile condition: table %q: unknown column %q", tableDef.ID(), t.Column)
		}
		col := tableDef.Columns()[idx]

		if t.Operand.Correlated != "" {
			if _, ok := matchingMeta.Type(t.Operand.Correlated); !ok {
				return nil, fmt.Errorf("compile condition: table %q: unknown correlated field %q", tableDef.ID(), t.Operand.Correlated)
			}
		} else if t.Operand.FromStream == "" {
			return nil, fmt.Errorf("compile condition: table %q: term on column %q has no operand source", tableDef.ID(), t.Column)
		}

		switch t.Op {
		case OpEqual, OpNotEqual, OpGreater, OpLess, OpGreaterOrEqual, OpLessOrEqual, OpContains, OpStartsWith, OpEndsWith:
		default:
			return nil, fmt.Errorf("compile condition: table %q: unknown operator %q on column %q", tableDef.ID(), t.Op, t.Column)
		}
		if (t.Op == OpContains || t.Op == OpStartsWith || t.Op == OpEndsWith) && col.Type != coltype.String {
			return nil, fmt.Errorf("compile condition: table %q: operator %q only valid on String columns, column %q is %q", tableDef.ID(), t.Op, t.Column, col.Type)
		}

		terms = append(terms, resolved{idx, col.Type, t.Op, t.Operand})
	}

	evaluate := func(row event.Row, matching event.StateEvent) bool {
		for _, t := range terms {
			col := tableDef.Columns()[t.colIndex]
			left := row[col.Name]

			var right any
			if t.operand.Correlated != "" {
				right = matching.Correlated[t.operand.Correlated]
			} else {
				right = matching.Stream.Row[t.operand.FromStream]
			}

			if !compare(left, t.op, right) {
				return false
			}
		}
		return true
	}

	return &CompiledCondition{tableID: tableDef.ID(), evaluate: evaluate}, nil
}

func compare(left any, op Op, right any) bool {
	switch op {
	case OpEqual:
		return left == right
	case OpNotEqual:
		return left != right
	}

	switch l := left.(type) {
	case int:
		r, ok := toInt(right)
		if !ok {
			return false
		}
		return compareOrdered(op, l, r)
	case int64:
		r, ok := toInt64(right)
		if !ok {
			return false
		}
		return compareOrdered(op, l, r)
	case float64:
		r, ok := toFloat64(right)
		if !ok {
			return false
		}
		return compareOrdered(op, l, r)
	case string:
		r, ok := right.(string)
		if !ok {
			return false
		}
		switch op {
		case OpContains:
			return strings.Contains(l, r)
		case OpStartsWith:
			return strings.HasPrefix(l, r)
		case OpEndsWith:
			return strings.HasSuffix(l, r)
		default:
			return compareOrdered(op, l, r)
		}
	}
	return false
}

func compareOrdered[T int | int64 | float64 | string](op Op, l, r T) bool {
	switch op {
	case OpGreater:
		return l > r
	case OpLess:
		return l < r
	case OpGreaterOrEqual:
		return l >= r
	case OpLessOrEqual:
		return l <= r
	}
	return false
}

func toInt(v any) (int, bool) {
	switch v := v.(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	}
	return 0, false
}

func toInt64(v any) (int64, bool) {
	switch v := v.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case float64:
		return int64(v), true
	}
	return 0, false
}

func toFloat64(v any) (float64, bool) {
	switch v := v.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

