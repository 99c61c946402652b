package compiled

import (
	"fmt"

	"github.com/cepruntime/tablestore/internal/coltype"
	"github.com/cepruntime/tablestore/internal/event"
	"github.com/cepruntime/tablestore/internal/tabledef"
)

// ValueExpr produces the new value for one column given the incoming state
// event. It is the compiled form of an update clause's right-hand
// expression — a full engine would lower a full expression AST here; this
// module exposes the source kinds a table update actually needs.
type ValueExpr interface {
	eval(event.StateEvent) any
}

// Literal is a constant value, unconditionally assigned.
type Literal struct{ Value any }

func (l Literal) eval(event.StateEvent) any { return l.Value }

// FromCorrelated reads a field the matching event's join correlated onto it.
type FromCorrelated struct{ Field string }

func (f FromCorrelated) eval(e event.StateEvent) any { return e.Correlated[f.Field] }

// FromStream reads a field off the state event's own stream row.
type FromStream struct{ Field string }

func (f FromStream) eval(e event.StateEvent) any { return e.Stream.Row[f.Field] }

// Assignment is one column, value-expression-plan pair: a compile-time
// column reference plus the plan that produces its new value.
type Assignment struct {
	Column string
	Expr   ValueExpr
}

type compiledAssignment struct {
	colName string
	expr    ValueExpr
}

// CompiledUpdateSet is an ordered list of column assignments, resolved and
// type-checked once at compile time. Apply never fails once compilation
// has succeeded.
type CompiledUpdateSet struct {
	tableID     string
	assignments []compiledAssignment
}

func (s *CompiledUpdateSet) TableID() string { return s.tableID }

// Apply evaluates every assignment against the incoming state event and
// returns the column name -> new value map to merge into a matched row.
func (s *CompiledUpdateSet) Apply(e event.StateEvent) event.Row {
	out := make(event.Row, len(s.assignments))
	for _, a := range s.assignments {
		out[a.colName] = a.expr.eval(e)
	}
	return out
}

// CompileUpdateSet builds a CompiledUpdateSet, validating every assigned
// column exists on tableDef and every FromCorrelated reference exists on
// matchingMeta — a missing or type-incompatible column fails here, never at
// runtime. Literal values and FromCorrelated field types are checked
// against the column's declared type; FromStream values are not.
func CompileUpdateSet(tableDef *tabledef.Definition, matchingMeta MatchingMetaInfo, assignments []Assignment) (*CompiledUpdateSet, error) {
	if len(assignments) == 0 {
		return nil, fmt.Errorf("compile update set: table %q: must have at least one assignment", tableDef.ID())
	}

	seen := make(map[string]bool, len(assignments))
	resolved := make([]compiledAssignment, 0, len(assignments))
	for _, a := range assignments {
		idx, ok := tableDef.IndexOf(a.Column)
		if !ok {
			return nil, fmt.Errorf("compile update set: table %q: unknown column %q", tableDef.ID(), a.Column)
		}
		if seen[a.Column] {
			return nil, fmt.Errorf("compile update set: table %q: column %q assigned twice", tableDef.ID(), a.Column)
		}
		seen[a.Column] = true

		col := tableDef.Columns()[idx]

		switch expr := a.Expr.(type) {
		case Literal:
			if !col.Type.CompatibleWith(expr.Value) {
				return nil, fmt.Errorf("compile update set: table %q: column %q is %s, literal value is incompatible", tableDef.ID(), a.Column, col.Type)
			}
		case FromCorrelated:
			fieldType, ok := matchingMeta.Type(expr.Field)
			if !ok {
				return nil, fmt.Errorf("compile update set: table %q: unknown correlated field %q for column %q", tableDef.ID(), expr.Field, a.Column)
			}
			if col.Type != coltype.Object && fieldType != col.Type {
				return nil, fmt.Errorf("compile update set: table %q: column %q is %s, correlated field %q is %s, incompatible", tableDef.ID(), a.Column, col.Type, expr.Field, fieldType)
			}
		case FromStream:
			// The stream row's shape is the adding table's own definition;
			// nothing further to validate without the upstream stream's
			// schema, which the out-of-scope compiler would supply.
		default:
			return nil, fmt.Errorf("compile update set: table %q: column %q: unsupported value expression %T", tableDef.ID(), a.Column, a.Expr)
		}

		resolved = append(resolved, compiledAssignment{a.Column, a.Expr})
	}

	return &CompiledUpdateSet{tableID: tableDef.ID(), assignments: resolved}, nil
}
