package compiled

import "github.com/cepruntime/tablestore/internal/coltype"

// MatchingMetaInfo describes the shape of the correlated fields a StateEvent
// carries into a match. Both CompileCondition and CompileUpdateSet validate
// column/field references against it once, at compile time.
type MatchingMetaInfo struct {
	fields map[string]coltype.ColumnType
}

func NewMatchingMetaInfo(fields map[string]coltype.ColumnType) MatchingMetaInfo {
	cp := make(map[string]coltype.ColumnType, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	return MatchingMetaInfo{fields: cp}
}

func (m MatchingMetaInfo) Type(field string) (coltype.ColumnType, bool) {
	t, ok := m.fields[field]
	return t, ok
}
