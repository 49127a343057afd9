package neo4jstore

import (
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/wippyai/typegraph/store"
)

func typeParams(t store.RawType) map[string]any {
	return map[string]any{
		"id":        t.ID,
		"points_to": optional(t.PointsTo),
		"props": map[string]any{
			"name":        t.Name,
			"category":    t.Category,
			"bit_size":    t.BitSize,
			"signed":      t.Signed,
			"stack_frame": t.StackFrame,
			"points_to":   optional(t.PointsTo),
		},
	}
}

func memberParams(m store.RawMember) map[string]any {
	return map[string]any{
		"id":           m.ID,
		"parent_id":    m.ParentID,
		"base_type_id": m.BaseTypeID,
		"props": map[string]any{
			"name":           m.Name,
			"parent_id":      m.ParentID,
			"base_type_id":   m.BaseTypeID,
			"offset":         optional(m.Offset),
			"count":          optional(m.Count),
			"argument_index": optional(m.ArgumentIndex),
		},
	}
}

func substitutionParams(s store.RawSubstitution) map[string]any {
	path := make([]int64, len(s.Path))
	for i, id := range s.Path {
		path[i] = int64(id)
	}
	return map[string]any{
		"id":           s.ID,
		"base_type_id": s.BaseTypeID,
		"props": map[string]any{
			"base_type_id": s.BaseTypeID,
			// Neo4j integers are signed 64-bit.
			"address":          int64(s.Address),
			"operand_position": s.OperandPosition,
			"expression_id":    s.ExpressionID,
			"offset":           optional(s.Offset),
			"path":             path,
		},
	}
}

// optional maps a nil pointer to a Cypher null.
func optional(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func rawTypeFromRecord(rec *neo4j.Record) store.RawType {
	return store.RawType{
		ID:         recordInt(rec, "id"),
		Name:       recordString(rec, "name"),
		Category:   recordString(rec, "category"),
		BitSize:    recordInt(rec, "bit_size"),
		Signed:     recordBool(rec, "signed"),
		StackFrame: recordBool(rec, "stack_frame"),
		PointsTo:   recordOptInt(rec, "points_to"),
	}
}

func rawMemberFromRecord(rec *neo4j.Record) store.RawMember {
	return store.RawMember{
		ID:            recordInt(rec, "id"),
		Name:          recordString(rec, "name"),
		ParentID:      recordInt(rec, "parent_id"),
		BaseTypeID:    recordInt(rec, "base_type_id"),
		Offset:        recordOptInt(rec, "offset"),
		Count:         recordOptInt(rec, "count"),
		ArgumentIndex: recordOptInt(rec, "argument_index"),
	}
}

func rawSubstitutionFromRecord(rec *neo4j.Record) store.RawSubstitution {
	s := store.RawSubstitution{
		ID:              recordInt(rec, "id"),
		BaseTypeID:      recordInt(rec, "base_type_id"),
		Address:         uint64(recordInt64(rec, "address")),
		OperandPosition: recordInt(rec, "operand_position"),
		ExpressionID:    recordInt(rec, "expression_id"),
		Offset:          recordOptInt(rec, "offset"),
	}
	if v, ok := rec.Get("path"); ok {
		if list, ok := v.([]any); ok {
			for _, item := range list {
				if n, ok := toInt64(item); ok {
					s.Path = append(s.Path, int(n))
				}
			}
		}
	}
	return s
}

func recordInt64(rec *neo4j.Record, key string) int64 {
	v, _ := rec.Get(key)
	n, _ := toInt64(v)
	return n
}

func recordInt(rec *neo4j.Record, key string) int {
	return int(recordInt64(rec, key))
}

func recordOptInt(rec *neo4j.Record, key string) *int {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return nil
	}
	n, ok := toInt64(v)
	if !ok {
		return nil
	}
	return store.Int(int(n))
}

func recordString(rec *neo4j.Record, key string) string {
	v, _ := rec.Get(key)
	s, _ := v.(string)
	return s
}

func recordBool(rec *neo4j.Record, key string) bool {
	v, _ := rec.Get(key)
	b, _ := v.(bool)
	return b
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}
