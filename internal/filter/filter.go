// Package filter translates the daemon's GenericFilter query language into
// parameterized SQL fragments usable against lib/pq-backed Postgres stores.
package filter

import (
	"fmt"
	"strings"
)

// ClauseOp enumerates comparison operators available on a filter column.
type ClauseOp string

const (
	OpEq        ClauseOp = "Eq"
	OpNe        ClauseOp = "Ne"
	OpGt        ClauseOp = "Gt"
	OpLt        ClauseOp = "Lt"
	OpGe        ClauseOp = "Ge"
	OpLe        ClauseOp = "Le"
	OpLike      ClauseOp = "Like"
	OpNotLike   ClauseOp = "NotLike"
	OpIn        ClauseOp = "In"
	OpNotIn     ClauseOp = "NotIn"
	OpIsNull    ClauseOp = "IsNull"
	OpIsNotNull ClauseOp = "IsNotNull"
	OpContains  ClauseOp = "Contains"
	OpHasKey    ClauseOp = "HasKey"
)

// ColumnType restricts which operators a column may be filtered with and how
// its SQL is emitted.
type ColumnType string

const (
	TypeText        ColumnType = "Text"
	TypeUuid        ColumnType = "Uuid"
	TypeTimestamptz ColumnType = "Timestamptz"
	TypeJsonb       ColumnType = "Jsonb"
)

// Clause is one column's comparison within a filter.
type Clause struct {
	Op    ClauseOp
	Value any
}

// GenericFilter is the daemon's structured query input: a where-map, an
// optional OR-disjunction of such maps, paging, and ordering.
type GenericFilter struct {
	Where   map[string]Clause
	Or      []map[string]Clause
	Limit   int
	Offset  int
	OrderBy []string // "column" or "column DESC" / "column ASC"
}

const DefaultLimit = 100

// Schema declares the column whitelist (name -> type) an entity accepts.
// Filter keys outside the whitelist are silently ignored, so forward
// compatible clients may send unknown keys without error.
type Schema map[string]ColumnType

// Clamp applies the default/limit rules. Call before Build.
func (f *GenericFilter) Clamp() {
	if f.Limit <= 0 {
		f.Limit = DefaultLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}

// Build renders a WHERE clause (without the leading "WHERE"), an ORDER BY
// clause, and a LIMIT/OFFSET clause, plus the positional args for the WHERE
// clause. argOffset is the number of placeholders already used by the
// caller's query (0 if none).
func Build(f GenericFilter, schema Schema, argOffset int) (where string, order string, limitOffset string, args []any, err error) {
	f.Clamp()

	n := argOffset
	var whereParts []string
	var orParts []string

	mainClause, mainArgs, err := buildConjunction(f.Where, schema, &n)
	if err != nil {
		return "", "", "", nil, err
	}
	if mainClause != "" {
		whereParts = append(whereParts, mainClause)
	}
	args = append(args, mainArgs...)

	for _, group := range f.Or {
		groupClause, groupArgs, err := buildConjunction(group, schema, &n)
		if err != nil {
			return "", "", "", nil, err
		}
		if groupClause != "" {
			orParts = append(orParts, groupClause)
			args = append(args, groupArgs...)
		}
	}

	switch {
	case len(whereParts) > 0 && len(orParts) > 0:
		where = fmt.Sprintf("(%s) OR (%s)", whereParts[0], strings.Join(orParts, " OR "))
	case len(whereParts) > 0:
		where = whereParts[0]
	case len(orParts) > 0:
		where = strings.Join(orParts, " OR ")
	default:
		where = "TRUE"
	}

	order = buildOrderBy(f.OrderBy, schema)
	limitOffset = fmt.Sprintf("LIMIT %d OFFSET %d", f.Limit, f.Offset)
	return where, order, limitOffset, args, nil
}

func buildConjunction(where map[string]Clause, schema Schema, n *int) (string, []any, error) {
	if len(where) == 0 {
		return "", nil, nil
	}
	var parts []string
	var args []any

	for col, clause := range where {
		colType, ok := schema[col]
		if !ok {
			// Unknown filter keys are silently ignored for forward compatibility.
			continue
		}
		frag, frgArgs, err := buildClause(col, colType, clause, n)
		if err != nil {
			return "", nil, err
		}
		if frag == "" {
			continue
		}
		parts = append(parts, frag)
		args = append(args, frgArgs...)
	}
	if len(parts) == 0 {
		return "", nil, nil
	}
	return strings.Join(parts, " AND "), args, nil
}

func buildClause(col string, colType ColumnType, clause Clause, n *int) (string, []any, error) {
	next := func() string {
		*n++
		return fmt.Sprintf("$%d", *n)
	}

	switch clause.Op {
	case OpEq:
		return fmt.Sprintf("%s = %s", col, next()), []any{clause.Value}, nil
	case OpNe:
		return fmt.Sprintf("%s != %s", col, next()), []any{clause.Value}, nil
	case OpGt:
		return fmt.Sprintf("%s > %s", col, next()), []any{clause.Value}, nil
	case OpLt:
		return fmt.Sprintf("%s < %s", col, next()), []any{clause.Value}, nil
	case OpGe:
		return fmt.Sprintf("%s >= %s", col, next()), []any{clause.Value}, nil
	case OpLe:
		return fmt.Sprintf("%s <= %s", col, next()), []any{clause.Value}, nil
	case OpLike:
		return fmt.Sprintf("%s LIKE %s", col, next()), []any{clause.Value}, nil
	case OpNotLike:
		return fmt.Sprintf("%s NOT LIKE %s", col, next()), []any{clause.Value}, nil
	case OpIn:
		return fmt.Sprintf("%s = ANY(%s)", col, next()), []any{clause.Value}, nil
	case OpNotIn:
		return fmt.Sprintf("%s != ALL(%s)", col, next()), []any{clause.Value}, nil
	case OpIsNull:
		return fmt.Sprintf("%s IS NULL", col), nil, nil
	case OpIsNotNull:
		return fmt.Sprintf("%s IS NOT NULL", col), nil, nil
	case OpContains:
		if colType != TypeJsonb {
			return "", nil, fmt.Errorf("filter: Contains only applies to Jsonb columns, got %s on %q", colType, col)
		}
		return fmt.Sprintf("%s @> %s", col, next()), []any{clause.Value}, nil
	case OpHasKey:
		if colType != TypeJsonb {
			return "", nil, fmt.Errorf("filter: HasKey only applies to Jsonb columns, got %s on %q", colType, col)
		}
		return fmt.Sprintf("%s ? %s", col, next()), []any{clause.Value}, nil
	default:
		return "", nil, fmt.Errorf("filter: unknown clause op %q", clause.Op)
	}
}

func buildOrderBy(orderBy []string, schema Schema) string {
	if len(orderBy) == 0 {
		return ""
	}
	var parts []string
	for _, o := range orderBy {
		fields := strings.Fields(o)
		if len(fields) == 0 {
			continue
		}
		col := fields[0]
		if _, ok := schema[col]; !ok {
			continue
		}
		dir := "ASC"
		if len(fields) > 1 && strings.EqualFold(fields[1], "DESC") {
			dir = "DESC"
		}
		parts = append(parts, fmt.Sprintf("%s %s", col, dir))
	}
	if len(parts) == 0 {
		return ""
	}
	return "ORDER BY " + strings.Join(parts, ", ")
}
