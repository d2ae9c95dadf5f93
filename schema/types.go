// Package schema models the typespace, tables, and reducers describing a
// database module, and resolves it from the JSON document served by the
// schema introspection endpoint.
//
// The typespace forms an index-based graph during parsing (Design note:
// schema-indexed refs): an owned arena of type definitions indexed by
// position, exactly as the schema JSON names them. Resolution walks that
// arena and clones resolved subtrees into every table column and reducer
// parameter so that no Ref survives past parsing; this trades an upfront
// resolution pass for decode-time code that never has to chase an index.
package schema

import "fmt"

// Kind identifies the shape of an AlgebraicType.
type Kind string

// Primitive and compound type kinds. A Ref never appears in a type reached
// from a table column or reducer parameter once parsing has completed.
const (
	KindBool    Kind = "bool"
	KindU8      Kind = "u8"
	KindU16     Kind = "u16"
	KindU32     Kind = "u32"
	KindU64     Kind = "u64"
	KindU128    Kind = "u128"
	KindU256    Kind = "u256"
	KindI8      Kind = "i8"
	KindI16     Kind = "i16"
	KindI32     Kind = "i32"
	KindI64     Kind = "i64"
	KindI128    Kind = "i128"
	KindI256    Kind = "i256"
	KindF32     Kind = "f32"
	KindF64     Kind = "f64"
	KindString  Kind = "string"
	KindBytes   Kind = "bytes"
	KindArray   Kind = "array"
	KindOption  Kind = "option"
	KindProduct Kind = "product"
	KindSum     Kind = "sum"
	KindRef     Kind = "ref"
)

type (
	// AlgebraicType is a node in the tagged variant tree spec.md §3 defines.
	// Only the fields relevant to Kind are populated.
	AlgebraicType struct {
		Kind Kind

		// Elem is the element type for Array and the payload type for Option.
		Elem *AlgebraicType

		// Elements holds Product fields in declaration order.
		Elements []Column

		// Variants holds Sum variants in declaration order.
		Variants []Variant

		// RefIndex is the typespace index this node points at. Only valid
		// before ref resolution; zero afterward and unused.
		RefIndex uint32
	}

	// Column is an ordered (name, type) pair. Name may be empty at the wire
	// level but is required once a product is used as a table's row type or
	// a reducer's parameter list.
	Column struct {
		Name string
		Type AlgebraicType
	}

	// Variant is one arm of a Sum: a name and, for non-payloadless variants,
	// a type.
	Variant struct {
		Name string
		Type *AlgebraicType
	}

	// TableDef describes one table: its name, its row columns in order, and
	// the column indices making up its primary key.
	TableDef struct {
		Name       string
		Columns    []Column
		PrimaryKey []int
	}

	// ReducerDef describes one reducer: its name and its parameter columns,
	// which are wire-encoded as an anonymous Product.
	ReducerDef struct {
		Name   string
		Params []Column
	}

	// Schema is the fully resolved result of parsing a schema document: the
	// typespace itself is discarded after resolution; only the resolved
	// tables and reducers are kept.
	Schema struct {
		Tables   map[string]TableDef
		Reducers map[string]ReducerDef
	}
)

// ErrorKind classifies a schema-level failure.
type ErrorKind string

const (
	// InvalidDocument means the raw JSON failed the embedded JSON Schema
	// validation gate, or Parse found it malformed (unmarshal failure, a
	// table ref that is not a product, a Ref without an index, or an
	// unknown type tag).
	InvalidDocument ErrorKind = "invalid_document"
	// UnresolvedRef means a Ref index could not be inlined, either because
	// it pointed outside the typespace or a cycle was detected.
	UnresolvedRef ErrorKind = "unresolved_ref"
	// UnknownTable is returned by queries for a table name the schema does
	// not define.
	UnknownTable ErrorKind = "unknown_table"
	// UnknownReducer is returned by queries for a reducer name the schema
	// does not define.
	UnknownReducer ErrorKind = "unknown_reducer"
)

// Error reports a schema-level failure.
type Error struct {
	Kind   ErrorKind
	Name   string
	Index  uint32
	Detail string
}

func (e *Error) Error() string {
	switch e.Kind {
	case InvalidDocument:
		return fmt.Sprintf("schema: invalid document: %s", e.Detail)
	case UnresolvedRef:
		return fmt.Sprintf("schema: unresolved ref %d", e.Index)
	case UnknownTable:
		return fmt.Sprintf("schema: unknown table %q", e.Name)
	case UnknownReducer:
		return fmt.Sprintf("schema: unknown reducer %q", e.Name)
	default:
		return "schema: error"
	}
}

// ColumnsFor returns the ordered columns of a table, or an UnknownTable
// error.
func (s *Schema) ColumnsFor(table string) ([]Column, error) {
	t, ok := s.Tables[table]
	if !ok {
		return nil, &Error{Kind: UnknownTable, Name: table}
	}
	return t.Columns, nil
}

// PrimaryKeyFor returns a table's primary-key column indices, or an
// UnknownTable error.
func (s *Schema) PrimaryKeyFor(table string) ([]int, error) {
	t, ok := s.Tables[table]
	if !ok {
		return nil, &Error{Kind: UnknownTable, Name: table}
	}
	return t.PrimaryKey, nil
}

// Reducer returns a reducer definition by name, or an UnknownReducer error.
func (s *Schema) Reducer(name string) (ReducerDef, error) {
	r, ok := s.Reducers[name]
	if !ok {
		return ReducerDef{}, &Error{Kind: UnknownReducer, Name: name}
	}
	return r, nil
}
