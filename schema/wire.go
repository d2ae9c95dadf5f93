package schema

// wireDocument mirrors the JSON document shape spec.md §4.2 describes:
// typespace.types (an ordered list of product/sum definitions), tables
// (each referencing a product in the typespace by index), and reducers
// (each with an inline parameter product).
type wireDocument struct {
	Typespace wireTypespace `json:"typespace"`
	Tables    []wireTable   `json:"tables"`
	Reducers  []wireReducer `json:"reducers"`
}

type wireTypespace struct {
	Types []wireType `json:"types"`
}

type wireTable struct {
	Name           string `json:"name"`
	ProductTypeRef uint32 `json:"product_type_ref"`
	PrimaryKey     []int  `json:"primary_key"`
}

type wireReducer struct {
	Name   string        `json:"name"`
	Params []wireElement `json:"params"`
}

// wireType is the tagged-union JSON shape of one AlgebraicType. Exactly one
// of the pointer/slice fields is populated, selected by Tag.
type wireType struct {
	Tag string `json:"tag"`

	// Array and Option both carry a single inner type.
	Elem *wireType `json:"elem,omitempty"`

	// Product carries its fields.
	Elements []wireElement `json:"elements,omitempty"`

	// Sum carries its variants.
	Variants []wireVariant `json:"variants,omitempty"`

	// Ref is a typespace index, populated only when Tag == "Ref".
	Ref *uint32 `json:"ref,omitempty"`
}

type wireElement struct {
	Name *string  `json:"name,omitempty"`
	Type wireType `json:"type"`
}

type wireVariant struct {
	Name string    `json:"name"`
	Type *wireType `json:"type,omitempty"`
}

// tagKind maps the wire tag strings onto the in-memory Kind enum for every
// leaf (non-compound) primitive. Compound tags (Array/Option/Product/Sum/
// Ref) are handled explicitly in resolveType since they carry payload.
var tagKind = map[string]Kind{
	"Bool":   KindBool,
	"U8":     KindU8,
	"U16":    KindU16,
	"U32":    KindU32,
	"U64":    KindU64,
	"U128":   KindU128,
	"U256":   KindU256,
	"I8":     KindI8,
	"I16":    KindI16,
	"I32":    KindI32,
	"I64":    KindI64,
	"I128":   KindI128,
	"I256":   KindI256,
	"F32":    KindF32,
	"F64":    KindF64,
	"String": KindString,
	"Bytes":  KindBytes,
}
