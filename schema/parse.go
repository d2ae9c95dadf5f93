package schema

import (
	"encoding/json"
	"fmt"
)

// maxResolveDepth bounds ref-inlining recursion. The typespace is not
// expected to contain cycles; if one is encountered, resolution terminates
// with an UnresolvedRef error instead of recursing forever.
const maxResolveDepth = 64

// Parse parses a schema JSON document (already validated against the
// embedded JSON Schema by Validate, or by the caller) into a fully
// resolved Schema: every Ref reachable from a table column or reducer
// parameter is inlined.
func Parse(raw []byte) (*Schema, error) {
	var doc wireDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, &Error{Kind: InvalidDocument, Detail: err.Error()}
	}
	return parseDocument(&doc)
}

func parseDocument(doc *wireDocument) (*Schema, error) {
	r := newResolver(doc.Typespace.Types)

	tables := make(map[string]TableDef, len(doc.Tables))
	for _, wt := range doc.Tables {
		def, err := r.resolveTable(wt)
		if err != nil {
			return nil, err
		}
		tables[def.Name] = def
	}

	reducers := make(map[string]ReducerDef, len(doc.Reducers))
	for _, wr := range doc.Reducers {
		def, err := r.resolveReducer(wr)
		if err != nil {
			return nil, err
		}
		reducers[def.Name] = def
	}

	return &Schema{Tables: tables, Reducers: reducers}, nil
}

// resolver holds the typespace arena and memoizes per-index resolution so a
// type referenced from multiple tables/reducers is only walked once.
type resolver struct {
	arena     []wireType
	resolved  []*AlgebraicType
	resolving []bool
}

func newResolver(types []wireType) *resolver {
	return &resolver{
		arena:     types,
		resolved:  make([]*AlgebraicType, len(types)),
		resolving: make([]bool, len(types)),
	}
}

func (r *resolver) resolveTable(wt wireTable) (TableDef, error) {
	t, err := r.resolveIndex(wt.ProductTypeRef, 0)
	if err != nil {
		return TableDef{}, err
	}
	if t.Kind != KindProduct {
		return TableDef{}, &Error{
			Kind: InvalidDocument,
			Name: wt.Name,
			Detail: fmt.Sprintf("table %q product_type_ref %d does not resolve to a product",
				wt.Name, wt.ProductTypeRef),
		}
	}
	return TableDef{
		Name:       wt.Name,
		Columns:    t.Elements,
		PrimaryKey: wt.PrimaryKey,
	}, nil
}

func (r *resolver) resolveReducer(wr wireReducer) (ReducerDef, error) {
	params := make([]Column, len(wr.Params))
	for i, el := range wr.Params {
		t, err := r.resolveType(el.Type, 0)
		if err != nil {
			return ReducerDef{}, err
		}
		params[i] = Column{Name: nameOf(el.Name), Type: t}
	}
	return ReducerDef{Name: wr.Name, Params: params}, nil
}

// resolveIndex resolves the typespace entry at i, inlining any nested Refs,
// and memoizes the result. A cycle (an index currently being resolved is
// requested again) or a depth overrun both produce UnresolvedRef.
func (r *resolver) resolveIndex(i uint32, depth int) (AlgebraicType, error) {
	if depth > maxResolveDepth {
		return AlgebraicType{}, &Error{Kind: UnresolvedRef, Index: i}
	}
	if int(i) >= len(r.arena) {
		return AlgebraicType{}, &Error{Kind: UnresolvedRef, Index: i}
	}
	if r.resolved[i] != nil {
		return *r.resolved[i], nil
	}
	if r.resolving[i] {
		return AlgebraicType{}, &Error{Kind: UnresolvedRef, Index: i}
	}

	r.resolving[i] = true
	t, err := r.resolveType(r.arena[i], depth+1)
	r.resolving[i] = false
	if err != nil {
		return AlgebraicType{}, err
	}

	r.resolved[i] = &t
	return t, nil
}

// resolveType converts one wireType node into an AlgebraicType, recursively
// resolving nested Refs so the result is self-contained.
func (r *resolver) resolveType(w wireType, depth int) (AlgebraicType, error) {
	if kind, ok := tagKind[w.Tag]; ok {
		return AlgebraicType{Kind: kind}, nil
	}

	switch w.Tag {
	case "Array":
		inner, err := r.resolveType(*w.Elem, depth+1)
		if err != nil {
			return AlgebraicType{}, err
		}
		return AlgebraicType{Kind: KindArray, Elem: &inner}, nil

	case "Option":
		inner, err := r.resolveType(*w.Elem, depth+1)
		if err != nil {
			return AlgebraicType{}, err
		}
		return AlgebraicType{Kind: KindOption, Elem: &inner}, nil

	case "Product":
		cols := make([]Column, len(w.Elements))
		for i, el := range w.Elements {
			t, err := r.resolveType(el.Type, depth+1)
			if err != nil {
				return AlgebraicType{}, err
			}
			cols[i] = Column{Name: nameOf(el.Name), Type: t}
		}
		return AlgebraicType{Kind: KindProduct, Elements: cols}, nil

	case "Sum":
		variants := make([]Variant, len(w.Variants))
		for i, v := range w.Variants {
			var vt *AlgebraicType
			if v.Type != nil {
				t, err := r.resolveType(*v.Type, depth+1)
				if err != nil {
					return AlgebraicType{}, err
				}
				vt = &t
			}
			variants[i] = Variant{Name: v.Name, Type: vt}
		}
		if opt, ok := asOption(variants); ok {
			return opt, nil
		}
		return AlgebraicType{Kind: KindSum, Variants: variants}, nil

	case "Ref":
		if w.Ref == nil {
			return AlgebraicType{}, &Error{Kind: InvalidDocument, Detail: "Ref node missing ref index"}
		}
		return r.resolveIndex(*w.Ref, depth)

	default:
		return AlgebraicType{}, &Error{Kind: InvalidDocument, Detail: fmt.Sprintf("unknown type tag %q", w.Tag)}
	}
}

// asOption recognizes a sum whose two variants are named "some" and "none"
// as Option(inner), per spec.md §4.2.
func asOption(variants []Variant) (AlgebraicType, bool) {
	if len(variants) != 2 {
		return AlgebraicType{}, false
	}
	var some, none *Variant
	for i := range variants {
		switch variants[i].Name {
		case "some":
			some = &variants[i]
		case "none":
			none = &variants[i]
		}
	}
	if some == nil || none == nil || some.Type == nil {
		return AlgebraicType{}, false
	}
	return AlgebraicType{Kind: KindOption, Elem: some.Type}, true
}

func nameOf(name *string) string {
	if name == nil {
		return ""
	}
	return *name
}
