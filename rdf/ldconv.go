package rdf

import (
	"context"
	"fmt"
	"sort"
	"strings"

	ld "github.com/piprate/json-gold/ld"
)

const ldDefaultGraph = "@default"

// FromLDDataset converts a json-gold RDF dataset, for example the result of
// JSON-LD ToRDF, into quads. Graph names are visited in sorted order.
// Generalized RDF (blank node predicates) is rejected with ErrInvalidInput.
func FromLDDataset(dataset *ld.RDFDataset) ([]Quad, error) {
	if dataset == nil {
		return nil, nil
	}
	names := make([]string, 0, len(dataset.Graphs))
	for name := range dataset.Graphs {
		names = append(names, name)
	}
	sort.Strings(names)

	var quads []Quad
	for _, name := range names {
		var graph Term
		if name != ldDefaultGraph {
			graph = graphTermFromLDName(name)
		}
		for _, lq := range dataset.Graphs[name] {
			if lq == nil {
				continue
			}
			index := len(quads)
			s, err := fromLDNode(lq.Subject)
			if err != nil {
				return nil, &InputError{Index: index, Position: "subject", Reason: err.Error()}
			}
			p, err := fromLDNode(lq.Predicate)
			if err != nil {
				return nil, &InputError{Index: index, Position: "predicate", Reason: err.Error()}
			}
			predicate, ok := p.(IRI)
			if !ok {
				return nil, &InputError{Index: index, Position: "predicate", Reason: p.Kind().String() + " not allowed"}
			}
			o, err := fromLDNode(lq.Object)
			if err != nil {
				return nil, &InputError{Index: index, Position: "object", Reason: err.Error()}
			}
			quads = append(quads, Quad{S: s, P: predicate, O: o, G: graph})
		}
	}
	return quads, nil
}

// ToLDDataset converts quads into a json-gold RDF dataset. Triple terms have
// no json-gold form and fail with ErrInvalidInput.
func ToLDDataset(quads []Quad) (*ld.RDFDataset, error) {
	dataset := &ld.RDFDataset{Graphs: map[string][]*ld.Quad{ldDefaultGraph: {}}}
	for i, q := range quads {
		name := ldDefaultGraph
		var graph ld.Node
		if !q.InDefaultGraph() {
			g, err := toLDNode(q.G)
			if err != nil {
				return nil, &InputError{Index: i, Position: "graph", Quad: q, Reason: err.Error()}
			}
			graph = g
			name = graph.GetValue()
		}
		s, err := toLDNode(q.S)
		if err != nil {
			return nil, &InputError{Index: i, Position: "subject", Quad: q, Reason: err.Error()}
		}
		o, err := toLDNode(q.O)
		if err != nil {
			return nil, &InputError{Index: i, Position: "object", Quad: q, Reason: err.Error()}
		}
		dataset.Graphs[name] = append(dataset.Graphs[name], &ld.Quad{
			Subject:   s,
			Predicate: ld.IRI{Value: q.P.Value},
			Object:    o,
			Graph:     graph,
		})
	}
	return dataset, nil
}

// CanonicalizeLDDataset canonicalizes a json-gold dataset.
func CanonicalizeLDDataset(ctx context.Context, dataset *ld.RDFDataset, opts ...Option) (string, error) {
	quads, err := FromLDDataset(dataset)
	if err != nil {
		return "", err
	}
	return Canonicalize(ctx, quads, opts...)
}

func graphTermFromLDName(name string) Term {
	if strings.HasPrefix(name, "_:") {
		return BlankNode{ID: strings.TrimPrefix(name, "_:")}
	}
	return IRI{Value: name}
}

func fromLDNode(node ld.Node) (Term, error) {
	switch n := node.(type) {
	case ld.IRI:
		return IRI{Value: n.Value}, nil
	case *ld.IRI:
		return IRI{Value: n.Value}, nil
	case ld.BlankNode:
		return BlankNode{ID: strings.TrimPrefix(n.Attribute, "_:")}, nil
	case *ld.BlankNode:
		return BlankNode{ID: strings.TrimPrefix(n.Attribute, "_:")}, nil
	case ld.Literal:
		return fromLDLiteral(n), nil
	case *ld.Literal:
		return fromLDLiteral(*n), nil
	case nil:
		return nil, fmt.Errorf("missing term")
	default:
		return nil, fmt.Errorf("unsupported node type %T", node)
	}
}

func fromLDLiteral(l ld.Literal) Literal {
	lit := Literal{Lexical: l.Value, Lang: l.Language}
	if l.Language == "" && l.Datatype != xsdString {
		lit.Datatype = IRI{Value: l.Datatype}
	}
	return lit
}

func toLDNode(term Term) (ld.Node, error) {
	switch t := term.(type) {
	case IRI:
		return ld.IRI{Value: t.Value}, nil
	case BlankNode:
		return ld.BlankNode{Attribute: t.String()}, nil
	case Literal:
		datatype := t.Datatype.Value
		switch {
		case t.Lang != "":
			datatype = rdfLangString
		case datatype == "":
			datatype = xsdString
		}
		return ld.Literal{Value: t.Lexical, Datatype: datatype, Language: t.Lang}, nil
	case nil:
		return nil, fmt.Errorf("missing term")
	default:
		return nil, fmt.Errorf("%s not allowed", term.Kind())
	}
}
