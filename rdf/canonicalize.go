package rdf

import (
	"context"
	"slices"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

// Canonicalizer computes the URDNA2015 canonical form of RDF datasets.
// A Canonicalizer holds only configuration and is safe for concurrent use;
// every call runs with its own state.
type Canonicalizer struct {
	opts Options
}

// Result is the outcome of one canonicalization run.
type Result struct {
	// NQuads is the canonical N-Quads document: sorted lines, each ending in "\n".
	NQuads string
	// Quads holds the relabeled quads in output order.
	Quads []Quad
	// IssuedIDs maps every input blank node ID to the ID it carries in the output.
	IssuedIDs map[string]string
}

// NewCanonicalizer creates a canonicalizer.
func NewCanonicalizer(opts ...Option) *Canonicalizer {
	return &Canonicalizer{opts: buildOptions(opts)}
}

// Canonicalize returns the canonical N-Quads form of quads.
func (c *Canonicalizer) Canonicalize(ctx context.Context, quads []Quad) (string, error) {
	res, err := c.Run(ctx, quads)
	if err != nil {
		return "", err
	}
	return res.NQuads, nil
}

// Run canonicalizes quads and returns the full result. The input is treated
// as a set: duplicate quads are emitted once.
func (c *Canonicalizer) Run(ctx context.Context, quads []Quad) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	alg, err := LookupAlgorithm(c.opts.Algorithm)
	if err != nil {
		return nil, err
	}
	run := &canonRun{
		alg:             alg,
		opts:            c.opts,
		blankNodes:      make(map[string]*blankNodeInfo),
		canonicalIssuer: NewIdentifierIssuer(canonicalPrefix),
		deepIterations:  make(map[string]int),
	}
	if err := run.index(quads); err != nil {
		return nil, err
	}
	if err := run.hashAllFirstDegree(ctx); err != nil {
		return nil, err
	}
	nonUnique := run.issueUnique()
	if err := run.resolveCollisions(ctx, nonUnique); err != nil {
		return nil, err
	}
	res := run.rewrite()

	c.opts.Logger.Debug("dataset canonicalized",
		"component", "rdfc",
		"algorithm", alg.Name(),
		"quads", len(run.quads),
		"blankNodes", len(run.order),
		"collisionGroups", len(nonUnique),
		"permutations", run.permutations)
	return res, nil
}

type blankNodeInfo struct {
	quads []int
	hash  string
}

type nDegreeResult struct {
	hash   string
	issuer *IdentifierIssuer
}

// canonRun holds the state of a single canonicalization.
type canonRun struct {
	alg  Algorithm
	opts Options

	quads      []Quad
	blankNodes map[string]*blankNodeInfo // keyed by "_:label"
	order      []string                  // blank node labels in discovery order

	canonicalIssuer *IdentifierIssuer

	permutations   int64
	deepIterations map[string]int
}

// index validates the input, drops duplicate quads and records, for every
// blank node, the quads that mention it once per position it fills.
func (r *canonRun) index(quads []Quad) error {
	seen := make(map[string]struct{}, len(quads))
	r.quads = make([]Quad, 0, len(quads))
	for i, q := range quads {
		if err := validateQuad(i, q); err != nil {
			return err
		}
		if q.InDefaultGraph() {
			q.G = nil
		}
		key := SerializeQuad(q)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		idx := len(r.quads)
		r.quads = append(r.quads, q)
		for _, term := range [...]Term{q.S, q.O, q.G} {
			b, ok := term.(BlankNode)
			if !ok {
				continue
			}
			label := b.String()
			info, ok := r.blankNodes[label]
			if !ok {
				info = &blankNodeInfo{}
				r.blankNodes[label] = info
				r.order = append(r.order, label)
			}
			// a quad naming the node in two positions is recorded twice
			info.quads = append(info.quads, idx)
		}
	}
	return nil
}

func validateQuad(i int, q Quad) error {
	invalid := func(position, reason string) error {
		return &InputError{Index: i, Position: position, Quad: q, Reason: reason}
	}
	switch s := q.S.(type) {
	case IRI:
	case BlankNode:
		if s.ID == "" {
			return invalid("subject", "empty blank node label")
		}
	case nil:
		return invalid("subject", "missing term")
	default:
		return invalid("subject", s.Kind().String()+" not allowed")
	}
	if q.P.Value == "" {
		return invalid("predicate", "missing IRI")
	}
	switch o := q.O.(type) {
	case IRI, Literal:
	case BlankNode:
		if o.ID == "" {
			return invalid("object", "empty blank node label")
		}
	case nil:
		return invalid("object", "missing term")
	default:
		return invalid("object", o.Kind().String()+" not allowed")
	}
	switch g := q.G.(type) {
	case nil, IRI, DefaultGraph:
	case BlankNode:
		if g.ID == "" {
			return invalid("graph", "empty blank node label")
		}
	default:
		return invalid("graph", g.Kind().String()+" not allowed")
	}
	return nil
}

// hashAllFirstDegree computes the first degree hash of every blank node.
// Nodes are independent, so batches run in parallel.
func (r *canonRun) hashAllFirstDegree(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Workers)
	for start := 0; start < len(r.order); start += firstDegreeBatchSize {
		batch := r.order[start:min(start+firstDegreeBatchSize, len(r.order))]
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for _, id := range batch {
				r.hashFirstDegreeQuads(id)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// hashFirstDegreeQuads hashes the sorted quads mentioning id, with id replaced
// by _:a and every other blank node by _:z. The result is cached and never
// recomputed during the run.
func (r *canonRun) hashFirstDegreeQuads(id string) string {
	info := r.blankNodes[id]
	if info.hash != "" {
		return info.hash
	}
	lines := make([]string, 0, len(info.quads))
	for _, idx := range info.quads {
		q := r.quads[idx]
		lines = append(lines, SerializeQuad(Quad{
			S: firstDegreeComponent(q.S, id),
			P: q.P,
			O: firstDegreeComponent(q.O, id),
			G: firstDegreeComponent(q.G, id),
		}))
	}
	sort.Strings(lines)
	md := r.alg.New()
	for _, line := range lines {
		md.Update(line)
	}
	info.hash = md.Digest()
	return info.hash
}

func firstDegreeComponent(term Term, id string) Term {
	b, ok := term.(BlankNode)
	if !ok {
		return term
	}
	if b.String() == id {
		return BlankNode{ID: "a"}
	}
	return BlankNode{ID: "z"}
}

// issueUnique issues canonical labels, in ascending hash order, to nodes whose
// first degree hash is unique and returns the remaining groups in that order.
func (r *canonRun) issueUnique() [][]string {
	hashToIDs := make(map[string][]string)
	for _, id := range r.order {
		h := r.blankNodes[id].hash
		hashToIDs[h] = append(hashToIDs[h], id)
	}
	hashes := make([]string, 0, len(hashToIDs))
	for h := range hashToIDs {
		hashes = append(hashes, h)
	}
	sort.Strings(hashes)

	var nonUnique [][]string
	for _, h := range hashes {
		ids := hashToIDs[h]
		if len(ids) == 1 {
			r.canonicalIssuer.ID(ids[0])
			continue
		}
		nonUnique = append(nonUnique, ids)
	}
	return nonUnique
}

// resolveCollisions issues canonical labels to nodes sharing a first degree
// hash, ordered by their N-degree hash.
func (r *canonRun) resolveCollisions(ctx context.Context, nonUnique [][]string) error {
	for _, ids := range nonUnique {
		var results []nDegreeResult
		for _, id := range ids {
			if r.canonicalIssuer.HasID(id) {
				continue
			}
			issuer := NewIdentifierIssuer(temporaryPrefix)
			issuer.ID(id)
			res, err := r.hashNDegreeQuads(ctx, id, issuer)
			if err != nil {
				return err
			}
			results = append(results, res)
		}
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].hash < results[j].hash
		})
		for _, res := range results {
			for _, old := range res.issuer.OldIDs() {
				r.canonicalIssuer.ID(old)
			}
		}
		r.opts.Logger.Debug("collision group resolved",
			"component", "rdfc",
			"size", len(ids),
			"issued", r.canonicalIssuer.Len())
	}
	return nil
}

// hashNDegreeQuads disambiguates id by exploring the blank nodes related to
// it. It returns the hash and the issuer holding the chosen labeling.
func (r *canonRun) hashNDegreeQuads(ctx context.Context, id string, issuer *IdentifierIssuer) (nDegreeResult, error) {
	if err := r.countDeepIteration(id); err != nil {
		return nDegreeResult{}, err
	}

	hashToRelated := r.createHashToRelated(id, issuer)
	hashes := make([]string, 0, len(hashToRelated))
	for h := range hashToRelated {
		hashes = append(hashes, h)
	}
	sort.Strings(hashes)

	md := r.alg.New()
	for _, h := range hashes {
		md.Update(h)

		var (
			chosenPath   string
			chosenIssuer *IdentifierIssuer
		)
		permuter := NewPermuter(hashToRelated[h])
		for n := 0; permuter.HasNext(); n++ {
			permutation := permuter.Next()
			if n%permutationYieldPeriod == 0 {
				if err := ctx.Err(); err != nil {
					return nDegreeResult{}, err
				}
			}
			if err := r.countPermutation(id); err != nil {
				return nDegreeResult{}, err
			}

			issuerCopy := issuer.Clone()
			var path strings.Builder
			var recursionList []string
			pruned := false

			for _, related := range permutation {
				if r.canonicalIssuer.HasID(related) {
					path.WriteString(r.canonicalIssuer.ID(related))
				} else {
					if !issuerCopy.HasID(related) {
						recursionList = append(recursionList, related)
					}
					path.WriteString(issuerCopy.ID(related))
				}
				if chosenIssuer != nil && path.String() >= chosenPath {
					pruned = true
					break
				}
			}
			if pruned {
				continue
			}

			for _, related := range recursionList {
				res, err := r.hashNDegreeQuads(ctx, related, issuerCopy)
				if err != nil {
					return nDegreeResult{}, err
				}
				path.WriteString(issuerCopy.ID(related))
				path.WriteString("<" + res.hash + ">")
				issuerCopy = res.issuer
				if chosenIssuer != nil && path.String() >= chosenPath {
					pruned = true
					break
				}
			}
			if pruned {
				continue
			}

			if candidate := path.String(); chosenIssuer == nil || candidate < chosenPath {
				chosenPath = candidate
				chosenIssuer = issuerCopy
			}
		}

		md.Update(chosenPath)
		issuer = chosenIssuer
	}
	return nDegreeResult{hash: md.Digest(), issuer: issuer}, nil
}

// createHashToRelated groups the blank nodes related to id by their related hash.
func (r *canonRun) createHashToRelated(id string, issuer *IdentifierIssuer) map[string][]string {
	hashToRelated := make(map[string][]string)
	for _, idx := range r.blankNodes[id].quads {
		q := r.quads[idx]
		for _, component := range [...]struct {
			term     Term
			position byte
		}{{q.S, 's'}, {q.O, 'o'}, {q.G, 'g'}} {
			b, ok := component.term.(BlankNode)
			if !ok {
				continue
			}
			related := b.String()
			if related == id {
				continue
			}
			h := r.hashRelatedBlankNode(related, q, issuer, component.position)
			hashToRelated[h] = append(hashToRelated[h], related)
		}
	}
	return hashToRelated
}

// hashRelatedBlankNode hashes a related node as seen from one quad position.
// The node is named by its canonical label, its temporary label, or else its
// cached first degree hash.
func (r *canonRun) hashRelatedBlankNode(related string, q Quad, issuer *IdentifierIssuer, position byte) string {
	var ident string
	switch {
	case r.canonicalIssuer.HasID(related):
		ident = r.canonicalIssuer.ID(related)
	case issuer.HasID(related):
		ident = issuer.ID(related)
	default:
		ident = r.blankNodes[related].hash
	}
	md := r.alg.New()
	md.Update(string(position))
	if position != 'g' {
		md.Update("<" + q.P.Value + ">")
	}
	md.Update(ident)
	return md.Digest()
}

func (r *canonRun) countPermutation(id string) error {
	r.permutations++
	if limit := r.opts.MaxPermutations; limit > 0 && r.permutations > limit {
		r.opts.Logger.Debug("permutation budget exceeded", "component", "rdfc", "node", id, "limit", limit)
		return &BudgetError{Budget: "permutations", Limit: limit, Node: id}
	}
	return nil
}

func (r *canonRun) countDeepIteration(id string) error {
	r.deepIterations[id]++
	if limit := r.opts.MaxDeepIterations; limit > 0 && r.deepIterations[id] > limit {
		r.opts.Logger.Debug("deep iteration budget exceeded", "component", "rdfc", "node", id, "limit", limit)
		return &BudgetError{Budget: "deep-iterations", Limit: int64(limit), Node: id}
	}
	return nil
}

// rewrite relabels every blank node with its canonical label and sorts the
// serialized quads. Labels already carrying the canonical prefix are kept.
func (r *canonRun) rewrite() *Result {
	type line struct {
		text string
		quad Quad
	}
	issued := make(map[string]string, len(r.order))
	relabel := func(term Term) Term {
		b, ok := term.(BlankNode)
		if !ok {
			return term
		}
		label := b.String()
		if strings.HasPrefix(label, canonicalPrefix) {
			issued[b.ID] = b.ID
			return term
		}
		out := BlankNode{ID: strings.TrimPrefix(r.canonicalIssuer.ID(label), "_:")}
		issued[b.ID] = out.ID
		return out
	}

	lines := make([]line, 0, len(r.quads))
	for _, q := range r.quads {
		cq := Quad{S: relabel(q.S), P: q.P, O: relabel(q.O), G: relabel(q.G)}
		lines = append(lines, line{text: SerializeQuad(cq), quad: cq})
	}
	slices.SortFunc(lines, func(a, b line) int { return strings.Compare(a.text, b.text) })

	var out strings.Builder
	res := &Result{Quads: make([]Quad, len(lines)), IssuedIDs: issued}
	for i, l := range lines {
		out.WriteString(l.text)
		res.Quads[i] = l.quad
	}
	res.NQuads = out.String()
	return res
}
