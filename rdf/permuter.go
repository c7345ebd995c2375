package rdf

import (
	"cmp"
	"slices"
)

// Permuter enumerates every permutation of a list in Steinhaus-Johnson-Trotter
// order, starting from the sorted list. Direction flags are keyed by element
// value, so repeated elements share a flag and never swap with each other.
type Permuter[T cmp.Ordered] struct {
	current []T
	left    map[T]bool
	done    bool
}

// NewPermuter copies and sorts list. The sorted copy is the first permutation.
func NewPermuter[T cmp.Ordered](list []T) *Permuter[T] {
	current := slices.Clone(list)
	slices.Sort(current)
	left := make(map[T]bool, len(current))
	for _, element := range current {
		left[element] = true
	}
	return &Permuter[T]{current: current, left: left}
}

// HasNext reports whether Next will return another permutation.
func (p *Permuter[T]) HasNext() bool { return !p.done }

// Next returns the current permutation and advances to the next one.
func (p *Permuter[T]) Next() []T {
	out := slices.Clone(p.current)

	// find the largest mobile element
	var k T
	pos := -1
	n := len(p.current)
	for i, element := range p.current {
		if pos != -1 && element <= k {
			continue
		}
		left := p.left[element]
		if (left && i > 0 && element > p.current[i-1]) ||
			(!left && i < n-1 && element > p.current[i+1]) {
			k, pos = element, i
		}
	}

	if pos == -1 {
		p.done = true
		return out
	}

	swap := pos + 1
	if p.left[k] {
		swap = pos - 1
	}
	p.current[pos], p.current[swap] = p.current[swap], k
	for _, element := range p.current {
		if element > k {
			p.left[element] = !p.left[element]
		}
	}
	return out
}
