package rdf

import "strconv"

const (
	canonicalPrefix = "_:c14n"
	temporaryPrefix = "_:b"
)

// IdentifierIssuer issues sequential blank node labels ("<prefix><n>") to
// arbitrary identifiers, remembering every mapping and the order of issuance.
// The zero value is not usable; call NewIdentifierIssuer.
type IdentifierIssuer struct {
	prefix  string
	counter int
	issued  map[string]string
	oldIDs  []string
}

// NewIdentifierIssuer creates an issuer whose labels start with prefix.
func NewIdentifierIssuer(prefix string) *IdentifierIssuer {
	return &IdentifierIssuer{prefix: prefix, issued: make(map[string]string)}
}

// Prefix returns the label prefix.
func (i *IdentifierIssuer) Prefix() string { return i.prefix }

// ID returns the label issued for oldID, issuing the next one on first use.
func (i *IdentifierIssuer) ID(oldID string) string {
	if id, ok := i.issued[oldID]; ok {
		return id
	}
	id := i.prefix + strconv.Itoa(i.counter)
	i.counter++
	i.issued[oldID] = id
	i.oldIDs = append(i.oldIDs, oldID)
	return id
}

// HasID reports whether oldID has been issued a label.
func (i *IdentifierIssuer) HasID(oldID string) bool {
	_, ok := i.issued[oldID]
	return ok
}

// OldIDs returns the identifiers in the order they were issued labels.
// The returned slice is a snapshot.
func (i *IdentifierIssuer) OldIDs() []string {
	out := make([]string, len(i.oldIDs))
	copy(out, i.oldIDs)
	return out
}

// Issued returns a copy of the oldID -> label mapping.
func (i *IdentifierIssuer) Issued() map[string]string {
	out := make(map[string]string, len(i.issued))
	for k, v := range i.issued {
		out[k] = v
	}
	return out
}

// Len returns the number of labels issued.
func (i *IdentifierIssuer) Len() int { return len(i.oldIDs) }

// Clone returns an independent copy of the issuer.
func (i *IdentifierIssuer) Clone() *IdentifierIssuer {
	return &IdentifierIssuer{
		prefix:  i.prefix,
		counter: i.counter,
		issued:  i.Issued(),
		oldIDs:  i.OldIDs(),
	}
}
