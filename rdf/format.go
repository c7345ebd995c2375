package rdf

import "strings"

// Format identifies the line-based RDF serializations understood by the codec.
type Format string

const (
	FormatNTriples Format = "ntriples"
	FormatNQuads   Format = "nquads"
)

// ParseFormat normalizes a format string.
func ParseFormat(value string) (Format, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "nquads", "nq", "n-quads", "application/n-quads":
		return FormatNQuads, true
	case "ntriples", "nt", "n-triples", "application/n-triples":
		return FormatNTriples, true
	default:
		return "", false
	}
}

// FormatFromPath infers the format from a file extension.
func FormatFromPath(path string) (Format, bool) {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".nq"):
		return FormatNQuads, true
	case strings.HasSuffix(lower, ".nt"):
		return FormatNTriples, true
	default:
		return "", false
	}
}
