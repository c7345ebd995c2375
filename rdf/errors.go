package rdf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrorCode represents a programmatic error code for error handling.
type ErrorCode string

const (
	// ErrCodeUnsupportedFormat indicates an unsupported format.
	ErrCodeUnsupportedFormat ErrorCode = "UNSUPPORTED_FORMAT"
	// ErrCodeLineTooLong indicates a line exceeded the configured limit.
	ErrCodeLineTooLong ErrorCode = "LINE_TOO_LONG"
	// ErrCodeQuadLimitExceeded indicates that the maximum number of quads was exceeded.
	ErrCodeQuadLimitExceeded ErrorCode = "QUAD_LIMIT_EXCEEDED"
	// ErrCodeParseError indicates a general parse error.
	ErrCodeParseError ErrorCode = "PARSE_ERROR"
	// ErrCodeContextCanceled indicates the context was canceled or timed out.
	ErrCodeContextCanceled ErrorCode = "CONTEXT_CANCELED"
	// ErrCodeInvalidInput indicates a term in a position canonicalization does not allow.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeUnsupportedAlgorithm indicates an unknown digest algorithm.
	ErrCodeUnsupportedAlgorithm ErrorCode = "UNSUPPORTED_ALGORITHM"
	// ErrCodeResourceExhausted indicates a canonicalization budget was exceeded.
	ErrCodeResourceExhausted ErrorCode = "RESOURCE_EXHAUSTED"
	// ErrCodeInternal indicates any other failure.
	ErrCodeInternal ErrorCode = "INTERNAL"
)

var (
	// ErrUnsupportedFormat indicates an unsupported format.
	ErrUnsupportedFormat = errors.New("unsupported RDF format")
	// ErrLineTooLong indicates a line exceeded the configured limit.
	ErrLineTooLong = errors.New("rdf: line exceeds configured limit")
	// ErrQuadLimitExceeded indicates that the maximum number of quads was exceeded.
	ErrQuadLimitExceeded = errors.New("rdf: maximum number of quads exceeded")
	// ErrInvalidInput indicates a quad that cannot be canonicalized.
	ErrInvalidInput = errors.New("rdf: invalid input")
	// ErrUnsupportedAlgorithm indicates an unknown digest algorithm.
	ErrUnsupportedAlgorithm = errors.New("rdf: unsupported digest algorithm")
	// ErrResourceExhausted indicates that a canonicalization budget was exceeded.
	ErrResourceExhausted = errors.New("rdf: canonicalization budget exceeded")
)

// Code returns the error code for an error.
// Returns empty string for nil errors or io.EOF (which is not an error condition).
func Code(err error) ErrorCode {
	if err == nil || err == io.EOF {
		return ""
	}

	switch {
	case errors.Is(err, ErrUnsupportedFormat):
		return ErrCodeUnsupportedFormat
	case errors.Is(err, ErrLineTooLong):
		return ErrCodeLineTooLong
	case errors.Is(err, ErrQuadLimitExceeded):
		return ErrCodeQuadLimitExceeded
	case errors.Is(err, ErrInvalidInput):
		return ErrCodeInvalidInput
	case errors.Is(err, ErrUnsupportedAlgorithm):
		return ErrCodeUnsupportedAlgorithm
	case errors.Is(err, ErrResourceExhausted):
		return ErrCodeResourceExhausted
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ErrCodeContextCanceled
	}

	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return ErrCodeParseError
	}
	return ErrCodeInternal
}

// ParseError provides structured context for parse failures.
type ParseError struct {
	Format    string // Format name (e.g., "nquads")
	Statement string // Offending statement or input excerpt
	Line      int    // 1-based line number (0 if unknown)
	Column    int    // 1-based column number (0 if unknown)
	Offset    int    // Byte offset in the statement (-1 if unknown)
	Err       error  // Underlying error
}

func (e *ParseError) Error() string {
	var msg strings.Builder
	msg.WriteString(e.Format)

	if e.Line > 0 {
		if e.Column > 0 {
			fmt.Fprintf(&msg, ":%d:%d", e.Line, e.Column)
		} else {
			fmt.Fprintf(&msg, ":%d", e.Line)
		}
	} else if e.Offset >= 0 {
		fmt.Fprintf(&msg, " (offset %d)", e.Offset)
	}

	msg.WriteString(": ")
	msg.WriteString(e.Err.Error())

	if excerpt := e.formatExcerpt(); excerpt != "" {
		msg.WriteString("\n  ")
		msg.WriteString(excerpt)
	}

	return msg.String()
}

// formatExcerpt shows the statement around the error column with a caret.
func (e *ParseError) formatExcerpt() string {
	if e.Statement == "" {
		return ""
	}

	const maxExcerptLen = 80
	const contextLen = 40

	if e.Column <= 0 {
		if len(e.Statement) > maxExcerptLen {
			return e.Statement[:maxExcerptLen] + "..."
		}
		return e.Statement
	}

	start := min(e.Column-1, len(e.Statement))
	excerptStart := max(start-contextLen, 0)
	excerptEnd := min(start+contextLen, len(e.Statement))

	excerpt := e.Statement[excerptStart:excerptEnd]
	caretPos := start - excerptStart
	if excerptStart > 0 {
		excerpt = "..." + excerpt
		caretPos += 3
	}
	if excerptEnd < len(e.Statement) {
		excerpt += "..."
	}

	return excerpt + "\n  " + strings.Repeat(" ", caretPos) + "^"
}

func (e *ParseError) Unwrap() error { return e.Err }

// wrapParseErrorWithPosition adds format/statement/position context to an error.
func wrapParseErrorWithPosition(format, statement string, line, column, offset int, err error) error {
	if err == nil {
		return nil
	}
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		if parseErr.Line > 0 && line == 0 {
			line = parseErr.Line
		}
		if parseErr.Column > 0 && column == 0 {
			column = parseErr.Column
		}
	}
	return &ParseError{
		Format:    format,
		Statement: statement,
		Line:      line,
		Column:    column,
		Offset:    offset,
		Err:       err,
	}
}

// InputError reports a quad that violates the canonicalization input contract,
// such as a literal in subject position or an RDF-star triple term.
type InputError struct {
	Index    int    // position of the quad in the input
	Position string // "subject", "predicate", "object" or "graph"
	Quad     Quad
	Reason   string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("rdf: invalid input: quad %d %s: %s", e.Index, e.Position, e.Reason)
}

// Unwrap lets errors.Is match ErrInvalidInput.
func (e *InputError) Unwrap() error { return ErrInvalidInput }

// AlgorithmError reports an unknown digest algorithm name.
type AlgorithmError struct {
	Algorithm string
}

func (e *AlgorithmError) Error() string {
	return fmt.Sprintf("rdf: unsupported digest algorithm %q", e.Algorithm)
}

// Unwrap lets errors.Is match ErrUnsupportedAlgorithm.
func (e *AlgorithmError) Unwrap() error { return ErrUnsupportedAlgorithm }

// BudgetError reports which canonicalization budget was exceeded.
type BudgetError struct {
	Budget string // "permutations" or "deep-iterations"
	Limit  int64
	Node   string // blank node being hashed when the budget tripped
}

func (e *BudgetError) Error() string {
	return fmt.Sprintf("rdf: canonicalization budget exceeded: %s limit %d reached at %s", e.Budget, e.Limit, e.Node)
}

// Unwrap lets errors.Is match ErrResourceExhausted.
func (e *BudgetError) Unwrap() error { return ErrResourceExhausted }
