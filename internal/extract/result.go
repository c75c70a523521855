// Package extract holds the per-field extractors of the standardization
// engine. Every extractor is built once from configuration tables, holds no
// mutable state and never fails: problems are reported as quality flags.
package extract

import "github.com/ppiankov/gpuscout/internal/normalize"

// Result is the outcome of extracting one field.
// Ambiguous implies Found: the tie-break winner is always returned.
type Result[T any] struct {
	Value     T
	Found     bool
	Span      *normalize.Span // Where the value was matched, nil when absent
	Ambiguous bool            // Several candidate values competed
	Flags     []string
}

func found[T any](v T, span normalize.Span, ambiguous bool, flags ...string) Result[T] {
	return Result[T]{
		Value:     v,
		Found:     true,
		Span:      &span,
		Ambiguous: ambiguous,
		Flags:     flags,
	}
}

func absent[T any](v T, flags ...string) Result[T] {
	return Result[T]{Value: v, Flags: flags}
}
