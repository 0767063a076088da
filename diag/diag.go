// This package contains diagnostics: non-fatal findings reported by coders while they transform
// a variable, and sinks that receive them.
package diag

import "fmt"

// Kind identifies the condition a [Diagnostic] reports.
type Kind string

const (
	// MultipleFillValues is reported when a variable declares more than one distinct fill value.
	// All of them are decoded to NaN.
	MultipleFillValues Kind = "multiple_fill_values"
	// UnsignedIgnored is reported when the _Unsigned attribute can't be applied to the data of a
	// variable and is dropped.
	UnsignedIgnored Kind = "unsigned_ignored"
)

func (k Kind) String() string {
	return string(k)
}

// Diagnostic is a single non-fatal finding about a variable.
type Diagnostic struct {
	Variable string
	Kind     Kind
	Message  string
	// Count is the number of times the finding was reported. Sinks that merge diagnostics sum
	// it, a freshly reported diagnostic has 1.
	Count int
}

func (d Diagnostic) String() string {
	if d.Count > 1 {
		return fmt.Sprintf("%s: %s (x%d)", d.Kind, d.Message, d.Count)
	}
	return fmt.Sprintf("%s: %s", d.Kind, d.Message)
}

// Sink receives diagnostics.
//
// Sinks may be called from multiple goroutines.
type Sink interface {
	Push(d Diagnostic)
}

// SinkFunc is a function [Sink].
type SinkFunc func(d Diagnostic)

func (f SinkFunc) Push(d Diagnostic) {
	f(d)
}

// Discard is a [Sink] that drops everything.
var Discard Sink = SinkFunc(func(Diagnostic) {})

// Report creates a diagnostic and pushes it to sink. A nil sink discards it.
func Report(sink Sink, variable string, kind Kind, format string, args ...any) {
	if sink == nil {
		return
	}
	sink.Push(Diagnostic{
		Variable: variable,
		Kind:     kind,
		Message:  fmt.Sprintf(format, args...),
		Count:    1,
	})
}

// Multi returns a [Sink] that pushes every diagnostic to all of sinks. Nil sinks are skipped.
func Multi(sinks ...Sink) Sink {
	nonNil := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			nonNil = append(nonNil, s)
		}
	}
	return SinkFunc(func(d Diagnostic) {
		for _, s := range nonNil {
			s.Push(d)
		}
	})
}
