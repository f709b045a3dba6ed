package inventory

import "fmt"

// FailureKind classifies why a provider query produced no rows.
type FailureKind string

const (
	// FailureInvocation means the engine process could not be started.
	FailureInvocation FailureKind = "invocation"
	// FailureTimeout means the engine exceeded its wall-clock budget or the caller went away.
	FailureTimeout FailureKind = "timeout"
	// FailureEngine means the engine exited non-zero; Message is its stderr verbatim.
	FailureEngine FailureKind = "engine"
	// FailureDecode means the engine exited zero but its payload could not be parsed.
	FailureDecode FailureKind = "decode"
)

// QueryFailure is a provider-scoped failure. It is recorded next to the rows of the
// providers that succeeded, never silently dropped.
type QueryFailure struct {
	Provider Provider    `json:"provider"`
	Domain   Domain      `json:"domain"`
	Kind     FailureKind `json:"kind"`
	Message  string      `json:"message"`
}

func (f *QueryFailure) Error() string {
	return fmt.Sprintf("%s %s query failed (%s): %s", f.Provider, f.Domain, f.Kind, f.Message)
}

// Is matches another *QueryFailure by kind, so errors.Is(err, &QueryFailure{Kind: FailureTimeout}) works.
func (f *QueryFailure) Is(target error) bool {
	t, ok := target.(*QueryFailure)
	if !ok {
		return false
	}
	return t.Kind == f.Kind
}

// NewFailure builds a QueryFailure for q.
func NewFailure(q Query, kind FailureKind, msg string) *QueryFailure {
	return &QueryFailure{Provider: q.Provider, Domain: q.Domain, Kind: kind, Message: msg}
}

// RowError is the note left when a single row is dropped during decoding.
type RowError struct {
	Provider Provider `json:"provider"`
	Row      int      `json:"row"`
	Field    string   `json:"field"`
	Message  string   `json:"message"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d field %s: %s", e.Row, e.Field, e.Message)
}
