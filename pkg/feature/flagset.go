package feature

import (
	"context"
	"maps"
	"slices"
)

// FlagSet is the immutable result of one resolution pass.
// A nil *FlagSet behaves as an empty set.
type FlagSet struct {
	values     map[string]string
	origin     map[string]SourceKind
	expandedBy map[string]string
}

// Entry describes one resolved flag.
type Entry struct {
	Name       string     `json:"name"`
	Value      string     `json:"value"`
	Origin     SourceKind `json:"origin"`
	ExpandedBy string     `json:"expanded_by,omitempty"`
}

// Lookup returns the resolved value of name.
func (s *FlagSet) Lookup(name string) (string, bool) {
	if s == nil {
		return "", false
	}
	v, ok := s.values[name]
	return v, ok
}

// Bool reports whether name resolved to true. Unknown flags are false.
func (s *FlagSet) Bool(name string) bool {
	v, _ := s.Lookup(name)
	return ParseBool(v)
}

// String returns the resolved value of name, or "" when unknown.
func (s *FlagSet) String(name string) string {
	v, _ := s.Lookup(name)
	return v
}

// Origin returns the source whose value won for name.
func (s *FlagSet) Origin(name string) SourceKind {
	if s == nil {
		return SourceDefault
	}
	return s.origin[name]
}

// ExpandedBy returns the master flag that forced name, if any.
func (s *FlagSet) ExpandedBy(name string) (string, bool) {
	if s == nil {
		return "", false
	}
	m, ok := s.expandedBy[name]
	return m, ok
}

// Len returns the number of resolved flags.
func (s *FlagSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.values)
}

// Names returns resolved flag names sorted alphabetically.
func (s *FlagSet) Names() []string {
	if s == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(s.values))
}

// Map returns a copy of the resolved values.
func (s *FlagSet) Map() map[string]string {
	if s == nil {
		return map[string]string{}
	}
	return maps.Clone(s.values)
}

// Entries returns every flag with its provenance, sorted by name.
func (s *FlagSet) Entries() []Entry {
	names := s.Names()
	out := make([]Entry, 0, len(names))
	for _, n := range names {
		out = append(out, Entry{
			Name:       n,
			Value:      s.values[n],
			Origin:     s.origin[n],
			ExpandedBy: s.expandedBy[n],
		})
	}
	return out
}

// Equal reports whether both sets hold the same values.
func (s *FlagSet) Equal(other *FlagSet) bool {
	return maps.Equal(s.Map(), other.Map())
}

type flagsContextKey struct{}

// WithFlags stores a snapshot in the context so call sites deep in a request
// read the same snapshot the request started with.
func WithFlags(ctx context.Context, flags *FlagSet) context.Context {
	return context.WithValue(ctx, flagsContextKey{}, flags)
}

// FromContext returns the snapshot stored by WithFlags, or nil.
func FromContext(ctx context.Context) *FlagSet {
	if ctx == nil {
		return nil
	}
	flags, _ := ctx.Value(flagsContextKey{}).(*FlagSet)
	return flags
}
