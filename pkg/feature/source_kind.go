package feature

import "fmt"

// SourceKind identifies where a flag value came from.
type SourceKind uint8

// Source kinds in ascending priority. The numeric value is the rank.
const (
	SourceDefault SourceKind = iota
	SourceEnv
	SourceRemote
	SourceLocal
	SourceQuery
)

var sourceNames = [...]string{
	SourceDefault: "default",
	SourceEnv:     "env",
	SourceRemote:  "remote",
	SourceLocal:   "local",
	SourceQuery:   "query",
}

// Rank returns the fixed priority of the kind; higher wins.
func (k SourceKind) Rank() int { return int(k) }

func (k SourceKind) String() string {
	if int(k) < len(sourceNames) {
		return sourceNames[k]
	}
	return fmt.Sprintf("source(%d)", k)
}

// MarshalText implements encoding.TextMarshaler.
func (k SourceKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ParseSourceKind converts a name such as "remote" back to its kind.
func ParseSourceKind(name string) (SourceKind, error) {
	for i, n := range sourceNames {
		if n == name {
			return SourceKind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown source kind %q", name)
}

// SourceKinds lists every kind in ascending priority.
func SourceKinds() []SourceKind {
	return []SourceKind{SourceDefault, SourceEnv, SourceRemote, SourceLocal, SourceQuery}
}

// ConfigSource is one layer of raw flag values.
type ConfigSource struct {
	Kind   SourceKind
	Values map[string]string
}
