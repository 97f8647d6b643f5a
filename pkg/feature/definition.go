package feature

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Kind is the type of a flag value.
type Kind string

const (
	KindBool   Kind = "bool"
	KindEnum   Kind = "enum"
	KindString Kind = "string"
)

// Definition describes a compiled-in flag.
type Definition struct {
	Name        string
	Kind        Kind
	Default     string
	Values      []string // allowed values, enum only
	Description string
}

// Coerce normalizes a raw source value for this flag.
// Booleans are true only for "true" or "1"; every other input is false.
// Enums must match one of the declared values. Strings pass through.
func (d Definition) Coerce(raw string) (string, error) {
	switch d.Kind {
	case KindBool:
		return FormatBool(ParseBool(raw)), nil
	case KindEnum:
		if slices.Contains(d.Values, raw) {
			return raw, nil
		}
		return "", errors.Join(ErrInvalidFlagValue,
			fmt.Errorf("%q is not one of %v for flag %q", raw, d.Values, d.Name))
	default:
		return raw, nil
	}
}

// ParseBool applies the boolean coercion rule.
func ParseBool(raw string) bool {
	v := strings.ToLower(strings.TrimSpace(raw))
	return v == "true" || v == "1"
}

// FormatBool is the canonical string form of a boolean flag value.
func FormatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// ExpansionRule forces dependent flags when Master resolves true.
type ExpansionRule struct {
	Master     string
	Dependents map[string]string
}

// Catalog is the immutable set of known flags and expansion rules.
type Catalog struct {
	defs  map[string]Definition
	order []string
	rules []ExpansionRule
}

// NewCatalog validates definitions and rules. Defaults and forced dependent
// values are stored in their coerced form.
func NewCatalog(defs []Definition, rules ...ExpansionRule) (*Catalog, error) {
	c := &Catalog{defs: make(map[string]Definition, len(defs))}

	for _, d := range defs {
		if d.Name == "" {
			return nil, errors.Join(ErrInvalidDefinition, errors.New("flag name cannot be empty"))
		}
		if _, dup := c.defs[d.Name]; dup {
			return nil, errors.Join(ErrInvalidDefinition, fmt.Errorf("duplicate flag %q", d.Name))
		}
		switch d.Kind {
		case KindBool, KindString:
		case KindEnum:
			if len(d.Values) == 0 {
				return nil, errors.Join(ErrInvalidDefinition, fmt.Errorf("enum flag %q has no values", d.Name))
			}
			d.Values = slices.Clone(d.Values)
		default:
			return nil, errors.Join(ErrInvalidDefinition, fmt.Errorf("flag %q has unknown kind %q", d.Name, d.Kind))
		}
		def, err := d.Coerce(d.Default)
		if err != nil {
			return nil, errors.Join(ErrInvalidDefinition, err)
		}
		d.Default = def
		c.defs[d.Name] = d
		c.order = append(c.order, d.Name)
	}

	for _, r := range rules {
		master, ok := c.defs[r.Master]
		if !ok || master.Kind != KindBool {
			return nil, errors.Join(ErrInvalidDefinition,
				fmt.Errorf("expansion master %q must be a known bool flag", r.Master))
		}
		deps := make(map[string]string, len(r.Dependents))
		for name, raw := range r.Dependents {
			d, ok := c.defs[name]
			if !ok {
				return nil, errors.Join(ErrInvalidDefinition,
					fmt.Errorf("expansion of %q references unknown flag %q", r.Master, name))
			}
			v, err := d.Coerce(raw)
			if err != nil {
				return nil, errors.Join(ErrInvalidDefinition, err)
			}
			deps[name] = v
		}
		c.rules = append(c.rules, ExpansionRule{Master: r.Master, Dependents: deps})
	}

	return c, nil
}

// MustCatalog is NewCatalog for compiled-in catalogs; it panics on error.
func MustCatalog(defs []Definition, rules ...ExpansionRule) *Catalog {
	c, err := NewCatalog(defs, rules...)
	if err != nil {
		panic(err)
	}
	return c
}

// Lookup returns the definition for name.
func (c *Catalog) Lookup(name string) (Definition, bool) {
	d, ok := c.defs[name]
	return d, ok
}

// Names returns flag names in declaration order.
func (c *Catalog) Names() []string {
	return slices.Clone(c.order)
}

// Defaults returns the compiled default of every flag.
func (c *Catalog) Defaults() map[string]string {
	out := make(map[string]string, len(c.defs))
	for name, d := range c.defs {
		out[name] = d.Default
	}
	return out
}

// Rules returns the expansion rules in declaration order.
func (c *Catalog) Rules() []ExpansionRule {
	return slices.Clone(c.rules)
}
