package engine

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dmitrymomot/rollout/pkg/rollback"
	"github.com/dmitrymomot/rollout/pkg/rollout"
)

// VariantPolicy is a rollout policy with an optional rollback override. The
// override replaces the top-level rollback policy for the variant. In a
// policy file, fields the override leaves out are taken from the top-level
// policy.
type VariantPolicy struct {
	rollout.Policy `yaml:",inline"`
	Rollback       *rollback.Policy `yaml:"rollback,omitempty"`
}

// Policies is the content of a policy file:
//
//	kill_switch: killSwitch
//	session_rollback_limit: 3
//	rollback:
//	  consecutive_error_limit: 3
//	  error_rate_threshold: 0.1
//	  baseline_latency: 150ms
//	variants:
//	  - variant: checkout-v2
//	    rollout_percentage: 10
//	    ab_test_enabled: true
type Policies struct {
	KillSwitch           string          `yaml:"kill_switch"`
	SessionRollbackLimit int             `yaml:"session_rollback_limit"`
	Rollback             rollback.Policy `yaml:"rollback"`
	Variants             []VariantPolicy `yaml:"variants"`
}

// ParsePolicies decodes YAML. Rollback fields left out of the file take
// rollback.DefaultPolicy values, and a variant's rollback block starts from
// the top-level rollback policy.
func ParsePolicies(r io.Reader) (*Policies, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Join(ErrInvalidPolicyFile, err)
	}

	p := &Policies{Rollback: rollback.DefaultPolicy()}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(p); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Join(ErrInvalidPolicyFile, err)
	}
	if err := p.inheritRollback(raw); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// inheritRollback re-decodes each variant's rollback block over a copy of the
// top-level policy. Field names were already checked by the strict pass.
func (p *Policies) inheritRollback(raw []byte) error {
	var overrides struct {
		Variants []struct {
			Rollback *yaml.Node `yaml:"rollback"`
		} `yaml:"variants"`
	}
	if err := yaml.Unmarshal(raw, &overrides); err != nil {
		return errors.Join(ErrInvalidPolicyFile, err)
	}
	for i, o := range overrides.Variants {
		if o.Rollback == nil || i >= len(p.Variants) {
			continue
		}
		merged := p.Rollback
		if err := o.Rollback.Decode(&merged); err != nil {
			return errors.Join(ErrInvalidPolicyFile, err)
		}
		p.Variants[i].Rollback = &merged
	}
	return nil
}

// LoadPolicies reads and parses a policy file.
func LoadPolicies(path string) (*Policies, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Join(ErrInvalidPolicyFile, err)
	}
	return ParsePolicies(bytes.NewReader(raw))
}

// Validate checks every policy and rejects duplicate variants.
func (p *Policies) Validate() error {
	if err := p.Rollback.Validate(); err != nil {
		return errors.Join(ErrInvalidPolicyFile, err)
	}
	if p.SessionRollbackLimit < 0 {
		return errors.Join(ErrInvalidPolicyFile, fmt.Errorf("session_rollback_limit %d is negative", p.SessionRollbackLimit))
	}
	seen := make(map[string]struct{}, len(p.Variants))
	for _, v := range p.Variants {
		if err := v.Policy.Validate(); err != nil {
			return errors.Join(ErrInvalidPolicyFile, err)
		}
		if v.Rollback != nil {
			if err := v.Rollback.Validate(); err != nil {
				return errors.Join(ErrInvalidPolicyFile, fmt.Errorf("%s: %w", v.Variant, err))
			}
		}
		if _, dup := seen[v.Variant]; dup {
			return errors.Join(ErrInvalidPolicyFile, ErrDuplicateVariant, fmt.Errorf("variant %q", v.Variant))
		}
		seen[v.Variant] = struct{}{}
	}
	return nil
}
