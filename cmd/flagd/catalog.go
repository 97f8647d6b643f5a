package main

import (
	"bytes"
	_ "embed"

	"github.com/dmitrymomot/rollout/pkg/engine"
	"github.com/dmitrymomot/rollout/pkg/feature"
)

//go:embed policies.yaml
var defaultPolicies []byte

// catalog is the set of flags this binary knows about.
func catalog() *feature.Catalog {
	return feature.MustCatalog(
		[]feature.Definition{
			{Name: "killSwitch", Kind: feature.KindBool, Default: "false", Description: "force every variant to baseline"},
			{Name: "legacyMode", Kind: feature.KindBool, Default: "false", Description: "restore the previous UI"},
			{Name: "legacyTable", Kind: feature.KindBool, Default: "false"},
			{Name: "legacyCharts", Kind: feature.KindBool, Default: "false"},
			{Name: "newCheckout", Kind: feature.KindBool, Default: "true", Description: "gates the checkout-v2 rollout"},
			{Name: "theme", Kind: feature.KindEnum, Default: "light", Values: []string{"light", "dark", "contrast"}},
			{Name: "bannerText", Kind: feature.KindString, Default: ""},
		},
		feature.ExpansionRule{
			Master: "legacyMode",
			Dependents: map[string]string{
				"legacyTable":  "true",
				"legacyCharts": "true",
				"newCheckout":  "false",
			},
		},
	)
}

func loadPolicies(path string) (*engine.Policies, error) {
	if path == "" {
		return engine.ParsePolicies(bytes.NewReader(defaultPolicies))
	}
	return engine.LoadPolicies(path)
}
