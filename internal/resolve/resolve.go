// Package resolve turns raw module configuration into fully resolved modules,
// following extends references through an injected Loader.
package resolve

import (
	"fmt"

	"github.com/mvp-joe/archextract/internal/rules"
)

// Loader loads the resolved base module an extends reference points at.
type Loader interface {
	Load(source string) (rules.Module, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(source string) (rules.Module, error)

// Load calls f(source).
func (f LoaderFunc) Load(source string) (rules.Module, error) {
	return f(source)
}

// Resolve resolves every module of cfg. The first failure aborts resolution;
// no partial result is returned. loader may be nil when no module uses
// extends.
func Resolve(cfg *rules.ExtractionConfig, loader Loader) (*rules.ResolvedExtractionConfig, error) {
	out := &rules.ResolvedExtractionConfig{Modules: make([]rules.Module, 0, len(cfg.Modules))}
	for _, mc := range cfg.Modules {
		m, err := ResolveModule(mc, loader)
		if err != nil {
			return nil, err
		}
		out.Modules = append(out.Modules, m)
	}
	return out, nil
}

// ResolveModule resolves a single module.
func ResolveModule(mc rules.ModuleConfig, loader Loader) (rules.Module, error) {
	m := rules.Module{Name: mc.Name, Path: mc.Path}

	if mc.Extends == "" {
		for _, t := range rules.ComponentTypes() {
			r := mc.Rule(t)
			if r == nil {
				return rules.Module{}, &MissingComponentRuleError{Module: mc.Name, Rule: t}
			}
			m.SetRule(t, r)
		}
		m.CustomTypes = mc.CustomTypes
		return m, nil
	}

	if loader == nil {
		return rules.Module{}, &ConfigLoaderRequiredError{Module: mc.Name}
	}
	base, err := loader.Load(mc.Extends)
	if err != nil {
		return rules.Module{}, fmt.Errorf("module %q: failed to load %q: %w", mc.Name, mc.Extends, err)
	}

	for _, t := range rules.ComponentTypes() {
		r := mc.Rule(t)
		if r == nil {
			r = base.Rule(t)
		}
		if r == nil {
			// A loader handing back an unresolved module is a loader bug,
			// but the invariant still has to hold for the evaluators.
			return rules.Module{}, &MissingComponentRuleError{Module: mc.Name, Rule: t}
		}
		m.SetRule(t, r)
	}
	m.CustomTypes = mergeCustomTypes(base.CustomTypes, mc.CustomTypes)
	return m, nil
}

// mergeCustomTypes shallow-merges local over base. The result is nil only if
// both inputs are nil.
func mergeCustomTypes(base, local map[string]rules.CustomType) map[string]rules.CustomType {
	if base == nil && local == nil {
		return nil
	}
	merged := make(map[string]rules.CustomType, len(base)+len(local))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range local {
		merged[k] = v
	}
	return merged
}
