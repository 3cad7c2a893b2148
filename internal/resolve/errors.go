package resolve

import (
	"fmt"

	"github.com/mvp-joe/archextract/internal/rules"
)

// ConfigLoaderRequiredError is returned when a module uses extends but no
// loader was supplied.
type ConfigLoaderRequiredError struct {
	Module string
}

func (e *ConfigLoaderRequiredError) Error() string {
	return fmt.Sprintf("module %q uses extends but no config loader was provided", e.Module)
}

// MissingComponentRuleError is returned when a module lacks one of the six
// built-in component rules after resolution.
type MissingComponentRuleError struct {
	Module string
	Rule   rules.ComponentType
}

func (e *MissingComponentRuleError) Error() string {
	return fmt.Sprintf("module %q is missing required rule %q", e.Module, e.Rule)
}
