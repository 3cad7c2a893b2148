// Package rules holds the declarative extraction configuration: predicates,
// extraction rules, transforms and module configuration. Values in this
// package are immutable once decoded.
package rules

import "regexp"

// ComponentType identifies one of the six built-in component kinds.
type ComponentType string

const (
	TypeAPI          ComponentType = "api"
	TypeUseCase      ComponentType = "useCase"
	TypeDomainOp     ComponentType = "domainOp"
	TypeEvent        ComponentType = "event"
	TypeEventHandler ComponentType = "eventHandler"
	TypeUI           ComponentType = "ui"
	// TypeCustom marks components produced by a module's custom types.
	TypeCustom ComponentType = "custom"
)

// ComponentTypes returns the built-in component types in their fixed
// resolution order.
func ComponentTypes() []ComponentType {
	return []ComponentType{TypeAPI, TypeUseCase, TypeDomainOp, TypeEvent, TypeEventHandler, TypeUI}
}

// Predicate is a boolean expression over a single AST node.
type Predicate interface {
	isPredicate()
}

// HasDecorator matches nodes carrying a decorator named one of Names,
// optionally imported from the module From.
type HasDecorator struct {
	Names []string
	From  string
}

// HasJSDoc matches nodes whose doc comment carries Tag.
type HasJSDoc struct {
	Tag string
}

// ExtendsClass matches classes whose extends clause text equals Name.
type ExtendsClass struct {
	Name string
}

// ImplementsInterface matches classes with Name in their implements clause.
type ImplementsInterface struct {
	Name string
}

// NameEndsWith matches named nodes whose name ends with Suffix.
type NameEndsWith struct {
	Suffix string
}

// NameMatches matches named nodes whose name matches Pattern.
type NameMatches struct {
	Pattern string

	compiled *regexp.Regexp
}

// NewNameMatches compiles pattern into a NameMatches predicate.
func NewNameMatches(pattern string) (*NameMatches, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return &NameMatches{Pattern: pattern, compiled: re}, nil
}

// Regexp returns the compiled pattern, compiling it on first use when the
// predicate was built without NewNameMatches.
func (p *NameMatches) Regexp() (*regexp.Regexp, error) {
	if p.compiled != nil {
		return p.compiled, nil
	}
	return regexp.Compile(p.Pattern)
}

// InClassWith matches methods whose enclosing class satisfies Predicate.
type InClassWith struct {
	Predicate Predicate
}

// And matches when every child matches. An empty And matches everything.
type And struct {
	Predicates []Predicate
}

// Or matches when at least one child matches. An empty Or matches nothing.
type Or struct {
	Predicates []Predicate
}

func (*HasDecorator) isPredicate()        {}
func (*HasJSDoc) isPredicate()            {}
func (*ExtendsClass) isPredicate()        {}
func (*ImplementsInterface) isPredicate() {}
func (*NameEndsWith) isPredicate()        {}
func (*NameMatches) isPredicate()         {}
func (*InClassWith) isPredicate()         {}
func (*And) isPredicate()                 {}
func (*Or) isPredicate()                  {}

// Transform is an ordered chain of string normalizations. A nil *Transform
// leaves values untouched.
type Transform struct {
	StripSuffix   *string `yaml:"stripSuffix,omitempty" json:"stripSuffix,omitempty"`
	StripPrefix   *string `yaml:"stripPrefix,omitempty" json:"stripPrefix,omitempty"`
	ToLowerCase   bool    `yaml:"toLowerCase,omitempty" json:"toLowerCase,omitempty"`
	ToUpperCase   bool    `yaml:"toUpperCase,omitempty" json:"toUpperCase,omitempty"`
	KebabToPascal bool    `yaml:"kebabToPascal,omitempty" json:"kebabToPascal,omitempty"`
	PascalToKebab bool    `yaml:"pascalToKebab,omitempty" json:"pascalToKebab,omitempty"`
}

// ExtractionRule is a recipe for computing one field value from a node.
type ExtractionRule interface {
	isRule()
}

// Literal yields Value unconditionally. Value is a string, float64 or bool.
type Literal struct {
	Value any
}

// FromClassName yields the class name.
type FromClassName struct {
	Transform *Transform
}

// FromMethodName yields the method or function name.
type FromMethodName struct {
	Transform *Transform
}

// FromFilePath yields the workspace-relative path of the node's file.
type FromFilePath struct {
	Transform *Transform
}

// FromProperty yields the literal found at Path. The first segment names a
// class property, or a decorator when prefixed with '@'; following segments
// select object keys or array indices.
type FromProperty struct {
	Path      string
	Transform *Transform
}

// FromDecoratorArg yields the literal argument at ArgIndex of DecoratorName.
type FromDecoratorArg struct {
	DecoratorName string
	ArgIndex      int
	Transform     *Transform
}

// FromDecoratorName yields the name of the node's decorator. When OneOf is
// set, the first decorator whose name is listed is used.
type FromDecoratorName struct {
	OneOf     []string
	Transform *Transform
}

// FromGenericArg yields the type argument at Position of the class heritage.
// When Heritage is set, only the extends/implements entry with that base
// name is considered.
type FromGenericArg struct {
	Position  int
	Heritage  string
	Transform *Transform
}

// FromMethodSignature yields the parameters and return type of a method.
type FromMethodSignature struct{}

// FromConstructorParams yields the parameters of a class's constructor.
type FromConstructorParams struct{}

// FromParameterType yields the declared type of the parameter at Position.
type FromParameterType struct {
	Position  int
	Transform *Transform
}

func (*Literal) isRule()               {}
func (*FromClassName) isRule()         {}
func (*FromMethodName) isRule()        {}
func (*FromFilePath) isRule()          {}
func (*FromProperty) isRule()          {}
func (*FromDecoratorArg) isRule()      {}
func (*FromDecoratorName) isRule()     {}
func (*FromGenericArg) isRule()        {}
func (*FromMethodSignature) isRule()   {}
func (*FromConstructorParams) isRule() {}
func (*FromParameterType) isRule()     {}

// ComponentRule decides whether a node is a component of one type and how
// its fields are extracted.
type ComponentRule struct {
	Predicate Predicate
	Fields    map[string]ExtractionRule
}

// CustomType declares a project-specific component type.
type CustomType struct {
	Description string
	Rule        *ComponentRule
}

// ModuleConfig is a module as authored. Rule fields may be nil when Extends
// is set.
type ModuleConfig struct {
	Name         string
	Path         string
	API          *ComponentRule
	UseCase      *ComponentRule
	DomainOp     *ComponentRule
	Event        *ComponentRule
	EventHandler *ComponentRule
	UI           *ComponentRule
	CustomTypes  map[string]CustomType
	Extends      string
}

// Rule returns the configured rule for t, or nil.
func (m *ModuleConfig) Rule(t ComponentType) *ComponentRule {
	switch t {
	case TypeAPI:
		return m.API
	case TypeUseCase:
		return m.UseCase
	case TypeDomainOp:
		return m.DomainOp
	case TypeEvent:
		return m.Event
	case TypeEventHandler:
		return m.EventHandler
	case TypeUI:
		return m.UI
	}
	return nil
}

// Module is a fully resolved module: every built-in rule is non-nil.
// Modules are only produced by the resolve package.
type Module struct {
	Name         string
	Path         string
	API          *ComponentRule
	UseCase      *ComponentRule
	DomainOp     *ComponentRule
	Event        *ComponentRule
	EventHandler *ComponentRule
	UI           *ComponentRule
	CustomTypes  map[string]CustomType
}

// Rule returns the rule for t.
func (m *Module) Rule(t ComponentType) *ComponentRule {
	switch t {
	case TypeAPI:
		return m.API
	case TypeUseCase:
		return m.UseCase
	case TypeDomainOp:
		return m.DomainOp
	case TypeEvent:
		return m.Event
	case TypeEventHandler:
		return m.EventHandler
	case TypeUI:
		return m.UI
	}
	return nil
}

// SetRule assigns the rule for t.
func (m *Module) SetRule(t ComponentType, r *ComponentRule) {
	switch t {
	case TypeAPI:
		m.API = r
	case TypeUseCase:
		m.UseCase = r
	case TypeDomainOp:
		m.DomainOp = r
	case TypeEvent:
		m.Event = r
	case TypeEventHandler:
		m.EventHandler = r
	case TypeUI:
		m.UI = r
	}
}

// ExtractionConfig is the raw top-level configuration.
type ExtractionConfig struct {
	Modules []ModuleConfig
}

// ResolvedExtractionConfig holds resolved modules in configuration order.
type ResolvedExtractionConfig struct {
	Modules []Module
}
