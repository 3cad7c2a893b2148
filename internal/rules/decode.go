package rules

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every decoding error.
var ErrInvalidConfig = errors.New("invalid extraction config")

// Decode parses an extraction config document. JSON documents are accepted
// as well since JSON is a subset of YAML.
//
// A document is either `{modules: [...]}` or a single module mapping; the
// latter is returned as a one-module config. This lets `extends` point at
// files holding just a base module.
func Decode(data []byte) (*ExtractionConfig, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, fmt.Errorf("%w: empty document", ErrInvalidConfig)
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, errorf(root, "document must be a mapping")
	}

	if _, ok := lookup(root, "modules"); !ok {
		mc, err := decodeModule(root)
		if err != nil {
			return nil, err
		}
		return &ExtractionConfig{Modules: []ModuleConfig{mc}}, nil
	}

	cfg := &ExtractionConfig{}
	err := eachKey(root, func(key string, v *yaml.Node) error {
		switch key {
		case "$schema":
			return nil
		case "modules":
			if v.Kind != yaml.SequenceNode {
				return errorf(v, "modules must be a list")
			}
			for _, item := range v.Content {
				mc, err := decodeModule(item)
				if err != nil {
					return err
				}
				cfg.Modules = append(cfg.Modules, mc)
			}
			return nil
		}
		return errorf(v, "unknown key %q", key)
	})
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeModule(n *yaml.Node) (ModuleConfig, error) {
	var mc ModuleConfig
	if n.Kind != yaml.MappingNode {
		return mc, errorf(n, "module must be a mapping")
	}

	err := eachKey(n, func(key string, v *yaml.Node) error {
		var err error
		switch key {
		case "$schema":
		case "name":
			mc.Name, err = decodeString(v, key)
		case "path":
			mc.Path, err = decodeString(v, key)
		case "extends":
			mc.Extends, err = decodeString(v, key)
		case "customTypes":
			mc.CustomTypes, err = decodeCustomTypes(v)
		default:
			t := ComponentType(key)
			if !isBuiltinType(t) {
				return errorf(v, "unknown module key %q", key)
			}
			var cr *ComponentRule
			if cr, err = decodeComponentRule(v); err == nil {
				setModuleConfigRule(&mc, t, cr)
			}
		}
		return err
	})
	if err != nil {
		return mc, err
	}

	if mc.Name == "" {
		return mc, errorf(n, "module name is required")
	}
	if mc.Path == "" {
		return mc, errorf(n, "module %q: path is required", mc.Name)
	}
	return mc, nil
}

func setModuleConfigRule(mc *ModuleConfig, t ComponentType, r *ComponentRule) {
	switch t {
	case TypeAPI:
		mc.API = r
	case TypeUseCase:
		mc.UseCase = r
	case TypeDomainOp:
		mc.DomainOp = r
	case TypeEvent:
		mc.Event = r
	case TypeEventHandler:
		mc.EventHandler = r
	case TypeUI:
		mc.UI = r
	}
}

func isBuiltinType(t ComponentType) bool {
	for _, b := range ComponentTypes() {
		if b == t {
			return true
		}
	}
	return false
}

func decodeCustomTypes(n *yaml.Node) (map[string]CustomType, error) {
	if n.Kind != yaml.MappingNode {
		return nil, errorf(n, "customTypes must be a mapping")
	}
	out := make(map[string]CustomType)
	err := eachKey(n, func(name string, v *yaml.Node) error {
		if v.Kind != yaml.MappingNode {
			return errorf(v, "custom type %q must be a mapping", name)
		}
		ct := CustomType{}
		if d, ok := lookup(v, "description"); ok {
			desc, err := decodeString(d, "description")
			if err != nil {
				return err
			}
			ct.Description = desc
		}
		cr, err := decodeComponentRuleKeys(v, "description")
		if err != nil {
			return err
		}
		ct.Rule = cr
		out[name] = ct
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func decodeComponentRule(n *yaml.Node) (*ComponentRule, error) {
	return decodeComponentRuleKeys(n)
}

func decodeComponentRuleKeys(n *yaml.Node, extraKeys ...string) (*ComponentRule, error) {
	if n.Kind != yaml.MappingNode {
		return nil, errorf(n, "component rule must be a mapping")
	}
	cr := &ComponentRule{Fields: map[string]ExtractionRule{}}
	err := eachKey(n, func(key string, v *yaml.Node) error {
		for _, extra := range extraKeys {
			if key == extra {
				return nil
			}
		}
		switch key {
		case "find", "predicate":
			p, err := decodePredicate(v)
			if err != nil {
				return err
			}
			cr.Predicate = p
		case "extract", "fields":
			if v.Kind != yaml.MappingNode {
				return errorf(v, "%s must be a mapping", key)
			}
			return eachKey(v, func(field string, rv *yaml.Node) error {
				r, err := decodeRule(rv)
				if err != nil {
					return fmt.Errorf("field %q: %w", field, err)
				}
				cr.Fields[field] = r
				return nil
			})
		default:
			return errorf(v, "unknown component rule key %q", key)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if cr.Predicate == nil {
		return nil, errorf(n, "component rule requires a predicate")
	}
	return cr, nil
}

// decodePredicate decodes a single-key tagged mapping into a Predicate.
func decodePredicate(n *yaml.Node) (Predicate, error) {
	tag, body, err := tagged(n, "predicate")
	if err != nil {
		return nil, err
	}

	switch tag {
	case "hasDecorator":
		p := &HasDecorator{}
		if body.Kind == yaml.ScalarNode || body.Kind == yaml.SequenceNode {
			p.Names, err = decodeStringOrList(body, "name")
			return p, err
		}
		err = eachKey(body, func(key string, v *yaml.Node) error {
			var err error
			switch key {
			case "name":
				p.Names, err = decodeStringOrList(v, key)
			case "from":
				p.From, err = decodeString(v, key)
			default:
				err = errorf(v, "unknown hasDecorator key %q", key)
			}
			return err
		})
		if err == nil && len(p.Names) == 0 {
			err = errorf(body, "hasDecorator requires name")
		}
		return p, err
	case "hasJSDoc":
		s, err := scalarOrField(body, "tag")
		return &HasJSDoc{Tag: s}, err
	case "extendsClass":
		s, err := scalarOrField(body, "name")
		return &ExtendsClass{Name: s}, err
	case "implementsInterface":
		s, err := scalarOrField(body, "name")
		return &ImplementsInterface{Name: s}, err
	case "nameEndsWith":
		s, err := scalarOrField(body, "suffix")
		return &NameEndsWith{Suffix: s}, err
	case "nameMatches":
		s, err := scalarOrField(body, "pattern")
		if err != nil {
			return nil, err
		}
		p, err := NewNameMatches(s)
		if err != nil {
			return nil, errorf(body, "nameMatches: invalid pattern %q: %v", s, err)
		}
		return p, nil
	case "inClassWith":
		inner := body
		if v, ok := lookup(body, "predicate"); ok {
			inner = v
		}
		p, err := decodePredicate(inner)
		if err != nil {
			return nil, err
		}
		return &InClassWith{Predicate: p}, nil
	case "and", "or":
		list := body
		if v, ok := lookup(body, "predicates"); ok {
			list = v
		}
		if list.Kind != yaml.SequenceNode {
			return nil, errorf(list, "%s requires a list of predicates", tag)
		}
		preds := make([]Predicate, 0, len(list.Content))
		for _, item := range list.Content {
			p, err := decodePredicate(item)
			if err != nil {
				return nil, err
			}
			preds = append(preds, p)
		}
		if tag == "and" {
			return &And{Predicates: preds}, nil
		}
		return &Or{Predicates: preds}, nil
	}
	return nil, errorf(n, "unknown predicate %q", tag)
}

// decodeRule decodes a single-key tagged mapping into an ExtractionRule.
func decodeRule(n *yaml.Node) (ExtractionRule, error) {
	tag, body, err := tagged(n, "extraction rule")
	if err != nil {
		return nil, err
	}

	if tag == "literal" {
		v := body
		if f, ok := lookup(body, "value"); ok {
			v = f
		}
		val, err := decodeLiteralValue(v)
		if err != nil {
			return nil, err
		}
		return &Literal{Value: val}, nil
	}

	fields, err := decodeRuleFields(body, tag)
	if err != nil {
		return nil, err
	}

	switch tag {
	case "fromClassName":
		return &FromClassName{Transform: fields.Transform}, nil
	case "fromMethodName":
		return &FromMethodName{Transform: fields.Transform}, nil
	case "fromFilePath":
		return &FromFilePath{Transform: fields.Transform}, nil
	case "fromProperty":
		if fields.Path == "" {
			fields.Path = fields.Name
		}
		if fields.Path == "" {
			return nil, errorf(body, "fromProperty requires path")
		}
		return &FromProperty{Path: fields.Path, Transform: fields.Transform}, nil
	case "fromDecoratorArg":
		if fields.DecoratorName == "" {
			fields.DecoratorName = fields.Decorator
		}
		if fields.DecoratorName == "" {
			return nil, errorf(body, "fromDecoratorArg requires decoratorName")
		}
		idx := 0
		if fields.ArgIndex != nil {
			idx = *fields.ArgIndex
		}
		if idx < 0 {
			return nil, errorf(body, "fromDecoratorArg: argIndex must not be negative")
		}
		return &FromDecoratorArg{DecoratorName: fields.DecoratorName, ArgIndex: idx, Transform: fields.Transform}, nil
	case "fromDecoratorName":
		return &FromDecoratorName{OneOf: fields.OneOf, Transform: fields.Transform}, nil
	case "fromGenericArg":
		pos, err := position(body, fields.Position, tag)
		if err != nil {
			return nil, err
		}
		return &FromGenericArg{Position: pos, Heritage: fields.Heritage, Transform: fields.Transform}, nil
	case "fromMethodSignature":
		return &FromMethodSignature{}, nil
	case "fromConstructorParams":
		return &FromConstructorParams{}, nil
	case "fromParameterType":
		pos, err := position(body, fields.Position, tag)
		if err != nil {
			return nil, err
		}
		return &FromParameterType{Position: pos, Transform: fields.Transform}, nil
	}
	return nil, errorf(n, "unknown extraction rule %q", tag)
}

// ruleFields is the union of all keys extraction rules accept.
type ruleFields struct {
	Transform     *Transform
	Path          string
	Name          string
	DecoratorName string
	Decorator     string
	ArgIndex      *int
	OneOf         []string
	Position      *int
	Heritage      string
}

// ruleKeys lists the keys each extraction rule accepts.
var ruleKeys = map[string][]string{
	"fromClassName":         {"transform"},
	"fromMethodName":        {"transform"},
	"fromFilePath":          {"transform"},
	"fromProperty":          {"path", "name", "transform"},
	"fromDecoratorArg":      {"decoratorName", "decorator", "argIndex", "transform"},
	"fromDecoratorName":     {"oneOf", "transform"},
	"fromGenericArg":        {"position", "heritage", "transform"},
	"fromMethodSignature":   {},
	"fromConstructorParams": {},
	"fromParameterType":     {"position", "transform"},
}

func decodeRuleFields(body *yaml.Node, tag string) (ruleFields, error) {
	var fields ruleFields
	allowed, known := ruleKeys[tag]
	if !known {
		// reported by the caller
		return fields, nil
	}
	if body.Kind != yaml.MappingNode {
		if isNull(body) || (body.Kind == yaml.ScalarNode && body.Tag == "!!bool") {
			return fields, nil
		}
		return fields, errorf(body, "%s expects a mapping", tag)
	}

	err := eachKey(body, func(key string, v *yaml.Node) error {
		if !containsKey(allowed, key) {
			return errorf(v, "unknown %s key %q", tag, key)
		}
		var err error
		switch key {
		case "transform":
			fields.Transform, err = decodeTransform(v)
		case "path":
			fields.Path, err = decodeString(v, key)
		case "name":
			fields.Name, err = decodeString(v, key)
		case "decoratorName":
			fields.DecoratorName, err = decodeString(v, key)
		case "decorator":
			fields.Decorator, err = decodeString(v, key)
		case "argIndex":
			fields.ArgIndex, err = decodeInt(v, key)
		case "oneOf":
			fields.OneOf, err = decodeStringOrList(v, key)
		case "position":
			fields.Position, err = decodeInt(v, key)
		case "heritage":
			fields.Heritage, err = decodeString(v, key)
		}
		return err
	})
	return fields, err
}

func decodeTransform(n *yaml.Node) (*Transform, error) {
	if isNull(n) {
		return nil, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, errorf(n, "transform must be a mapping")
	}
	t := &Transform{}
	err := eachKey(n, func(key string, v *yaml.Node) error {
		var err error
		switch key {
		case "stripSuffix":
			var s string
			if s, err = decodeString(v, key); err == nil {
				t.StripSuffix = &s
			}
		case "stripPrefix":
			var s string
			if s, err = decodeString(v, key); err == nil {
				t.StripPrefix = &s
			}
		case "toLowerCase":
			t.ToLowerCase, err = decodeBool(v, key)
		case "toUpperCase":
			t.ToUpperCase, err = decodeBool(v, key)
		case "kebabToPascal":
			t.KebabToPascal, err = decodeBool(v, key)
		case "pascalToKebab":
			t.PascalToKebab, err = decodeBool(v, key)
		default:
			err = errorf(v, "unknown transform key %q", key)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func decodeInt(n *yaml.Node, key string) (*int, error) {
	if n.Kind != yaml.ScalarNode || n.Tag != "!!int" {
		return nil, errorf(n, "%s must be an integer", key)
	}
	i, err := strconv.Atoi(n.Value)
	if err != nil {
		return nil, errorf(n, "%s: %v", key, err)
	}
	return &i, nil
}

func decodeBool(n *yaml.Node, key string) (bool, error) {
	var b bool
	if n.Kind != yaml.ScalarNode || n.Tag != "!!bool" {
		return false, errorf(n, "%s must be a boolean", key)
	}
	if err := n.Decode(&b); err != nil {
		return false, errorf(n, "%s: %v", key, err)
	}
	return b, nil
}

func containsKey(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}

func position(n *yaml.Node, p *int, tag string) (int, error) {
	if p == nil {
		return 0, errorf(n, "%s requires position", tag)
	}
	if *p < 0 {
		return 0, errorf(n, "%s: position must not be negative", tag)
	}
	return *p, nil
}

func decodeLiteralValue(n *yaml.Node) (any, error) {
	if n.Kind != yaml.ScalarNode {
		return nil, errorf(n, "literal value must be a string, number or boolean")
	}
	switch n.Tag {
	case "!!str":
		return n.Value, nil
	case "!!int", "!!float":
		f, err := strconv.ParseFloat(n.Value, 64)
		if err != nil {
			return nil, errorf(n, "literal: %v", err)
		}
		return f, nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return nil, errorf(n, "literal: %v", err)
		}
		return b, nil
	}
	return nil, errorf(n, "literal value must be a string, number or boolean")
}

// tagged unpacks a `{tag: body}` mapping.
func tagged(n *yaml.Node, what string) (string, *yaml.Node, error) {
	if n.Kind != yaml.MappingNode || len(n.Content) != 2 {
		return "", nil, errorf(n, "%s must be a mapping with exactly one key", what)
	}
	return n.Content[0].Value, n.Content[1], nil
}

func eachKey(n *yaml.Node, fn func(key string, v *yaml.Node) error) error {
	if n.Kind != yaml.MappingNode {
		return errorf(n, "expected a mapping")
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if err := fn(n.Content[i].Value, n.Content[i+1]); err != nil {
			return err
		}
	}
	return nil
}

func lookup(n *yaml.Node, key string) (*yaml.Node, bool) {
	if n.Kind != yaml.MappingNode {
		return nil, false
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1], true
		}
	}
	return nil, false
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.Tag == "!!null"
}

func decodeString(n *yaml.Node, key string) (string, error) {
	if n.Kind != yaml.ScalarNode || isNull(n) {
		return "", errorf(n, "%s must be a string", key)
	}
	return n.Value, nil
}

func decodeStringOrList(n *yaml.Node, key string) ([]string, error) {
	switch n.Kind {
	case yaml.ScalarNode:
		s, err := decodeString(n, key)
		if err != nil {
			return nil, err
		}
		return []string{s}, nil
	case yaml.SequenceNode:
		out := make([]string, 0, len(n.Content))
		for _, item := range n.Content {
			s, err := decodeString(item, key)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, errorf(n, "%s must be a string or a list of strings", key)
}

// scalarOrField accepts both `{nameEndsWith: Handler}` and
// `{nameEndsWith: {suffix: Handler}}`.
func scalarOrField(n *yaml.Node, field string) (string, error) {
	if n.Kind == yaml.ScalarNode {
		return decodeString(n, field)
	}
	v, ok := lookup(n, field)
	if !ok {
		return "", errorf(n, "missing %q", field)
	}
	if len(n.Content) != 2 {
		keys := make([]string, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			keys = append(keys, n.Content[i].Value)
		}
		sort.Strings(keys)
		return "", errorf(n, "unexpected keys %v", keys)
	}
	return decodeString(v, field)
}

func errorf(n *yaml.Node, format string, args ...any) error {
	return fmt.Errorf("%w: line %d: %s", ErrInvalidConfig, n.Line, fmt.Sprintf(format, args...))
}

// DecodeFile reads and decodes the extraction config at path.
func DecodeFile(path string) (*ExtractionConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read extraction config: %w", err)
	}
	cfg, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}
