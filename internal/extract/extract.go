// Package extract evaluates extraction rules against matched AST nodes.
//
// Evaluation is partial: whenever a rule's input is not a statically obvious
// literal or structural fact the evaluator returns an *ExtractionError located
// at the node. Expressions are never folded or evaluated.
package extract

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/mvp-joe/archextract/internal/rules"
	"github.com/mvp-joe/archextract/internal/syntax"
	"github.com/mvp-joe/archextract/internal/transform"
)

// UnknownType is reported for parameters and return types without an
// annotation.
const UnknownType = "unknown"

// Evaluate computes the value of r for node.
func Evaluate(node syntax.Node, r rules.ExtractionRule) (Value, error) {
	switch r := r.(type) {
	case *rules.Literal:
		return literalValue(r.Value), nil
	case *rules.FromClassName:
		return fromClassName(node, r)
	case *rules.FromMethodName:
		return fromMethodName(node, r)
	case *rules.FromFilePath:
		file := node.SourceFile()
		if file == nil {
			return nil, errorAt(node, "fromFilePath: node has no source file")
		}
		return String(transform.Apply(file.Path(), r.Transform)), nil
	case *rules.FromProperty:
		return fromProperty(node, r)
	case *rules.FromDecoratorArg:
		return fromDecoratorArg(node, r)
	case *rules.FromDecoratorName:
		return fromDecoratorName(node, r)
	case *rules.FromGenericArg:
		return fromGenericArg(node, r)
	case *rules.FromMethodSignature:
		return fromMethodSignature(node)
	case *rules.FromConstructorParams:
		return fromConstructorParams(node)
	case *rules.FromParameterType:
		return fromParameterType(node, r)
	case nil:
		return nil, errorAt(node, "missing extraction rule")
	}
	return nil, errorAt(node, "unsupported extraction rule %T", r)
}

// ExtractFields evaluates every field rule of cr against node in field-name
// order and stops at the first error.
func ExtractFields(node syntax.Node, cr *rules.ComponentRule) (map[string]Value, error) {
	names := make([]string, 0, len(cr.Fields))
	for name := range cr.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make(map[string]Value, len(names))
	for _, name := range names {
		v, err := Evaluate(node, cr.Fields[name])
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		out[name] = v
	}
	return out, nil
}

func literalValue(v any) Value {
	switch v := v.(type) {
	case string:
		return String(v)
	case float64:
		return Number(v)
	case int:
		return Number(float64(v))
	case bool:
		return Bool(v)
	}
	return String(fmt.Sprint(v))
}

func fromClassName(node syntax.Node, r *rules.FromClassName) (Value, error) {
	class, ok := classOf(node)
	if !ok {
		return nil, errorAt(node, "fromClassName: node is not a class or class member")
	}
	name, err := requireName(class, "fromClassName")
	if err != nil {
		return nil, err
	}
	return String(transform.Apply(name, r.Transform)), nil
}

func fromMethodName(node syntax.Node, r *rules.FromMethodName) (Value, error) {
	if _, ok := node.(syntax.MethodShaped); !ok {
		return nil, errorAt(node, "fromMethodName: node is not a method or function")
	}
	name, err := requireName(node, "fromMethodName")
	if err != nil {
		return nil, err
	}
	return String(transform.Apply(name, r.Transform)), nil
}

// requireName returns the node's name. Anonymous nodes should have been
// excluded by the predicate, so reaching one is reported as an internal error.
func requireName(node syntax.Node, rule string) (string, error) {
	named, ok := node.(syntax.Nameable)
	if !ok {
		return "", errorAt(node, "%s: node has no name", rule)
	}
	name, ok := named.Name()
	if !ok || name == "" {
		return "", errorAt(node, "%s: internal error: anonymous declaration reached extraction", rule)
	}
	return name, nil
}

// classOf returns node itself when it is a class, or the enclosing class of a
// class member.
func classOf(node syntax.Node) (syntax.ClassShaped, bool) {
	if class, ok := node.(syntax.ClassShaped); ok {
		return class, true
	}
	if parent := node.Parent(); parent != nil {
		if class, ok := parent.(syntax.ClassShaped); ok {
			return class, true
		}
	}
	return nil, false
}

func fromProperty(node syntax.Node, r *rules.FromProperty) (Value, error) {
	segments := strings.Split(r.Path, ".")
	if len(segments) == 0 || segments[0] == "" {
		return nil, errorAt(node, "fromProperty: empty path")
	}

	var (
		expr syntax.Expression
		rest []string
	)
	if strings.HasPrefix(segments[0], "@") {
		decName := strings.TrimPrefix(segments[0], "@")
		dec, ok := findDecorator(node, decName)
		if !ok {
			return nil, errorAt(node, "fromProperty: decorator @%s not found", decName)
		}
		if len(segments) < 2 {
			return nil, errorAt(node, "fromProperty: path %q must select a decorator argument", r.Path)
		}
		idx, err := strconv.Atoi(segments[1])
		if err != nil || idx < 0 {
			return nil, errorAt(node, "fromProperty: invalid argument index %q in path %q", segments[1], r.Path)
		}
		if idx >= len(dec.Arguments) {
			return nil, errorAt(node, "fromProperty: argument %d out of bounds (@%s has %d arguments)", idx, decName, len(dec.Arguments))
		}
		expr, rest = dec.Arguments[idx], segments[2:]
	} else {
		class, ok := classOf(node)
		if !ok {
			return nil, errorAt(node, "fromProperty: node is not a class or class member")
		}
		prop, ok := class.Property(segments[0])
		if !ok {
			return nil, errorAt(node, "fromProperty: property %q not found", segments[0])
		}
		expr, rest = prop, segments[1:]
	}

	for _, seg := range rest {
		next, ok := navigate(expr, seg)
		if !ok {
			return nil, errorAt(node, "fromProperty: path %q: cannot select %q from %s", r.Path, seg, expr.Text())
		}
		expr = next
	}

	lit, ok := expr.Literal()
	if !ok {
		return nil, errorAt(node, "fromProperty: value at %q is not a literal: %s", r.Path, expr.Text())
	}
	return literalWithTransform(lit, r.Transform), nil
}

func navigate(expr syntax.Expression, segment string) (syntax.Expression, bool) {
	if i, err := strconv.Atoi(segment); err == nil {
		if next, ok := expr.Index(i); ok {
			return next, true
		}
	}
	return expr.Field(segment)
}

func fromDecoratorArg(node syntax.Node, r *rules.FromDecoratorArg) (Value, error) {
	if _, ok := node.(syntax.Decoratable); !ok {
		return nil, errorAt(node, "fromDecoratorArg: node cannot carry decorators")
	}
	dec, ok := findDecorator(node, r.DecoratorName)
	if !ok {
		return nil, errorAt(node, "fromDecoratorArg: decorator @%s not found", r.DecoratorName)
	}
	if r.ArgIndex < 0 || r.ArgIndex >= len(dec.Arguments) {
		return nil, errorAt(node, "fromDecoratorArg: argument index %d out of bounds (@%s has %d arguments)",
			r.ArgIndex, r.DecoratorName, len(dec.Arguments))
	}
	arg := dec.Arguments[r.ArgIndex]
	lit, ok := arg.Literal()
	if !ok {
		return nil, errorAt(node, "fromDecoratorArg: argument %d of @%s is not a literal: %s",
			r.ArgIndex, r.DecoratorName, arg.Text())
	}
	return literalWithTransform(lit, r.Transform), nil
}

func findDecorator(node syntax.Node, name string) (syntax.Decorator, bool) {
	decoratable, ok := node.(syntax.Decoratable)
	if !ok {
		return syntax.Decorator{}, false
	}
	for _, dec := range decoratable.Decorators() {
		if dec.Name == name {
			return dec, true
		}
	}
	return syntax.Decorator{}, false
}

func fromDecoratorName(node syntax.Node, r *rules.FromDecoratorName) (Value, error) {
	decoratable, ok := node.(syntax.Decoratable)
	if !ok {
		return nil, errorAt(node, "fromDecoratorName: node cannot carry decorators")
	}
	for _, dec := range decoratable.Decorators() {
		if len(r.OneOf) > 0 && !containsString(r.OneOf, dec.Name) {
			continue
		}
		return String(transform.Apply(dec.Name, r.Transform)), nil
	}
	if len(r.OneOf) > 0 {
		return nil, errorAt(node, "fromDecoratorName: none of %v found", r.OneOf)
	}
	return nil, errorAt(node, "fromDecoratorName: node has no decorators")
}

func fromGenericArg(node syntax.Node, r *rules.FromGenericArg) (Value, error) {
	class, ok := classOf(node)
	if !ok {
		return nil, errorAt(node, "fromGenericArg: node is not a class or class member")
	}
	args := class.TypeArguments(r.Heritage)
	if r.Position < 0 || r.Position >= len(args) {
		return nil, errorAt(node, "fromGenericArg: position %d out of bounds (%d type arguments)", r.Position, len(args))
	}
	return String(transform.Apply(args[r.Position], r.Transform)), nil
}

func fromMethodSignature(node syntax.Node) (Value, error) {
	method, ok := methodOf(node)
	if !ok {
		return nil, errorAt(node, "fromMethodSignature: node is not a method or function")
	}
	ret, ok := method.ReturnType()
	if !ok || ret == "" {
		ret = UnknownType
	}
	return MethodSignature{
		Parameters: parameterInfos(method.Parameters()),
		ReturnType: ret,
	}, nil
}

func fromConstructorParams(node syntax.Node) (Value, error) {
	class, ok := classOf(node)
	if !ok {
		return nil, errorAt(node, "fromConstructorParams: node is not a class or class member")
	}
	ctors := class.Constructors()
	if len(ctors) == 0 {
		return ParameterList{}, nil
	}
	return ParameterList(parameterInfos(ctors[0].Parameters())), nil
}

func fromParameterType(node syntax.Node, r *rules.FromParameterType) (Value, error) {
	method, ok := methodOf(node)
	if !ok {
		return nil, errorAt(node, "fromParameterType: node is not a method or function")
	}
	params := method.Parameters()
	if r.Position < 0 || r.Position >= len(params) {
		return nil, errorAt(node, "fromParameterType: parameter position %d out of bounds (method has %d parameters)",
			r.Position, len(params))
	}
	return String(transform.Apply(typeOf(params[r.Position]), r.Transform)), nil
}

// methodOf accepts methods and functions but not classes.
func methodOf(node syntax.Node) (syntax.MethodShaped, bool) {
	if _, isClass := node.(syntax.ClassShaped); isClass {
		return nil, false
	}
	m, ok := node.(syntax.MethodShaped)
	return m, ok
}

func parameterInfos(params []syntax.Parameter) []ParameterInfo {
	out := make([]ParameterInfo, 0, len(params))
	for _, p := range params {
		out = append(out, ParameterInfo{Name: p.Name, Type: typeOf(p)})
	}
	return out
}

func typeOf(p syntax.Parameter) string {
	if !p.HasType || p.Type == "" {
		return UnknownType
	}
	return p.Type
}

// literalWithTransform keeps literals typed unless a transform is configured,
// in which case the literal's source rendering is transformed.
func literalWithTransform(lit syntax.Literal, t *rules.Transform) Value {
	if t != nil {
		return String(transform.Apply(lit.String(), t))
	}
	switch lit.Kind {
	case syntax.LiteralNumber:
		return Number(lit.Num)
	case syntax.LiteralBoolean:
		return Bool(lit.Bool)
	}
	return String(lit.Str)
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
