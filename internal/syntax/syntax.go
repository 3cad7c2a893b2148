// Package syntax defines the narrow capability interfaces the extraction
// engine needs from an AST. Concrete parsers (see syntax/typescript) implement
// whichever capabilities a node actually has; evaluators check for them with
// type assertions and never reference a concrete parser type.
package syntax

import "strconv"

// Node is the minimum every AST node handed to the engine provides.
type Node interface {
	// SourceFile returns the file the node was parsed from.
	SourceFile() SourceFile

	// StartLine returns the 1-indexed line the node starts on.
	StartLine() int

	// Parent returns the enclosing declaration, or nil for top-level nodes.
	// For class members this is the class declaration itself, not the class body.
	Parent() Node
}

// SourceFile exposes file-level facts.
type SourceFile interface {
	// Path returns the workspace-relative path of the file.
	Path() string

	// ImportSource returns the module specifier of the import declaration that
	// names-imports identifier (e.g. `import { Get } from '@nestjs/common'`).
	ImportSource(identifier string) (string, bool)
}

// Nameable is implemented by classes, methods and functions.
type Nameable interface {
	Node
	// Name returns the declared name; ok is false for anonymous declarations.
	Name() (name string, ok bool)
}

// Decoratable is implemented by classes and methods.
type Decoratable interface {
	Node
	Decorators() []Decorator
}

// DocBearing is implemented by nodes that can carry JSDoc comments.
type DocBearing interface {
	Node
	// DocTags returns the tag names (without '@') of all attached doc comments.
	DocTags() []string
}

// ClassShaped is implemented by class declarations.
type ClassShaped interface {
	Node
	// Heritage returns the text of the extends clause.
	Heritage() (extends string, ok bool)
	// Implements returns the text of every implements clause entry.
	Implements() []string
	// Constructors returns the declared constructors in source order.
	Constructors() []MethodShaped
	// TypeArguments returns the type arguments of a heritage entry, e.g.
	// ["OrderCreated"] for `extends Handler<OrderCreated>`. With an empty
	// heritage the first extends/implements entry that has type arguments is
	// used; otherwise the entry whose base name equals heritage.
	TypeArguments(heritage string) []string
	// Property returns the initializer of the property declaration named name.
	Property(name string) (Expression, bool)
}

// MethodShaped is implemented by methods, constructors and functions.
type MethodShaped interface {
	Node
	Parameters() []Parameter
	// ReturnType returns the text of the return type annotation.
	ReturnType() (string, bool)
}

// Parameter is a declared parameter of a method-shaped node.
type Parameter struct {
	Name string
	Type string // empty when HasType is false
	// HasType reports whether the parameter carries a type annotation.
	HasType bool
}

// Decorator is a decorator applied to a class or method.
type Decorator struct {
	// Name is the rightmost identifier of the decorator expression
	// (`Get` for both `@Get()` and `@http.Get()`).
	Name string
	// Identifier is the root identifier used for import resolution
	// (`http` for `@http.Get()`).
	Identifier string
	Arguments  []Expression
	Line       int
}

// Expression is a structural view of an expression node. Only literal values
// are ever extracted; everything else is navigated or rejected.
type Expression interface {
	// Literal returns the value if the expression is a string, numeric or
	// boolean literal.
	Literal() (Literal, bool)
	// Field returns the value of key if the expression is an object literal.
	Field(key string) (Expression, bool)
	// Index returns the i-th element if the expression is an array literal.
	Index(i int) (Expression, bool)
	// Text returns the source text of the expression.
	Text() string
	Line() int
}

// LiteralKind identifies the type of a Literal.
type LiteralKind int

const (
	LiteralString LiteralKind = iota
	LiteralNumber
	LiteralBoolean
)

func (k LiteralKind) String() string {
	switch k {
	case LiteralString:
		return "string"
	case LiteralNumber:
		return "number"
	case LiteralBoolean:
		return "boolean"
	}
	return "unknown"
}

// Literal is a compile-time literal value.
type Literal struct {
	Kind LiteralKind
	Str  string
	Num  float64
	Bool bool
	// Raw is the source text (without quotes for strings).
	Raw string
}

// StringLiteral returns a string Literal.
func StringLiteral(s string) Literal {
	return Literal{Kind: LiteralString, Str: s, Raw: s}
}

// NumberLiteral returns a numeric Literal.
func NumberLiteral(n float64) Literal {
	return Literal{Kind: LiteralNumber, Num: n, Raw: strconv.FormatFloat(n, 'f', -1, 64)}
}

// BoolLiteral returns a boolean Literal.
func BoolLiteral(b bool) Literal {
	return Literal{Kind: LiteralBoolean, Bool: b, Raw: strconv.FormatBool(b)}
}

// String renders the literal the way it reads in source, without quotes.
func (l Literal) String() string {
	switch l.Kind {
	case LiteralString:
		return l.Str
	case LiteralNumber:
		if l.Raw != "" {
			return l.Raw
		}
		return strconv.FormatFloat(l.Num, 'f', -1, 64)
	case LiteralBoolean:
		return strconv.FormatBool(l.Bool)
	}
	return l.Raw
}
